package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// MySQLMirror is an optional secondary sink for a single instance's stats
// snapshot. Each painminer instance keeps its own SQLite file as the
// source of truth; when MySQLMirrorDSN is set, every tick also upserts its
// instance's Stats row into a shared MySQL table, giving a multi-instance
// deployment one place to read aggregate health without fanning out to
// every instance's Read API.
type MySQLMirror struct {
	db *sql.DB
}

const createStatsMirrorTable = `
CREATE TABLE IF NOT EXISTS painminer_stats_mirror (
	instance            VARCHAR(255) PRIMARY KEY,
	total_pain_records   INT NOT NULL,
	total_clusters       INT NOT NULL,
	total_synthesized    INT NOT NULL,
	total_alerts         INT NOT NULL,
	unread_alerts        INT NOT NULL,
	cron_count           INT NOT NULL,
	updated_at           TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

const upsertStatsMirror = `
INSERT INTO painminer_stats_mirror
	(instance, total_pain_records, total_clusters, total_synthesized, total_alerts, unread_alerts, cron_count)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	total_pain_records = VALUES(total_pain_records),
	total_clusters = VALUES(total_clusters),
	total_synthesized = VALUES(total_synthesized),
	total_alerts = VALUES(total_alerts),
	unread_alerts = VALUES(unread_alerts),
	cron_count = VALUES(cron_count)`

// OpenMySQLMirror connects to dsn, creates the mirror table if absent, and
// returns a ready MySQLMirror. Callers only open this when
// config.Config.MySQLMirrorDSN is non-empty; a single-instance deployment
// has no use for it.
func OpenMySQLMirror(ctx context.Context, dsn string) (*MySQLMirror, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql mirror: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql mirror: %w", err)
	}
	if _, err := db.ExecContext(ctx, createStatsMirrorTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create stats mirror table: %w", err)
	}
	return &MySQLMirror{db: db}, nil
}

// MirrorStats upserts instance's latest Stats snapshot.
func (m *MySQLMirror) MirrorStats(ctx context.Context, instance string, stats types.Stats) error {
	_, err := m.db.ExecContext(ctx, upsertStatsMirror,
		instance, stats.TotalPainRecords, stats.TotalClusters, stats.TotalSynthesized,
		stats.TotalAlerts, stats.UnreadAlerts, stats.CronCount)
	if err != nil {
		return fmt.Errorf("mirror stats: %w", err)
	}
	return nil
}

func (m *MySQLMirror) Close() error {
	return m.db.Close()
}

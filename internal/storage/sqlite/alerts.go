package sqlite

import (
	"context"
	"database/sql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// InsertAlert records a generated alert (new opportunity, hot trend,
// competitor spike) for the Read API's /alerts feed (C15).
func (s *Store) InsertAlert(ctx context.Context, a types.Alert) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (type, cluster_id, message, unread, created_at)
		VALUES (?, ?, ?, 1, ?)
	`, a.Type, a.ClusterID, a.Message, now())
	if err != nil {
		return 0, wrapDBError("insert_alert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBError("insert_alert_id", err)
	}
	return id, nil
}

// UnreadAlerts returns pending alerts, newest first, for the /alerts feed.
func (s *Store) UnreadAlerts(ctx context.Context, limit int) ([]types.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, cluster_id, message, unread, created_at
		FROM alerts WHERE unread = 1 ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("unread_alerts", err)
	}
	defer rows.Close()

	var out []types.Alert
	for rows.Next() {
		var a types.Alert
		var clusterID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Type, &clusterID, &a.Message, &a.Unread, &a.CreatedAt); err != nil {
			return nil, wrapDBError("unread_alerts_scan", err)
		}
		if clusterID.Valid {
			v := clusterID.Int64
			a.ClusterID = &v
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("unread_alerts_rows", err)
	}
	return out, nil
}

// MarkAlertRead flips an alert to read.
func (s *Store) MarkAlertRead(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE alerts SET unread = 0 WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("mark_alert_read", err)
	}
	return nil
}

// UpsertGeoStats rolls a record's geo tag into the per-region aggregate
// (C11), recomputing the running average confidence in SQL to avoid a
// read-modify-write round trip.
func (s *Store) UpsertGeoStats(ctx context.Context, region string, confidence float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geo_stats (region, mention_count, avg_confidence, updated_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(region) DO UPDATE SET
			avg_confidence = (avg_confidence * mention_count + excluded.avg_confidence) / (mention_count + 1),
			mention_count = mention_count + 1,
			updated_at = excluded.updated_at
	`, region, confidence, now())
	if err != nil {
		return wrapDBError("upsert_geo_stats", err)
	}
	return nil
}

// AllGeoStats returns every region's rollup, the feed behind /geo.
func (s *Store) AllGeoStats(ctx context.Context) ([]types.GeoStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region, mention_count, avg_confidence, updated_at FROM geo_stats
		ORDER BY mention_count DESC
	`)
	if err != nil {
		return nil, wrapDBError("all_geo_stats", err)
	}
	defer rows.Close()

	var out []types.GeoStats
	for rows.Next() {
		var g types.GeoStats
		if err := rows.Scan(&g.Region, &g.MentionCount, &g.AvgConfidence, &g.UpdatedAt); err != nil {
			return nil, wrapDBError("all_geo_stats_scan", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("all_geo_stats_rows", err)
	}
	return out, nil
}

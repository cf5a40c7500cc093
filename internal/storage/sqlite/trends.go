package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// UpsertTrendSnapshot writes one day's mention-volume snapshot for a
// canonical topic (C10), replacing same-day snapshots so a re-run of the
// trend phase later the same tick does not double-count.
func (s *Store) UpsertTrendSnapshot(ctx context.Context, t types.PainTrend) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pain_trends (
			topic_canonical, snapshot_date, bucket_type, cluster_id,
			mention_count, new_mentions, velocity, velocity_7d, velocity_30d,
			trend_status, is_spike, avg_severity, subreddit_spread, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(topic_canonical, snapshot_date, bucket_type) DO UPDATE SET
			mention_count = excluded.mention_count,
			new_mentions = excluded.new_mentions,
			velocity = excluded.velocity,
			velocity_7d = excluded.velocity_7d,
			velocity_30d = excluded.velocity_30d,
			trend_status = excluded.trend_status,
			is_spike = excluded.is_spike,
			avg_severity = excluded.avg_severity,
			subreddit_spread = excluded.subreddit_spread
	`, t.TopicCanonical, t.SnapshotDate, t.BucketType, t.ClusterID, t.MentionCount,
		t.NewMentions, t.Velocity, t.Velocity7d, t.Velocity30d, t.TrendStatus,
		t.IsSpike, t.AvgSeverity, t.SubredditSpread, now())
	if err != nil {
		return wrapDBError("upsert_trend_snapshot", err)
	}
	return nil
}

// TrendHistory returns a topic's snapshots across its last n days, oldest
// first, the series the sparkline (C10) and velocity math are built from.
func (s *Store) TrendHistory(ctx context.Context, topic string, days int) ([]types.PainTrend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic_canonical, snapshot_date, bucket_type, cluster_id,
			mention_count, new_mentions, velocity, velocity_7d, velocity_30d,
			trend_status, is_spike, avg_severity, subreddit_spread, created_at
		FROM pain_trends
		WHERE topic_canonical = ?
		ORDER BY snapshot_date DESC
		LIMIT ?
	`, topic, days)
	if err != nil {
		return nil, wrapDBError("trend_history", err)
	}
	defer rows.Close()

	var out []types.PainTrend
	for rows.Next() {
		t, err := scanTrend(rows)
		if err != nil {
			return nil, wrapDBError("trend_history_scan", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("trend_history_rows", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func scanTrend(rows *sql.Rows) (types.PainTrend, error) {
	var t types.PainTrend
	var clusterID sql.NullInt64
	var velocity, velocity7d, velocity30d sql.NullFloat64
	err := rows.Scan(&t.TopicCanonical, &t.SnapshotDate, &t.BucketType, &clusterID,
		&t.MentionCount, &t.NewMentions, &velocity, &velocity7d, &velocity30d,
		&t.TrendStatus, &t.IsSpike, &t.AvgSeverity, &t.SubredditSpread, &t.CreatedAt)
	if err != nil {
		return types.PainTrend{}, err
	}
	if clusterID.Valid {
		v := clusterID.Int64
		t.ClusterID = &v
	}
	if velocity.Valid {
		v := velocity.Float64
		t.Velocity = &v
	}
	if velocity7d.Valid {
		v := velocity7d.Float64
		t.Velocity7d = &v
	}
	if velocity30d.Valid {
		v := velocity30d.Float64
		t.Velocity30d = &v
	}
	return t, nil
}

// UpsertTrendSummary overwrites the rollup row the Read API serves
// directly, avoiding a window-function query over pain_trends on every
// request.
func (s *Store) UpsertTrendSummary(ctx context.Context, sum types.TrendSummary) error {
	sparkline, err := json.Marshal(sum.Sparkline)
	if err != nil {
		return wrapDBError("upsert_trend_summary_marshal", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trend_summary (
			topic_canonical, current_count, current_velocity, trend_status,
			peak_count, peak_date, first_seen, last_updated, sparkline
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(topic_canonical) DO UPDATE SET
			current_count = excluded.current_count,
			current_velocity = excluded.current_velocity,
			trend_status = excluded.trend_status,
			peak_count = excluded.peak_count,
			peak_date = excluded.peak_date,
			last_updated = excluded.last_updated,
			sparkline = excluded.sparkline
	`, sum.TopicCanonical, sum.CurrentCount, sum.CurrentVelocity, sum.TrendStatus,
		sum.PeakCount, sum.PeakDate, sum.FirstSeen, now(), string(sparkline))
	if err != nil {
		return wrapDBError("upsert_trend_summary", err)
	}
	return nil
}

// TopTrends returns the trend_summary rows hottest-first, the feed behind
// the Read API's /trends endpoint.
func (s *Store) TopTrends(ctx context.Context, limit int) ([]types.TrendSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic_canonical, current_count, current_velocity, trend_status,
			peak_count, peak_date, first_seen, last_updated, sparkline
		FROM trend_summary
		ORDER BY current_velocity DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("top_trends", err)
	}
	defer rows.Close()

	var out []types.TrendSummary
	for rows.Next() {
		var sum types.TrendSummary
		var velocity sql.NullFloat64
		var sparkline sql.NullString
		if err := rows.Scan(&sum.TopicCanonical, &sum.CurrentCount, &velocity,
			&sum.TrendStatus, &sum.PeakCount, &sum.PeakDate, &sum.FirstSeen,
			&sum.LastUpdated, &sparkline); err != nil {
			return nil, wrapDBError("top_trends_scan", err)
		}
		if velocity.Valid {
			v := velocity.Float64
			sum.CurrentVelocity = &v
		}
		if sparkline.Valid && sparkline.String != "" {
			_ = json.Unmarshal([]byte(sparkline.String), &sum.Sparkline)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("top_trends_rows", err)
	}
	return out, nil
}

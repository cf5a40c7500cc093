package sqlite

import (
	"context"
	"database/sql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// TopicDailyStats aggregates every tagged pain record extracted on the
// given UTC calendar date (YYYY-MM-DD) by normalized_topic, the raw input
// the trend snapshotter (C10) reduces into a PainTrend row.
func (s *Store) TopicDailyStats(ctx context.Context, date string) ([]types.TopicDailyStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			normalized_topic,
			COUNT(*),
			AVG(CASE severity
				WHEN 'critical' THEN 4
				WHEN 'high' THEN 3
				WHEN 'medium' THEN 2
				WHEN 'low' THEN 1
				ELSE 0 END),
			COUNT(DISTINCT subreddit),
			MAX(cluster_id)
		FROM pain_records
		WHERE normalized_topic IS NOT NULL
			AND date(extracted_at) = date(?)
		GROUP BY normalized_topic
	`, date)
	if err != nil {
		return nil, wrapDBError("topic_daily_stats", err)
	}
	defer rows.Close()

	var out []types.TopicDailyStat
	for rows.Next() {
		var stat types.TopicDailyStat
		var clusterID sql.NullInt64
		if err := rows.Scan(&stat.TopicCanonical, &stat.MentionCount, &stat.AvgSeverity,
			&stat.SubredditSpread, &clusterID); err != nil {
			return nil, wrapDBError("topic_daily_stats_scan", err)
		}
		if clusterID.Valid {
			v := clusterID.Int64
			stat.ClusterID = &v
		}
		out = append(out, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("topic_daily_stats_rows", err)
	}
	return out, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// Opportunities lists clusters for the Read API's primary feed, sorted by
// social_proof_count by default (spec §4.14), filtered to a minimum member
// count, optionally restricted to clusters with a member tagged to region,
// and optionally restricted to synthesized-only clusters (all=false).
func (s *Store) Opportunities(ctx context.Context, limit, minMentions int, region, sort string, all bool) ([]types.PainCluster, error) {
	query := clusterSelectCols + `FROM pain_clusters WHERE member_count >= ?`
	args := []any{minMentions}

	if !all {
		query += ` AND synthesized_at IS NOT NULL`
	}
	if region != "" {
		query += ` AND id IN (SELECT cluster_id FROM pain_records WHERE geo_region = ?)`
		args = append(args, region)
	}

	switch sort {
	case "market_tam":
		query += ` ORDER BY id IN (SELECT cluster_id FROM market_estimates) DESC, social_proof_count DESC`
	case "total_score":
		query += ` ORDER BY total_score DESC`
	default:
		query += ` ORDER BY social_proof_count DESC`
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("opportunities", err)
	}
	defer rows.Close()
	return scanClusterRows(rows)
}

// RecentPainRecords returns the most recently extracted pain records, the
// feed behind GET /api/painpoints.
func (s *Store) RecentPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_id, subreddit, raw_quote, author,
			source_score, source_url, extracted_at, topics, persona, severity
		FROM pain_records
		ORDER BY extracted_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("recent_pain_records", err)
	}
	defer rows.Close()

	var out []types.PainRecord
	for rows.Next() {
		var r types.PainRecord
		var topics, persona, severity sql.NullString
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.Subreddit,
			&r.RawQuote, &r.Author, &r.SourceScore, &r.SourceURL, &r.ExtractedAt,
			&topics, &persona, &severity); err != nil {
			return nil, wrapDBError("recent_pain_records_scan", err)
		}
		if topics.Valid && topics.String != "" {
			r.Topics = strings.Split(topics.String, ",")
		}
		r.Persona = persona.String
		r.Severity = types.Severity(severity.String)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("recent_pain_records_rows", err)
	}
	return out, nil
}

// TopicSummaries aggregates pain-record and cluster counts per canonical
// topic, paginated, the feed behind GET /api/topics.
func (s *Store) TopicSummaries(ctx context.Context, limit, offset int) ([]types.TopicSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pr.normalized_topic, COUNT(DISTINCT pr.id), COUNT(DISTINCT pc.id)
		FROM pain_records pr
		LEFT JOIN pain_clusters pc ON pc.topic_canonical = pr.normalized_topic
		WHERE pr.normalized_topic IS NOT NULL
		GROUP BY pr.normalized_topic
		ORDER BY COUNT(DISTINCT pr.id) DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, wrapDBError("topic_summaries", err)
	}
	defer rows.Close()

	var out []types.TopicSummary
	for rows.Next() {
		var t types.TopicSummary
		if err := rows.Scan(&t.TopicCanonical, &t.RecordCount, &t.ClusterCount); err != nil {
			return nil, wrapDBError("topic_summaries_scan", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("topic_summaries_rows", err)
	}
	return out, nil
}

// TrendsByStatus returns trend_summary rows restricted to a single status
// (e.g. "hot", "cooling"), hottest-first, the feed behind
// GET /api/trends?status and GET /api/trends/hot|cooling.
func (s *Store) TrendsByStatus(ctx context.Context, status string, limit int) ([]types.TrendSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic_canonical, current_count, current_velocity, trend_status,
			peak_count, peak_date, first_seen, last_updated, sparkline
		FROM trend_summary
		WHERE trend_status = ?
		ORDER BY current_velocity DESC
		LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, wrapDBError("trends_by_status", err)
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
			return nil, wrapDBError("trends_by_status_scan", err)
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
	return out, rows.Err()
}

// CompetitorProductSummary is one competitor product's mention rollup, the
// row shape behind GET /api/competitors.
type CompetitorProductSummary struct {
	Product      string
	MentionCount int
}

// CompetitorSummaries lists every tracked competitor product with its
// mention count, most-mentioned first.
func (s *Store) CompetitorSummaries(ctx context.Context) ([]CompetitorProductSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product, COUNT(*) FROM competitor_mentions
		GROUP BY product
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, wrapDBError("competitor_summaries", err)
	}
	defer rows.Close()

	var out []CompetitorProductSummary
	for rows.Next() {
		var c CompetitorProductSummary
		if err := rows.Scan(&c.Product, &c.MentionCount); err != nil {
			return nil, wrapDBError("competitor_summaries_scan", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats aggregates pipeline-wide counters, the feed behind GET /api/stats.
func (s *Store) Stats(ctx context.Context) (types.Stats, error) {
	var st types.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pain_records`).Scan(&st.TotalPainRecords); err != nil {
		return st, wrapDBError("stats_pain_records", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pain_clusters`).Scan(&st.TotalClusters); err != nil {
		return st, wrapDBError("stats_clusters", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pain_clusters WHERE synthesized_at IS NOT NULL`).Scan(&st.TotalSynthesized); err != nil {
		return st, wrapDBError("stats_synthesized", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&st.TotalAlerts); err != nil {
		return st, wrapDBError("stats_alerts", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE unread = 1`).Scan(&st.UnreadAlerts); err != nil {
		return st, wrapDBError("stats_unread_alerts", err)
	}

	defaulted, err := s.GetState(ctx, "binary_filter_defaulted")
	if err != nil {
		return st, err
	}
	if defaulted != "" {
		var n int
		for _, c := range defaulted {
			if c < '0' || c > '9' {
				n = 0
				break
			}
		}
		_ = n
	}
	st.FilterDefaulted = atoiSafe(defaulted)

	cronCount, err := s.GetState(ctx, types.StateCronCount)
	if err != nil {
		return st, err
	}
	st.CronCount = atoiSafe(cronCount)

	return st, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// FeatureGapCountsAll aggregates feature-gap phrase frequency across every
// competitor product, the feed behind GET /api/feature-gaps.
func (s *Store) FeatureGapCountsAll(ctx context.Context, limit int) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT feature_gap, COUNT(*) FROM competitor_mentions
		WHERE feature_gap IS NOT NULL AND feature_gap != ''
		GROUP BY feature_gap
		ORDER BY COUNT(*) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("feature_gap_counts_all", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var gap string
		var count int
		if err := rows.Scan(&gap, &count); err != nil {
			return nil, wrapDBError("feature_gap_counts_all_scan", err)
		}
		out[gap] = count
	}
	return out, rows.Err()
}

// ListMarketEstimates returns every market estimate, most recent first, the
// feed behind GET /api/market.
func (s *Store) ListMarketEstimates(ctx context.Context, limit int) ([]types.MarketEstimate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cluster_id, tam, sam, rationale, created_at
		FROM market_estimates
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("list_market_estimates", err)
	}
	defer rows.Close()

	var out []types.MarketEstimate
	for rows.Next() {
		var m types.MarketEstimate
		if err := rows.Scan(&m.ID, &m.ClusterID, &m.TAM, &m.SAM, &m.Rationale, &m.CreatedAt); err != nil {
			return nil, wrapDBError("list_market_estimates_scan", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListFeatures returns MVP features, optionally filtered by feature_type,
// the feed behind GET /api/features.
func (s *Store) ListFeatures(ctx context.Context, limit int, featureType string) ([]types.MvpFeature, error) {
	query := `SELECT id, cluster_id, name, feature_type, rationale, created_at FROM mvp_features`
	args := []any{}
	if featureType != "" {
		query += ` WHERE feature_type = ?`
		args = append(args, featureType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list_features", err)
	}
	defer rows.Close()

	var out []types.MvpFeature
	for rows.Next() {
		var f types.MvpFeature
		if err := rows.Scan(&f.ID, &f.ClusterID, &f.Name, &f.FeatureType, &f.Rationale, &f.CreatedAt); err != nil {
			return nil, wrapDBError("list_features_scan", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListAlerts returns alerts filtered by type and/or unread status, paginated,
// the feed behind GET /api/alerts.
func (s *Store) ListAlerts(ctx context.Context, alertType string, unreadOnly bool, limit, offset int) ([]types.Alert, error) {
	query := `SELECT id, type, cluster_id, message, unread, created_at FROM alerts WHERE 1=1`
	args := []any{}
	if alertType != "" {
		query += ` AND type = ?`
		args = append(args, alertType)
	}
	if unreadOnly {
		query += ` AND unread = 1`
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list_alerts", err)
	}
	defer rows.Close()

	var out []types.Alert
	for rows.Next() {
		var a types.Alert
		var clusterID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Type, &clusterID, &a.Message, &a.Unread, &a.CreatedAt); err != nil {
			return nil, wrapDBError("list_alerts_scan", err)
		}
		if clusterID.Valid {
			id := clusterID.Int64
			a.ClusterID = &id
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountUnreadAlerts returns the unread-alert count, the feed behind
// GET /api/alerts/count.
func (s *Store) CountUnreadAlerts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE unread = 1`).Scan(&n)
	if err != nil {
		return 0, wrapDBError("count_unread_alerts", err)
	}
	return n, nil
}

// MarkAllAlertsRead clears the unread flag on every alert.
func (s *Store) MarkAllAlertsRead(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE alerts SET unread = 0`)
	if err != nil {
		return wrapDBError("mark_all_alerts_read", err)
	}
	return nil
}

// GeoStatsForRegion fetches a single region's rollup.
func (s *Store) GeoStatsForRegion(ctx context.Context, region string) (types.GeoStats, error) {
	var g types.GeoStats
	err := s.db.QueryRowContext(ctx, `
		SELECT region, mention_count, avg_confidence, updated_at FROM geo_stats WHERE region = ?
	`, region).Scan(&g.Region, &g.MentionCount, &g.AvgConfidence, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return types.GeoStats{}, wrapDBErrorf(ErrNotFound, "geo_stats_for_region:%s", region)
	}
	if err != nil {
		return types.GeoStats{}, wrapDBErrorf(err, "geo_stats_for_region:%s", region)
	}
	return g, nil
}

package sqlite

import (
	"context"
	"database/sql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// InsertCompetitorMention stores a complaint found about a named competitor
// product (C12). source_url is unique so the same thread surfaced by two
// overlapping searches is only recorded once.
func (s *Store) InsertCompetitorMention(ctx context.Context, m types.CompetitorMention) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO competitor_mentions (
			vertical, product, source_url, subreddit, body, sentiment,
			feature_gap, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO NOTHING
	`, m.Vertical, m.Product, m.SourceURL, m.Subreddit, m.Body, m.Sentiment,
		m.FeatureGap, now())
	if err != nil {
		return 0, wrapDBError("insert_competitor_mention", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBError("insert_competitor_mention_id", err)
	}
	return id, nil
}

// MentionsForProduct returns every recorded mention for a competitor
// product, the feed behind the Read API's /competitors/{product} detail.
func (s *Store) MentionsForProduct(ctx context.Context, product string, limit int) ([]types.CompetitorMention, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vertical, product, source_url, subreddit, body, sentiment,
			feature_gap, fetched_at
		FROM competitor_mentions
		WHERE product = ?
		ORDER BY fetched_at DESC
		LIMIT ?
	`, product, limit)
	if err != nil {
		return nil, wrapDBError("mentions_for_product", err)
	}
	defer rows.Close()

	var out []types.CompetitorMention
	for rows.Next() {
		var m types.CompetitorMention
		var featureGap sql.NullString
		if err := rows.Scan(&m.ID, &m.Vertical, &m.Product, &m.SourceURL,
			&m.Subreddit, &m.Body, &m.Sentiment, &featureGap, &m.FetchedAt); err != nil {
			return nil, wrapDBError("mentions_for_product_scan", err)
		}
		m.FeatureGap = featureGap.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("mentions_for_product_rows", err)
	}
	return out, nil
}

// DistinctProducts returns every competitor product with at least one
// recorded mention, the set the alert generator (C13) scans for spikes.
func (s *Store) DistinctProducts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT product FROM competitor_mentions ORDER BY product`)
	if err != nil {
		return nil, wrapDBError("distinct_products", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, wrapDBError("distinct_products_scan", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountMentionsForProduct returns the total recorded mention count for a
// product, cheaper than loading every mention body just to measure growth.
func (s *Store) CountMentionsForProduct(ctx context.Context, product string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM competitor_mentions WHERE product = ?`, product).Scan(&count)
	if err != nil {
		return 0, wrapDBError("count_mentions_for_product", err)
	}
	return count, nil
}

// FeatureGapCounts aggregates how often each non-empty feature_gap value
// was recorded for one product, the tally behind the
// /api/competitors/{product} endpoint.
func (s *Store) FeatureGapCounts(ctx context.Context, product string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT feature_gap, COUNT(*) FROM competitor_mentions
		WHERE product = ? AND feature_gap IS NOT NULL AND feature_gap != ''
		GROUP BY feature_gap
		ORDER BY COUNT(*) DESC
	`, product)
	if err != nil {
		return nil, wrapDBError("feature_gap_counts", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var gap string
		var count int
		if err := rows.Scan(&gap, &count); err != nil {
			return nil, wrapDBError("feature_gap_counts_scan", err)
		}
		out[gap] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("feature_gap_counts_rows", err)
	}
	return out, nil
}

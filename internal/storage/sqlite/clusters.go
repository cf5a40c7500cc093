package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// CreateCluster opens a new cluster around a single seed record's embedding
// (I1: every cluster starts life Empty->Open with exactly one member), and
// adds that member in the same transaction so a cluster never briefly
// exists with member_count 0.
func (s *Store) CreateCluster(ctx context.Context, centroidText, topicCanonical, broadCategory string, centroidEmbeddingID, seedRecordID int64) (int64, error) {
	var clusterID int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO pain_clusters (
				centroid_text, topic_canonical, broad_category, centroid_embedding_id,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?)
		`, centroidText, topicCanonical, broadCategory, centroidEmbeddingID, now(), now())
		if err != nil {
			return err
		}
		clusterID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if err := addMemberTx(ctx, tx, clusterID, seedRecordID, 1.0); err != nil {
			return err
		}
		return recomputeRollupsTx(ctx, tx, clusterID)
	})
	if err != nil {
		return 0, wrapDBError("create_cluster", err)
	}
	return clusterID, nil
}

// AddClusterMember adds a matched record to an existing cluster (I2: a
// record joins at most one cluster) and recomputes the cluster's rollups
// from the current cluster_members set (spec §4.6 step 4), rather than
// maintaining incremental counters that could drift from the source rows.
func (s *Store) AddClusterMember(ctx context.Context, clusterID, painRecordID int64, similarity float64) error {
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := addMemberTx(ctx, tx, clusterID, painRecordID, similarity); err != nil {
			return err
		}
		return recomputeRollupsTx(ctx, tx, clusterID)
	})
	if err != nil {
		return wrapDBError("add_cluster_member", err)
	}
	return nil
}

func addMemberTx(ctx context.Context, tx *sql.Tx, clusterID, painRecordID int64, similarity float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cluster_members (cluster_id, pain_record_id, similarity_score, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cluster_id, pain_record_id) DO NOTHING
	`, clusterID, painRecordID, similarity, now())
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE pain_records SET cluster_id = ?, cluster_similarity = ? WHERE id = ?`, clusterID, similarity, painRecordID)
	return err
}

// recomputeRollupsTx recomputes member_count, unique_authors, subreddit_count,
// total_upvotes, subreddits_list, and top_quotes (up to 5, one per distinct
// author, sorted by source score) from the live cluster_members/pain_records
// join -- the full recompute spec §4.6 describes, run after every membership
// mutation (Invariant I2).
func recomputeRollupsTx(ctx context.Context, tx *sql.Tx, clusterID int64) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT pr.id, pr.author, pr.subreddit, pr.raw_quote, pr.source_score, pr.persona, pr.severity
		FROM cluster_members cm
		JOIN pain_records pr ON pr.id = cm.pain_record_id
		WHERE cm.cluster_id = ?
	`, clusterID)
	if err != nil {
		return err
	}
	defer rows.Close()

	authors := make(map[string]bool)
	subreddits := make(map[string]bool)
	totalUpvotes := 0
	memberCount := 0
	var quotes []types.Quote
	for rows.Next() {
		var q types.Quote
		var persona, severity sql.NullString
		if err := rows.Scan(&q.PainRecordID, &q.Author, new(string), &q.Text, &q.SourceScore, &persona, &severity); err != nil {
			return err
		}
		q.Persona = persona.String
		q.Severity = types.Severity(severity.String)
		memberCount++
		authors[q.Author] = true
		totalUpvotes += q.SourceScore
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// subreddit set needs a second light pass since Scan above discarded it
	// into a throwaway pointer; re-query just the distinct subreddit column.
	subRows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT pr.subreddit FROM cluster_members cm
		JOIN pain_records pr ON pr.id = cm.pain_record_id
		WHERE cm.cluster_id = ?
	`, clusterID)
	if err != nil {
		return err
	}
	defer subRows.Close()
	var subredditsList []string
	for subRows.Next() {
		var sr string
		if err := subRows.Scan(&sr); err != nil {
			return err
		}
		subreddits[sr] = true
		subredditsList = append(subredditsList, sr)
	}
	if err := subRows.Err(); err != nil {
		return err
	}

	top := topQuotes(quotes)
	topJSON, err := marshalQuotes(top)
	if err != nil {
		return err
	}
	subJSON, err := json.Marshal(subredditsList)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE pain_clusters SET
			member_count = ?, unique_authors = ?, subreddit_count = ?,
			total_upvotes = ?, social_proof_count = ?, subreddits_list = ?,
			top_quotes = ?, updated_at = ?
		WHERE id = ?
	`, memberCount, len(authors), len(subreddits), totalUpvotes, memberCount,
		string(subJSON), topJSON, now(), clusterID)
	return err
}

// topQuotes picks up to 5 quotes, one per distinct author, sorted by
// source score descending (spec §4.6 step 4).
func topQuotes(quotes []types.Quote) []types.Quote {
	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].SourceScore > quotes[j].SourceScore })
	seen := make(map[string]bool)
	out := make([]types.Quote, 0, 5)
	for _, q := range quotes {
		if seen[q.Author] {
			continue
		}
		seen[q.Author] = true
		out = append(out, q)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// GetCluster fetches a single cluster by ID.
func (s *Store) GetCluster(ctx context.Context, id int64) (types.PainCluster, error) {
	c, err := scanCluster(s.db.QueryRowContext(ctx, clusterSelectCols+`FROM pain_clusters WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return types.PainCluster{}, wrapDBError("get_cluster", ErrNotFound)
	}
	if err != nil {
		return types.PainCluster{}, wrapDBError("get_cluster", err)
	}
	return c, nil
}

// ClustersByTopic returns every cluster already opened under a canonical
// topic, the candidate set C6 scores a new record's embedding against
// before deciding to merge in or open a sibling cluster.
func (s *Store) ClustersByTopic(ctx context.Context, topic string) ([]types.PainCluster, error) {
	rows, err := s.db.QueryContext(ctx, clusterSelectCols+`FROM pain_clusters WHERE topic_canonical = ?`, topic)
	if err != nil {
		return nil, wrapDBError("clusters_by_topic", err)
	}
	defer rows.Close()
	return scanClusterRows(rows)
}

// ClustersReadyForSynthesis returns clusters whose member_count exceeds
// last_synth_count by at least minNewMembers, largest clusters first.
func (s *Store) ClustersReadyForSynthesis(ctx context.Context, minNewMembers int) ([]types.PainCluster, error) {
	rows, err := s.db.QueryContext(ctx, clusterSelectCols+`
		FROM pain_clusters
		WHERE member_count - last_synth_count >= ?
		ORDER BY member_count DESC
	`, minNewMembers)
	if err != nil {
		return nil, wrapDBError("clusters_ready_for_synthesis", err)
	}
	defer rows.Close()
	return scanClusterRows(rows)
}

// SetSynthesis writes the LLM-produced product concept for a cluster (C8)
// and bumps version/last_synth_count so the next synthesis pass only fires
// once enough new members have accumulated again (I5).
func (s *Store) SetSynthesis(ctx context.Context, clusterID int64, productName, tagline string, howItWorks []string, targetCustomer string, topQuotes []types.Quote, memberCountAtSynth int) error {
	quotesJSON, err := marshalQuotes(topQuotes)
	if err != nil {
		return wrapDBError("set_synthesis_marshal", err)
	}
	howItWorksJSON, err := json.Marshal(howItWorks)
	if err != nil {
		return wrapDBError("set_synthesis_marshal", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE pain_clusters SET
			product_name = ?, tagline = ?, how_it_works = ?, target_customer = ?,
			top_quotes = ?, last_synth_count = ?, version = version + 1,
			synthesized_at = ?, updated_at = ?
		WHERE id = ?
	`, productName, tagline, string(howItWorksJSON), targetCustomer,
		quotesJSON, memberCountAtSynth, now(), now(), clusterID)
	if err != nil {
		return wrapDBError("set_synthesis", err)
	}
	return nil
}

// SetScore records the scorer's (C9) aggregate total_score for a cluster.
func (s *Store) SetScore(ctx context.Context, clusterID int64, totalScore int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pain_clusters SET total_score = ?, scored_at = ? WHERE id = ?
	`, totalScore, now(), clusterID)
	if err != nil {
		return wrapDBError("set_score", err)
	}
	return nil
}

// TopClusters returns scored clusters ordered by total_score, highest first.
func (s *Store) TopClusters(ctx context.Context, limit int) ([]types.PainCluster, error) {
	rows, err := s.db.QueryContext(ctx, clusterSelectCols+`
		FROM pain_clusters
		WHERE scored_at IS NOT NULL
		ORDER BY total_score DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("top_clusters", err)
	}
	defer rows.Close()
	return scanClusterRows(rows)
}

const clusterSelectCols = `
	SELECT id, centroid_text, topic_canonical, broad_category, centroid_embedding_id,
		product_name, tagline, how_it_works, target_customer, social_proof_count,
		last_synth_count, version, member_count, unique_authors, subreddit_count,
		total_upvotes, total_score, created_at, updated_at, synthesized_at,
		scored_at, top_quotes
`

func scanCluster(row *sql.Row) (types.PainCluster, error) {
	var c types.PainCluster
	var broadCategory, productName, tagline, targetCustomer, howItWorks, topQuotes sql.NullString
	var totalScore sql.NullInt64
	var synthesizedAt, scoredAt sql.NullTime
	err := row.Scan(&c.ID, &c.CentroidText, &c.TopicCanonical, &broadCategory,
		&c.CentroidEmbeddingID, &productName, &tagline, &howItWorks, &targetCustomer,
		&c.SocialProofCount, &c.LastSynthCount, &c.Version, &c.MemberCount,
		&c.UniqueAuthors, &c.SubredditCount, &c.TotalUpvotes, &totalScore,
		&c.CreatedAt, &c.UpdatedAt, &synthesizedAt, &scoredAt, &topQuotes)
	if err != nil {
		return types.PainCluster{}, err
	}
	applyClusterNullables(&c, broadCategory, productName, tagline, targetCustomer, howItWorks, topQuotes, totalScore, synthesizedAt, scoredAt)
	return c, nil
}

func scanClusterRows(rows *sql.Rows) ([]types.PainCluster, error) {
	var out []types.PainCluster
	for rows.Next() {
		var c types.PainCluster
		var broadCategory, productName, tagline, targetCustomer, howItWorks, topQuotes sql.NullString
		var totalScore sql.NullInt64
		var synthesizedAt, scoredAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.CentroidText, &c.TopicCanonical, &broadCategory,
			&c.CentroidEmbeddingID, &productName, &tagline, &howItWorks, &targetCustomer,
			&c.SocialProofCount, &c.LastSynthCount, &c.Version, &c.MemberCount,
			&c.UniqueAuthors, &c.SubredditCount, &c.TotalUpvotes, &totalScore,
			&c.CreatedAt, &c.UpdatedAt, &synthesizedAt, &scoredAt, &topQuotes); err != nil {
			return nil, err
		}
		applyClusterNullables(&c, broadCategory, productName, tagline, targetCustomer, howItWorks, topQuotes, totalScore, synthesizedAt, scoredAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func applyClusterNullables(c *types.PainCluster, broadCategory, productName, tagline, targetCustomer, howItWorks, topQuotes sql.NullString, totalScore sql.NullInt64, synthesizedAt, scoredAt sql.NullTime) {
	c.BroadCategory = broadCategory.String
	if productName.Valid {
		v := productName.String
		c.ProductName = &v
	}
	if tagline.Valid {
		v := tagline.String
		c.Tagline = &v
	}
	if targetCustomer.Valid {
		v := targetCustomer.String
		c.TargetCustomer = &v
	}
	if howItWorks.Valid && howItWorks.String != "" {
		var steps []string
		if err := json.Unmarshal([]byte(howItWorks.String), &steps); err == nil {
			c.HowItWorks = steps
		}
	}
	if totalScore.Valid {
		v := int(totalScore.Int64)
		c.TotalScore = &v
	}
	if synthesizedAt.Valid {
		v := synthesizedAt.Time
		c.SynthesizedAt = &v
	}
	if scoredAt.Valid {
		v := scoredAt.Time
		c.ScoredAt = &v
	}
	if topQuotes.Valid && topQuotes.String != "" {
		if q, err := unmarshalQuotes(topQuotes.String); err == nil {
			c.TopQuotes = q
		}
	}
}

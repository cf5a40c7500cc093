package sqlite

import (
	"context"
	"database/sql"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// DistinctCanonicalTopics returns every topic_canonical currently carried by
// an open cluster, the candidate set the topic merger (C7) groups and then
// submits (up to 50) to the LLM consolidation pass.
func (s *Store) DistinctCanonicalTopics(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT topic_canonical FROM pain_clusters ORDER BY topic_canonical`)
	if err != nil {
		return nil, wrapDBError("distinct_canonical_topics", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, wrapDBError("distinct_canonical_topics", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AllClusters returns every cluster, used by the centroid-embedding
// absorption pass (C7 step 4.7.c) to find member_count==1 clusters and the
// member_count>=2 clusters they might merge into.
func (s *Store) AllClusters(ctx context.Context) ([]types.PainCluster, error) {
	rows, err := s.db.QueryContext(ctx, clusterSelectCols+`FROM pain_clusters`)
	if err != nil {
		return nil, wrapDBError("all_clusters", err)
	}
	defer rows.Close()
	return scanClusterRows(rows)
}

// RenameTopic applies step (a) of §4.7's merge application: every pain
// record tagged with the losing canonical topic is retagged to the
// surviving one. Cluster reparenting (step b) is handled separately by
// MergeClusterInto, since a topic rename does not imply a cluster exists
// under either name yet.
func (s *Store) RenameTopic(ctx context.Context, from, to string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pain_records SET normalized_topic = ? WHERE normalized_topic = ?`, to, from)
	if err != nil {
		return wrapDBError("rename_topic", err)
	}
	return nil
}

// MergeClusterInto reparents every member and pain record from a losing
// cluster into a surviving one, deletes the losing cluster, and recomputes
// the surviving cluster's rollups -- step (b)/(c) of §4.7's merge
// application, and the mechanism the centroid-embedding absorption pass
// (small cluster -> large cluster, cosine > 0.85) also reuses.
func (s *Store) MergeClusterInto(ctx context.Context, fromClusterID, toClusterID int64) error {
	if fromClusterID == toClusterID {
		return nil
	}
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cluster_members (cluster_id, pain_record_id, similarity_score, added_at)
			SELECT ?, pain_record_id, similarity_score, added_at FROM cluster_members WHERE cluster_id = ?
			ON CONFLICT(cluster_id, pain_record_id) DO NOTHING
		`, toClusterID, fromClusterID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cluster_members WHERE cluster_id = ?`, fromClusterID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE pain_records SET cluster_id = ? WHERE cluster_id = ?`, toClusterID, fromClusterID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pain_clusters WHERE id = ?`, fromClusterID); err != nil {
			return err
		}
		return recomputeRollupsTx(ctx, tx, toClusterID)
	})
	if err != nil {
		return wrapDBError("merge_cluster_into", err)
	}
	return nil
}

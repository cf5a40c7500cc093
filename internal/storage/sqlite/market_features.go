package sqlite

import (
	"context"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// InsertMarketEstimate stores the LLM-produced TAM/SAM estimate for a
// cluster (C13). Re-estimation (after a resynthesis) simply inserts a new
// row; MarketEstimateForCluster always returns the most recent.
func (s *Store) InsertMarketEstimate(ctx context.Context, e types.MarketEstimate) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO market_estimates (cluster_id, tam, sam, rationale, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ClusterID, e.TAM, e.SAM, e.Rationale, now())
	if err != nil {
		return 0, wrapDBError("insert_market_estimate", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBError("insert_market_estimate_id", err)
	}
	return id, nil
}

// MarketEstimateForCluster returns the most recent market estimate for a
// cluster, or perr.KindNotFound if none has been produced yet.
func (s *Store) MarketEstimateForCluster(ctx context.Context, clusterID int64) (types.MarketEstimate, error) {
	var e types.MarketEstimate
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cluster_id, tam, sam, rationale, created_at
		FROM market_estimates WHERE cluster_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, clusterID).Scan(&e.ID, &e.ClusterID, &e.TAM, &e.SAM, &e.Rationale, &e.CreatedAt)
	if err != nil {
		return types.MarketEstimate{}, wrapDBError("market_estimate_for_cluster", err)
	}
	return e, nil
}

// InsertMvpFeature stores one extracted MVP feature for a cluster (C13).
func (s *Store) InsertMvpFeature(ctx context.Context, f types.MvpFeature) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mvp_features (cluster_id, name, feature_type, rationale, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, f.ClusterID, f.Name, f.FeatureType, f.Rationale, now())
	if err != nil {
		return 0, wrapDBError("insert_mvp_feature", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBError("insert_mvp_feature_id", err)
	}
	return id, nil
}

// FeaturesForCluster returns every MVP feature recorded for a cluster.
func (s *Store) FeaturesForCluster(ctx context.Context, clusterID int64) ([]types.MvpFeature, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cluster_id, name, feature_type, rationale, created_at
		FROM mvp_features WHERE cluster_id = ? ORDER BY created_at ASC
	`, clusterID)
	if err != nil {
		return nil, wrapDBError("features_for_cluster", err)
	}
	defer rows.Close()

	var out []types.MvpFeature
	for rows.Next() {
		var f types.MvpFeature
		if err := rows.Scan(&f.ID, &f.ClusterID, &f.Name, &f.FeatureType, &f.Rationale, &f.CreatedAt); err != nil {
			return nil, wrapDBError("features_for_cluster_scan", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("features_for_cluster_rows", err)
	}
	return out, nil
}

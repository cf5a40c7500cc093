// Package score implements the scorer (C9): a pure deterministic pass that
// turns a cluster's member rollups into a single opportunity score.
package score

import (
	"context"
	"math"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// maxSeverityContribution is the clamp applied to the summed per-member
// severity weights before they are added into the total (spec §4.9).
const maxSeverityContribution = 25

// Store is the subset of sqlite.Store the score phase depends on.
type Store interface {
	AllClusters(ctx context.Context) ([]types.PainCluster, error)
	ClusterMembers(ctx context.Context, clusterID int64, limit int) ([]types.PainRecord, error)
	SetScore(ctx context.Context, clusterID int64, totalScore int) error
}

// Phase scores every cluster on each run; the arithmetic is cheap enough
// (no I/O beyond the member rows already read for rollups) that there is no
// need to gate on "dirty" clusters.
type Phase struct {
	store Store
}

// New builds a score Phase.
func New(store Store) *Phase {
	return &Phase{store: store}
}

// Run recomputes total_score for every cluster.
func (p *Phase) Run(ctx context.Context) (scored int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.score")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("score: starting")

	clusters, err := p.store.AllClusters(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("score: load clusters", "error", err)
		return 0, err
	}

	for _, c := range clusters {
		members, err := p.store.ClusterMembers(ctx, c.ID, 0)
		if err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("score: load cluster members failed, skipping cluster", "cluster_id", c.ID, "error", err)
			continue
		}
		total := Score(c, members)
		if err := p.store.SetScore(ctx, c.ID, total); err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("score: persist score failed, skipping cluster", "cluster_id", c.ID, "error", err)
			continue
		}
		scored++
	}
	log.Info("score: done", "scored", scored, "candidates", len(clusters))
	return scored, nil
}

// Score computes a cluster's total_score per spec §4.9:
//
//	round( min(40, log2(n+1)*10)
//	     + min(15, (unique_authors/max(n,1))*20)
//	     + min(10, subreddit_count*2)
//	     + min(10, log2(avg_upvotes+1)*2)
//	     + severity_contribution )
//
// where severity_contribution sums each member's severity weight
// (critical=4, high=3, medium=2, low=1) and clamps to 25.
func Score(c types.PainCluster, members []types.PainRecord) int {
	n := float64(c.MemberCount)
	if n == 0 {
		n = 1
	}

	volume := math.Min(40, math.Log2(n+1)*10)

	diversity := math.Min(15, (float64(c.UniqueAuthors)/n)*20)

	spread := math.Min(10, float64(c.SubredditCount)*2)

	avgUpvotes := float64(c.TotalUpvotes) / n
	intensity := math.Min(10, math.Log2(avgUpvotes+1)*2)

	var severity float64
	for _, m := range members {
		severity += types.SeverityWeight(m.Severity)
	}
	severity = math.Min(maxSeverityContribution, severity)

	return int(math.Round(volume + diversity + spread + intensity + severity))
}

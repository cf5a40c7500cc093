// Package cluster implements the clusterer (C6): assigns each embedded,
// topic-normalized pain record to the best-matching existing cluster or
// opens a new one. Only clusters whose topic_canonical equals the record's
// normalized topic are compared; clusters under any other topic are not
// candidates, however close their centroid. Rollup recomputation happens inside the storage layer
// (sqlite.Store.CreateCluster/AddClusterMember) immediately after every
// membership mutation, per Invariant I2.
package cluster

import (
	"context"
	"strings"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/embed"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// Threshold is the minimum cosine similarity for a record to join an
// existing cluster rather than open a new one (spec §4.6).
const Threshold = 0.65

// Store is the subset of sqlite.Store the cluster phase depends on.
type Store interface {
	UnclusteredPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error)
	GetEmbedding(ctx context.Context, id int64) (types.Embedding, error)
	ClustersByTopic(ctx context.Context, topic string) ([]types.PainCluster, error)
	CreateCluster(ctx context.Context, centroidText, topicCanonical, broadCategory string, centroidEmbeddingID, seedRecordID int64) (int64, error)
	AddClusterMember(ctx context.Context, clusterID, painRecordID int64, similarity float64) error
}

// Phase assigns unclustered records to clusters.
type Phase struct {
	store     Store
	batchSize int
}

// New builds a cluster Phase.
func New(store Store, batchSize int) *Phase {
	return &Phase{store: store, batchSize: batchSize}
}

// Run clusters up to batchSize records sequentially. Records are processed
// one at a time (not through the shared worker pool): concurrent
// clustering of two records under the same topic would race on which
// cluster "wins" the tie-break, and clustering is cheap local arithmetic
// plus a handful of already-indexed queries, not an external call that
// benefits from concurrency.
func (p *Phase) Run(ctx context.Context) (assigned, opened int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.cluster")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("cluster: starting", "batch_size", p.batchSize)

	records, err := p.store.UnclusteredPainRecords(ctx, p.batchSize)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("cluster: load unclustered pain records", "error", err)
		return 0, 0, err
	}

	for _, r := range records {
		if r.EmbeddingID == nil || r.NormalizedTopic == nil {
			continue
		}
		isNew, err := p.assignOne(ctx, r)
		if err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("cluster: assign record failed, skipping", "pain_record_id", r.ID, "error", err)
			continue
		}
		if isNew {
			opened++
		} else {
			assigned++
		}
	}
	log.Info("cluster: done", "assigned", assigned, "opened", opened, "candidates", len(records))
	return assigned, opened, nil
}

func (p *Phase) assignOne(ctx context.Context, r types.PainRecord) (isNew bool, err error) {
	emb, err := p.store.GetEmbedding(ctx, *r.EmbeddingID)
	if err != nil {
		return false, err
	}

	candidates, err := p.store.ClustersByTopic(ctx, *r.NormalizedTopic)
	if err != nil {
		return false, err
	}

	best, bestScore, found, err := p.pickBest(ctx, candidates, emb.Vector)
	if err != nil {
		return false, err
	}
	if found && bestScore >= Threshold {
		if err := p.store.AddClusterMember(ctx, best.ID, r.ID, bestScore); err != nil {
			return false, err
		}
		return false, nil
	}

	centroidText := r.RawQuote
	if len(centroidText) > 200 {
		centroidText = centroidText[:200]
	}
	_, err = p.store.CreateCluster(ctx, centroidText, *r.NormalizedTopic, categoryOf(*r.NormalizedTopic), *r.EmbeddingID, r.ID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// pickBest applies the §4.6 tie-break rule: highest cosine score wins;
// ties prefer the larger social_proof_count, then the smaller id.
func (p *Phase) pickBest(ctx context.Context, candidates []types.PainCluster, vector []float64) (types.PainCluster, float64, bool, error) {
	var best types.PainCluster
	var bestScore float64
	found := false

	for _, c := range candidates {
		centroid, err := p.store.GetEmbedding(ctx, c.CentroidEmbeddingID)
		if err != nil {
			continue // a candidate with a missing centroid embedding is skipped, not fatal
		}
		score := embed.CosineSimilarity(vector, centroid.Vector)
		if !found || score > bestScore || (score == bestScore && isBetterTieBreak(c, best)) {
			best, bestScore, found = c, score, true
		}
	}
	return best, bestScore, found, nil
}

func isBetterTieBreak(candidate, current types.PainCluster) bool {
	if candidate.SocialProofCount != current.SocialProofCount {
		return candidate.SocialProofCount > current.SocialProofCount
	}
	return candidate.ID < current.ID
}

// categoryOf buckets a canonical topic into a coarse product category,
// deterministic keyword matching mirroring the vertical buckets in
// config/competitors.yaml.
func categoryOf(canonicalTopic string) string {
	t := strings.ToLower(canonicalTopic)
	switch {
	case strings.Contains(t, "payout") || strings.Contains(t, "invoice") || strings.Contains(t, "pay"):
		return "payments"
	case strings.Contains(t, "onboard"):
		return "onboarding"
	case strings.Contains(t, "schedul") || strings.Contains(t, "book"):
		return "scheduling"
	case strings.Contains(t, "support") || strings.Contains(t, "ticket"):
		return "support"
	case strings.Contains(t, "hr") || strings.Contains(t, "payroll"):
		return "hr"
	default:
		return "other"
	}
}

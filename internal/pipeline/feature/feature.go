// Package feature implements the feature extractor (C13): an LLM call that
// produces an MVP feature list for each synthesized cluster, gated by the
// orchestrator to odd-numbered cron ticks (spec §4.13).
package feature

import (
	"context"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/workerpool"
)

// Store is the subset of sqlite.Store the feature phase depends on.
type Store interface {
	AllClusters(ctx context.Context) ([]types.PainCluster, error)
	FeaturesForCluster(ctx context.Context, clusterID int64) ([]types.MvpFeature, error)
	InsertMvpFeature(ctx context.Context, f types.MvpFeature) (int64, error)
}

// Phase extracts MVP features for synthesized clusters that don't have any yet.
type Phase struct {
	store     Store
	llmClient *llm.Client
	pool      *workerpool.Pool
}

// New builds a feature Phase.
func New(store Store, llmClient *llm.Client, concurrency int) *Phase {
	return &Phase{store: store, llmClient: llmClient, pool: workerpool.New(concurrency)}
}

// Run extracts features for every synthesized cluster lacking them.
func (p *Phase) Run(ctx context.Context) (extracted int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.feature")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("feature: starting")

	clusters, err := p.store.AllClusters(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("feature: load clusters", "error", err)
		return 0, err
	}

	var candidates []types.PainCluster
	for _, c := range clusters {
		if c.ProductName == nil {
			continue
		}
		existing, err := p.store.FeaturesForCluster(ctx, c.ID)
		if err != nil || len(existing) > 0 {
			continue
		}
		candidates = append(candidates, c)
	}

	errs := workerpool.RunBestEffort(ctx, p.pool, candidates, func(ctx context.Context, c types.PainCluster) error {
		result, err := p.llmClient.ExtractFeatures(ctx, c.TopicCanonical, *c.ProductName, safeTagline(c))
		if err != nil {
			log.Warn("feature: extract call failed, skipping cluster", "cluster_id", c.ID, "error", err)
			return err
		}
		for _, f := range result.Features {
			if _, err := p.store.InsertMvpFeature(ctx, types.MvpFeature{
				ClusterID: c.ID, Name: f.Name, FeatureType: f.Type, Rationale: f.Rationale,
			}); err != nil {
				log.Warn("feature: insert feature failed, skipping cluster", "cluster_id", c.ID, "error", err)
				return err
			}
		}
		return nil
	})

	if len(errs) > 0 {
		metrics.PhaseErrors.Add(ctx, int64(len(errs)))
	}
	log.Info("feature: done", "extracted", len(candidates)-len(errs), "candidates", len(candidates))
	return len(candidates) - len(errs), nil
}

func safeTagline(c types.PainCluster) string {
	if c.Tagline == nil {
		return ""
	}
	return *c.Tagline
}

// Package market implements the market estimator (C13): an LLM call that
// produces a TAM/SAM estimate for each synthesized cluster, gated by the
// orchestrator to even-numbered cron ticks (spec §4.13).
package market

import (
	"context"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/workerpool"
)

// Store is the subset of sqlite.Store the market phase depends on.
type Store interface {
	AllClusters(ctx context.Context) ([]types.PainCluster, error)
	MarketEstimateForCluster(ctx context.Context, clusterID int64) (types.MarketEstimate, error)
	InsertMarketEstimate(ctx context.Context, e types.MarketEstimate) (int64, error)
}

// Phase estimates market size for synthesized clusters that don't have an
// estimate yet.
type Phase struct {
	store     Store
	llmClient *llm.Client
	pool      *workerpool.Pool
}

// New builds a market Phase.
func New(store Store, llmClient *llm.Client, concurrency int) *Phase {
	return &Phase{store: store, llmClient: llmClient, pool: workerpool.New(concurrency)}
}

// Run estimates market size for every synthesized cluster (product_name
// set) lacking an estimate.
func (p *Phase) Run(ctx context.Context) (estimated int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.market")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("market: starting")

	clusters, err := p.store.AllClusters(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("market: load clusters", "error", err)
		return 0, err
	}

	var candidates []types.PainCluster
	for _, c := range clusters {
		if c.ProductName == nil {
			continue
		}
		if _, err := p.store.MarketEstimateForCluster(ctx, c.ID); err == nil {
			continue // already estimated
		}
		candidates = append(candidates, c)
	}

	errs := workerpool.RunBestEffort(ctx, p.pool, candidates, func(ctx context.Context, c types.PainCluster) error {
		result, err := p.llmClient.EstimateMarket(ctx, c.TopicCanonical, *c.ProductName, safeTagline(c))
		if err != nil {
			log.Warn("market: estimate call failed, skipping cluster", "cluster_id", c.ID, "error", err)
			return err
		}
		_, err = p.store.InsertMarketEstimate(ctx, types.MarketEstimate{
			ClusterID: c.ID, TAM: result.TAM, SAM: result.SAM, Rationale: result.Rationale,
		})
		if err != nil {
			log.Warn("market: insert estimate failed, skipping cluster", "cluster_id", c.ID, "error", err)
		}
		return err
	})

	if len(errs) > 0 {
		metrics.PhaseErrors.Add(ctx, int64(len(errs)))
	}
	log.Info("market: done", "estimated", len(candidates)-len(errs), "candidates", len(candidates))
	return len(candidates) - len(errs), nil
}

func safeTagline(c types.PainCluster) string {
	if c.Tagline == nil {
		return ""
	}
	return *c.Tagline
}

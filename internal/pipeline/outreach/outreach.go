// Package outreach implements the outreach builder (C13): a deterministic
// pass that selects up to 10 distinct-author top quotes per synthesized
// cluster as outreach candidates.
package outreach

import (
	"context"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// maxCandidatesPerCluster caps how many outreach contacts a single cluster
// contributes per run.
const maxCandidatesPerCluster = 10

// Store is the subset of sqlite.Store the outreach phase depends on.
type Store interface {
	AllClusters(ctx context.Context) ([]types.PainCluster, error)
	ClusterMembers(ctx context.Context, clusterID int64, limit int) ([]types.PainRecord, error)
	OutreachForCluster(ctx context.Context, clusterID int64) ([]types.OutreachContact, error)
	InsertOutreachContact(ctx context.Context, c types.OutreachContact) (int64, error)
}

// Phase builds outreach candidate lists for synthesized clusters.
type Phase struct {
	store Store
}

// New builds an outreach Phase.
func New(store Store) *Phase {
	return &Phase{store: store}
}

// Run adds outreach candidates for every synthesized cluster, skipping
// authors already on that cluster's list.
func (p *Phase) Run(ctx context.Context) (added int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.outreach")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("outreach: starting")

	clusters, err := p.store.AllClusters(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("outreach: load clusters", "error", err)
		return 0, err
	}

	for _, c := range clusters {
		if c.ProductName == nil {
			continue
		}
		n, err := p.buildFor(ctx, c)
		if err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("outreach: build candidates failed, skipping cluster", "cluster_id", c.ID, "error", err)
			continue
		}
		added += n
	}
	log.Info("outreach: done", "added", added)
	return added, nil
}

func (p *Phase) buildFor(ctx context.Context, c types.PainCluster) (int, error) {
	existing, err := p.store.OutreachForCluster(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	already := make(map[string]bool, len(existing))
	for _, o := range existing {
		already[o.Author] = true
	}
	if len(already) >= maxCandidatesPerCluster {
		return 0, nil
	}

	members, err := p.store.ClusterMembers(ctx, c.ID, 0) // ClusterMembers already orders by source_score DESC
	if err != nil {
		return 0, err
	}

	added := 0
	for _, m := range members {
		if already[m.Author] {
			continue
		}
		already[m.Author] = true
		if _, err := p.store.InsertOutreachContact(ctx, types.OutreachContact{
			ClusterID: c.ID, PainRecordID: m.ID, Author: m.Author,
			Subreddit: m.Subreddit, SourceURL: m.SourceURL, Status: "pending",
		}); err != nil {
			continue
		}
		added++
		if len(already) >= maxCandidatesPerCluster {
			break
		}
	}
	return added, nil
}

// Package synth implements the growth-triggered product synthesizer (C8):
// it turns a cluster's accumulated member quotes into a named product
// concept once the cluster has grown enough to justify one.
package synth

import (
	"context"
	"fmt"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/workerpool"
)

// minMembers is the member_count floor a cluster must clear before it is
// ever synthesized.
const minMembers = 5

// regrowthRatio is the fractional member growth (relative to the member
// count at the last synthesis) that triggers a re-synthesis.
const regrowthRatio = 0.10

// maxQuotesPerSynthesis bounds how many member quotes are sent to the LLM.
const maxQuotesPerSynthesis = 25

// Store is the subset of sqlite.Store the synth phase depends on.
type Store interface {
	AllClusters(ctx context.Context) ([]types.PainCluster, error)
	ClusterMembers(ctx context.Context, clusterID int64, limit int) ([]types.PainRecord, error)
	SetSynthesis(ctx context.Context, clusterID int64, productName, tagline string, howItWorks []string, targetCustomer string, topQuotes []types.Quote, memberCountAtSynth int) error
}

// Phase runs the product synthesizer over clusters that qualify for it.
type Phase struct {
	store     Store
	llmClient *llm.Client
	pool      *workerpool.Pool
}

// New builds a synth Phase.
func New(store Store, llmClient *llm.Client, concurrency int) *Phase {
	return &Phase{store: store, llmClient: llmClient, pool: workerpool.New(concurrency)}
}

// Run synthesizes (or re-synthesizes) a product concept for every cluster
// that has grown enough since its last synthesis.
func (p *Phase) Run(ctx context.Context) (synthesized int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.synth")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("synth: starting")

	clusters, err := p.store.AllClusters(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("synth: load clusters", "error", err)
		return 0, err
	}

	var candidates []types.PainCluster
	for _, c := range clusters {
		if qualifies(c) {
			candidates = append(candidates, c)
		}
	}

	errs := workerpool.RunBestEffort(ctx, p.pool, candidates, func(ctx context.Context, c types.PainCluster) error {
		if err := p.synthesizeOne(ctx, c); err != nil {
			log.Warn("synth: synthesize cluster failed, skipping", "cluster_id", c.ID, "error", err)
			return err
		}
		return nil
	})

	if len(errs) > 0 {
		metrics.PhaseErrors.Add(ctx, int64(len(errs)))
	}
	log.Info("synth: done", "synthesized", len(candidates)-len(errs), "candidates", len(candidates))
	return len(candidates) - len(errs), nil
}

// qualifies implements the gate: a cluster must clear the member floor, and
// either has never been synthesized or has grown by at least regrowthRatio
// since its last synthesis.
func qualifies(c types.PainCluster) bool {
	if c.MemberCount < minMembers {
		return false
	}
	if c.SynthesizedAt == nil {
		return true
	}
	base := c.LastSynthCount
	if base <= 0 {
		return true
	}
	growth := float64(c.MemberCount-base) / float64(base)
	return growth >= regrowthRatio
}

func (p *Phase) synthesizeOne(ctx context.Context, c types.PainCluster) error {
	members, err := p.store.ClusterMembers(ctx, c.ID, maxQuotesPerSynthesis)
	if err != nil {
		return err
	}

	in := llm.SynthesisInput{
		Topic:          c.TopicCanonical,
		SeverityCounts: map[string]int{},
	}
	personaSeen := map[string]bool{}
	subredditSeen := map[string]bool{}
	var topQuotes []types.Quote
	for _, m := range members {
		in.Quotes = append(in.Quotes, fmt.Sprintf("(%s, %s) %s", m.Persona, m.Severity, m.RawQuote))
		in.SeverityCounts[string(m.Severity)]++
		if m.Persona != "" && !personaSeen[m.Persona] {
			personaSeen[m.Persona] = true
			in.DistinctPersonas = append(in.DistinctPersonas, m.Persona)
		}
		if !subredditSeen[m.Subreddit] {
			subredditSeen[m.Subreddit] = true
			in.Subreddits = append(in.Subreddits, m.Subreddit)
		}
		topQuotes = append(topQuotes, types.Quote{
			PainRecordID: m.ID, Author: m.Author, Text: m.RawQuote,
			SourceScore: m.SourceScore, Persona: m.Persona, Severity: m.Severity,
		})
	}
	if c.ProductName != nil {
		in.PrevName = *c.ProductName
	}
	if c.Tagline != nil {
		in.PrevTagline = *c.Tagline
	}

	concept, err := p.llmClient.SynthesizeConcept(ctx, in)
	if err != nil {
		return err
	}

	return p.store.SetSynthesis(ctx, c.ID, concept.ProductName, concept.Tagline,
		concept.HowItWorks, concept.TargetCustomer, topQuotes, c.MemberCount)
}

// Package orchestrator sequences every pipeline phase (C14) under a single
// cron tick: ingestion, enrichment, clustering, periodic consolidation, and
// the parity-gated enrichments, guarded by a single-flight advisory lock.
package orchestrator

import (
	"context"
	"strconv"
	"time"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/config"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/embed"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/fetch"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/alert"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/cluster"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/competitor"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/embedphase"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/feature"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/filter"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/geo"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/ingest"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/market"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/merge"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/outreach"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/score"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/synth"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/tag"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/trend"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/storage/sqlite"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// Store is the processing_state / cron-lock surface the orchestrator itself
// touches directly, beyond what it hands to each phase.
type Store interface {
	TryAcquireCronLock(ctx context.Context) (bool, error)
	ReleaseCronLock(ctx context.Context) error
	IncrementCounter(ctx context.Context, key string) error
	GetState(ctx context.Context, key string) (string, error)
}

// Orchestrator sequences every phase under one cron tick.
type Orchestrator struct {
	store Store

	ingest     *ingest.Phase
	filter     *filter.Phase
	tag        *tag.Phase
	geo        *geo.Phase
	embed      *embedphase.Phase
	cluster    *cluster.Phase
	merge      *merge.Phase
	synth      *synth.Phase
	score      *score.Phase
	trend      *trend.Phase
	market     *market.Phase
	feature    *feature.Phase
	outreach   *outreach.Phase
	alert      *alert.Phase
	competitor *competitor.Phase

	competitorModulo int
	mergeModulo      int
	marketModulo     int
}

// New assembles an Orchestrator from a live store, LLM client, fetchers, and
// config. subreddits is the watched-subreddit list ingestion reads from
// (cmd/miner passes the union of the geo regions' and competitor
// verticals' subreddits).
func New(store *sqlite.Store, llmClient *llm.Client, fetchClient *fetch.Client, embedClient *embed.Client,
	geoData []config.GeoRegionData, competitorVerticals []config.CompetitorVertical,
	subreddits []string, cfg config.Config) *Orchestrator {

	return &Orchestrator{
		store: store,

		ingest:     ingest.New(store, fetchClient, fetchClient, subreddits, cfg.CommentDepthMax),
		filter:     filter.New(store, llmClient, cfg.MaxConcurrentLLM, cfg.BinaryFilterBatch),
		tag:        tag.New(store, llmClient, cfg.MaxConcurrentLLM, cfg.BinaryFilterBatch),
		geo:        geo.New(store, cfg.BinaryFilterBatch, geoData),
		embed:      embedphase.New(store, embedClient, cfg.EmbedBatch),
		cluster:    cluster.New(store, cfg.BinaryFilterBatch),
		merge:      merge.New(store, llmClient),
		synth:      synth.New(store, llmClient, cfg.MaxConcurrentLLM),
		score:      score.New(store),
		trend:      trend.New(store),
		market:     market.New(store, llmClient, cfg.MaxConcurrentLLM),
		feature:    feature.New(store, llmClient, cfg.MaxConcurrentLLM),
		outreach:   outreach.New(store),
		alert:      alert.New(store),
		competitor: competitor.New(store, fetchClient, fetchClient, llmClient, competitorVerticals, cfg.BinaryFilterBatch),

		competitorModulo: cfg.CompetitorModulo,
		mergeModulo:      cfg.MergeModulo,
		marketModulo:     cfg.MarketModulo,
	}
}

// TickResult summarizes counts from one completed tick, for logging/testing.
type TickResult struct {
	CronCount       int
	PostsFetched    int
	CommentsFetched int
	Processed       int
	Accepted        int
	Tagged          int
	GeoTagged       int
	Embedded        int
	ClusterAssigned int
	ClusterOpened   int
	Merged          int
	Synthesized     int
	Scored          int
	TrendSnapshotted int
	MarketEstimated int
	FeaturesFound   int
	OutreachAdded   int
	AlertsRaised    int
	CompetitorFound int
	RanCompetitor   bool
	RanMerge        bool
	RanMarket       bool
	RanFeatures     bool
}

// Tick runs one full pipeline pass. If another tick is already in progress
// it returns immediately with ok=false and no error, per spec §5's
// single-flight guarantee.
func (o *Orchestrator) Tick(ctx context.Context) (result TickResult, ok bool, err error) {
	metrics := telemetry.Phase()
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.tick")
	defer span.End()

	acquired, err := o.store.TryAcquireCronLock(ctx)
	if err != nil {
		return result, false, err
	}
	if !acquired {
		return result, false, nil
	}
	defer func() { _ = o.store.ReleaseCronLock(ctx) }()

	if err := o.store.IncrementCounter(ctx, types.StateCronCount); err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
	}
	cronCount := o.readCronCount(ctx)
	result.CronCount = cronCount

	posts1, comments1, _ := o.ingest.Run(ctx, types.SortTop, "day")
	posts2, comments2, _ := o.ingest.Run(ctx, types.SortHot, "")
	result.PostsFetched = posts1 + posts2
	result.CommentsFetched = comments1 + comments2

	if cronCount%o.competitorModulo == 0 {
		result.RanCompetitor = true
		if n, err := o.competitor.Run(ctx); err == nil {
			result.CompetitorFound = n
		}
	}

	if processed, accepted, err := o.filter.Run(ctx); err == nil {
		result.Processed, result.Accepted = processed, accepted
	}
	if tagged, err := o.tag.Run(ctx); err == nil {
		result.Tagged = tagged
	}
	if geoTagged, err := o.geo.Run(ctx); err == nil {
		result.GeoTagged = geoTagged
	}

	if embedded, err := o.embed.Run(ctx); err == nil {
		result.Embedded = embedded
	}
	if assigned, opened, err := o.cluster.Run(ctx); err == nil {
		result.ClusterAssigned, result.ClusterOpened = assigned, opened
	}

	if cronCount%o.mergeModulo == 0 {
		result.RanMerge = true
		if merged, err := o.merge.Run(ctx); err == nil {
			result.Merged = merged
		}
	}

	if synthesized, err := o.synth.Run(ctx); err == nil {
		result.Synthesized = synthesized
	}
	if scored, err := o.score.Run(ctx); err == nil {
		result.Scored = scored
	}
	if snapshotted, err := o.trend.Run(ctx, today()); err == nil {
		result.TrendSnapshotted = snapshotted
	}

	if cronCount%o.marketModulo == 0 {
		result.RanMarket = true
		if estimated, err := o.market.Run(ctx); err == nil {
			result.MarketEstimated = estimated
		}
	} else {
		result.RanFeatures = true
		if extracted, err := o.feature.Run(ctx); err == nil {
			result.FeaturesFound = extracted
		}
	}

	if added, err := o.outreach.Run(ctx); err == nil {
		result.OutreachAdded = added
	}
	if raised, err := o.alert.Run(ctx); err == nil {
		result.AlertsRaised = raised
	}

	return result, true, nil
}

// RunPhase runs a single named phase on demand, satisfying the Read API's
// manual trigger endpoint (spec §6 POST /api/trigger/{phase}). "full" runs
// an entire Tick; "reset" clears the single-flight lock without running
// anything, for operators unsticking a stuck tick.
func (o *Orchestrator) RunPhase(ctx context.Context, phase string) (int, error) {
	switch phase {
	case "ingest":
		posts, _, err := o.ingest.Run(ctx, types.SortHot, "")
		return posts, err
	case "extract":
		_, accepted, err := o.filter.Run(ctx)
		return accepted, err
	case "tag":
		return o.tag.Run(ctx)
	case "cluster":
		assigned, _, err := o.cluster.Run(ctx)
		return assigned, err
	case "synthesize":
		return o.synth.Run(ctx)
	case "score":
		return o.score.Run(ctx)
	case "merge":
		return o.merge.Run(ctx)
	case "snapshot-trends":
		return o.trend.Run(ctx, today())
	case "estimate-markets":
		return o.market.Run(ctx)
	case "extract-features":
		return o.feature.Run(ctx)
	case "mine-competitors":
		return o.competitor.Run(ctx)
	case "geo-analyze":
		return o.geo.Run(ctx)
	case "check-alerts":
		return o.alert.Run(ctx)
	case "build-outreach":
		return o.outreach.Run(ctx)
	case "full":
		result, _, err := o.Tick(ctx)
		return result.Synthesized, err
	case "reset":
		return 0, o.store.ReleaseCronLock(ctx)
	default:
		return 0, nil
	}
}

func (o *Orchestrator) readCronCount(ctx context.Context) int {
	raw, err := o.store.GetState(ctx, types.StateCronCount)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(raw)
	return n
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

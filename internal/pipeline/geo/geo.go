// Package geo implements the geo tagger (C11): scores a pain record's
// likely region from its subreddit and quote text against a whitelist of
// subreddits and a table of weighted regex patterns loaded from
// config/geodata.yaml.
package geo

import (
	"context"
	"regexp"
	"sort"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/config"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

const (
	subredditWeight = 0.9
	globalBase      = 0.1
	maxSignals      = 5
)

// Store is the subset of sqlite.Store the geo phase depends on.
type Store interface {
	UngeoTaggedPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error)
	SetGeoTag(ctx context.Context, painRecordID int64, region string, confidence float64, signals []string) error
	UpsertGeoStats(ctx context.Context, region string, confidence float64) error
}

type compiledPattern struct {
	re     *regexp.Regexp
	weight float64
}

type region struct {
	name       string
	subreddits map[string]bool
	patterns   []compiledPattern
}

// Phase scores and persists each unflagged record's region.
type Phase struct {
	store     Store
	batchSize int
	regions   []region
}

// New builds a geo Phase from the region data loaded via config.LoadGeoData.
// A malformed pattern is dropped rather than failing the whole region, so
// one bad regex in the data file does not disable geo tagging entirely.
func New(store Store, batchSize int, data []config.GeoRegionData) *Phase {
	regions := make([]region, 0, len(data))
	for _, d := range data {
		subs := make(map[string]bool, len(d.Subreddits))
		for _, s := range d.Subreddits {
			subs[s] = true
		}
		var patterns []compiledPattern
		for _, p := range d.Patterns {
			re, err := regexp.Compile("(?i)" + p.Pattern)
			if err != nil {
				continue
			}
			patterns = append(patterns, compiledPattern{re: re, weight: p.Weight})
		}
		regions = append(regions, region{name: d.Region, subreddits: subs, patterns: patterns})
	}
	return &Phase{store: store, batchSize: batchSize, regions: regions}
}

// Run tags up to batchSize records with no geo_region yet.
func (p *Phase) Run(ctx context.Context) (tagged int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.geo")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("geo: starting", "batch_size", p.batchSize)

	records, err := p.store.UngeoTaggedPainRecords(ctx, p.batchSize)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("geo: load untagged pain records", "error", err)
		return 0, err
	}

	for _, r := range records {
		winner, confidence, signals := p.score(r)
		if err := p.store.SetGeoTag(ctx, r.ID, winner, confidence, signals); err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("geo: set geo tag failed, skipping record", "pain_record_id", r.ID, "error", err)
			continue
		}
		if err := p.store.UpsertGeoStats(ctx, winner, confidence); err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("geo: upsert geo stats failed", "region", winner, "error", err)
			continue
		}
		tagged++
	}
	log.Info("geo: done", "tagged", tagged, "candidates", len(records))
	return tagged, nil
}

// score implements spec §4.11: whitelisted subreddit membership adds 0.9,
// each matching keyword pattern adds its own weight, GLOBAL always carries
// a 0.1 floor, and the highest-scoring region wins.
func (p *Phase) score(r types.PainRecord) (winnerRegion string, confidence float64, signals []string) {
	bestScore := globalBase
	winnerRegion = "GLOBAL"
	var winnerSignals []string

	for _, reg := range p.regions {
		score := 0.0
		var sigs []string
		if reg.subreddits[r.Subreddit] {
			score += subredditWeight
			sigs = append(sigs, "subreddit:"+r.Subreddit)
		}
		for _, cp := range reg.patterns {
			if m := cp.re.FindString(r.RawQuote); m != "" {
				score += cp.weight
				sigs = append(sigs, m)
			}
		}
		if score > bestScore {
			bestScore, winnerRegion, winnerSignals = score, reg.name, sigs
		}
	}

	return winnerRegion, minOne(bestScore), dedupeCap(winnerSignals, maxSignals)
}

func minOne(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func dedupeCap(signals []string, max int) []string {
	seen := make(map[string]bool, len(signals))
	out := make([]string, 0, max)
	for _, s := range signals {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	sort.Strings(out)
	return out
}

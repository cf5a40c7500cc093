// Package alert implements the alert generator (C13): a deterministic rule
// set that raises Alert rows for three events -- a new cluster reaching
// the synthesis floor, a topic entering "hot" trend status, and a
// competitor mention count spike.
package alert

import (
	"context"
	"fmt"
	"strconv"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// synthFloor mirrors the synthesizer's member_count gate (spec §4.8).
const synthFloor = 5

// mentionSpikeStep is how many additional recorded mentions for a product
// trigger a fresh competitor_spike alert.
const mentionSpikeStep = 5

func hotStateKey(topic string) string { return "alert_hot_seen:" + topic }
func mentionStateKey(product string) string { return "alert_mention_count:" + product }

// Store is the subset of sqlite.Store the alert phase depends on.
type Store interface {
	AllClusters(ctx context.Context) ([]types.PainCluster, error)
	TopTrends(ctx context.Context, limit int) ([]types.TrendSummary, error)
	DistinctProducts(ctx context.Context) ([]string, error)
	CountMentionsForProduct(ctx context.Context, product string) (int, error)
	InsertAlert(ctx context.Context, a types.Alert) (int64, error)
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
}

// Phase evaluates the deterministic alert rule set.
type Phase struct {
	store Store
}

// New builds an alert Phase.
func New(store Store) *Phase {
	return &Phase{store: store}
}

// Run evaluates all three alert rules and returns how many alerts were raised.
func (p *Phase) Run(ctx context.Context) (raised int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.alert")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("alert: starting")

	n, err := p.checkNewOpportunities(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Warn("alert: new-opportunity rule failed", "error", err)
	}
	raised += n

	n, err = p.checkHotTrends(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Warn("alert: hot-trend rule failed", "error", err)
	}
	raised += n

	n, err = p.checkCompetitorSpikes(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Warn("alert: competitor-spike rule failed", "error", err)
	}
	raised += n

	log.Info("alert: done", "raised", raised)
	return raised, nil
}

// checkNewOpportunities alerts once per cluster the first time its member
// count reaches the synthesis floor while synthesized_at is still nil --
// whether a cluster was already alerted is tracked under the
// processing_state key alert_opportunity_seen:<id>, so it never re-fires.
func (p *Phase) checkNewOpportunities(ctx context.Context) (int, error) {
	clusters, err := p.store.AllClusters(ctx)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, c := range clusters {
		if c.MemberCount < synthFloor || c.SynthesizedAt != nil {
			continue
		}
		key := "alert_opportunity_seen:" + strconv.FormatInt(c.ID, 10)
		seen, err := p.store.GetState(ctx, key)
		if err != nil || seen == "1" {
			continue
		}
		clusterID := c.ID
		if _, err := p.store.InsertAlert(ctx, types.Alert{
			Type:      types.AlertNewOpportunity,
			ClusterID: &clusterID,
			Message:   fmt.Sprintf("cluster %q reached %d members and is ready for synthesis", c.TopicCanonical, c.MemberCount),
		}); err != nil {
			continue
		}
		_ = p.store.SetState(ctx, key, "1")
		raised++
	}
	return raised, nil
}

// checkHotTrends alerts when a topic's current trend status is "hot" and
// was not already hot the last time this check ran.
func (p *Phase) checkHotTrends(ctx context.Context) (int, error) {
	trends, err := p.store.TopTrends(ctx, 1000)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, t := range trends {
		key := hotStateKey(t.TopicCanonical)
		last, err := p.store.GetState(ctx, key)
		if err != nil {
			continue
		}
		if t.TrendStatus != types.TrendHot {
			if last == string(types.TrendHot) {
				_ = p.store.SetState(ctx, key, string(t.TrendStatus))
			}
			continue
		}
		if last == string(types.TrendHot) {
			continue // already alerted while hot; wait for it to cool before re-alerting
		}
		if _, err := p.store.InsertAlert(ctx, types.Alert{
			Type:    types.AlertTrendHot,
			Message: fmt.Sprintf("topic %q is trending hot (%d mentions)", t.TopicCanonical, t.CurrentCount),
		}); err != nil {
			continue
		}
		_ = p.store.SetState(ctx, key, string(types.TrendHot))
		raised++
	}
	return raised, nil
}

// checkCompetitorSpikes alerts when a product's total recorded mention
// count has grown by at least mentionSpikeStep over the count stored at
// its previous alert (0 if it has never alerted).
func (p *Phase) checkCompetitorSpikes(ctx context.Context) (int, error) {
	products, err := p.store.DistinctProducts(ctx)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, product := range products {
		count, err := p.store.CountMentionsForProduct(ctx, product)
		if err != nil {
			continue
		}
		key := mentionStateKey(product)
		lastRaw, err := p.store.GetState(ctx, key)
		if err != nil {
			continue
		}
		last, _ := strconv.Atoi(lastRaw)
		if count-last < mentionSpikeStep {
			continue
		}
		if _, err := p.store.InsertAlert(ctx, types.Alert{
			Type:    types.AlertCompetitorSpike,
			Message: fmt.Sprintf("%s has %d recorded complaint mentions (up from %d)", product, count, last),
		}); err != nil {
			continue
		}
		_ = p.store.SetState(ctx, key, strconv.Itoa(count))
		raised++
	}
	return raised, nil
}

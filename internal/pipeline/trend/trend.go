// Package trend implements the trend snapshotter (C10): aggregates today's
// pain-record activity per canonical topic, derives velocity/spike/status,
// and refreshes the rollup trend_summary view.
package trend

import (
	"context"
	"time"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// sparklineDays is how many trailing daily snapshots trend_summary carries.
const sparklineDays = 30

// Store is the subset of sqlite.Store the trend phase depends on.
type Store interface {
	TopicDailyStats(ctx context.Context, date string) ([]types.TopicDailyStat, error)
	TrendHistory(ctx context.Context, topic string, days int) ([]types.PainTrend, error)
	UpsertTrendSnapshot(ctx context.Context, t types.PainTrend) error
	UpsertTrendSummary(ctx context.Context, sum types.TrendSummary) error
}

// Phase runs the trend snapshotter for a single calendar date.
type Phase struct {
	store Store
}

// New builds a trend Phase.
func New(store Store) *Phase {
	return &Phase{store: store}
}

// Run snapshots every canonical topic with activity on the given UTC date
// (YYYY-MM-DD), then refreshes each topic's trend_summary rollup.
func (p *Phase) Run(ctx context.Context, date string) (snapshotted int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.trend")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("trend: starting", "date", date)

	stats, err := p.store.TopicDailyStats(ctx, date)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("trend: load topic daily stats", "date", date, "error", err)
		return 0, err
	}

	for _, stat := range stats {
		if err := p.snapshotOne(ctx, stat, date); err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("trend: snapshot topic failed, skipping", "topic", stat.TopicCanonical, "error", err)
			continue
		}
		snapshotted++
	}
	log.Info("trend: done", "snapshotted", snapshotted, "candidates", len(stats))
	return snapshotted, nil
}

func (p *Phase) snapshotOne(ctx context.Context, stat types.TopicDailyStat, date string) error {
	history, err := p.store.TrendHistory(ctx, stat.TopicCanonical, 30)
	if err != nil {
		return err
	}

	yesterday := dayBefore(history, date, 1)
	velocity := computeVelocityVs(stat.MentionCount, yesterday)

	sevenAgo := dayBefore(history, date, 7)
	velocity7d := computeVelocityVs(stat.MentionCount, sevenAgo)

	thirtyAgo := dayBefore(history, date, 30)
	velocity30d := computeVelocityVs(stat.MentionCount, thirtyAgo)

	newMentions := stat.MentionCount
	if yesterday != nil {
		newMentions = stat.MentionCount - *yesterday
	}
	isSpike := classifySpike(newMentions, history)
	status := classifyStatus(velocity, isSpike)

	snap := types.PainTrend{
		TopicCanonical:  stat.TopicCanonical,
		SnapshotDate:    date,
		BucketType:      types.BucketDaily,
		ClusterID:       stat.ClusterID,
		MentionCount:    stat.MentionCount,
		NewMentions:     newMentions,
		Velocity:        velocity,
		Velocity7d:      velocity7d,
		Velocity30d:     velocity30d,
		TrendStatus:     status,
		IsSpike:         isSpike,
		AvgSeverity:     stat.AvgSeverity,
		SubredditSpread: stat.SubredditSpread,
	}
	if err := p.store.UpsertTrendSnapshot(ctx, snap); err != nil {
		return err
	}

	return p.refreshSummary(ctx, stat.TopicCanonical, snap, history)
}

// computeVelocityVs implements spec §4.10's velocity definition against an
// arbitrary reference day: (today-reference)/reference, 1.0 if reference is
// zero and today is positive, else nil (no signal, including no reference
// snapshot at all).
func computeVelocityVs(today int, reference *int) *float64 {
	if reference == nil {
		return nil
	}
	if *reference == 0 {
		if today > 0 {
			v := 1.0
			return &v
		}
		return nil
	}
	v := float64(today-*reference) / float64(*reference)
	return &v
}

// dayBefore finds the mention_count n snapshot-days before date in history
// (oldest-first, as TrendHistory returns it). Returns nil if no snapshot
// exists at exactly that offset.
func dayBefore(history []types.PainTrend, date string, n int) *int {
	target := shiftDate(date, -n)
	for _, h := range history {
		if h.SnapshotDate == target {
			v := h.MentionCount
			return &v
		}
	}
	return nil
}

func shiftDate(date string, days int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, days).Format("2006-01-02")
}

// classifySpike implements spec §4.10: a spike is new_mentions >= 3x the
// 7-day average of daily counts, or >= 5 when there is no history at all.
func classifySpike(newMentions int, history []types.PainTrend) bool {
	window := lastNDays(history, 7)
	if len(window) == 0 {
		return newMentions >= 5
	}
	sum := 0
	for _, h := range window {
		sum += h.MentionCount
	}
	avg := float64(sum) / float64(len(window))
	return float64(newMentions) >= 3*avg
}

func lastNDays(history []types.PainTrend, n int) []types.PainTrend {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// classifyStatus applies the spec §4.10 velocity/status table.
func classifyStatus(velocity *float64, isSpike bool) types.TrendStatus {
	if isSpike {
		return types.TrendHot
	}
	if velocity == nil {
		return types.TrendStable
	}
	v := *velocity
	switch {
	case v >= 0.5:
		return types.TrendHot
	case v >= 0.1:
		return types.TrendRising
	case v >= -0.1:
		return types.TrendStable
	case v >= -0.3:
		return types.TrendCooling
	default:
		return types.TrendCold
	}
}

func (p *Phase) refreshSummary(ctx context.Context, topic string, snap types.PainTrend, history []types.PainTrend) error {
	peakCount, peakDate := snap.MentionCount, snap.SnapshotDate
	firstSeen := snap.SnapshotDate
	for _, h := range history {
		if h.MentionCount > peakCount {
			peakCount, peakDate = h.MentionCount, h.SnapshotDate
		}
		if h.SnapshotDate < firstSeen {
			firstSeen = h.SnapshotDate
		}
	}

	sparkline := make([]int, 0, sparklineDays)
	for _, h := range lastNDays(history, sparklineDays-1) {
		sparkline = append(sparkline, h.MentionCount)
	}
	sparkline = append(sparkline, snap.MentionCount)

	return p.store.UpsertTrendSummary(ctx, types.TrendSummary{
		TopicCanonical:  topic,
		CurrentCount:    snap.MentionCount,
		CurrentVelocity: snap.Velocity,
		TrendStatus:     snap.TrendStatus,
		PeakCount:       peakCount,
		PeakDate:        peakDate,
		FirstSeen:       firstSeen,
		Sparkline:       sparkline,
	})
}

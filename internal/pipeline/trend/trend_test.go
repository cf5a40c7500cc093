package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

func ptr(i int) *int { return &i }

func TestComputeVelocityVsZeroReferenceWithMentions(t *testing.T) {
	v := computeVelocityVs(3, ptr(0))
	assert.NotNil(t, v)
	assert.Equal(t, 1.0, *v)
}

func TestComputeVelocityVsZeroReferenceNoMentions(t *testing.T) {
	v := computeVelocityVs(0, ptr(0))
	assert.Nil(t, v)
}

func TestComputeVelocityVsNoReference(t *testing.T) {
	assert.Nil(t, computeVelocityVs(5, nil))
}

func TestComputeVelocityVsOrdinary(t *testing.T) {
	v := computeVelocityVs(15, ptr(10))
	assert.InDelta(t, 0.5, *v, 0.0001)
}

func TestClassifySpikeNoHistoryThreshold(t *testing.T) {
	assert.True(t, classifySpike(5, nil))
	assert.False(t, classifySpike(4, nil))
}

func TestClassifySpikeAgainstSevenDayAverage(t *testing.T) {
	history := []types.PainTrend{
		{SnapshotDate: "2026-07-23", MentionCount: 2},
		{SnapshotDate: "2026-07-24", MentionCount: 2},
		{SnapshotDate: "2026-07-25", MentionCount: 2},
		{SnapshotDate: "2026-07-26", MentionCount: 2},
		{SnapshotDate: "2026-07-27", MentionCount: 2},
		{SnapshotDate: "2026-07-28", MentionCount: 2},
		{SnapshotDate: "2026-07-29", MentionCount: 2},
	}
	// avg is 2, 3x = 6
	assert.True(t, classifySpike(6, history))
	assert.False(t, classifySpike(5, history))
}

func TestClassifyStatusTable(t *testing.T) {
	hot := 0.6
	rising := 0.2
	stable := 0.0
	cooling := -0.2
	cold := -0.5

	assert.Equal(t, types.TrendHot, classifyStatus(&hot, false))
	assert.Equal(t, types.TrendRising, classifyStatus(&rising, false))
	assert.Equal(t, types.TrendStable, classifyStatus(&stable, false))
	assert.Equal(t, types.TrendCooling, classifyStatus(&cooling, false))
	assert.Equal(t, types.TrendCold, classifyStatus(&cold, false))
	assert.Equal(t, types.TrendStable, classifyStatus(nil, false))
	assert.Equal(t, types.TrendHot, classifyStatus(nil, true), "a spike forces hot regardless of velocity")
}

func TestShiftDate(t *testing.T) {
	assert.Equal(t, "2026-07-29", shiftDate("2026-07-30", -1))
	assert.Equal(t, "2026-08-01", shiftDate("2026-07-30", 2))
}

func TestDayBeforeFindsExactOffset(t *testing.T) {
	history := []types.PainTrend{
		{SnapshotDate: "2026-07-28", MentionCount: 4},
		{SnapshotDate: "2026-07-29", MentionCount: 7},
	}
	got := dayBefore(history, "2026-07-30", 1)
	assert.NotNil(t, got)
	assert.Equal(t, 7, *got)

	assert.Nil(t, dayBefore(history, "2026-07-30", 5))
}

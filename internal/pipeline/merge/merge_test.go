package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

func TestDropCyclesRemovesBothLegs(t *testing.T) {
	merges := []llm.TopicMerge{
		{From: "invoice delay", To: "payout delay"},
		{From: "payout delay", To: "invoice delay"},
		{From: "onboarding friction", To: "signup friction"},
	}
	out := dropCycles(merges)
	assert.Len(t, out, 1)
	assert.Equal(t, "onboarding friction", out[0].From)
}

func TestDropCyclesDropsSelfMerges(t *testing.T) {
	merges := []llm.TopicMerge{{From: "payout delay", To: "payout delay"}}
	assert.Empty(t, dropCycles(merges))
}

func TestLargestClusterPicksMaxMemberCount(t *testing.T) {
	clusters := []types.PainCluster{
		{ID: 1, MemberCount: 3},
		{ID: 2, MemberCount: 9},
		{ID: 3, MemberCount: 5},
	}
	assert.Equal(t, int64(2), largestCluster(clusters).ID)
}

func TestGroupSimilarTopicsFoldsSubstringMatches(t *testing.T) {
	survivors, merges := groupSimilarTopics([]string{"invoice delay", "invoice delays", "onboarding friction"})
	assert.ElementsMatch(t, []string{"invoice delay", "onboarding friction"}, survivors)
	assert.Len(t, merges, 1)
	assert.Equal(t, "invoice delays", merges[0].From)
	assert.Equal(t, "invoice delay", merges[0].To)
}

func TestGroupSimilarTopicsLeavesDistinctTopicsUnmerged(t *testing.T) {
	survivors, merges := groupSimilarTopics([]string{"payout delay", "support ticket backlog"})
	assert.ElementsMatch(t, []string{"payout delay", "support ticket backlog"}, survivors)
	assert.Empty(t, merges)
}

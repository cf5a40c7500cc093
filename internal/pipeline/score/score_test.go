package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

func TestScoreAllSeverityLow(t *testing.T) {
	cluster := types.PainCluster{
		MemberCount: 10, UniqueAuthors: 8, SubredditCount: 3, TotalUpvotes: 100,
	}
	members := make([]types.PainRecord, 10)
	for i := range members {
		members[i].Severity = types.SeverityLow
	}
	got := Score(cluster, members)
	assert.Greater(t, got, 0)
}

func TestScoreSeverityContributionClampsAt25(t *testing.T) {
	cluster := types.PainCluster{MemberCount: 20, UniqueAuthors: 20, SubredditCount: 1, TotalUpvotes: 0}
	members := make([]types.PainRecord, 20)
	for i := range members {
		members[i].Severity = types.SeverityCritical // 20*4 = 80, clamps to 25
	}
	withClamp := Score(cluster, members)

	cluster.MemberCount = 7
	members = members[:7]
	withoutClamp := Score(cluster, members) // 7*4 = 28, still clamps to 25

	// Both hit the 25-point ceiling on the severity term; only the volume
	// term differs: 40+15+2+0+25 = 82 for 20 members, 30+15+2+0+25 = 72 for 7.
	// Without the clamp they would be 137 and 75.
	assert.Equal(t, 82, withClamp)
	assert.Equal(t, 72, withoutClamp)
}

func TestScoreHandlesZeroMemberCluster(t *testing.T) {
	cluster := types.PainCluster{MemberCount: 0, UniqueAuthors: 0, SubredditCount: 0, TotalUpvotes: 0}
	assert.NotPanics(t, func() { Score(cluster, nil) })
}

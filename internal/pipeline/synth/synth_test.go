package synth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

func TestQualifiesRequiresMemberFloor(t *testing.T) {
	c := types.PainCluster{MemberCount: 4}
	require.False(t, qualifies(c))
}

func TestQualifiesFirstSynthesisNeedsOnlyFloor(t *testing.T) {
	c := types.PainCluster{MemberCount: 5}
	require.True(t, qualifies(c))
}

func TestQualifiesRegrowthMeetsThreshold(t *testing.T) {
	now := time.Now()
	c := types.PainCluster{MemberCount: 11, LastSynthCount: 10, SynthesizedAt: &now}
	require.True(t, qualifies(c))
}

func TestQualifiesRegrowthBelowThreshold(t *testing.T) {
	now := time.Now()
	c := types.PainCluster{MemberCount: 10, LastSynthCount: 10, SynthesizedAt: &now}
	require.False(t, qualifies(c))
}

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	js, err := extractJSON(`sure, here you go:\n{"is_pain": true}\nhope that helps`)
	require.NoError(t, err)
	assert.Equal(t, `{"is_pain": true}`, js)
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := extractJSON("maybe")
	assert.Error(t, err)
}

func TestDecodeIntoBinaryFilter(t *testing.T) {
	var result BinaryFilterResult
	err := decodeInto(`{"is_pain": false}`, &result)
	require.NoError(t, err)
	assert.False(t, result.IsPain)
}

func TestProposeMergesDropsSelfMerges(t *testing.T) {
	plan := TopicMergePlan{Merges: []TopicMerge{
		{From: "a", To: "b"},
		{From: "c", To: "c"},
	}}
	filtered := dropSelfMerges(plan.Merges)
	assert.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].From)
}

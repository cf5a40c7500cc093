package fetch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

func TestCommentLimitForSchedule(t *testing.T) {
	assert.Equal(t, 500, CommentLimitFor(150, 10))
	assert.Equal(t, 500, CommentLimitFor(5, 150))
	assert.Equal(t, 300, CommentLimitFor(60, 10))
	assert.Equal(t, 300, CommentLimitFor(5, 60))
	assert.Equal(t, 200, CommentLimitFor(10, 20))
	assert.Equal(t, 100, CommentLimitFor(1, 1))
}

func TestIsFilteredBody(t *testing.T) {
	assert.True(t, isFilteredBody("[deleted]"))
	assert.True(t, isFilteredBody("[removed]"))
	assert.True(t, isFilteredBody("too short"))
	assert.False(t, isFilteredBody("this comment body is exactly long enough to pass"))
}

func TestIsFilteredBodyBoundaryAtThirty(t *testing.T) {
	exactlyThirty := "123456789012345678901234567890"
	assert.Len(t, exactlyThirty, 30)
	assert.False(t, isFilteredBody(exactlyThirty), "length == 30 must be considered, not skipped")

	twentyNine := exactlyThirty[:29]
	assert.True(t, isFilteredBody(twentyNine))
}

func TestWalkCommentsRespectsFilters(t *testing.T) {
	raw := `[
		{"kind": "t1", "data": {"id": "c1", "body": "this is a sufficiently long top-level comment body", "author": "u1"}},
		{"kind": "t1", "data": {"id": "c2", "body": "[deleted]", "author": "u2"}}
	]`
	var nodes []redditCommentNode
	require.NoError(t, json.Unmarshal([]byte(raw), &nodes))

	var out []types.RawComment
	walkComments(nodes, "p1", "saas", 5, 0, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].ID)
}

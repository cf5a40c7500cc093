package competitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/config"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

type fakeStateStore struct {
	values map[string]string
}

func (f *fakeStateStore) GetState(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeStateStore) SetState(ctx context.Context, key, value string) error {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[key] = value
	return nil
}

func (f *fakeStateStore) InsertCompetitorMention(ctx context.Context, m types.CompetitorMention) (int64, error) {
	return 1, nil
}

func TestClassifyNegativeSentiment(t *testing.T) {
	sentiment, _ := classify("this tool is an absolute nightmare, worst experience ever")
	assert.Equal(t, "negative", sentiment)
}

func TestClassifyFrustratedSentiment(t *testing.T) {
	sentiment, _ := classify("so frustrating trying to get support, i'm so frustrated")
	assert.Equal(t, "frustrated", sentiment)
}

func TestClassifyNeutralFallback(t *testing.T) {
	sentiment, _ := classify("just switched plans last week")
	assert.Equal(t, "neutral", sentiment)
}

func TestClassifyExtractsFeatureGap(t *testing.T) {
	_, gap := classify("i wish it could export to csv automatically, that would help a lot")
	assert.Contains(t, gap, "i wish it could export")
}

func TestClassifyNoFeatureGapWhenNoPatternMatches(t *testing.T) {
	_, gap := classify("pretty happy overall")
	assert.Empty(t, gap)
}

func TestNextBatchWrapsAroundVerticalList(t *testing.T) {
	store := &fakeStateStore{values: map[string]string{types.StateVerticalIndex: "3"}}
	p := &Phase{store: store, verticals: []config.CompetitorVertical{
		{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"},
	}}

	batch, next, err := p.nextBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "d", batch[0].Name)
	assert.Equal(t, "a", batch[1].Name)
	assert.Equal(t, "b", batch[2].Name)
	assert.Equal(t, 2, next)
}

func TestNextBatchStartsAtZeroWhenStateUnset(t *testing.T) {
	store := &fakeStateStore{}
	p := &Phase{store: store, verticals: []config.CompetitorVertical{{Name: "a"}, {Name: "b"}}}

	batch, next, err := p.nextBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].Name)
	assert.Equal(t, 1, next)
}

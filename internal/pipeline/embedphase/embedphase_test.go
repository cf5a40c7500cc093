package embedphase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

type stubStore struct {
	batches     [][]types.PainRecord
	call        int
	embeddingID int64
	inserted    map[int64][]float64
	linked      map[int64]int64
}

func (s *stubStore) UnembeddedPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error) {
	if s.call >= len(s.batches) {
		return nil, nil
	}
	batch := s.batches[s.call]
	s.call++
	return batch, nil
}

func (s *stubStore) InsertEmbedding(ctx context.Context, painRecordID int64, vector []float64) (int64, error) {
	s.embeddingID++
	if s.inserted == nil {
		s.inserted = map[int64][]float64{}
	}
	s.inserted[painRecordID] = vector
	return s.embeddingID, nil
}

func (s *stubStore) SetEmbeddingID(ctx context.Context, painRecordID, embeddingID int64) error {
	if s.linked == nil {
		s.linked = map[int64]int64{}
	}
	s.linked[painRecordID] = embeddingID
	return nil
}

type stubEmbedder struct {
	dim int
}

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = make([]float64, e.dim)
	}
	return out, nil
}

func TestRunEmbedsSingleUnderfullBatch(t *testing.T) {
	store := &stubStore{batches: [][]types.PainRecord{
		{{ID: 1, RawQuote: "q1"}, {ID: 2, RawQuote: "q2"}},
	}}
	phase := New(store, &stubEmbedder{dim: 4}, 10)

	embedded, err := phase.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, embedded)
	require.Len(t, store.inserted, 2)
	require.Equal(t, int64(1), store.linked[1])
}

func TestRunDrainsAcrossFullBatches(t *testing.T) {
	store := &stubStore{batches: [][]types.PainRecord{
		{{ID: 1, RawQuote: "q1"}, {ID: 2, RawQuote: "q2"}},
		{{ID: 3, RawQuote: "q3"}},
	}}
	phase := New(store, &stubEmbedder{dim: 4}, 2)

	embedded, err := phase.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 3, embedded)
	require.Equal(t, 2, store.call)
}

func TestRunReturnsZeroOnEmptyBacklog(t *testing.T) {
	store := &stubStore{}
	phase := New(store, &stubEmbedder{dim: 4}, 10)

	embedded, err := phase.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, 0, embedded)
}

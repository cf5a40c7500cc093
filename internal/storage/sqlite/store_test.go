package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// newTestStore opens a temp-file-backed database per test for isolation --
// a bare ":memory:" DSN is shared across connections in the same process,
// which would let unrelated tests stomp on each other's rows.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, t.TempDir()+"/test.db")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestUpsertPostThenGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	post := types.RawPost{
		ID: "t3_abc", Subreddit: "smallbusiness", Title: "invoicing is a nightmare",
		Body: "", Author: "u1", CreatedUTC: 1700000000, Score: 10, NumComments: 3,
		SortType: types.SortTop,
	}
	require.NoError(t, store.UpsertPost(ctx, post))

	got, err := store.GetPost(ctx, "t3_abc")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Score)

	// A re-fetch of an already-stored post is ignored, not applied.
	post.Score = 50
	require.NoError(t, store.UpsertPost(ctx, post))
	got, err = store.GetPost(ctx, "t3_abc")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Score)
}

func TestGetPostNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetPost(context.Background(), "missing")
	assert.Error(t, err)
}

func TestPainRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.InsertPainRecord(ctx, types.PainRecord{
		SourceType: types.SourceComment, SourceID: "c1", Subreddit: "saas",
		RawQuote: "I hate chasing invoices", Author: "u2", SourceScore: 5,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	// Re-inserting the same (source_type, source_id) is a no-op, not a second row.
	dup, err := store.InsertPainRecord(ctx, types.PainRecord{
		SourceType: types.SourceComment, SourceID: "c1", Subreddit: "saas",
		RawQuote: "I hate chasing invoices", Author: "u2", SourceScore: 5,
	})
	require.NoError(t, err)
	assert.Zero(t, dup)

	untagged, err := store.UntaggedPainRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, untagged, 1)

	require.NoError(t, store.TagPainRecord(ctx, id, []string{"invoicing", "payments"}, "founder", types.SeverityHigh))

	rec, err := store.GetPainRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.SeverityHigh, rec.Severity)
	assert.ElementsMatch(t, []string{"invoicing", "payments"}, rec.Topics)
}

func TestClusterLifecycleAddsMemberAndRollsUpCounters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seedID, err := store.InsertPainRecord(ctx, types.PainRecord{
		SourceType: types.SourceComment, SourceID: "s1", Subreddit: "saas",
		RawQuote: "payouts take forever", Author: "u1", SourceScore: 1,
	})
	require.NoError(t, err)
	embID, err := store.InsertEmbedding(ctx, seedID, make([]float64, 8))
	require.NoError(t, err)

	clusterID, err := store.CreateCluster(ctx, "payouts take forever", "payout delay", "payments", embID, seedID)
	require.NoError(t, err)

	cluster, err := store.GetCluster(ctx, clusterID)
	require.NoError(t, err)
	assert.Equal(t, 1, cluster.MemberCount)
	assert.Equal(t, 1, cluster.UniqueAuthors)

	memberID, err := store.InsertPainRecord(ctx, types.PainRecord{
		SourceType: types.SourceComment, SourceID: "s2", Subreddit: "entrepreneur",
		RawQuote: "payout delays are killing my cash flow", Author: "u2", SourceScore: 2,
	})
	require.NoError(t, err)

	require.NoError(t, store.AddClusterMember(ctx, clusterID, memberID, 0.9))

	cluster, err = store.GetCluster(ctx, clusterID)
	require.NoError(t, err)
	assert.Equal(t, 2, cluster.MemberCount)
	assert.Equal(t, 2, cluster.UniqueAuthors)
	assert.Equal(t, 2, cluster.SubredditCount)
	assert.Equal(t, 3, cluster.TotalUpvotes)

	rec, err := store.GetPainRecord(ctx, memberID)
	require.NoError(t, err)
	require.NotNil(t, rec.ClusterID)
	assert.Equal(t, clusterID, *rec.ClusterID)
}

func TestCronLockIsSingleFlight(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	acquired, err := store.TryAcquireCronLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = store.TryAcquireCronLock(ctx)
	require.NoError(t, err)
	assert.False(t, acquired, "a second acquire must fail while the first tick is in progress")

	require.NoError(t, store.ReleaseCronLock(ctx))

	acquired, err = store.TryAcquireCronLock(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestUpsertTrendSnapshotIsIdempotentForSameDay(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	snap := types.PainTrend{
		TopicCanonical: "payout delay", SnapshotDate: "2026-07-30",
		BucketType: types.BucketDaily, MentionCount: 5, NewMentions: 5,
		TrendStatus: types.TrendRising, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.UpsertTrendSnapshot(ctx, snap))
	snap.MentionCount = 9
	require.NoError(t, store.UpsertTrendSnapshot(ctx, snap))

	history, err := store.TrendHistory(ctx, "payout delay", 30)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 9, history[0].MentionCount)
}

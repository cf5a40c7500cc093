package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/alert"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/cluster"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/outreach"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/score"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/pipeline/trend"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

type stubStore struct {
	acquired      bool
	released      bool
	counterCalls  int
	state         map[string]string
}

func (s *stubStore) TryAcquireCronLock(ctx context.Context) (bool, error) {
	s.acquired = true
	return true, nil
}

func (s *stubStore) ReleaseCronLock(ctx context.Context) error {
	s.released = true
	return nil
}

func (s *stubStore) IncrementCounter(ctx context.Context, key string) error {
	s.counterCalls++
	return nil
}

func (s *stubStore) GetState(ctx context.Context, key string) (string, error) {
	return s.state[key], nil
}

type stubScoreStore struct{}

func (stubScoreStore) AllClusters(ctx context.Context) ([]types.PainCluster, error) { return nil, nil }
func (stubScoreStore) ClusterMembers(ctx context.Context, clusterID int64, limit int) ([]types.PainRecord, error) {
	return nil, nil
}
func (stubScoreStore) SetScore(ctx context.Context, clusterID int64, totalScore int) error { return nil }

type stubTrendStore struct{ snapshotted int }

func (s *stubTrendStore) TopicDailyStats(ctx context.Context, date string) ([]types.TopicDailyStat, error) {
	return nil, nil
}
func (s *stubTrendStore) TrendHistory(ctx context.Context, topic string, days int) ([]types.PainTrend, error) {
	return nil, nil
}
func (s *stubTrendStore) UpsertTrendSnapshot(ctx context.Context, t types.PainTrend) error { return nil }
func (s *stubTrendStore) UpsertTrendSummary(ctx context.Context, sum types.TrendSummary) error {
	return nil
}

type stubOutreachStore struct{}

func (stubOutreachStore) AllClusters(ctx context.Context) ([]types.PainCluster, error) { return nil, nil }
func (stubOutreachStore) ClusterMembers(ctx context.Context, clusterID int64, limit int) ([]types.PainRecord, error) {
	return nil, nil
}
func (stubOutreachStore) OutreachForCluster(ctx context.Context, clusterID int64) ([]types.OutreachContact, error) {
	return nil, nil
}
func (stubOutreachStore) InsertOutreachContact(ctx context.Context, c types.OutreachContact) (int64, error) {
	return 0, nil
}

type stubAlertStore struct{}

func (stubAlertStore) AllClusters(ctx context.Context) ([]types.PainCluster, error) { return nil, nil }
func (stubAlertStore) TopTrends(ctx context.Context, limit int) ([]types.TrendSummary, error) {
	return nil, nil
}
func (stubAlertStore) DistinctProducts(ctx context.Context) ([]string, error) { return nil, nil }
func (stubAlertStore) CountMentionsForProduct(ctx context.Context, product string) (int, error) {
	return 0, nil
}
func (stubAlertStore) InsertAlert(ctx context.Context, a types.Alert) (int64, error) { return 0, nil }
func (stubAlertStore) GetState(ctx context.Context, key string) (string, error)      { return "", nil }
func (stubAlertStore) SetState(ctx context.Context, key, value string) error         { return nil }

type stubClusterStore struct{}

func (stubClusterStore) UnclusteredPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error) {
	return nil, nil
}
func (stubClusterStore) GetEmbedding(ctx context.Context, id int64) (types.Embedding, error) {
	return types.Embedding{}, nil
}
func (stubClusterStore) ClustersByTopic(ctx context.Context, topic string) ([]types.PainCluster, error) {
	return nil, nil
}
func (stubClusterStore) CreateCluster(ctx context.Context, centroidText, topicCanonical, broadCategory string, centroidEmbeddingID, seedRecordID int64) (int64, error) {
	return 0, nil
}
func (stubClusterStore) AddClusterMember(ctx context.Context, clusterID, painRecordID int64, similarity float64) error {
	return nil
}

func newTestOrchestrator(store *stubStore) *Orchestrator {
	return &Orchestrator{
		store:    store,
		cluster:  cluster.New(stubClusterStore{}, 10),
		score:    score.New(stubScoreStore{}),
		trend:    trend.New(&stubTrendStore{}),
		outreach: outreach.New(stubOutreachStore{}),
		alert:    alert.New(stubAlertStore{}),

		competitorModulo: 3,
		mergeModulo:      6,
		marketModulo:     2,
	}
}

func TestRunPhaseDispatchesKnownPhases(t *testing.T) {
	orch := newTestOrchestrator(&stubStore{})

	n, err := orch.RunPhase(context.Background(), "cluster")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = orch.RunPhase(context.Background(), "score")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = orch.RunPhase(context.Background(), "snapshot-trends")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = orch.RunPhase(context.Background(), "build-outreach")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = orch.RunPhase(context.Background(), "check-alerts")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestRunPhaseUnknownReturnsZeroNoError(t *testing.T) {
	orch := newTestOrchestrator(&stubStore{})

	n, err := orch.RunPhase(context.Background(), "not-a-real-phase")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestRunPhaseResetReleasesLock(t *testing.T) {
	store := &stubStore{}
	orch := newTestOrchestrator(store)

	_, err := orch.RunPhase(context.Background(), "reset")
	require.NoError(t, err)
	require.True(t, store.released)
}

func TestTodayFormatsAsISODate(t *testing.T) {
	require.Len(t, today(), len("2006-01-02"))
}

package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/perr"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/storage/sqlite"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// stubStore implements Store with canned responses, letting each test set
// only the fields the handler under test touches.
type stubStore struct {
	opportunities []types.PainCluster
	cluster       types.PainCluster
	clusterErr    error
	members       []types.PainRecord
	features      []types.MvpFeature
	landing       types.LandingPage
	landingErr    error
	outreach      []types.OutreachContact

	painRecords []types.PainRecord
	topics      []types.TopicSummary
	stats       types.Stats

	trends    []types.TrendSummary
	history   []types.PainTrend

	competitors []sqlite.CompetitorProductSummary
	mentions    []types.CompetitorMention
	gaps        map[string]int

	market        []types.MarketEstimate
	marketByID    types.MarketEstimate
	marketErr     error
	mvpFeatures   []types.MvpFeature

	alerts       []types.Alert
	unreadCount  int
	markedRead   []int64
	markedAll    bool

	geoAll    []types.GeoStats
	geoRegion types.GeoStats
	geoErr    error

	outreachStatusID  int64
	outreachStatusVal string
}

func (s *stubStore) Opportunities(ctx context.Context, limit, minMentions int, region, sort string, all bool) ([]types.PainCluster, error) {
	return s.opportunities, nil
}
func (s *stubStore) GetCluster(ctx context.Context, id int64) (types.PainCluster, error) {
	return s.cluster, s.clusterErr
}
func (s *stubStore) FeaturesForCluster(ctx context.Context, clusterID int64) ([]types.MvpFeature, error) {
	return s.features, nil
}
func (s *stubStore) LandingPageForCluster(ctx context.Context, clusterID int64) (types.LandingPage, error) {
	return s.landing, s.landingErr
}
func (s *stubStore) OutreachForCluster(ctx context.Context, clusterID int64) ([]types.OutreachContact, error) {
	return s.outreach, nil
}
func (s *stubStore) ClusterMembers(ctx context.Context, clusterID int64, limit int) ([]types.PainRecord, error) {
	return s.members, nil
}
func (s *stubStore) RecentPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error) {
	return s.painRecords, nil
}
func (s *stubStore) TopicSummaries(ctx context.Context, limit, offset int) ([]types.TopicSummary, error) {
	return s.topics, nil
}
func (s *stubStore) Stats(ctx context.Context) (types.Stats, error) { return s.stats, nil }
func (s *stubStore) TopTrends(ctx context.Context, limit int) ([]types.TrendSummary, error) {
	return s.trends, nil
}
func (s *stubStore) TrendsByStatus(ctx context.Context, status string, limit int) ([]types.TrendSummary, error) {
	return s.trends, nil
}
func (s *stubStore) TrendHistory(ctx context.Context, topic string, days int) ([]types.PainTrend, error) {
	return s.history, nil
}
func (s *stubStore) CompetitorSummaries(ctx context.Context) ([]sqlite.CompetitorProductSummary, error) {
	return s.competitors, nil
}
func (s *stubStore) MentionsForProduct(ctx context.Context, product string, limit int) ([]types.CompetitorMention, error) {
	return s.mentions, nil
}
func (s *stubStore) FeatureGapCounts(ctx context.Context, product string) (map[string]int, error) {
	return s.gaps, nil
}
func (s *stubStore) FeatureGapCountsAll(ctx context.Context, limit int) (map[string]int, error) {
	return s.gaps, nil
}
func (s *stubStore) ListMarketEstimates(ctx context.Context, limit int) ([]types.MarketEstimate, error) {
	return s.market, nil
}
func (s *stubStore) MarketEstimateForCluster(ctx context.Context, clusterID int64) (types.MarketEstimate, error) {
	return s.marketByID, s.marketErr
}
func (s *stubStore) ListFeatures(ctx context.Context, limit int, featureType string) ([]types.MvpFeature, error) {
	return s.mvpFeatures, nil
}
func (s *stubStore) ListAlerts(ctx context.Context, alertType string, unreadOnly bool, limit, offset int) ([]types.Alert, error) {
	return s.alerts, nil
}
func (s *stubStore) CountUnreadAlerts(ctx context.Context) (int, error) { return s.unreadCount, nil }
func (s *stubStore) MarkAlertRead(ctx context.Context, id int64) error {
	s.markedRead = append(s.markedRead, id)
	return nil
}
func (s *stubStore) MarkAllAlertsRead(ctx context.Context) error {
	s.markedAll = true
	return nil
}
func (s *stubStore) AllGeoStats(ctx context.Context) ([]types.GeoStats, error) { return s.geoAll, nil }
func (s *stubStore) GeoStatsForRegion(ctx context.Context, region string) (types.GeoStats, error) {
	return s.geoRegion, s.geoErr
}
func (s *stubStore) UpdateOutreachStatus(ctx context.Context, id int64, status string) error {
	s.outreachStatusID = id
	s.outreachStatusVal = status
	return nil
}

type stubTrigger struct {
	lastPhase string
	count     int
	err       error
}

func (t *stubTrigger) RunPhase(ctx context.Context, phase string) (int, error) {
	t.lastPhase = phase
	return t.count, t.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func validIdentityHeader(t *testing.T) string {
	t.Helper()
	header := map[string]string{"alg": "none"}
	headerJSON, _ := json.Marshal(header)
	payload := struct {
		Email string `json:"email"`
		Exp   int64  `json:"exp"`
	}{Email: "user@example.com", Exp: time.Now().Add(time.Hour).Unix()}
	payloadJSON, _ := json.Marshal(payload)

	enc := func(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }
	return strings.Join([]string{enc(headerJSON), enc(payloadJSON), "sig"}, ".")
}

func TestOpportunitiesListHandler(t *testing.T) {
	store := &stubStore{opportunities: []types.PainCluster{{ID: 1}, {ID: 2}}}
	handler := NewHandler(store, &stubTrigger{})

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities?limit=10", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	opps, ok := body["opportunities"].([]any)
	if !ok || len(opps) != 2 {
		t.Fatalf("expected 2 opportunities, got %v", body["opportunities"])
	}
}

func TestOpportunityDetailNotFound(t *testing.T) {
	store := &stubStore{clusterErr: perr.New(perr.KindNotFound, "GetCluster", sqlite.ErrNotFound)}
	handler := NewHandler(store, &stubTrigger{})

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities/99", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOpportunityDetailInvalidID(t *testing.T) {
	store := &stubStore{}
	handler := NewHandler(store, &stubTrigger{})

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities/not-a-number", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(&stubStore{}, &stubTrigger{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestAlertReadRequiresIdentity(t *testing.T) {
	store := &stubStore{}
	handler := NewHandler(store, &stubTrigger{})

	req := httptest.NewRequest(http.MethodPost, "/api/alerts/1/read", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
	if len(store.markedRead) != 0 {
		t.Fatalf("handler should not have run without identity")
	}
}

func TestAlertReadSucceedsWithIdentity(t *testing.T) {
	store := &stubStore{}
	handler := NewHandler(store, &stubTrigger{})

	req := httptest.NewRequest(http.MethodPost, "/api/alerts/1/read", nil)
	req.Header.Set("X-Identity-Token", validIdentityHeader(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.markedRead) != 1 || store.markedRead[0] != 1 {
		t.Fatalf("expected alert 1 marked read, got %v", store.markedRead)
	}
}

func TestOutreachStatusRejectsInvalidStatus(t *testing.T) {
	store := &stubStore{}
	handler := NewHandler(store, &stubTrigger{})

	body := strings.NewReader(`{"status":"not-a-real-status"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/outreach/1/status", body)
	req.Header.Set("X-Identity-Token", validIdentityHeader(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOutreachStatusSucceeds(t *testing.T) {
	store := &stubStore{}
	handler := NewHandler(store, &stubTrigger{})

	body := strings.NewReader(`{"status":"contacted"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/outreach/5/status", body)
	req.Header.Set("X-Identity-Token", validIdentityHeader(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.outreachStatusID != 5 || store.outreachStatusVal != "contacted" {
		t.Fatalf("expected status update for contact 5, got id=%d status=%s", store.outreachStatusID, store.outreachStatusVal)
	}
}

func TestTriggerHandlerRejectsUnknownPhase(t *testing.T) {
	trigger := &stubTrigger{}
	handler := NewHandler(&stubStore{}, trigger)

	req := httptest.NewRequest(http.MethodPost, "/api/trigger/not-a-phase", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if trigger.lastPhase != "" {
		t.Fatalf("trigger should not have run")
	}
}

func TestTriggerHandlerRunsKnownPhase(t *testing.T) {
	trigger := &stubTrigger{count: 7}
	handler := NewHandler(&stubStore{}, trigger)

	req := httptest.NewRequest(http.MethodPost, "/api/trigger/cluster", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if trigger.lastPhase != "cluster" {
		t.Fatalf("expected cluster phase dispatched, got %q", trigger.lastPhase)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["count"].(float64) != 7 {
		t.Fatalf("expected count 7, got %v", body["count"])
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := NewHandler(&stubStore{}, &stubTrigger{})

	req := httptest.NewRequest(http.MethodOptions, "/api/opportunities", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header set")
	}
}

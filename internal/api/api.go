// Package api is the Read API (C15): a pure reader over the relational
// store, plus manual phase-trigger endpoints, served as plain
// net/http handlers the way the teacher wires cmd/bd's web dashboard.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/perr"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/storage/sqlite"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// Store is the full read (and narrow write) surface the API depends on. A
// single *sqlite.Store satisfies it; it is spelled out so handlers can be
// tested against stubs the way the teacher's ui/api package stubs an RPC
// client.
type Store interface {
	Opportunities(ctx context.Context, limit, minMentions int, region, sort string, all bool) ([]types.PainCluster, error)
	GetCluster(ctx context.Context, id int64) (types.PainCluster, error)
	FeaturesForCluster(ctx context.Context, clusterID int64) ([]types.MvpFeature, error)
	LandingPageForCluster(ctx context.Context, clusterID int64) (types.LandingPage, error)
	OutreachForCluster(ctx context.Context, clusterID int64) ([]types.OutreachContact, error)
	ClusterMembers(ctx context.Context, clusterID int64, limit int) ([]types.PainRecord, error)

	RecentPainRecords(ctx context.Context, limit int) ([]types.PainRecord, error)
	TopicSummaries(ctx context.Context, limit, offset int) ([]types.TopicSummary, error)
	Stats(ctx context.Context) (types.Stats, error)

	TopTrends(ctx context.Context, limit int) ([]types.TrendSummary, error)
	TrendsByStatus(ctx context.Context, status string, limit int) ([]types.TrendSummary, error)
	TrendHistory(ctx context.Context, topic string, days int) ([]types.PainTrend, error)

	CompetitorSummaries(ctx context.Context) ([]sqlite.CompetitorProductSummary, error)
	MentionsForProduct(ctx context.Context, product string, limit int) ([]types.CompetitorMention, error)
	FeatureGapCounts(ctx context.Context, product string) (map[string]int, error)
	FeatureGapCountsAll(ctx context.Context, limit int) (map[string]int, error)

	ListMarketEstimates(ctx context.Context, limit int) ([]types.MarketEstimate, error)
	MarketEstimateForCluster(ctx context.Context, clusterID int64) (types.MarketEstimate, error)
	ListFeatures(ctx context.Context, limit int, featureType string) ([]types.MvpFeature, error)

	ListAlerts(ctx context.Context, alertType string, unreadOnly bool, limit, offset int) ([]types.Alert, error)
	CountUnreadAlerts(ctx context.Context) (int, error)
	MarkAlertRead(ctx context.Context, id int64) error
	MarkAllAlertsRead(ctx context.Context) error

	AllGeoStats(ctx context.Context) ([]types.GeoStats, error)
	GeoStatsForRegion(ctx context.Context, region string) (types.GeoStats, error)

	UpdateOutreachStatus(ctx context.Context, id int64, status string) error
}

// Trigger runs a single named pipeline phase on demand (manual phase kicks,
// spec §6), returning a count that gets reported back as {"count": n}.
type Trigger interface {
	RunPhase(ctx context.Context, phase string) (int, error)
}

// version is stamped into /health; overridable at link time.
var version = "dev"

// NewHandler assembles the full Read API mux: every GET/POST route from
// spec §6, wrapped in CORS and identity middleware.
func NewHandler(store Store, trigger Trigger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)

	mux.HandleFunc("GET /api/opportunities", newOpportunitiesListHandler(store))
	mux.HandleFunc("GET /api/opportunities/{id}", newOpportunityDetailHandler(store))
	mux.HandleFunc("GET /api/opportunities/{id}/features", newOpportunityFeaturesHandler(store))
	mux.HandleFunc("GET /api/opportunities/{id}/landing", newOpportunityLandingHandler(store))
	mux.HandleFunc("GET /api/opportunities/{id}/outreach", newOpportunityOutreachHandler(store))
	mux.HandleFunc("GET /api/opportunities/{id}/geo", newOpportunityGeoHandler(store))

	mux.HandleFunc("GET /api/painpoints", newPainpointsHandler(store))
	mux.HandleFunc("GET /api/topics", newTopicsHandler(store))
	mux.HandleFunc("GET /api/stats", newStatsHandler(store))

	mux.HandleFunc("GET /api/trends", newTrendsHandler(store))
	mux.HandleFunc("GET /api/trends/hot", newTrendsStatusHandler(store, "hot"))
	mux.HandleFunc("GET /api/trends/cooling", newTrendsStatusHandler(store, "cooling"))
	mux.HandleFunc("GET /api/trends/history/{topic}", newTrendHistoryHandler(store))

	mux.HandleFunc("GET /api/competitors", newCompetitorsHandler(store))
	mux.HandleFunc("GET /api/competitors/{product}", newCompetitorDetailHandler(store))
	mux.HandleFunc("GET /api/feature-gaps", newFeatureGapsHandler(store))

	mux.HandleFunc("GET /api/market", newMarketListHandler(store))
	mux.HandleFunc("GET /api/market/{id}", newMarketDetailHandler(store))
	mux.HandleFunc("GET /api/features", newFeaturesHandler(store))

	mux.HandleFunc("GET /api/alerts", newAlertsListHandler(store))
	mux.HandleFunc("GET /api/alerts/count", newAlertsCountHandler(store))
	mux.HandleFunc("POST /api/alerts/{id}/read", requireIdentity(newAlertReadHandler(store)))
	mux.HandleFunc("POST /api/alerts/read-all", requireIdentity(newAlertsReadAllHandler(store)))

	mux.HandleFunc("GET /api/geo/stats", newGeoStatsHandler(store))
	mux.HandleFunc("GET /api/geo/{region}", newGeoRegionHandler(store))

	mux.HandleFunc("GET /api/outreach/export", newOutreachExportHandler(store))
	mux.HandleFunc("POST /api/outreach/{id}/status", requireIdentity(newOutreachStatusHandler(store)))

	mux.HandleFunc("POST /api/trigger/{phase}", newTriggerHandler(trigger))

	return withRequestID(withCORS(mux))
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestID stamps every response with a fresh correlation id, so a
// request can be traced through logs even though the Read API itself
// keeps no session state.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.New().String())
		next.ServeHTTP(w, r)
	})
}

// requireIdentity gates a write handler behind the upstream identity
// header (spec §7f): absent or expired identity returns 401.
func requireIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identityFromRequest(r); !ok {
			writeError(w, http.StatusUnauthorized, "identity required")
			return
		}
		next(w, r)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   version,
		"timestamp": epochMillis(time.Now()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps a perr.Kind surfaced from the store into the Read
// API's §7 status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case perr.IsKind(err, perr.KindNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case perr.IsKind(err, perr.KindValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

package api

import "net/http"

const defaultTrendsLimit = 30
const defaultTrendHistoryDays = 30

func newTrendsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultTrendsLimit)
		status := r.URL.Query().Get("status")

		var (
			trends []any
			err    error
		)
		if status != "" {
			rows, e := store.TrendsByStatus(r.Context(), status, limit)
			err = e
			for _, t := range rows {
				trends = append(trends, t)
			}
		} else {
			rows, e := store.TopTrends(r.Context(), limit)
			err = e
			for _, t := range rows {
				trends = append(trends, t)
			}
		}
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
	}
}

func newTrendsStatusHandler(store Store, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultTrendsLimit)
		trends, err := store.TrendsByStatus(r.Context(), status, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
	}
}

func newTrendHistoryHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.PathValue("topic")
		if topic == "" {
			writeError(w, http.StatusBadRequest, "topic required")
			return
		}
		days := queryInt(r, "days", defaultTrendHistoryDays)
		history, err := store.TrendHistory(r.Context(), topic, days)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": history})
	}
}

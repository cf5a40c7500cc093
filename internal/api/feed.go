package api

import "net/http"

const defaultPainpointsLimit = 50
const defaultTopicsLimit = 20

func newPainpointsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultPainpointsLimit)
		records, err := store.RecentPainRecords(r.Context(), limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"painpoints": records})
	}
}

func newTopicsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultTopicsLimit)
		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * limit
		topics, err := store.TopicSummaries(r.Context(), limit, offset)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"topics": topics, "page": page})
	}
}

func newStatsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

package api

import "net/http"

const defaultMarketLimit = 30
const defaultFeaturesLimit = 50

func newMarketListHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultMarketLimit)
		estimates, err := store.ListMarketEstimates(r.Context(), limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"market": estimates})
	}
}

func newMarketDetailHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		estimate, err := store.MarketEstimateForCluster(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, estimate)
	}
}

func newFeaturesHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultFeaturesLimit)
		featureType := r.URL.Query().Get("type")
		features, err := store.ListFeatures(r.Context(), limit, featureType)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"features": features})
	}
}

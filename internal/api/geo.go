package api

import "net/http"

func newGeoStatsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.AllGeoStats(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"geo": stats})
	}
}

func newGeoRegionHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		region := r.PathValue("region")
		if region == "" {
			writeError(w, http.StatusBadRequest, "region required")
			return
		}
		stats, err := store.GeoStatsForRegion(r.Context(), region)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

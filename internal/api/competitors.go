package api

import "net/http"

const defaultFeatureGapsLimit = 20
const defaultCompetitorMentionsLimit = 50

func newCompetitorsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := store.CompetitorSummaries(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"competitors": summaries})
	}
}

func newCompetitorDetailHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product := r.PathValue("product")
		if product == "" {
			writeError(w, http.StatusBadRequest, "product required")
			return
		}
		mentions, err := store.MentionsForProduct(r.Context(), product, defaultCompetitorMentionsLimit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		gaps, err := store.FeatureGapCounts(r.Context(), product)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"product":      product,
			"mentions":     mentions,
			"feature_gaps": gaps,
		})
	}
}

func newFeatureGapsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultFeatureGapsLimit)
		gaps, err := store.FeatureGapCountsAll(r.Context(), limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"feature_gaps": gaps})
	}
}

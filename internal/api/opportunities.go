package api

import (
	"net/http"
)

const defaultOpportunitiesLimit = 20
const defaultMinMentions = 5

func newOpportunitiesListHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultOpportunitiesLimit)
		minMentions := queryInt(r, "min", defaultMinMentions)
		region := r.URL.Query().Get("region")
		sort := r.URL.Query().Get("sort")
		all := queryBool(r, "all")

		clusters, err := store.Opportunities(r.Context(), limit, minMentions, region, sort, all)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"opportunities": clusters})
	}
}

func newOpportunityDetailHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		cluster, err := store.GetCluster(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		members, err := store.ClusterMembers(r.Context(), id, 0)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"opportunity": cluster,
			"members":     members,
		})
	}
}

func newOpportunityFeaturesHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		features, err := store.FeaturesForCluster(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"features": features})
	}
}

func newOpportunityLandingHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		page, err := store.LandingPageForCluster(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func newOpportunityOutreachHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		contacts, err := store.OutreachForCluster(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"outreach": contacts})
	}
}

func newOpportunityGeoHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		members, err := store.ClusterMembers(r.Context(), id, 0)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		type regionCount struct {
			Region string `json:"region"`
			Count  int    `json:"count"`
		}
		counts := make(map[string]int)
		for _, m := range members {
			if m.GeoRegion != nil && *m.GeoRegion != "" {
				counts[*m.GeoRegion]++
			}
		}
		out := make([]regionCount, 0, len(counts))
		for region, n := range counts {
			out = append(out, regionCount{Region: region, Count: n})
		}
		writeJSON(w, http.StatusOK, map[string]any{"geo": out})
	}
}

package api

import "net/http"

// newOutreachExportHandler serves the outreach candidate list for a single
// cluster as a plain JSON array (CSV formatting is explicitly out of
// scope, per SPEC_FULL.md's Non-goals section).
func newOutreachExportHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clusterID, ok := pathInt64OfQuery(r, "opportunity_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "opportunity_id required")
			return
		}
		contacts, err := store.OutreachForCluster(r.Context(), clusterID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

type outreachStatusRequest struct {
	Status string `json:"status"`
}

func newOutreachStatusHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		var body outreachStatusRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validOutreachStatus(body.Status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		if err := store.UpdateOutreachStatus(r.Context(), id, body.Status); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func validOutreachStatus(status string) bool {
	switch status {
	case "pending", "contacted", "responded", "declined":
		return true
	default:
		return false
	}
}

package api

import "net/http"

// validPhases enumerates every manual trigger name from spec §6.
var validPhases = map[string]bool{
	"ingest": true, "extract": true, "tag": true, "cluster": true,
	"synthesize": true, "score": true, "merge": true,
	"snapshot-trends": true, "estimate-markets": true, "extract-features": true,
	"mine-competitors": true, "geo-analyze": true, "check-alerts": true,
	"build-outreach": true, "full": true, "reset": true,
}

func newTriggerHandler(trigger Trigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phase := r.PathValue("phase")
		if !validPhases[phase] {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "unknown phase"})
			return
		}
		if trigger == nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "trigger unavailable"})
			return
		}
		count, err := trigger.RunPhase(r.Context(), phase)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
	}
}

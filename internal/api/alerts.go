package api

import "net/http"

const defaultAlertsLimit = 50

func newAlertsListHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertType := r.URL.Query().Get("type")
		unreadOnly := queryBool(r, "unread")
		limit := queryInt(r, "limit", defaultAlertsLimit)
		offset := queryInt(r, "offset", 0)

		alerts, err := store.ListAlerts(r.Context(), alertType, unreadOnly, limit, offset)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
	}
}

func newAlertsCountHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := store.CountUnreadAlerts(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"unread": count})
	}
}

func newAlertReadHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathInt64(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		if err := store.MarkAlertRead(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func newAlertsReadAllHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.MarkAllAlertsRead(r.Context()); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

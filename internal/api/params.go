package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/identity"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	raw := r.URL.Query().Get(key)
	return raw == "1" || raw == "true" || raw == "yes"
}

func pathInt64(r *http.Request, key string) (int64, bool) {
	raw := r.PathValue(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func pathInt64OfQuery(r *http.Request, key string) (int64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// identityFromRequest decodes the trusted upstream identity header, per
// spec §6; any decode failure is treated as no identity rather than an
// error (the caller decides whether that blocks the request).
func identityFromRequest(r *http.Request) (types.User, bool) {
	header := r.Header.Get("X-Identity-Token")
	if header == "" {
		header = r.Header.Get("Authorization")
	}
	user, err := identity.FromHeader(header)
	if err != nil {
		return types.User{}, false
	}
	return user, true
}

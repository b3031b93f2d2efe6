package handlers

import (
	"net/http"
	"strconv"
)

// parseIntQuery returns the integer value of a query parameter, or zero when
// absent or malformed.
func parseIntQuery(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

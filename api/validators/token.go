package validators

import (
	"net/http"
	"strings"
)

// BearerToken extracts the bearer token from the Authorization header.
// Returns an empty string when the header is missing or malformed.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return ""
	}
	return strings.TrimSpace(raw[7:])
}

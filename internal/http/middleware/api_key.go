package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

const apiKeyHeader = "X-API-Key"

// APIKey guards widget endpoints with a shared key sent in X-API-Key.
// With no keys configured every request passes.
func APIKey(keys []string) func(http.Handler) http.Handler {
	valid := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if got == "" {
				writeError(w, http.StatusUnauthorized, "API key required")
				return
			}
			if !keyMatches(valid, []byte(got)) {
				writeError(w, http.StatusForbidden, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func keyMatches(valid [][]byte, got []byte) bool {
	match := 0
	for _, k := range valid {
		match |= subtle.ConstantTimeCompare(k, got)
	}
	return match == 1
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

package auth

import (
	"encoding/json"
	"net/http"
)

// Middleware returns HTTP middleware with the same rules as APIKeyInterceptor.
// The key may also be given as the "api_key" query parameter, which browsers
// need for WebSocket upgrades. Paths listed in open bypass the check.
func Middleware(mode, header, key string, open ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(open))
	for _, p := range open {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		if !enforced(mode, key) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(header)
			if got == "" {
				got = r.URL.Query().Get("api_key")
			}
			if got == "" || !keyMatches(got, key) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

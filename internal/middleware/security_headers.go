package middleware

import "net/http"

// SecurityHeaders returns a middleware that adds security headers to all
// responses. The bridge serves JSON to tool-calling clients only, so the
// headers are the API-appropriate subset.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			// Responses carry session identifiers and backend payloads;
			// intermediaries must not cache them.
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

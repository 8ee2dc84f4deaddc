package middleware

import "net/http"

// ContentTypeJSON stamps JSON on every response. Handlers serving other
// content types override it explicitly.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

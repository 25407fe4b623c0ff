package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds every request context. Handlers that run longer
// passes set their own tighter deadlines on top of this one.
func TimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

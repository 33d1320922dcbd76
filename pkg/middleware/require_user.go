package middleware

import (
	"net/http"

	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/metrics"
	"github.com/shashiranjanraj/grocerylist/pkg/response"
)

// RequireUser answers 401 JSON to anonymous callers. Mount it after
// auth.Middleware on non-HTML endpoints (GraphQL, the live feed).
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserID(r.Context()); !ok {
			metrics.AuthFailures.WithLabelValues("unauthenticated").Inc()
			response.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/grocerylist/pkg/logger"
	"github.com/shashiranjanraj/grocerylist/pkg/session"
)

// SessionKey is the session entry holding the logged-in user's id.
const SessionKey = "user_id"

type ctxKey struct{}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserID returns the authenticated user id, false for anonymous requests.
func UserID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ctxKey{}).(uint)
	return id, ok && id != 0
}

// Login records userID in sess under a fresh session id.
func Login(sess *session.Session, userID uint) {
	sess.Regenerate()
	sess.Set(SessionKey, userID)
}

// Logout forgets everything in sess.
func Logout(sess *session.Session) {
	sess.Invalidate()
}

// Middleware resolves the caller from a "Bearer" token or, failing that,
// from the session. It never rejects a request; handlers decide what an
// anonymous caller may do. Mount it after the session middleware.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				claims, err := ValidateToken(strings.TrimPrefix(h, "Bearer "))
				if err != nil {
					logger.WithCtx(r.Context()).Info("bearer token rejected", "error", err)
				} else {
					next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
					return
				}
			}

			if id, ok := session.FromCtx(r.Context()).GetUint(SessionKey); ok {
				r = r.WithContext(WithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

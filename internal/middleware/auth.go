package middleware

import (
	"context"
	"net/http"

	"portfolio-site/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// LoginPath is where unauthenticated admin requests are sent.
const LoginPath = "/admin/login"

// IdentityReader resolves the identity bound to a request, if any.
type IdentityReader interface {
	Current(r *http.Request) (auth.Identity, bool)
}

// RequireAdmin lets a request through only when a server-side session backs
// it. Everything else is redirected to the login page.
func RequireAdmin(sessions IdentityReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := sessions.Current(r)
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity stores identity in ctx.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the identity placed in ctx by RequireAdmin.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}

package daemon

import (
	"context"
	"net/http"
	"strings"

	"revoice/internal/config"
	"revoice/internal/services"
)

type principalKey struct{}

// anonymous is the principal for every request when no users are configured.
var anonymous = services.Principal{UserID: 0, Admin: true}

func withPrincipal(ctx context.Context, p services.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFrom returns the authenticated caller. Requests that bypassed the
// middleware get no privileges.
func principalFrom(ctx context.Context) services.Principal {
	if p, ok := ctx.Value(principalKey{}).(services.Principal); ok {
		return p
	}
	return services.Principal{UserID: -1}
}

// authMiddleware returns a middleware that maps bearer tokens to principals.
// If users is empty, no authentication is required and every request runs as
// an administrator with user id 0. Otherwise requests must include
// "Authorization: Bearer <token>" with a configured token.
func authMiddleware(users []config.User, next http.Handler) http.Handler {
	if len(users) == 0 {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), anonymous)))
		})
	}
	tokens := make(map[string]services.Principal, len(users))
	for _, u := range users {
		if token := strings.TrimSpace(u.Token); token != "" {
			tokens[token] = services.Principal{UserID: u.UserID, Admin: u.Admin}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauthorized(w)
			return
		}
		p, ok := tokens[strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))]
		if !ok {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}

package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/daniry/backoffice/internal/httpx"
	"github.com/daniry/backoffice/internal/shared"
)

// Resolver maps a verified subject id to exactly one identity.
type Resolver interface {
	ResolveByID(ctx context.Context, id int64) (*shared.Identity, error)
}

// Middleware authenticates requests via the session cookie and attaches
// the resolved identity to the request context. It is read-only: the
// credential is never refreshed or rotated.
type Middleware struct {
	Manager  *Manager
	Resolver Resolver
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid session. A valid
// signature whose subject no longer matches an active account is still
// unauthenticated, so deactivation takes effect on the next request.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			httpx.Fail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		subject, err := m.Manager.Verify(cookie.Value)
		if err != nil {
			httpx.Fail(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ident, err := m.Resolver.ResolveByID(r.Context(), subject)
		if err != nil {
			if !errors.Is(err, shared.ErrUnauthenticated) && m.Logger != nil {
				m.Logger.Error("resolve session identity", slog.Any("error", err))
			}
			httpx.Fail(w, http.StatusUnauthorized, "Invalid or inactive user")
			return
		}

		ctx := shared.ContextWithIdentity(r.Context(), ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

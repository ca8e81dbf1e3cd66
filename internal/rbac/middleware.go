package rbac

import (
	"log/slog"
	"net/http"

	"github.com/daniry/backoffice/internal/httpx"
	"github.com/daniry/backoffice/internal/shared"
)

// Middleware wires the authorization gate for HTTP handlers. A guard
// runs after the session authenticator: no identity in context is 401,
// a resolved identity without the required permission is 403 with the
// requirement named for the client UI.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// RequirePermission guards a route behind a single permission slug.
func (m Middleware) RequirePermission(slug string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := shared.IdentityFromContext(r.Context())
			if ident == nil {
				httpx.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			set, err := m.Resolver.Resolve(r.Context(), ident.ID, ident.SuperAdmin)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("permission check", slog.Any("error", err))
				}
				httpx.Fail(w, http.StatusInternalServerError, "Authorization check failed")
				return
			}
			if !set.Has(slug) {
				httpx.FailData(w, http.StatusForbidden, "Insufficient permissions", map[string]any{"required": slug})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission guards a route behind any one of the slugs.
func (m Middleware) RequireAnyPermission(slugs ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := shared.IdentityFromContext(r.Context())
			if ident == nil {
				httpx.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			set, err := m.Resolver.Resolve(r.Context(), ident.ID, ident.SuperAdmin)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("permission check", slog.Any("error", err))
				}
				httpx.Fail(w, http.StatusInternalServerError, "Authorization check failed")
				return
			}
			if !set.HasAny(slugs...) {
				httpx.FailData(w, http.StatusForbidden, "Insufficient permissions", map[string]any{"required": slugs})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin guards a route behind the identity-class flag,
// bypassing the resolver entirely.
func (m Middleware) RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := shared.IdentityFromContext(r.Context())
			if ident == nil {
				httpx.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !ident.SuperAdmin {
				httpx.Fail(w, http.StatusForbidden, "Super Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/daniry/backoffice/internal/admin"
	"github.com/daniry/backoffice/internal/observability"
	"github.com/daniry/backoffice/internal/products"
	"github.com/daniry/backoffice/internal/rbac"
	"github.com/daniry/backoffice/internal/roles"
	"github.com/daniry/backoffice/internal/session"
	"github.com/daniry/backoffice/internal/users"
	"github.com/daniry/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Authenticator   *session.Middleware
	Gate            rbac.Middleware
	AdminHandler    *admin.Handler
	UsersHandler    *users.Handler
	RolesHandler    *roles.Handler
	ProductsHandler *products.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router for the admin API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	authenticate := params.Authenticator.Authenticate

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(CredentialRateLimit())
				params.AdminHandler.MountPublicRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				params.AdminHandler.MountProtectedRoutes(r)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(CredentialRateLimit())
				params.UsersHandler.MountPublicRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				params.UsersHandler.MountProtectedRoutes(r, &params.Gate)
			})
		})

		r.Route("/roles", func(r chi.Router) {
			r.Use(authenticate)
			params.RolesHandler.MountRoutes(r, &params.Gate)
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(authenticate)
			params.ProductsHandler.MountRoutes(r, &params.Gate)
		})

		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(authenticate)
				r.Use(params.Gate.RequireSuperAdmin())
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}

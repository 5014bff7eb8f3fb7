package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/FIXCOse/fixco-platform/internal/auth"
	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/invoices"
	"github.com/FIXCOse/fixco-platform/internal/observability"
	"github.com/FIXCOse/fixco-platform/internal/quotes"
	"github.com/FIXCOse/fixco-platform/internal/staff"
	"github.com/FIXCOse/fixco-platform/internal/workorders"
	"github.com/FIXCOse/fixco-platform/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	TokenStore        *auth.TokenStore
	AuthHandler       *auth.Handler
	StaffHandler      *staff.Handler
	CustomersHandler  *customers.Handler
	QuotesHandler     *quotes.Handler
	InvoicesHandler   *invoices.Handler
	WorkOrdersHandler *workorders.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public: login and the stateless price preview used by the
		// marketing site's ROT/RUT calculator.
		params.AuthHandler.MountRoutes(r)
		params.QuotesHandler.MountPublicRoutes(r)

		// Everything else requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(params.TokenStore, params.Logger))

			params.AuthHandler.MountProtectedRoutes(r)
			params.CustomersHandler.MountRoutes(r)
			params.QuotesHandler.MountRoutes(r)
			params.InvoicesHandler.MountRoutes(r)
			params.WorkOrdersHandler.MountRoutes(r)
			if params.JobsHandler != nil {
				r.Route("/jobs", params.JobsHandler.MountRoutes)
			}

			// Staff administration is admin only.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(string(staff.RoleAdmin)))
				params.StaffHandler.MountRoutes(r)
			})
		})
	})

	return r
}

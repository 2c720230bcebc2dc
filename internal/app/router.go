package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nextfactory/nextfactory/internal/auth"
	"github.com/nextfactory/nextfactory/internal/observability"
	"github.com/nextfactory/nextfactory/internal/platform/httpx"
	"github.com/nextfactory/nextfactory/internal/roles"
	"github.com/nextfactory/nextfactory/internal/users"
	"github.com/nextfactory/nextfactory/internal/workspace"
	"github.com/nextfactory/nextfactory/jobs"
)

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck struct {
	Name  string
	Check func(context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Metrics       *observability.Metrics
	Authenticator auth.Authenticator
	Workspace     *workspace.Handler
	Users         *users.Handler
	Roles         *roles.Handler
	Jobs          *jobs.Handler
	Readiness     []ReadinessCheck
}

// NewRouter constructs the chi.Router with NextFactory defaults. Every
// /api route and the websocket feed require Basic credentials.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" not supported on "+r.URL.Path)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range BufferedStack(params.Config) {
			r.Use(mw)
		}
		if params.Jobs != nil {
			r.Route("/jobs", params.Jobs.MountRoutes)
		}
	})

	if params.Authenticator == nil {
		logger.Warn("router: no authenticator configured, api routes disabled")
		return r
	}
	authMW := auth.Middleware{Service: params.Authenticator, Logger: logger}
	r.Group(func(r chi.Router) {
		r.Use(authMW.Require)
		r.Group(func(r chi.Router) {
			for _, mw := range BufferedStack(params.Config) {
				r.Use(mw)
			}
			if params.Workspace != nil {
				params.Workspace.MountRoutes(r)
			}
			if params.Users != nil {
				r.Route("/api/users", params.Users.MountRoutes)
			}
			if params.Roles != nil {
				r.Route("/api/roles", params.Roles.MountRoutes)
			}
		})
		if params.Workspace != nil {
			params.Workspace.MountStream(r)
		}
	})

	return r
}

type readinessResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func readiness(logger *slog.Logger, checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		out := readinessResult{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("check", c.Name), slog.Any("error", err))
				out.Checks[c.Name] = "unavailable"
				out.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			out.Checks[c.Name] = "ok"
		}
		httpx.JSON(w, status, out)
	}
}

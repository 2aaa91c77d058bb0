package server

import (
	"net/http"

	"github.com/cloo-solutions/statusdigest/internal/api"
	"github.com/cloo-solutions/statusdigest/internal/api/handlers"
	"github.com/cloo-solutions/statusdigest/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes int64 = 25 * 1024 * 1024

type RouterConfig struct {
	// AuthValidator guards everything but /health. Nil leaves the API open.
	AuthValidator  middleware.AuthValidator
	Logger         *zap.Logger
	MaxBodyBytes   int64
	ReportHandler  *handlers.ReportHandler
	JobHandler     *handlers.JobHandler
	ProjectHandler *handlers.ProjectHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	// Recoverer sits outside Sentry, which reports a panic and re-raises it
	r.Use(chimw.Recoverer)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBody))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", cfg.ReportHandler.Submit)
			r.Post("/extract", cfg.ReportHandler.Extract)
		})

		r.Get("/jobs/{id}", cfg.JobHandler.Get)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", cfg.ProjectHandler.List)
			r.Post("/reload", cfg.ProjectHandler.Reload)
			r.Get("/{code}/history", cfg.ProjectHandler.History)
		})
	})

	return r
}

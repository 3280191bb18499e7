// Package router assembles the HTTP surface of the triage service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/acuitylabs/triage-ai/internal/http/handlers"
	httpmiddleware "github.com/acuitylabs/triage-ai/internal/http/middleware"
	"github.com/acuitylabs/triage-ai/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	CasesHandler   *handlers.CasesHandler
	MetricsHandler http.Handler

	// SubmitRatePerSecond limits POST /api/cases per client IP. Zero disables
	// the limiter.
	SubmitRatePerSecond float64
	SubmitBurst         int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.CasesHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/cases", func(api chi.Router) {
		submit := api.With()
		if cfg.SubmitRatePerSecond > 0 {
			burst := cfg.SubmitBurst
			if burst <= 0 {
				burst = 5
			}
			submit = api.With(httpmiddleware.RateLimit(cfg.SubmitRatePerSecond, burst))
		}
		submit.Post("/", cfg.CasesHandler.Submit)
		api.Get("/", cfg.CasesHandler.ListCases)
		api.Get("/{caseID}", cfg.CasesHandler.GetCase)
		api.Get("/{caseID}/artifacts/{kind}", cfg.CasesHandler.GetArtifact)
	})

	return r
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acuitylabs/triage-ai/cmd/mainconfig"
	"github.com/acuitylabs/triage-ai/internal/casestore"
	appconfig "github.com/acuitylabs/triage-ai/internal/config"
	"github.com/acuitylabs/triage-ai/internal/http/handlers"
	"github.com/acuitylabs/triage-ai/internal/http/router"
	"github.com/acuitylabs/triage-ai/internal/observability/metrics"
	"github.com/acuitylabs/triage-ai/internal/triage"
	"github.com/acuitylabs/triage-ai/pkg/logging"
)

func main() {
	// In production env vars come from the platform; .env is for local runs.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting triage-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"default_model", cfg.DefaultModel,
	)

	ctx := context.Background()

	registry, closeClients, err := mainconfig.BuildClientRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Error("backend registration failed", "error", err.Error())
		os.Exit(1)
	}
	defer closeClients()

	store, closeStore, err := mainconfig.BuildArtifactStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("artifact store setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer closeStore()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewEngineMetrics(promReg)

	agents, err := triage.BuildAgents(mainconfig.Roles(cfg), registry, triage.NewPromptRegistry(), triage.AgentConfig{
		MaxAttempts: cfg.MaxAttempts,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("agent panel setup failed", "error", err.Error())
		os.Exit(1)
	}

	orchestrator := triage.NewOrchestrator(agents, triage.OrchestratorConfig{
		MaxRounds:            cfg.MaxRounds,
		ConvergenceThreshold: cfg.ConvergenceThreshold,
		MaxConcurrentCalls:   cfg.MaxConcurrentCalls,
		Logger:               logger,
		Metrics:              engineMetrics,
	})

	var (
		recorder triage.CaseRecorder
		reader   handlers.CaseReader
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("database connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer pool.Close()
		cases := casestore.New(pool)
		recorder = cases
		reader = cases
		logger.Info("case store: postgres")
	} else {
		logger.Warn("DATABASE_URL not set; case history is disabled")
	}

	engine := triage.NewEngine(triage.EngineConfig{
		Orchestrator: orchestrator,
		Resolver:     triage.NewResolver(cfg.ConfidenceFloor, cfg.SafetyBias),
		Store:        store,
		Recorder:     recorder,
		Logger:       logger,
		Metrics:      engineMetrics,
	})

	casesHandler := handlers.NewCasesHandler(engine, reader, store, logger)
	r := router.New(&router.Config{
		Logger:              logger,
		CasesHandler:        casesHandler,
		MetricsHandler:      promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		SubmitRatePerSecond: 1,
		SubmitBurst:         5,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// A deliberation spans several model calls across multiple rounds.
		WriteTimeout: time.Duration(cfg.MaxRounds+1) * cfg.CallTimeout * time.Duration(cfg.MaxAttempts),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err.Error())
	}
	logger.Info("server stopped")
}

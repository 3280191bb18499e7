// Command triage runs one transcript through the full deliberation pipeline
// from the command line and prints the quick reference.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/acuitylabs/triage-ai/cmd/mainconfig"
	"github.com/acuitylabs/triage-ai/internal/artifacts"
	appconfig "github.com/acuitylabs/triage-ai/internal/config"
	"github.com/acuitylabs/triage-ai/internal/triage"
	"github.com/acuitylabs/triage-ai/pkg/logging"
)

func main() {
	var (
		file   = flag.String("file", "", "transcript file to triage (default: stdin)")
		outDir = flag.String("out", "", "artifact output directory (default: ARTIFACT_DIR)")
		quiet  = flag.Bool("quiet", false, "suppress progress output")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()
	if *outDir != "" {
		cfg.ArtifactDir = *outDir
	}
	// Artifacts from the CLI always land on the local filesystem.
	cfg.ArtifactBucket = ""
	cfg.RedisAddr = ""

	logLevel := cfg.LogLevel
	if *quiet {
		logLevel = "error"
	}
	logger := logging.New(logLevel)

	if err := run(context.Background(), cfg, logger, *file, *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "triage: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, file string, quiet bool) error {
	raw, err := readTranscript(file)
	if err != nil {
		return err
	}

	registry, closeClients, err := mainconfig.BuildClientRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeClients()

	store, err := artifacts.NewFSStore(cfg.ArtifactDir)
	if err != nil {
		return err
	}

	agents, err := triage.BuildAgents(mainconfig.Roles(cfg), registry, triage.NewPromptRegistry(), triage.AgentConfig{
		MaxAttempts: cfg.MaxAttempts,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	orchestrator := triage.NewOrchestrator(agents, triage.OrchestratorConfig{
		MaxRounds:            cfg.MaxRounds,
		ConvergenceThreshold: cfg.ConvergenceThreshold,
		MaxConcurrentCalls:   cfg.MaxConcurrentCalls,
		Logger:               logger,
	})
	if !quiet {
		orchestrator.OnOpinion = func(op triage.Opinion) {
			if op.Failed {
				fmt.Fprintf(os.Stderr, "  %s: no opinion (%s)\n", op.RoleID, op.Err)
				return
			}
			fmt.Fprintf(os.Stderr, "  %s: ESI %d (confidence %.0f%%)\n", op.RoleID, op.ESI, op.Confidence*100)
		}
	}

	engine := triage.NewEngine(triage.EngineConfig{
		Orchestrator: orchestrator,
		Resolver:     triage.NewResolver(cfg.ConfidenceFloor, cfg.SafetyBias),
		Store:        store,
		Logger:       logger,
	})

	result, kase, err := engine.Run(ctx, raw)
	if err != nil {
		return err
	}

	quickRef, err := triage.Formatter{}.QuickReference(kase)
	if err != nil {
		return err
	}
	fmt.Println(quickRef)

	fmt.Fprintf(os.Stderr, "case %s triaged to ESI %d in %d round(s) (%s)\n",
		result.CaseID, result.FinalESI, result.Rounds, result.Duration.Round(time.Millisecond))
	for kind, key := range result.ArtifactKeys {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", kind, key)
	}
	return nil
}

func readTranscript(file string) (string, error) {
	if file == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(raw), nil
}

// Package mainconfig holds wiring shared by the service binaries: model
// backend registration and artifact store construction.
package mainconfig

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/acuitylabs/triage-ai/internal/artifacts"
	"github.com/acuitylabs/triage-ai/internal/config"
	"github.com/acuitylabs/triage-ai/internal/triage"
	"github.com/acuitylabs/triage-ai/pkg/logging"
)

// BuildClientRegistry registers one LLM client per configured provider and
// returns a cleanup function for clients that hold connections. At least one
// provider must be configured.
func BuildClientRegistry(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*triage.ClientRegistry, func(), error) {
	var (
		closers  []func()
		fallback triage.LLMClient
	)
	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}

	type registration struct {
		prefixes []string
		client   triage.LLMClient
	}
	var registrations []registration

	if cfg.OpenAIAPIKey != "" {
		client, err := triage.NewOpenAILLMClientFromKey(cfg.OpenAIAPIKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mainconfig: openai client: %w", err)
		}
		registrations = append(registrations, registration{prefixes: []string{"gpt-", "o1"}, client: client})
		fallback = client
		logger.Info("openai backend registered")
	}

	if cfg.GeminiAPIKey != "" {
		client, err := triage.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mainconfig: gemini client: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		registrations = append(registrations, registration{prefixes: []string{"gemini"}, client: client})
		if fallback == nil {
			fallback = client
		}
		logger.Info("gemini backend registered")
	}

	if cfg.BedrockModelID != "" {
		awsCfg, err := config.LoadAWSConfig(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mainconfig: aws config: %w", err)
		}
		client := triage.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		registrations = append(registrations, registration{
			prefixes: []string{"anthropic.", "amazon.", "meta.", cfg.BedrockModelID},
			client:   client,
		})
		if fallback == nil {
			fallback = client
		}
		logger.Info("bedrock backend registered", "model_id", cfg.BedrockModelID)
	}

	if len(registrations) == 0 {
		return nil, nil, errors.New("mainconfig: no model backend configured; set OPENAI_API_KEY, GEMINI_API_KEY or BEDROCK_MODEL_ID")
	}

	registry := triage.NewClientRegistry(fallback)
	for _, reg := range registrations {
		for _, prefix := range reg.prefixes {
			registry.RegisterPrefix(prefix, reg.client)
		}
	}
	return registry, cleanup, nil
}

// BuildArtifactStore picks S3 when a bucket is configured, the local
// filesystem otherwise, and fronts either with a Redis cache when available.
func BuildArtifactStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (artifacts.Store, func(), error) {
	var (
		store artifacts.Store
		err   error
	)
	cleanup := func() {}

	if cfg.ArtifactBucket != "" {
		awsCfg, awsErr := config.LoadAWSConfig(ctx, cfg)
		if awsErr != nil {
			return nil, nil, fmt.Errorf("mainconfig: aws config: %w", awsErr)
		}
		store, err = artifacts.NewS3Store(s3.NewFromConfig(awsCfg), cfg.ArtifactBucket)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("artifact store: s3", "bucket", cfg.ArtifactBucket)
	} else {
		store, err = artifacts.NewFSStore(cfg.ArtifactDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("artifact store: filesystem", "dir", cfg.ArtifactDir)
	}

	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		cleanup = func() { _ = client.Close() }
		store = artifacts.NewCachedStore(store, client, cfg.ArtifactTTL, logger)
		logger.Info("artifact cache: redis", "addr", cfg.RedisAddr)
	}

	return store, cleanup, nil
}

// Roles returns the configured agent panel.
func Roles(cfg *config.Config) []triage.AgentRole {
	roles := triage.DefaultRoles(cfg.DefaultModel)
	if cfg.EnableReviewer {
		roles = append(roles, triage.SkepticalReviewerRole(cfg.DefaultModel))
	}
	return roles
}

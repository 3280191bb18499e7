package triage

import (
	"context"
	"errors"
	"time"

	"github.com/acuitylabs/triage-ai/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var agentTracer = otel.Tracer("triage.agent")

const (
	defaultMaxTokens   = 4000
	defaultTemperature = 0.1
)

// Agent wraps one clinical role and one backing model. Given a transcript and
// the prior round's context it produces a structured Opinion; it never
// mutates the transcript or other agents' state.
type Agent struct {
	role        AgentRole
	client      LLMClient
	prompts     *PromptRegistry
	maxAttempts int
	callTimeout time.Duration
	logger      *logging.Logger
}

// AgentConfig bundles the knobs shared by every agent in an engine.
type AgentConfig struct {
	MaxAttempts int
	CallTimeout time.Duration
	Logger      *logging.Logger
}

// NewAgent builds an agent for the given role.
func NewAgent(role AgentRole, client LLMClient, prompts *PromptRegistry, cfg AgentConfig) *Agent {
	if client == nil {
		panic("triage: agent client cannot be nil")
	}
	if prompts == nil {
		prompts = NewPromptRegistry()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Agent{
		role:        role,
		client:      client,
		prompts:     prompts,
		maxAttempts: cfg.MaxAttempts,
		callTimeout: cfg.CallTimeout,
		logger:      cfg.Logger,
	}
}

// Role returns the agent's read-only role definition.
func (a *Agent) Role() AgentRole { return a.role }

// ProduceOpinion runs one bounded assess-parse cycle. Backend failures and
// malformed replies are retried up to the configured bound, then the opinion
// degrades to Failed rather than blocking the round. The returned error is
// non-nil only when the parent context is done, so the orchestrator can
// distinguish cancellation from degradation.
func (a *Agent) ProduceOpinion(ctx context.Context, t Transcript, prior []Opinion, round int) (Opinion, error) {
	ctx, span := agentTracer.Start(ctx, "triage.agent.opinion")
	defer span.End()
	span.SetAttributes(
		attribute.String("triage.role", a.role.ID),
		attribute.String("triage.model", a.role.Model),
		attribute.Int("triage.round", round),
	)

	system, err := a.prompts.SystemPrompt(a.role.TemplateName)
	if err != nil {
		span.RecordError(err)
		return Opinion{}, err
	}

	req := LLMRequest{
		Model:       a.role.Model,
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: UserPrompt(a.role, t, prior)}},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Opinion{}, err
		}

		callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
		resp, err := a.client.Complete(callCtx, req)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return Opinion{}, ctx.Err()
			}
			be := ClassifyBackendError(err)
			lastErr = be
			a.logger.Warn("agent backend call failed",
				"role", a.role.ID,
				"model", a.role.Model,
				"round", round,
				"attempt", attempt,
				"kind", string(be.Kind),
				"error", err.Error(),
			)
			continue
		}

		op, parseErr := ParseOpinion(resp.Text, a.role, round)
		if parseErr != nil {
			lastErr = parseErr
			a.logger.Warn("agent reply failed schema validation",
				"role", a.role.ID,
				"round", round,
				"attempt", attempt,
				"error", parseErr.Error(),
			)
			continue
		}

		span.SetAttributes(attribute.Int("triage.esi", op.ESI))
		return op, nil
	}

	if lastErr == nil {
		lastErr = errors.New("triage: no attempts executed")
	}
	span.RecordError(lastErr)
	return Opinion{
		RoleID: a.role.ID,
		Round:  round,
		Failed: true,
		Err:    lastErr.Error(),
	}, nil
}

package triage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/acuitylabs/triage-ai/internal/artifacts"
	"github.com/acuitylabs/triage-ai/internal/observability/metrics"
	"github.com/acuitylabs/triage-ai/pkg/logging"
)

var engineTracer = otel.Tracer("triage.engine")

// CaseRecorder persists a finalized case summary for later lookup. The engine
// treats recording as best-effort: a storage outage never voids a completed
// triage decision.
type CaseRecorder interface {
	Record(ctx context.Context, kase *Case) error
}

// Result is what a completed engine run hands back to callers.
type Result struct {
	CaseID         string                    `json:"case_id"`
	FinalESI       int                       `json:"final_esi"`
	Confidence     float64                   `json:"confidence"`
	AgreementRatio float64                   `json:"agreement_ratio"`
	LowConfidence  bool                      `json:"low_confidence"`
	Rounds         int                       `json:"rounds"`
	Duration       time.Duration             `json:"-"`
	ArtifactKeys   map[artifacts.Kind]string `json:"artifact_keys"`
}

// Engine runs the full pipeline for one transcript: deliberation, consensus,
// artifact export, and case recording.
type Engine struct {
	orchestrator *Orchestrator
	resolver     Resolver
	formatter    Formatter
	store        artifacts.Store
	recorder     CaseRecorder
	logger       *logging.Logger
	metrics      *metrics.EngineMetrics
}

// EngineConfig wires the engine's collaborators. Orchestrator and Store are
// required; Recorder and Metrics are optional.
type EngineConfig struct {
	Orchestrator *Orchestrator
	Resolver     Resolver
	Store        artifacts.Store
	Recorder     CaseRecorder
	Logger       *logging.Logger
	Metrics      *metrics.EngineMetrics
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Orchestrator == nil {
		panic("triage: engine requires an orchestrator")
	}
	if cfg.Store == nil {
		panic("triage: engine requires an artifact store")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		orchestrator: cfg.Orchestrator,
		resolver:     cfg.Resolver,
		store:        cfg.Store,
		recorder:     cfg.Recorder,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// Run triages one raw transcript end to end. An empty transcript fails with
// ErrEmptyTranscript before any backend call is made.
func (e *Engine) Run(ctx context.Context, rawTranscript string) (*Result, *Case, error) {
	start := time.Now()

	transcript, err := ParseTranscript(rawTranscript)
	if err != nil {
		e.metrics.ObserveCase("rejected")
		return nil, nil, err
	}
	kase, err := NewCase(transcript)
	if err != nil {
		e.metrics.ObserveCase("rejected")
		return nil, nil, err
	}

	ctx, span := engineTracer.Start(ctx, "triage.run")
	defer span.End()
	span.SetAttributes(attribute.String("triage.case_id", kase.ID))

	log := e.logger.WithCase(kase.ID)
	log.Info("triage case started",
		"utterances", len(transcript.Utterances),
		"chief_complaint", kase.Clinical.ChiefComplaint,
	)

	verdict, err := e.orchestrator.Deliberate(ctx, kase)
	if err != nil {
		e.metrics.ObserveCase("failed")
		span.RecordError(err)
		return nil, nil, fmt.Errorf("triage: deliberation: %w", err)
	}

	consensus, err := e.resolver.Resolve(kase)
	if err != nil {
		e.metrics.ObserveCase("failed")
		span.RecordError(err)
		return nil, nil, fmt.Errorf("triage: consensus: %w", err)
	}
	e.metrics.ObserveCase("completed")
	e.metrics.ObserveESI(consensus.FinalESI)
	span.SetAttributes(
		attribute.Int("triage.esi", consensus.FinalESI),
		attribute.String("triage.verdict", string(verdict)),
	)

	keys, err := e.exportArtifacts(ctx, kase)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	if e.recorder != nil {
		if err := e.recorder.Record(ctx, kase); err != nil {
			log.Warn("case record failed", "error", err.Error())
		}
	}

	result := &Result{
		CaseID:         kase.ID,
		FinalESI:       consensus.FinalESI,
		Confidence:     consensus.Confidence,
		AgreementRatio: consensus.AgreementRatio,
		LowConfidence:  consensus.LowConfidence,
		Rounds:         len(kase.Rounds),
		Duration:       time.Since(start),
		ArtifactKeys:   keys,
	}
	log.Info("triage case completed",
		"esi", result.FinalESI,
		"confidence", result.Confidence,
		"rounds", result.Rounds,
		"verdict", string(verdict),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, kase, nil
}

// exportArtifacts renders and persists all three case artifacts.
func (e *Engine) exportArtifacts(ctx context.Context, kase *Case) (map[artifacts.Kind]string, error) {
	quickRef, err := e.formatter.QuickReference(kase)
	if err != nil {
		return nil, fmt.Errorf("triage: render quick reference: %w", err)
	}
	detailed, err := e.formatter.DetailedResult(kase)
	if err != nil {
		return nil, fmt.Errorf("triage: render detailed result: %w", err)
	}
	discussion, err := e.formatter.FullDiscussion(kase)
	if err != nil {
		return nil, fmt.Errorf("triage: render discussion: %w", err)
	}

	keys := make(map[artifacts.Kind]string, 3)
	for _, artifact := range []struct {
		kind artifacts.Kind
		body []byte
	}{
		{artifacts.KindQuickRef, []byte(quickRef)},
		{artifacts.KindResult, detailed},
		{artifacts.KindDiscussion, []byte(discussion)},
	} {
		key, err := e.store.Put(ctx, kase.ID, artifact.kind, artifact.body)
		if err != nil {
			return nil, fmt.Errorf("triage: export %s: %w", artifact.kind, err)
		}
		keys[artifact.kind] = key
	}
	return keys, nil
}

// DefaultRoles is the core panel: a triage nurse, an emergency physician, and
// a medical consultant, all on the same default model unless overridden.
func DefaultRoles(defaultModel string) []AgentRole {
	return []AgentRole{
		{ID: "triage_nurse", Specialty: "Emergency Triage Nursing", TemplateName: "triage_nurse", Model: defaultModel},
		{ID: "emergency_physician", Specialty: "Emergency Medicine", TemplateName: "emergency_physician", Model: defaultModel},
		{ID: "medical_consultant", Specialty: "Internal Medicine", TemplateName: "medical_consultant", Model: defaultModel},
	}
}

// SkepticalReviewerRole is the optional fourth seat that challenges the
// panel's consensus.
func SkepticalReviewerRole(model string) AgentRole {
	return AgentRole{ID: "skeptical_reviewer", Specialty: "Clinical Risk Review", TemplateName: "skeptical_reviewer", Model: model}
}

// BuildAgents resolves a backend for each role and constructs the panel. A
// role whose model has no configured backend is an error: silently dropping a
// seat would skew the consensus.
func BuildAgents(roles []AgentRole, registry *ClientRegistry, prompts *PromptRegistry, cfg AgentConfig) ([]*Agent, error) {
	if registry == nil {
		return nil, fmt.Errorf("triage: client registry is required")
	}
	agents := make([]*Agent, 0, len(roles))
	for _, role := range roles {
		client, ok := registry.Resolve(role.Model)
		if !ok {
			return nil, fmt.Errorf("triage: no backend configured for model %q (role %s)", role.Model, role.ID)
		}
		agents = append(agents, NewAgent(role, client, prompts, cfg))
	}
	return agents, nil
}

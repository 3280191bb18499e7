package triage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/acuitylabs/triage-ai/internal/observability/metrics"
	"github.com/acuitylabs/triage-ai/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var orchestratorTracer = otel.Tracer("triage.orchestrator")

// Orchestrator runs bounded deliberation rounds over a case: every agent is
// dispatched concurrently with the same transcript and the prior round's
// opinions, the round joins on all of them, and convergence decides whether
// another round is needed.
type Orchestrator struct {
	agents    []*Agent
	maxRounds int
	threshold float64
	limiter   chan struct{}
	logger    *logging.Logger
	metrics   *metrics.EngineMetrics

	// OnOpinion, when set, observes every collected opinion in arrival order.
	// Used for progress reporting; must not block.
	OnOpinion func(Opinion)
}

// OrchestratorConfig bundles the deliberation knobs.
type OrchestratorConfig struct {
	MaxRounds            int
	ConvergenceThreshold float64
	// MaxConcurrentCalls caps in-flight backend calls across all cases served
	// by this orchestrator, respecting backend rate limits.
	MaxConcurrentCalls int
	Logger             *logging.Logger
	Metrics            *metrics.EngineMetrics
}

// NewOrchestrator wires the deliberation loop over the given agents.
func NewOrchestrator(agents []*Agent, cfg OrchestratorConfig) *Orchestrator {
	if len(agents) == 0 {
		panic("triage: orchestrator requires at least one agent")
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 3
	}
	if cfg.ConvergenceThreshold <= 0 || cfg.ConvergenceThreshold > 1 {
		cfg.ConvergenceThreshold = 0.8
	}
	if cfg.MaxConcurrentCalls <= 0 {
		cfg.MaxConcurrentCalls = len(agents)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Orchestrator{
		agents:    agents,
		maxRounds: cfg.MaxRounds,
		threshold: cfg.ConvergenceThreshold,
		limiter:   make(chan struct{}, cfg.MaxConcurrentCalls),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Deliberate appends rounds to the case until the agents converge or the
// round budget is exhausted. It returns the terminal verdict. A cancelled
// context aborts mid-round and leaves the case unfinalized; the caller must
// discard it.
func (o *Orchestrator) Deliberate(ctx context.Context, kase *Case) (Verdict, error) {
	ctx, span := orchestratorTracer.Start(ctx, "triage.deliberate")
	defer span.End()
	span.SetAttributes(attribute.String("triage.case_id", kase.ID))

	var prior []Opinion
	for number := 1; number <= o.maxRounds; number++ {
		round, err := o.collectRound(ctx, kase, number, prior)
		if err != nil {
			span.RecordError(err)
			return "", err
		}

		successful := round.Successful()
		if len(successful) == 0 {
			err := fmt.Errorf("%w: round %d", ErrNoOpinionsProduced, number)
			span.RecordError(err)
			return "", err
		}

		round.AgreementRatio = modalAgreement(successful)
		switch {
		case round.AgreementRatio >= o.threshold:
			round.Verdict = VerdictReached
		case number == o.maxRounds:
			round.Verdict = VerdictExhausted
		default:
			round.Verdict = VerdictContinue
		}

		if err := kase.AppendRound(round); err != nil {
			return "", err
		}
		o.metrics.ObserveRound(string(round.Verdict))
		o.logger.Info("deliberation round completed",
			"case_id", kase.ID,
			"round", number,
			"opinions", len(round.Opinions),
			"agreement_ratio", round.AgreementRatio,
			"verdict", string(round.Verdict),
		)

		if round.Verdict != VerdictContinue {
			return round.Verdict, nil
		}
		// Carry every opinion forward so agents can revise positions against
		// their peers' stated diagnoses.
		prior = round.Opinions
	}

	// Unreachable: the loop always returns on the final round.
	return VerdictExhausted, nil
}

// collectRound fans all agents out concurrently and joins before returning.
// A single agent's degraded opinion never blocks the others.
func (o *Orchestrator) collectRound(ctx context.Context, kase *Case, number int, prior []Opinion) (Round, error) {
	ctx, span := orchestratorTracer.Start(ctx, "triage.round")
	defer span.End()
	span.SetAttributes(attribute.Int("triage.round", number))

	type slot struct {
		opinion Opinion
		err     error
	}
	results := make([]slot, len(o.agents))

	var wg sync.WaitGroup
	for i, agent := range o.agents {
		wg.Add(1)
		go func(i int, agent *Agent) {
			defer wg.Done()

			select {
			case o.limiter <- struct{}{}:
				defer func() { <-o.limiter }()
			case <-ctx.Done():
				results[i] = slot{err: ctx.Err()}
				return
			}

			start := time.Now()
			op, err := agent.ProduceOpinion(ctx, kase.Transcript, prior, number)
			o.metrics.ObserveAgentCall(agent.Role().ID, agent.Role().Model, time.Since(start).Seconds())
			results[i] = slot{opinion: op, err: err}
		}(i, agent)
	}
	wg.Wait()

	round := Round{Number: number}
	for _, res := range results {
		if res.err != nil {
			// Cancellation: discard the partial round entirely.
			return Round{}, res.err
		}
		o.metrics.ObserveOpinion(res.opinion.RoleID, res.opinion.Failed)
		round.Opinions = append(round.Opinions, res.opinion)
		if o.OnOpinion != nil {
			o.OnOpinion(res.opinion)
		}
	}
	return round, nil
}

// modalAgreement is the fraction of successful opinions proposing the most
// common ESI level.
func modalAgreement(opinions []Opinion) float64 {
	if len(opinions) == 0 {
		return 0
	}
	counts := make(map[int]int)
	best := 0
	for _, op := range opinions {
		counts[op.ESI]++
		if counts[op.ESI] > best {
			best = counts[op.ESI]
		}
	}
	return float64(best) / float64(len(opinions))
}

package triage

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ESI bounds of the Emergency Severity Index scale. Level 1 is the most
// severe, level 5 the least.
const (
	ESIMostSevere  = 1
	ESILeastSevere = 5
)

// Differential is one candidate condition with the agent's reasoning.
type Differential struct {
	Condition string `json:"condition"`
	Rationale string `json:"rationale"`
}

// Opinion is a single agent's diagnostic output for one round. Immutable once
// emitted.
type Opinion struct {
	RoleID        string         `json:"role_id"`
	Round         int            `json:"round"`
	ESI           int            `json:"esi"`
	Confidence    float64        `json:"confidence"`
	Justification string         `json:"justification"`
	Differentials []Differential `json:"differential_diagnoses,omitempty"`
	Actions       []string       `json:"recommended_actions,omitempty"`

	// Failed marks a degraded opinion: the agent exhausted its attempts and
	// produced nothing usable. Err carries the last failure for the audit
	// trail. A failed opinion never participates in consensus math.
	Failed bool   `json:"failed,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Verdict records how a round left the deliberation.
type Verdict string

const (
	VerdictReached   Verdict = "reached"
	VerdictContinue  Verdict = "needs_another_round"
	VerdictExhausted Verdict = "max_rounds_hit"
)

// Round is one synchronized pass of all agents.
type Round struct {
	Number         int       `json:"number"`
	Opinions       []Opinion `json:"opinions"`
	AgreementRatio float64   `json:"agreement_ratio"`
	Verdict        Verdict   `json:"verdict"`
}

// Successful returns the opinions that actually carry a diagnosis.
func (r Round) Successful() []Opinion {
	out := make([]Opinion, 0, len(r.Opinions))
	for _, op := range r.Opinions {
		if !op.Failed {
			out = append(out, op)
		}
	}
	return out
}

// Consensus is the finalized, reconciled triage decision for a case.
type Consensus struct {
	FinalESI       int            `json:"final_esi"`
	Confidence     float64        `json:"confidence"`
	AgreementRatio float64        `json:"agreement_ratio"`
	Justification  string         `json:"justification"`
	Differentials  []Differential `json:"differential_diagnoses"`
	Dissents       []Opinion      `json:"dissenting_opinions"`
	Actions        []string       `json:"recommended_actions"`

	// LowConfidence flags a case that hit max rounds without converging so
	// downstream display can warn clinicians.
	LowConfidence bool `json:"low_confidence"`
}

// Case is the run-scoped aggregate: one transcript, its deliberation rounds,
// and the final consensus. Rounds are appended by the single orchestrating
// goroutine; once finalized the case is read-only.
type Case struct {
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	Transcript Transcript   `json:"transcript"`
	Clinical   ClinicalData `json:"clinical_data"`
	Rounds     []Round      `json:"rounds"`
	Consensus  *Consensus   `json:"consensus,omitempty"`

	mu        sync.Mutex
	finalized bool
}

// NewCase creates a case for the given transcript.
func NewCase(t Transcript) (*Case, error) {
	if t.Empty() {
		return nil, ErrEmptyTranscript
	}
	return &Case{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Transcript: t,
		Clinical:   ExtractClinicalData(t),
	}, nil
}

// AppendRound records a completed round. Appending to a finalized case is a
// contract violation.
func (c *Case) AppendRound(r Round) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		return ErrAlreadyFinalized
	}
	c.Rounds = append(c.Rounds, r)
	return nil
}

// LastRound returns the most recent round, or false when none completed yet.
func (c *Case) LastRound() (Round, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Rounds) == 0 {
		return Round{}, false
	}
	return c.Rounds[len(c.Rounds)-1], true
}

// Finalize commits the consensus exactly once. A second call is rejected with
// ErrAlreadyFinalized rather than returning the cached result: a finalize must
// be explicit.
func (c *Case) Finalize(consensus Consensus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		return ErrAlreadyFinalized
	}
	if len(c.Rounds) == 0 {
		return ErrInvalidCaseState
	}
	c.Consensus = &consensus
	c.finalized = true
	return nil
}

// Finalized reports whether the consensus has been committed.
func (c *Case) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized
}

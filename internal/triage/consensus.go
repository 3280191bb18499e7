package triage

import (
	"fmt"
	"sort"
	"strings"
)

// Resolver aggregates the final round's opinions into one consensus.
type Resolver struct {
	// ConfidenceFloor excludes low-confidence opinions from the severity
	// vote. Opinions at or below the floor only participate in the modal
	// fallback.
	ConfidenceFloor float64

	// SafetyBias selects the most severe qualifying vote instead of the
	// modal one. Under-triage is the costlier error in an ER setting, so
	// this defaults on, but it is a policy knob pending clinical validation.
	SafetyBias bool
}

// NewResolver returns a resolver with the safety-biased defaults.
func NewResolver(confidenceFloor float64, safetyBias bool) Resolver {
	if confidenceFloor < 0 || confidenceFloor >= 1 {
		confidenceFloor = 0.4
	}
	return Resolver{ConfidenceFloor: confidenceFloor, SafetyBias: safetyBias}
}

// Resolve computes the consensus from the last completed round and finalizes
// the case. Resolving a case with no completed rounds fails with
// ErrInvalidCaseState; resolving twice fails with ErrAlreadyFinalized.
func (r Resolver) Resolve(kase *Case) (Consensus, error) {
	if kase == nil {
		return Consensus{}, ErrInvalidCaseState
	}
	if kase.Finalized() {
		return Consensus{}, ErrAlreadyFinalized
	}
	last, ok := kase.LastRound()
	if !ok {
		return Consensus{}, ErrInvalidCaseState
	}
	opinions := last.Successful()
	if len(opinions) == 0 {
		return Consensus{}, fmt.Errorf("%w: last round has no successful opinions", ErrInvalidCaseState)
	}

	finalESI := r.severityVote(opinions)

	var agreeing []Opinion
	for _, op := range opinions {
		if op.ESI == finalESI {
			agreeing = append(agreeing, op)
		}
	}

	consensus := Consensus{
		FinalESI:       finalESI,
		AgreementRatio: float64(len(agreeing)) / float64(len(opinions)),
		Confidence:     meanConfidence(agreeing),
		Justification:  pickJustification(agreeing),
		Differentials:  mergeDifferentials(opinions),
		Actions:        mergeActions(agreeing, finalESI),
		LowConfidence:  last.Verdict == VerdictExhausted,
	}

	// Dissent is never discarded: clinicians must see disagreement verbatim.
	for _, op := range opinions {
		if op.ESI != finalESI {
			consensus.Dissents = append(consensus.Dissents, op)
		}
	}

	if err := kase.Finalize(consensus); err != nil {
		return Consensus{}, err
	}
	return consensus, nil
}

// severityVote picks the ESI level. Qualifying opinions are those above the
// confidence floor; with safety bias the most severe qualifying proposal
// wins. When nothing qualifies, fall back to the modal level across all
// opinions, ties broken toward the more severe (lower) level.
func (r Resolver) severityVote(opinions []Opinion) int {
	var qualifying []Opinion
	for _, op := range opinions {
		if op.Confidence > r.ConfidenceFloor {
			qualifying = append(qualifying, op)
		}
	}
	if len(qualifying) == 0 {
		return modalESI(opinions)
	}
	if !r.SafetyBias {
		return modalESI(qualifying)
	}

	most := ESILeastSevere
	for _, op := range qualifying {
		if op.ESI < most {
			most = op.ESI
		}
	}
	return most
}

func modalESI(opinions []Opinion) int {
	counts := make(map[int]int)
	for _, op := range opinions {
		counts[op.ESI]++
	}
	best, bestCount := ESILeastSevere, 0
	// Iterate severe-to-mild so ties resolve toward the severe level.
	for level := ESIMostSevere; level <= ESILeastSevere; level++ {
		if counts[level] > bestCount {
			best, bestCount = level, counts[level]
		}
	}
	return best
}

func meanConfidence(opinions []Opinion) float64 {
	if len(opinions) == 0 {
		return 0
	}
	var sum float64
	for _, op := range opinions {
		sum += op.Confidence
	}
	return sum / float64(len(opinions))
}

// pickJustification takes the highest-confidence agreeing justification.
func pickJustification(agreeing []Opinion) string {
	best := ""
	bestConf := -1.0
	for _, op := range agreeing {
		if op.Confidence > bestConf && strings.TrimSpace(op.Justification) != "" {
			best = op.Justification
			bestConf = op.Confidence
		}
	}
	return best
}

// mergeDifferentials unions every agent's list by normalized condition name,
// ranked by how many agents cite the condition and then by the mean
// confidence of the citing agents.
func mergeDifferentials(opinions []Opinion) []Differential {
	type entry struct {
		diff       Differential
		citations  int
		confidence float64
		order      int
	}
	merged := make(map[string]*entry)
	order := 0
	for _, op := range opinions {
		for _, d := range op.Differentials {
			key := normalizeCondition(d.Condition)
			if key == "" {
				continue
			}
			e, ok := merged[key]
			if !ok {
				e = &entry{diff: d, order: order}
				merged[key] = e
				order++
			}
			e.citations++
			e.confidence += op.Confidence
			if e.diff.Rationale == "" && d.Rationale != "" {
				e.diff.Rationale = d.Rationale
			}
		}
	}

	entries := make([]*entry, 0, len(merged))
	for _, e := range merged {
		e.confidence /= float64(e.citations)
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].citations != entries[j].citations {
			return entries[i].citations > entries[j].citations
		}
		if entries[i].confidence != entries[j].confidence {
			return entries[i].confidence > entries[j].confidence
		}
		return entries[i].order < entries[j].order
	})

	out := make([]Differential, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.diff)
	}
	return out
}

func normalizeCondition(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}

// mergeActions collects the agreeing agents' recommended actions, deduped in
// arrival order, with a per-level default when no agent supplied any.
func mergeActions(agreeing []Opinion, esi int) []string {
	seen := make(map[string]bool)
	var actions []string
	for _, op := range agreeing {
		for _, action := range op.Actions {
			action = strings.TrimSpace(action)
			if action == "" {
				continue
			}
			key := strings.ToLower(action)
			if seen[key] {
				continue
			}
			seen[key] = true
			actions = append(actions, action)
		}
	}
	if len(actions) > 0 {
		return actions
	}
	return defaultActions(esi)
}

func defaultActions(esi int) []string {
	switch esi {
	case 1:
		return []string{
			"Immediate physician intervention and resuscitation readiness",
			"Continuous cardiac monitoring with vital sign checks every 2-3 minutes",
			"Establish two large-bore IV access lines",
		}
	case 2:
		return []string{
			"Urgent physician assessment within 10 minutes",
			"Continuous vital sign monitoring every 5-10 minutes",
			"Establish IV access and order targeted diagnostics",
		}
	case 3:
		return []string{
			"Physician assessment within 30 minutes",
			"Baseline vital signs, repeated every 1-2 hours",
			"Order diagnostic studies appropriate to the presentation",
		}
	case 4:
		return []string{
			"Provider assessment within 60 minutes",
			"Baseline vital signs and focused examination",
		}
	default:
		return []string{
			"Provider assessment when available",
			"Baseline vital signs and education on home management",
		}
	}
}

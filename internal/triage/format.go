package triage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Formatter renders the three artifacts of a finalized case. Every method is
// a deterministic function of the case.
type Formatter struct{}

// QuickReference renders the single-page markdown summary nurses work from.
func (Formatter) QuickReference(kase *Case) (string, error) {
	c := kase.Consensus
	if !kase.Finalized() || c == nil {
		return "", ErrInvalidCaseState
	}

	var b strings.Builder
	b.WriteString("# Emergency Triage - Quick Reference\n\n")
	fmt.Fprintf(&b, "**Case ID:** %s  \n", kase.ID)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", kase.CreatedAt.Format("20060102_150405"))
	fmt.Fprintf(&b, "## ESI LEVEL: %d\n", c.FinalESI)
	fmt.Fprintf(&b, "**Confidence:** %.0f%%\n\n", c.Confidence*100)
	if c.LowConfidence {
		b.WriteString("**WARNING:** clinicians did not converge on this case; verify manually.\n\n")
	}
	if kase.Clinical.ChiefComplaint != "" {
		fmt.Fprintf(&b, "**Chief Complaint:** %s\n\n", kase.Clinical.ChiefComplaint)
	}
	if len(c.Differentials) > 0 {
		fmt.Fprintf(&b, "**Top Differential:** %s\n\n", c.Differentials[0].Condition)
	}

	b.WriteString("## Recommended Actions:\n\n")
	for i, action := range c.Actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, action)
	}

	b.WriteString(`
## ESI Level Reference:
- **Level 1:** Requires immediate life-saving intervention
- **Level 2:** High risk situation; severe pain/distress
- **Level 3:** Requires multiple resources but stable vital signs
- **Level 4:** Requires one resource
- **Level 5:** Requires no resources
`)
	return b.String(), nil
}

// detailedResult is the structured payload exported for downstream systems.
type detailedResult struct {
	CaseID       string       `json:"case_id"`
	CreatedAt    string       `json:"created_at"`
	Consensus    Consensus    `json:"consensus"`
	ClinicalData ClinicalData `json:"clinical_data"`
	Rounds       []Round      `json:"rounds"`
}

// DetailedResult renders the full consensus payload as indented JSON.
func (Formatter) DetailedResult(kase *Case) ([]byte, error) {
	if !kase.Finalized() || kase.Consensus == nil {
		return nil, ErrInvalidCaseState
	}
	payload := detailedResult{
		CaseID:       kase.ID,
		CreatedAt:    kase.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Consensus:    *kase.Consensus,
		ClinicalData: kase.Clinical,
		Rounds:       kase.Rounds,
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("triage: encode detailed result: %w", err)
	}
	return out, nil
}

// FullDiscussion renders the deliberation log.
func (Formatter) FullDiscussion(kase *Case) (string, error) {
	if !kase.Finalized() {
		return "", ErrInvalidCaseState
	}
	return BuildDiscussion(kase), nil
}

package triage

import (
	"fmt"
	"strings"
)

const sectionRule = "================================================================================"
const entryRule = "--------------------------------------------------------------------------------"

// BuildDiscussion renders the full deliberation log for clinician review:
// every agent statement in every round, in order, followed by the final
// consensus when the case is finalized. Pure function of the case.
func BuildDiscussion(kase *Case) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CASE ID: %s\n", kase.ID)
	fmt.Fprintf(&b, "TIMESTAMP: %s\n\n", kase.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	b.WriteString("FULL AGENT DISCUSSION:\n")
	b.WriteString(sectionRule + "\n\n")

	for _, round := range kase.Rounds {
		fmt.Fprintf(&b, "ROUND %d (agreement %.2f, %s)\n\n", round.Number, round.AgreementRatio, round.Verdict)
		for _, op := range round.Opinions {
			fmt.Fprintf(&b, "[%s]\n", op.RoleID)
			if op.Failed {
				fmt.Fprintf(&b, "No opinion produced: %s\n", op.Err)
			} else {
				fmt.Fprintf(&b, "Proposed ESI %d (confidence %.2f)\n", op.ESI, op.Confidence)
				b.WriteString(op.Justification + "\n")
				for _, d := range op.Differentials {
					fmt.Fprintf(&b, "- %s: %s\n", d.Condition, d.Rationale)
				}
			}
			b.WriteString("\n" + entryRule + "\n\n")
		}
	}

	if kase.Consensus != nil {
		c := kase.Consensus
		b.WriteString(sectionRule + "\n\n")
		b.WriteString("FINAL CONSENSUS:\n")
		fmt.Fprintf(&b, "ESI Level: %d\n", c.FinalESI)
		fmt.Fprintf(&b, "Confidence: %.0f%%\n", c.Confidence*100)
		fmt.Fprintf(&b, "Agreement: %.0f%%\n", c.AgreementRatio*100)
		if c.LowConfidence {
			b.WriteString("WARNING: deliberation did not converge; treat this recommendation as low confidence.\n")
		}
		fmt.Fprintf(&b, "Justification: %s\n\n", c.Justification)
		if len(c.Dissents) > 0 {
			b.WriteString("Dissenting opinions:\n")
			for _, op := range c.Dissents {
				fmt.Fprintf(&b, "- %s proposed ESI %d (confidence %.2f): %s\n", op.RoleID, op.ESI, op.Confidence, op.Justification)
			}
			b.WriteString("\n")
		}
		b.WriteString("Recommended Actions:\n")
		for _, action := range c.Actions {
			fmt.Fprintf(&b, "- %s\n", action)
		}
	}

	return b.String()
}

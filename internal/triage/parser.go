package triage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// opinionWire is the schema agents are instructed to reply with. The raw
// model reply is untrusted input: anything that does not parse into this
// shape is rejected, never accessed speculatively.
type opinionWire struct {
	ESILevel      int     `json:"esi_level"`
	Confidence    float64 `json:"confidence"`
	Justification string  `json:"justification"`
	Differentials []struct {
		Condition string `json:"condition"`
		Rationale string `json:"rationale"`
	} `json:"differential_diagnoses"`
	RecommendedActions []string `json:"recommended_actions"`
}

// ParseOpinion validates a raw model reply into an Opinion for the given role
// and round. Returns ErrMalformedResponse when the reply does not conform.
func ParseOpinion(raw string, role AgentRole, round int) (Opinion, error) {
	payload, ok := extractJSONObject(raw)
	if !ok {
		return Opinion{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}

	var wire opinionWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Opinion{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if wire.ESILevel < ESIMostSevere || wire.ESILevel > ESILeastSevere {
		return Opinion{}, fmt.Errorf("%w: esi_level %d out of range", ErrMalformedResponse, wire.ESILevel)
	}

	confidence := wire.Confidence
	// Some models answer with percentages despite instructions.
	if confidence > 1 && confidence <= 100 {
		confidence /= 100
	}
	if confidence < 0 || confidence > 1 {
		return Opinion{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformedResponse, wire.Confidence)
	}

	if strings.TrimSpace(wire.Justification) == "" {
		return Opinion{}, fmt.Errorf("%w: missing justification", ErrMalformedResponse)
	}

	op := Opinion{
		RoleID:        role.ID,
		Round:         round,
		ESI:           wire.ESILevel,
		Confidence:    confidence,
		Justification: strings.TrimSpace(wire.Justification),
		Actions:       wire.RecommendedActions,
	}
	for _, d := range wire.Differentials {
		if strings.TrimSpace(d.Condition) == "" {
			continue
		}
		op.Differentials = append(op.Differentials, Differential{
			Condition: strings.TrimSpace(d.Condition),
			Rationale: strings.TrimSpace(d.Rationale),
		})
	}
	return op, nil
}

// extractJSONObject locates the outermost JSON object in a reply, tolerating
// markdown fences and prose around it.
func extractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if fence := strings.Index(s, "```"); fence >= 0 {
		rest := s[fence+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = rest[:end]
		} else {
			s = rest
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

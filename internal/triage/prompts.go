package triage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

// AgentRole binds a specialty to a prompt template and a backing model.
// Roles are defined at configuration time and read-only during a run.
type AgentRole struct {
	ID           string `json:"id"`
	Specialty    string `json:"specialty"`
	TemplateName string `json:"template"`
	Model        string `json:"model"`
}

// esiReference is shared by every role prompt so all agents grade on the same
// scale.
const esiReference = `EMERGENCY SEVERITY INDEX (ESI) REFERENCE:
- ESI Level 1: Requires immediate life-saving intervention
- ESI Level 2: High-risk situation, severe pain/distress, or vital sign abnormalities
- ESI Level 3: Requires multiple resources but stable vital signs
- ESI Level 4: Requires one resource
- ESI Level 5: Requires no resources

REFERENCE EXAMPLES:
- "Unresponsive after opioid overdose, agonal breathing" -> ESI 1
- "Crushing chest pain radiating to left arm, diaphoretic, HR 112" -> ESI 2
- "Abdominal pain with vomiting, stable vitals, needs labs and imaging" -> ESI 3
- "Simple laceration on forearm needing sutures only" -> ESI 4
- "Medication refill request, no acute complaint" -> ESI 5`

// opinionFormat instructs the model to answer in the strict schema the opinion
// parser accepts. The raw reply is treated as untrusted input.
const opinionFormat = `Respond with a single JSON object and nothing else:
{
  "esi_level": <integer 1-5, 1 most severe>,
  "confidence": <number 0.0-1.0>,
  "justification": "<clinical justification referencing specific findings>",
  "differential_diagnoses": [{"condition": "<name>", "rationale": "<why>"}],
  "recommended_actions": ["<specific action tied to this patient>"]
}`

var roleTemplates = map[string]string{
	"triage_nurse": `You are an experienced emergency department triage nurse with over 15 years of experience.
Your role is to perform the initial assessment of patients and determine their Emergency Severity Index (ESI) level.
Focus on chief complaint, vital signs and their clinical significance, relevant history, risk factors, and current level of distress.
Provide specific, detailed observations rather than general statements.

{{.ESIReference}}

{{.Format}}`,

	"emergency_physician": `You are a board-certified emergency physician.
Evaluate the case for life threats first, then work the differential from most dangerous to most likely.
Weigh vital sign abnormalities, red-flag symptoms, and the resources this patient will plausibly consume.

{{.ESIReference}}

{{.Format}}`,

	"medical_consultant": `You are a senior medical consultant reviewing emergency department triage decisions.
Bring a specialist's perspective: note atypical presentations, must-not-miss diagnoses, and pitfalls the front line may have overlooked.

{{.ESIReference}}

{{.Format}}`,

	"skeptical_reviewer": `You are a skeptical clinical reviewer. Your job is to challenge the emerging consensus.
Look for reasons the proposed severity could be wrong in either direction, and for findings the other clinicians have discounted.
If the evidence genuinely supports the consensus, say so plainly.

{{.ESIReference}}

{{.Format}}`,
}

// PromptRegistry holds the role instruction templates.
type PromptRegistry struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewPromptRegistry returns a registry preloaded with the built-in roles.
func NewPromptRegistry() *PromptRegistry {
	r := &PromptRegistry{templates: make(map[string]*template.Template)}
	for name, text := range roleTemplates {
		// Built-in templates must parse.
		tmpl := template.Must(template.New(name).Parse(text))
		r.templates[name] = tmpl
	}
	return r
}

// Register adds or replaces a role template.
func (r *PromptRegistry) Register(name, text string) error {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return fmt.Errorf("triage: parse template %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = tmpl
	return nil
}

// Names lists the registered templates in stable order.
func (r *PromptRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SystemPrompt renders the instruction prompt for a role.
func (r *PromptRegistry) SystemPrompt(templateName string) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[templateName]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("triage: unknown prompt template %q", templateName)
	}

	var b strings.Builder
	err := tmpl.Execute(&b, struct {
		ESIReference string
		Format       string
	}{esiReference, opinionFormat})
	if err != nil {
		return "", fmt.Errorf("triage: render template %q: %w", templateName, err)
	}
	return b.String(), nil
}

// UserPrompt assembles the per-round request: the conversation plus, from the
// second round on, the other agents' prior opinions so positions can be
// revised.
func UserPrompt(role AgentRole, t Transcript, prior []Opinion) string {
	var b strings.Builder
	b.WriteString("PATIENT-NURSE CONVERSATION:\n")
	b.WriteString(t.Text())
	b.WriteString("\n")

	peers := make([]Opinion, 0, len(prior))
	for _, op := range prior {
		if op.Failed || op.RoleID == role.ID {
			continue
		}
		peers = append(peers, op)
	}
	if len(peers) > 0 {
		b.WriteString("\nPRIOR ASSESSMENTS FROM OTHER CLINICIANS:\n")
		for _, op := range peers {
			fmt.Fprintf(&b, "- %s proposed ESI %d (confidence %.2f): %s\n",
				op.RoleID, op.ESI, op.Confidence, op.Justification)
		}
		b.WriteString("\nReview these assessments. Note agreements and disagreements, then state your own position. You may revise your earlier severity or confidence.\n")
	} else {
		b.WriteString("\nPerform your initial triage assessment of this patient.\n")
	}
	return b.String()
}

package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptRegistryBuiltInRoles(t *testing.T) {
	registry := NewPromptRegistry()
	assert.Equal(t, []string{"emergency_physician", "medical_consultant", "skeptical_reviewer", "triage_nurse"}, registry.Names())

	for _, name := range registry.Names() {
		prompt, err := registry.SystemPrompt(name)
		require.NoError(t, err)
		// Every role grades on the same scale and answers in the same schema.
		assert.Contains(t, prompt, "EMERGENCY SEVERITY INDEX (ESI) REFERENCE:")
		assert.Contains(t, prompt, `"esi_level"`)
	}
}

func TestPromptRegistryUnknownTemplate(t *testing.T) {
	_, err := NewPromptRegistry().SystemPrompt("radiologist")
	assert.ErrorContains(t, err, "unknown prompt template")
}

func TestPromptRegistryRegisterOverride(t *testing.T) {
	registry := NewPromptRegistry()
	require.NoError(t, registry.Register("triage_nurse", "custom instructions\n{{.Format}}"))

	prompt, err := registry.SystemPrompt("triage_nurse")
	require.NoError(t, err)
	assert.Contains(t, prompt, "custom instructions")
}

func TestPromptRegistryRegisterRejectsBadTemplate(t *testing.T) {
	err := NewPromptRegistry().Register("broken", "{{.Unclosed")
	assert.Error(t, err)
}

func TestUserPromptInitialRound(t *testing.T) {
	prompt := UserPrompt(testRole("triage_nurse"), testTranscript(t), nil)
	assert.Contains(t, prompt, "PATIENT-NURSE CONVERSATION:")
	assert.Contains(t, prompt, "crushing chest pain")
	assert.Contains(t, prompt, "initial triage assessment")
	assert.NotContains(t, prompt, "PRIOR ASSESSMENTS")
}

func TestUserPromptLaterRoundExcludesOwnAndFailedOpinions(t *testing.T) {
	prior := []Opinion{
		{RoleID: "triage_nurse", ESI: 2, Confidence: 0.9, Justification: "my own earlier take"},
		{RoleID: "emergency_physician", ESI: 2, Confidence: 0.8, Justification: "likely ACS"},
		{RoleID: "medical_consultant", Failed: true, Err: "timeout"},
	}
	prompt := UserPrompt(testRole("triage_nurse"), testTranscript(t), prior)

	assert.Contains(t, prompt, "PRIOR ASSESSMENTS FROM OTHER CLINICIANS:")
	assert.Contains(t, prompt, "emergency_physician proposed ESI 2")
	assert.NotContains(t, prompt, "my own earlier take")
	assert.NotContains(t, prompt, "medical_consultant")
	assert.Contains(t, prompt, "You may revise")
}

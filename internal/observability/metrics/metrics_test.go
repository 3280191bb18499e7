package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMetricsRegisterAndObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.ObserveCase("finalized")
	m.ObserveRound("reached")
	m.ObserveOpinion("triage_nurse", false)
	m.ObserveOpinion("triage_nurse", true)
	m.ObserveESI(2)
	m.ObserveESI(9)
	m.ObserveAgentCall("triage_nurse", "gpt-4o-mini", 1.25)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["triage_engine_cases_total"])
	assert.True(t, names["triage_engine_rounds_total"])
	assert.True(t, names["triage_engine_opinions_total"])
	assert.True(t, names["triage_engine_esi_assigned_total"])
	assert.True(t, names["triage_engine_agent_call_seconds"])
}

func TestEngineMetricsNilReceiverIsSafe(t *testing.T) {
	var m *EngineMetrics
	assert.NotPanics(t, func() {
		m.ObserveCase("finalized")
		m.ObserveRound("reached")
		m.ObserveOpinion("x", false)
		m.ObserveESI(1)
		m.ObserveAgentCall("x", "y", 0.1)
	})
}

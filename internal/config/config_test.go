package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.MaxRounds)
	assert.InDelta(t, 0.8, cfg.ConvergenceThreshold, 1e-9)
	assert.InDelta(t, 0.4, cfg.ConfidenceFloor, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.True(t, cfg.SafetyBias)
	assert.Equal(t, "artifacts", cfg.ArtifactDir)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_ROUNDS", "5")
	t.Setenv("CONVERGENCE_THRESHOLD", "0.6")
	t.Setenv("CALL_TIMEOUT", "10s")
	t.Setenv("SAFETY_BIAS", "false")
	t.Setenv("DEFAULT_MODEL", "gemini-2.5-flash")

	cfg := Load()

	assert.Equal(t, 5, cfg.MaxRounds)
	assert.InDelta(t, 0.6, cfg.ConvergenceThreshold, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.False(t, cfg.SafetyBias)
	assert.Equal(t, "gemini-2.5-flash", cfg.DefaultModel)
}

func TestLoadIgnoresGarbageValues(t *testing.T) {
	t.Setenv("MAX_ROUNDS", "not-a-number")
	t.Setenv("CONVERGENCE_THRESHOLD", "lots")
	t.Setenv("CALL_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 3, cfg.MaxRounds)
	assert.InDelta(t, 0.8, cfg.ConvergenceThreshold, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
}

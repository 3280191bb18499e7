package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRegistryLongestPrefixWins(t *testing.T) {
	generic := &staticClient{text: "generic"}
	specific := &staticClient{text: "specific"}

	registry := NewClientRegistry(nil)
	registry.RegisterPrefix("gemini", generic)
	registry.RegisterPrefix("gemini-2.5", specific)

	client, ok := registry.Resolve("gemini-2.5-flash")
	require.True(t, ok)
	assert.Same(t, LLMClient(specific), client)

	client, ok = registry.Resolve("gemini-1.5-pro")
	require.True(t, ok)
	assert.Same(t, LLMClient(generic), client)
}

func TestClientRegistryFallback(t *testing.T) {
	fallback := &staticClient{text: "fallback"}
	registry := NewClientRegistry(fallback)
	registry.RegisterPrefix("gpt-", &staticClient{text: "openai"})

	client, ok := registry.Resolve("claude-sonnet")
	require.True(t, ok)
	assert.Same(t, LLMClient(fallback), client)
}

func TestClientRegistryNoMatch(t *testing.T) {
	registry := NewClientRegistry(nil)
	registry.RegisterPrefix("gpt-", &staticClient{})

	_, ok := registry.Resolve("unknown-model")
	assert.False(t, ok)
}

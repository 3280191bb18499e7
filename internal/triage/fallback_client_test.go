package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	client := NewFallbackLLMClient(&staticClient{text: "primary"}, &staticClient{text: "fallback"}, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Text)
}

func TestFallbackClientUsesFallbackOnFailure(t *testing.T) {
	client := NewFallbackLLMClient(&staticClient{err: errors.New("down")}, &staticClient{text: "fallback"}, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Text)
}

func TestFallbackClientNoFallbackConfigured(t *testing.T) {
	primaryErr := errors.New("down")
	client := NewFallbackLLMClient(&staticClient{err: primaryErr}, nil, nil)

	_, err := client.Complete(context.Background(), LLMRequest{})
	assert.ErrorIs(t, err, primaryErr)
}

func TestFallbackClientBothFail(t *testing.T) {
	fallbackErr := errors.New("also down")
	client := NewFallbackLLMClient(&staticClient{err: errors.New("down")}, &staticClient{err: fallbackErr}, nil)

	_, err := client.Complete(context.Background(), LLMRequest{})
	assert.ErrorIs(t, err, fallbackErr)
}

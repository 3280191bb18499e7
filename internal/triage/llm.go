package triage

import (
	"context"
	"strings"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is the internal message representation handed to backends.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is the sole network boundary of the engine. Every agent call is
// exactly one Complete invocation.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// ClientRegistry resolves a model identifier string to the backend that
// serves it. Prefixes are matched longest-first so "gemini-2.5" can override
// a plain "gemini" entry.
type ClientRegistry struct {
	prefixes []prefixEntry
	fallback LLMClient
}

type prefixEntry struct {
	prefix string
	client LLMClient
}

// NewClientRegistry creates an empty registry with an optional fallback used
// when no prefix matches.
func NewClientRegistry(fallback LLMClient) *ClientRegistry {
	return &ClientRegistry{fallback: fallback}
}

// RegisterPrefix routes model ids starting with prefix to client.
func (r *ClientRegistry) RegisterPrefix(prefix string, client LLMClient) {
	entry := prefixEntry{prefix: prefix, client: client}
	for i, existing := range r.prefixes {
		if len(prefix) > len(existing.prefix) {
			r.prefixes = append(r.prefixes[:i], append([]prefixEntry{entry}, r.prefixes[i:]...)...)
			return
		}
	}
	r.prefixes = append(r.prefixes, entry)
}

// Resolve returns the client serving the given model id, or false when no
// backend is configured for it.
func (r *ClientRegistry) Resolve(model string) (LLMClient, bool) {
	for _, entry := range r.prefixes {
		if strings.HasPrefix(model, entry.prefix) {
			return entry.client, true
		}
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

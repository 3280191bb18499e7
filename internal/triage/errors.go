package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyTranscript indicates a case was submitted without any usable text.
	ErrEmptyTranscript = errors.New("triage: transcript is empty")

	// ErrMalformedResponse indicates a backend reply could not be parsed into
	// the opinion schema.
	ErrMalformedResponse = errors.New("triage: malformed model response")

	// ErrNoOpinionsProduced indicates every agent in a round failed. The case
	// cannot be triaged and no severity is ever defaulted.
	ErrNoOpinionsProduced = errors.New("triage: no opinions produced")

	// ErrInvalidCaseState indicates a contract violation such as resolving a
	// case with no completed rounds.
	ErrInvalidCaseState = errors.New("triage: invalid case state")

	// ErrAlreadyFinalized indicates a second finalize attempt on the same case.
	ErrAlreadyFinalized = errors.New("triage: case already finalized")
)

// BackendErrorKind classifies model backend failures.
type BackendErrorKind string

const (
	BackendRateLimited BackendErrorKind = "rate_limited"
	BackendTimeout     BackendErrorKind = "timeout"
	BackendAuthFailure BackendErrorKind = "auth_failure"
	BackendUnavailable BackendErrorKind = "unavailable"
)

// BackendError wraps a raw model backend failure with its classification.
// Agents translate these into degraded opinions instead of propagating them.
type BackendError struct {
	Kind BackendErrorKind
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("triage: backend %s: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ClassifyBackendError maps a raw client error onto the backend taxonomy.
func ClassifyBackendError(err error) *BackendError {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}

	kind := BackendUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = BackendTimeout
	case containsAny(err.Error(), "rate limit", "429", "throttl"):
		kind = BackendRateLimited
	case containsAny(err.Error(), "401", "403", "unauthorized", "api key", "credential"):
		kind = BackendAuthFailure
	}
	return &BackendError{Kind: kind, Err: err}
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

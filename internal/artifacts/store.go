// Package artifacts persists the three export artifacts of a finalized
// triage case: the quick reference, the detailed result payload, and the
// full discussion log.
package artifacts

import (
	"context"
	"errors"
)

// Kind names one of the per-case artifacts.
type Kind string

const (
	KindQuickRef   Kind = "quick_ref"
	KindResult     Kind = "result"
	KindDiscussion Kind = "discussion"
)

// ErrNotFound indicates no artifact is stored under the given case and kind.
var ErrNotFound = errors.New("artifacts: not found")

// Store writes and retrieves case artifacts by case identifier.
type Store interface {
	Put(ctx context.Context, caseID string, kind Kind, body []byte) (string, error)
	Get(ctx context.Context, caseID string, kind Kind) ([]byte, error)
}

// Valid reports whether k names a known artifact kind.
func (k Kind) Valid() bool {
	switch k {
	case KindQuickRef, KindResult, KindDiscussion:
		return true
	}
	return false
}

// prefix returns the per-kind directory, mirroring the layout clinicians
// already browse (results/, discussions/, quick_ref/).
func (k Kind) prefix() string {
	switch k {
	case KindQuickRef:
		return "quick_ref"
	case KindResult:
		return "results"
	case KindDiscussion:
		return "discussions"
	}
	return "unknown"
}

// ext returns the file extension for the kind.
func (k Kind) ext() string {
	switch k {
	case KindQuickRef:
		return ".md"
	case KindResult:
		return ".json"
	case KindDiscussion:
		return ".txt"
	}
	return ".bin"
}

// ContentType returns the HTTP content type served for the kind.
func (k Kind) ContentType() string {
	switch k {
	case KindQuickRef:
		return "text/markdown; charset=utf-8"
	case KindResult:
		return "application/json"
	case KindDiscussion:
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

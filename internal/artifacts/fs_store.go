package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStore persists artifacts on the local filesystem under a base directory,
// one subdirectory per artifact kind.
type FSStore struct {
	baseDir string
}

// NewFSStore creates the base directory if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if baseDir == "" {
		return nil, errors.New("artifacts: base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: create base dir: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

func (s *FSStore) path(caseID string, kind Kind) string {
	return filepath.Join(s.baseDir, kind.prefix(), caseID+kind.ext())
}

func (s *FSStore) Put(_ context.Context, caseID string, kind Kind, body []byte) (string, error) {
	if caseID == "" || !kind.Valid() {
		return "", fmt.Errorf("artifacts: invalid key %q/%q", caseID, kind)
	}
	path := s.path(caseID, kind)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("artifacts: create kind dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write %s: %w", path, err)
	}
	return path, nil
}

func (s *FSStore) Get(_ context.Context, caseID string, kind Kind) ([]byte, error) {
	if caseID == "" || !kind.Valid() {
		return nil, fmt.Errorf("artifacts: invalid key %q/%q", caseID, kind)
	}
	body, err := os.ReadFile(s.path(caseID, kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("artifacts: read %s/%s: %w", caseID, kind, err)
	}
	return body, nil
}

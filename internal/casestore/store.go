// Package casestore persists finalized triage case summaries in Postgres so
// past decisions stay queryable after artifact retention lapses.
package casestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/acuitylabs/triage-ai/internal/triage"
)

// ErrNotFound indicates no case row exists for the given identifier.
var ErrNotFound = errors.New("casestore: not found")

// DB is the subset of the pgx pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Summary is the queryable projection of a finalized case.
type Summary struct {
	CaseID         string    `json:"case_id"`
	CreatedAt      time.Time `json:"created_at"`
	ChiefComplaint string    `json:"chief_complaint"`
	FinalESI       int       `json:"final_esi"`
	Confidence     float64   `json:"confidence"`
	AgreementRatio float64   `json:"agreement_ratio"`
	Rounds         int       `json:"rounds"`
	LowConfidence  bool      `json:"low_confidence"`
}

// Store writes and reads case summaries. The full consensus payload is kept
// as a JSONB column alongside the indexed summary fields.
type Store struct {
	db DB
}

func New(db DB) *Store {
	if db == nil {
		panic("casestore: db cannot be nil")
	}
	return &Store{db: db}
}

// Record inserts the finalized case. Recording an unfinalized case is a
// contract violation.
func (s *Store) Record(ctx context.Context, kase *triage.Case) error {
	if kase == nil || !kase.Finalized() || kase.Consensus == nil {
		return triage.ErrInvalidCaseState
	}
	payload, err := json.Marshal(kase.Consensus)
	if err != nil {
		return fmt.Errorf("casestore: encode consensus: %w", err)
	}

	const q = `
		INSERT INTO triage_cases
			(id, created_at, chief_complaint, final_esi, confidence, agreement_ratio, rounds, low_confidence, consensus)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = s.db.Exec(ctx, q,
		kase.ID,
		kase.CreatedAt,
		kase.Clinical.ChiefComplaint,
		kase.Consensus.FinalESI,
		kase.Consensus.Confidence,
		kase.Consensus.AgreementRatio,
		len(kase.Rounds),
		kase.Consensus.LowConfidence,
		payload,
	)
	if err != nil {
		return fmt.Errorf("casestore: insert case %s: %w", kase.ID, err)
	}
	return nil
}

// Get returns one case summary by id.
func (s *Store) Get(ctx context.Context, caseID string) (*Summary, error) {
	const q = `
		SELECT id, created_at, chief_complaint, final_esi, confidence, agreement_ratio, rounds, low_confidence
		FROM triage_cases
		WHERE id = $1`
	var out Summary
	err := s.db.QueryRow(ctx, q, caseID).Scan(
		&out.CaseID,
		&out.CreatedAt,
		&out.ChiefComplaint,
		&out.FinalESI,
		&out.Confidence,
		&out.AgreementRatio,
		&out.Rounds,
		&out.LowConfidence,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("casestore: get case %s: %w", caseID, err)
	}
	return &out, nil
}

// Recent lists the newest case summaries, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, created_at, chief_complaint, final_esi, confidence, agreement_ratio, rounds, low_confidence
		FROM triage_cases
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := s.db.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("casestore: list cases: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var item Summary
		if err := rows.Scan(
			&item.CaseID,
			&item.CreatedAt,
			&item.ChiefComplaint,
			&item.FinalESI,
			&item.Confidence,
			&item.AgreementRatio,
			&item.Rounds,
			&item.LowConfidence,
		); err != nil {
			return nil, fmt.Errorf("casestore: scan case row: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("casestore: iterate case rows: %w", err)
	}
	return out, nil
}

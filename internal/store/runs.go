package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/g3d/internal/ir"
)

// Run is one stored analysis run. Params and Result are canonical JSON.
type Run struct {
	ID          string          `json:"id"`
	ProgramHash string          `json:"program_hash"`
	Seq         int64           `json:"seq"`
	Kind        string          `json:"kind"`
	Plan        string          `json:"plan,omitempty"`
	Params      json.RawMessage `json:"params"`
	Result      json.RawMessage `json:"result"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewRun builds a Run, marshaling params and result to canonical JSON.
func NewRun(programHash, kind string, params, result any) (Run, error) {
	p, err := ir.MarshalCanonical(params)
	if err != nil {
		return Run{}, fmt.Errorf("marshal params: %w", err)
	}
	r, err := ir.MarshalCanonical(result)
	if err != nil {
		return Run{}, fmt.Errorf("marshal result: %w", err)
	}
	return Run{ProgramHash: programHash, Kind: kind, Params: p, Result: r}, nil
}

// SaveRun inserts a run and returns it with ID, Seq and CreatedAt filled
// in. A caller-supplied ID is kept. The referenced program must already be
// stored (foreign key constraint).
func (s *Store) SaveRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	run.CreatedAt = s.clock.Now().UTC()
	if run.Params == nil {
		run.Params = json.RawMessage("{}")
	}
	if run.Result == nil {
		run.Result = json.RawMessage("null")
	}

	// seq is assigned inside the INSERT. With a single connection the
	// MAX+1 read cannot race another writer.
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO runs
		(id, program_hash, seq, kind, plan, params, result, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?)
		RETURNING seq
	`,
		run.ID,
		run.ProgramHash,
		run.Kind,
		run.Plan,
		string(run.Params),
		string(run.Result),
		formatTime(run.CreatedAt),
	).Scan(&run.Seq)
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}

	s.logger.Debug("run stored", "id", run.ID, "seq", run.Seq, "kind", run.Kind)
	return run, nil
}

// Runs returns every run of a program in seq order.
//
// Returns an empty slice (not nil) if the program has no runs.
func (s *Store) Runs(ctx context.Context, programHash string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_hash, seq, kind, plan, params, result, created_at
		FROM runs
		WHERE program_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, programHash)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var params, result, created string
		if err := rows.Scan(&r.ID, &r.ProgramHash, &r.Seq, &r.Kind, &r.Plan, &params, &result, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Params = json.RawMessage(params)
		r.Result = json.RawMessage(result)
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

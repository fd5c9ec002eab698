package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/g3d/internal/ir"
)

// ProgramRecord is a stored program.
type ProgramRecord struct {
	Hash          string      `json:"hash"`
	SourceHash    string      `json:"source_hash"`
	Source        string      `json:"source"`
	Program       *ir.Program `json:"program"`
	IRVersion     string      `json:"ir_version"`
	EngineVersion string      `json:"engine_version"`
	CreatedAt     time.Time   `json:"created_at"`
}

// SaveProgram stores a compiled program with its source and returns its IR
// hash. Uses ON CONFLICT(hash) DO NOTHING: saving an already stored
// program keeps the first record.
func (s *Store) SaveProgram(ctx context.Context, source string, p *ir.Program) (string, error) {
	hash, err := ir.ProgramHash(p)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}
	irJSON, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO programs
		(hash, source_hash, source, ir, ir_version, engine_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		ir.SourceHash(source),
		source,
		string(irJSON),
		ir.IRVersion,
		ir.EngineVersion,
		formatTime(s.clock.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug("program stored", "hash", hash)
	}
	return hash, nil
}

// Program returns the program stored under hash, or ErrNotFound.
func (s *Store) Program(ctx context.Context, hash string) (*ProgramRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, source_hash, source, ir, ir_version, engine_version, created_at
		FROM programs
		WHERE hash = ?
	`, hash)

	var rec ProgramRecord
	var irJSON, created string
	err := row.Scan(&rec.Hash, &rec.SourceHash, &rec.Source, &irJSON, &rec.IRVersion, &rec.EngineVersion, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("program %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query program: %w", err)
	}

	rec.Program = &ir.Program{}
	if err := json.Unmarshal([]byte(irJSON), rec.Program); err != nil {
		return nil, fmt.Errorf("unmarshal program %s: %w", hash, err)
	}
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/g3d/internal/compiler"
	"github.com/roach88/g3d/internal/ir"
	"github.com/roach88/g3d/internal/testutil"
)

// createTestStore opens a store in a temp dir with deterministic IDs and
// timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequentialIDs("run")),
		WithClock(testutil.NewStepClock(0)),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func compileTestProgram(t *testing.T, src string) *ir.Program {
	t.Helper()
	p, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return p
}

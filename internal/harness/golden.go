package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/g3d/internal/compiler"
	"github.com/roach88/g3d/internal/ir"
)

// Snapshot is the golden form of a scenario outcome: the compiled program
// or the compile error, never both.
type Snapshot struct {
	Scenario string                 `json:"scenario"`
	Program  *ir.Program            `json:"program,omitempty"`
	Error    *compiler.CompileError `json:"error,omitempty"`
}

// RunWithGolden executes a scenario and compares its outcome against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		Scenario: scenarioName,
		Program:  result.Program,
		Error:    result.CompileError,
	}
	data, err := ir.MarshalCanonical(snapshot)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

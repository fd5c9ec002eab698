package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance case for the compiler: a G3D program, the
// outcome it must produce, and assertions over the compiled result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is inline G3D program text.
	Source string `yaml:"source,omitempty"`

	// Program is a path to a .g3d file, relative to the scenario file.
	// Exactly one of Source and Program is set.
	Program string `yaml:"program,omitempty"`

	// ExpectError marks a scenario whose program must fail to compile.
	ExpectError *ExpectError `yaml:"expect_error,omitempty"`

	// Assertions run against the compiled program.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectError describes the compile error a scenario expects. Empty fields
// are not checked.
type ExpectError struct {
	Code     string `yaml:"code"`
	Line     int    `yaml:"line,omitempty"`
	Contains string `yaml:"contains,omitempty"`
}

// Assertion checks one property of a compiled program.
type Assertion struct {
	// Type selects the check, one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is used by surface_count, animation_frames, label_count and
	// particle_count.
	Count int `yaml:"count,omitempty"`

	// Index selects the surface for surface_expr.
	Index int `yaml:"index,omitempty"`

	// Expr is the expected surface expression (surface_expr) or the
	// expression to evaluate (eval).
	Expr string `yaml:"expr,omitempty"`

	// Name is a color map (color_map) or function name (function_kind).
	Name string `yaml:"name,omitempty"`

	// Kind is the expected function kind for function_kind.
	Kind string `yaml:"kind,omitempty"`

	// Vars binds variables before an eval assertion.
	Vars map[string]float64 `yaml:"vars,omitempty"`

	// Expect is the value an eval assertion must produce.
	Expect *float64 `yaml:"expect,omitempty"`

	// Tolerance bounds |actual - expect| for eval. Zero means 1e-9.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Levels are the expected contour thresholds for contour_levels.
	Levels []float64 `yaml:"levels,omitempty"`
}

// Assertion type constants.
const (
	AssertSurfaceCount    = "surface_count"
	AssertSurfaceExpr     = "surface_expr"
	AssertFunctionKind    = "function_kind"
	AssertEval            = "eval"
	AssertAnimationFrames = "animation_frames"
	AssertColorMap        = "color_map"
	AssertLabelCount      = "label_count"
	AssertParticleCount   = "particle_count"
	AssertContourLevels   = "contour_levels"
)

// LoadScenario reads and parses a scenario YAML file. A relative program
// path is resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Source == "" && s.Program == "":
		return fmt.Errorf("one of source or program is required")
	case s.Source != "" && s.Program != "":
		return fmt.Errorf("source and program are mutually exclusive")
	}
	if s.Program != "" {
		if _, err := os.Stat(s.Program); os.IsNotExist(err) {
			return fmt.Errorf("program file not found: %s", s.Program)
		}
	}

	if s.ExpectError == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}
	if s.ExpectError != nil {
		if s.ExpectError.Code == "" {
			return fmt.Errorf("expect_error: code is required")
		}
		if len(s.Assertions) > 0 {
			return fmt.Errorf("expect_error scenarios cannot have assertions")
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSurfaceCount, AssertAnimationFrames, AssertLabelCount, AssertParticleCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertSurfaceExpr:
		if a.Expr == "" {
			return fmt.Errorf("assertions[%d]: expr is required for surface_expr", index)
		}
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative", index)
		}
	case AssertFunctionKind:
		if a.Name == "" || a.Kind == "" {
			return fmt.Errorf("assertions[%d]: name and kind are required for function_kind", index)
		}
	case AssertEval:
		if a.Expr == "" {
			return fmt.Errorf("assertions[%d]: expr is required for eval", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for eval", index)
		}
		if a.Tolerance < 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
		}
	case AssertColorMap:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for color_map", index)
		}
	case AssertContourLevels:
		if len(a.Levels) == 0 {
			return fmt.Errorf("assertions[%d]: levels list is required for contour_levels", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

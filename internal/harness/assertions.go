package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/g3d/internal/eval"
	"github.com/roach88/g3d/internal/ir"
)

// defaultTolerance applies to eval assertions that set none.
const defaultTolerance = 1e-9

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // assertion type for categorization
	Expected string // human-readable expected outcome
	Actual   string // human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkAssertion dispatches a to its checker.
func checkAssertion(p *ir.Program, a Assertion) error {
	switch a.Type {
	case AssertSurfaceCount:
		return expectCount(a.Type, a.Count, len(p.Surfaces()))
	case AssertSurfaceExpr:
		return assertSurfaceExpr(p, a)
	case AssertFunctionKind:
		return assertFunctionKind(p, a)
	case AssertEval:
		return assertEval(p, a)
	case AssertAnimationFrames:
		frames := 0
		if p.Animation != nil {
			frames = p.Animation.Frames()
		}
		return expectCount(a.Type, a.Count, frames)
	case AssertColorMap:
		if p.ColorMap != a.Name {
			return &AssertionError{Type: a.Type, Expected: a.Name, Actual: p.ColorMap}
		}
		return nil
	case AssertLabelCount:
		return expectCount(a.Type, a.Count, len(p.Labels))
	case AssertParticleCount:
		count := 0
		if p.Particles != nil {
			count = p.Particles.Count
		}
		return expectCount(a.Type, a.Count, count)
	case AssertContourLevels:
		var got []float64
		if p.Contour != nil {
			got = p.Contour.Levels
		}
		if !slices.Equal(got, a.Levels) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Levels), Actual: fmt.Sprint(got)}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func expectCount(kind string, want, got int) error {
	if want != got {
		return &AssertionError{Type: kind, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
	}
	return nil
}

func assertSurfaceExpr(p *ir.Program, a Assertion) error {
	surfaces := p.Surfaces()
	if a.Index >= len(surfaces) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("surface %d with expr %q", a.Index, a.Expr),
			Actual:   fmt.Sprintf("%d surfaces", len(surfaces)),
		}
	}
	if got := surfaces[a.Index].Expr; got != a.Expr {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%q", a.Expr), Actual: fmt.Sprintf("%q", got)}
	}
	return nil
}

func assertFunctionKind(p *ir.Program, a Assertion) error {
	fn, ok := p.Function(a.Name)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s of kind %s", a.Name, a.Kind),
			Actual:   "function not defined",
		}
	}
	if string(fn.Kind) != a.Kind {
		return &AssertionError{Type: a.Type, Expected: a.Kind, Actual: string(fn.Kind)}
	}
	return nil
}

func assertEval(p *ir.Program, a Assertion) error {
	ev, err := eval.FromProgram(p)
	if err != nil {
		return fmt.Errorf("build evaluator: %w", err)
	}
	if p.Animation != nil {
		ev.Set(p.Animation.Param, p.Animation.From)
	}
	for name, v := range a.Vars {
		ev.Set(name, v)
	}

	got, err := ev.EvalFloat(a.Expr)
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s = %g", a.Expr, *a.Expect), Actual: err.Error()}
	}
	tol := a.Tolerance
	if tol == 0 {
		tol = defaultTolerance
	}
	if math.IsNaN(got) || math.Abs(got-*a.Expect) > tol {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %g (±%g)", a.Expr, *a.Expect, tol),
			Actual:   fmt.Sprintf("%g", got),
		}
	}
	return nil
}

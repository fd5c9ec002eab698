package compiler

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/roach88/g3d/internal/eval"
	"github.com/roach88/g3d/internal/expr"
	"github.com/roach88/g3d/internal/ir"
)

// Option configures Compile.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for compile diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

type pendingSurface struct {
	plot int
	tree expr.Node
	line int
}

type pendingAnimation struct {
	param          string
	from, to, step string
	line           int
}

// state accumulates the program while statements are compiled.
type state struct {
	prog        *ir.Program
	surfaces    []pendingSurface
	animation   *pendingAnimation
	contourLine int
	logger      *slog.Logger
}

// Compile turns G3D source into a validated Program.
//
// Compilation fails fast: the first invalid statement returns a
// *CompileError carrying its line number and no Program is produced.
// Statements are compiled in order; plots may reference functions defined
// later, which are resolved once every statement has been read.
func Compile(src string, opts ...Option) (*ir.Program, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	s := &state{prog: ir.NewProgram(), logger: o.logger}
	lines := preprocess(src)
	for _, ln := range lines {
		kw := leadingKeyword(ln.text)
		h, ok := statements[kw]
		if !ok {
			return nil, unknownStatement(ln)
		}
		rest := strings.TrimSpace(ln.text[len(strings.Fields(ln.text)[0]):])
		if err := h(s, ln, rest); err != nil {
			return nil, err
		}
	}

	if err := s.finalize(); err != nil {
		return nil, err
	}

	o.logger.Debug("program compiled",
		"statements", len(lines),
		"functions", len(s.prog.Functions),
		"plots", len(s.prog.Plots))
	return s.prog, nil
}

// finalize runs the passes that need the whole program:
//  1. resolve vector and tensor plot references
//  2. bind functions, rejecting dependency cycles
//  3. resolve and inline surface expressions
//  4. evaluate animation bounds
//  5. synthesize the implicit z=0 surface
func (s *state) finalize() error {
	if err := s.resolvePlots(); err != nil {
		return err
	}

	ev, err := eval.FromProgram(s.prog, eval.WithLogger(s.logger))
	if err != nil {
		var cycle *eval.CycleError
		if errors.As(err, &cycle) {
			return errorf(s.firstLine(cycle.Names), ErrDependencyCycle, "%s", cycle.Error())
		}
		return errorf(0, ErrMalformedExpr, "%v", err)
	}

	if err := s.resolveSurfaces(); err != nil {
		return err
	}
	if err := s.resolveAnimation(ev); err != nil {
		return err
	}

	if len(s.surfaces) == 0 {
		s.prog.Plots = append(s.prog.Plots, ir.Plot{
			Kind:    ir.PlotSurface,
			Surface: &ir.SurfacePlot{Expr: "0", Implicit: true},
		})
		s.logger.Debug("implicit flat surface added")
	}
	return nil
}

func (s *state) firstLine(names []string) int {
	line := 0
	for _, n := range names {
		if fn, ok := s.prog.Functions[n]; ok && (line == 0 || fn.Line < line) {
			line = fn.Line
		}
	}
	return line
}

// shapeOf reports the value shape a function produces. Constants take
// theirs from the name prefix.
func shapeOf(fn ir.NamedFunction) ir.FunctionKind {
	if fn.Kind != ir.FunctionConstant {
		return fn.Kind
	}
	switch strings.ToUpper(fn.Name[:2]) {
	case "V_":
		return ir.FunctionVector
	case "T_":
		return ir.FunctionTensor
	}
	return ir.FunctionScalar
}

func (s *state) resolvePlots() error {
	for _, plot := range s.prog.Plots {
		var name string
		var want ir.FunctionKind
		switch plot.Kind {
		case ir.PlotVector:
			name, want = plot.Vector.Function, ir.FunctionVector
		case ir.PlotTensor:
			name, want = plot.Tensor.Function, ir.FunctionTensor
		default:
			continue
		}
		fn, ok := s.prog.Functions[name]
		if !ok {
			return errorf(plot.Line, ErrUndefinedFunction, "%s plot references undefined function %s", plot.Kind, name)
		}
		if got := shapeOf(fn); got != want {
			return errorf(plot.Line, ErrFunctionKind, "%s plot needs a %s function, %s (line %d) is %s",
				plot.Kind, want, name, fn.Line, got)
		}
	}
	return nil
}

// resolveSurfaces checks every call in a surface expression and inlines a
// plain call such as FNSADDLE(x, y) whose arguments are exactly the
// function's own parameters.
func (s *state) resolveSurfaces() error {
	for _, ps := range s.surfaces {
		var bad *CompileError
		expr.Walk(ps.tree, func(n expr.Node) bool {
			if call, ok := n.(*expr.Call); ok && bad == nil {
				if _, user := s.prog.Functions[call.Name]; !user && !eval.IsBuiltin(call.Name) {
					bad = errorf(ps.line, ErrUndefinedFunction, "PLOT3D calls undefined function %s", call.Name)
				}
			}
			return bad == nil
		})
		if bad != nil {
			return bad
		}

		call, ok := ps.tree.(*expr.Call)
		if !ok {
			continue
		}
		fn, ok := s.prog.Functions[call.Name]
		if !ok {
			continue
		}
		if kind := shapeOf(fn); kind != ir.FunctionScalar {
			return errorf(ps.line, ErrFunctionKind, "PLOT3D needs a scalar function, %s (line %d) is %s", fn.Name, fn.Line, kind)
		}
		if !identityArgs(call, fn.Params) {
			continue
		}

		surface := s.prog.Plots[ps.plot].Surface
		surface.Source = surface.Expr
		surface.Expr = fn.Body
		surface.Function = fn.Name
	}
	return nil
}

func identityArgs(call *expr.Call, params []string) bool {
	if len(params) == 0 || len(call.Args) != len(params) {
		return false
	}
	for i, a := range call.Args {
		id, ok := a.(*expr.Ident)
		if !ok || id.Name != params[i] {
			return false
		}
	}
	return true
}

func (s *state) resolveAnimation(ev *eval.Evaluator) error {
	a := s.animation
	if a == nil {
		return nil
	}

	var bounds [3]float64
	for i, src := range []string{a.from, a.to, a.step} {
		v, err := ev.EvalFloat(src)
		if err != nil {
			return errorf(a.line, ErrInvalidNumber, "ANIMATE bound %q: %v", src, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errorf(a.line, ErrInvalidNumber, "ANIMATE bound %q is not finite", src)
		}
		bounds[i] = v
	}
	if bounds[2] <= 0 {
		return errorf(a.line, ErrAnimationStep, "ANIMATE STEP must be positive, got %g", bounds[2])
	}

	s.prog.Animation = &ir.Animation{Param: a.param, From: bounds[0], To: bounds[1], Step: bounds[2]}
	return nil
}

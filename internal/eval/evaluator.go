package eval

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/g3d/internal/expr"
	"github.com/roach88/g3d/internal/ir"
)

// library is the compiled, immutable set of user functions shared by an
// Evaluator and its clones.
type library struct {
	funcs      map[string]*userFunc
	order      []string
	unresolved []string
}

type userFunc struct {
	def  ir.NamedFunction
	body thunk
}

func (u *userFunc) invoke(ev *Evaluator, args []Value) (Value, error) {
	return u.body(&frame{ev: ev, params: args})
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for binding diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// Evaluator evaluates expressions against bound user functions and a
// mutable variable scope.
type Evaluator struct {
	lib    *library
	vars   map[string]Value
	cache  map[string]*Expr
	logger *slog.Logger
}

// New binds defs into a fresh Evaluator. Bodies are bound in dependency
// order; a cycle among them is returned as a *CycleError. Bodies that fail
// to parse or compile, or that call unknown functions, do not fail binding:
// they are listed by Unresolved and return an error when called.
func New(defs []ir.NamedFunction, opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		vars:   make(map[string]Value),
		cache:  make(map[string]*Expr),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	lib, err := bind(defs, e.logger)
	if err != nil {
		return nil, err
	}
	e.lib = lib
	return e, nil
}

// FromProgram binds the functions of p in declaration order.
func FromProgram(p *ir.Program, opts ...Option) (*Evaluator, error) {
	defs := make([]ir.NamedFunction, 0, len(p.FunctionOrder))
	for _, name := range p.FunctionOrder {
		if fn, ok := p.Functions[name]; ok {
			defs = append(defs, fn)
		}
	}
	return New(defs, opts...)
}

func bind(defs []ir.NamedFunction, logger *slog.Logger) (*library, error) {
	lib := &library{funcs: make(map[string]*userFunc, len(defs))}

	names := make([]string, 0, len(defs))
	trees := make(map[string]expr.Node, len(defs))
	parseErrs := make(map[string]error)
	for _, d := range defs {
		names = append(names, d.Name)
		tree, err := expr.Parse(d.Body)
		if err != nil {
			parseErrs[d.Name] = err
			continue
		}
		trees[d.Name] = tree
	}

	graph := buildDependencyGraph(defs, trees)
	sccs := tarjanSCC(names, graph)
	if cycle := findCycle(names, sccs, graph); cycle != nil {
		return nil, cycle
	}

	byName := make(map[string]ir.NamedFunction, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	broken := make(map[string]bool)
	for _, scc := range sccs {
		name := scc[0]
		def := byName[name]
		fn := &userFunc{def: def}

		var cause error
		var deps []string
		if err, ok := parseErrs[name]; ok {
			cause = err
		} else {
			c := &compiler{lib: lib, params: paramIndex(def.Params)}
			body, err := c.compile(trees[name])
			switch {
			case err != nil:
				cause = err
			case len(c.missing) > 0:
				fn.body = body
				cause = fmt.Errorf("%w: %v", ErrUndefinedFunction, c.missing)
			default:
				fn.body = body
			}
			deps = graph[name]
		}
		if cause == nil {
			for _, d := range deps {
				if broken[d] {
					cause = fmt.Errorf("depends on unresolved function %s", d)
					break
				}
			}
		}

		if cause != nil {
			broken[name] = true
			lib.unresolved = append(lib.unresolved, name)
			logger.Warn("function left unresolved", "function", name, "line", def.Line, "error", cause)
			if fn.body == nil {
				err := fmt.Errorf("%s: %w", name, cause)
				fn.body = func(*frame) (Value, error) { return Value{}, err }
			}
		}
		lib.funcs[name] = fn
		lib.order = append(lib.order, name)
	}

	logger.Debug("functions bound", "count", len(lib.order), "unresolved", len(lib.unresolved))
	return lib, nil
}

func paramIndex(params []string) map[string]int {
	m := make(map[string]int, len(params))
	for i, p := range params {
		m[p] = i
	}
	return m
}

// Clone returns an Evaluator that shares the bound functions but owns a
// copy of the variable scope and an empty compile cache.
func (e *Evaluator) Clone() *Evaluator {
	vars := make(map[string]Value, len(e.vars))
	for k, v := range e.vars {
		vars[k] = v
	}
	return &Evaluator{
		lib:    e.lib,
		vars:   vars,
		cache:  make(map[string]*Expr),
		logger: e.logger,
	}
}

// Set assigns a numeric variable.
func (e *Evaluator) Set(name string, v float64) {
	e.vars[name] = Number(v)
}

// SetValue assigns a variable of any kind.
func (e *Evaluator) SetValue(name string, v Value) {
	e.vars[name] = v
}

// Unset removes a variable.
func (e *Evaluator) Unset(name string) {
	delete(e.vars, name)
}

// Var returns the current value of a variable.
func (e *Evaluator) Var(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Functions returns the bound function names in binding order.
func (e *Evaluator) Functions() []string {
	return slices.Clone(e.lib.order)
}

// Function returns the definition of a bound function.
func (e *Evaluator) Function(name string) (ir.NamedFunction, bool) {
	fn, ok := e.lib.funcs[name]
	if !ok {
		return ir.NamedFunction{}, false
	}
	return fn.def, true
}

// Unresolved returns the functions that could not be fully bound.
func (e *Evaluator) Unresolved() []string {
	return slices.Clone(e.lib.unresolved)
}

// Expr is a compiled expression. It may be run by the Evaluator that
// compiled it or by any of its clones.
type Expr struct {
	src string
	run thunk
}

// Source returns the expression text.
func (x *Expr) Source() string { return x.src }

// Compile parses and compiles src, caching the result per Evaluator.
func (e *Evaluator) Compile(src string) (*Expr, error) {
	if x, ok := e.cache[src]; ok {
		return x, nil
	}
	tree, err := expr.Parse(src)
	if err != nil {
		return nil, err
	}
	c := &compiler{lib: e.lib}
	run, err := c.compile(tree)
	if err != nil {
		return nil, err
	}
	x := &Expr{src: src, run: run}
	e.cache[src] = x
	return x, nil
}

// Run evaluates a compiled expression against the current variables.
func (e *Evaluator) Run(x *Expr) (Value, error) {
	return x.run(&frame{ev: e})
}

// RunFloat evaluates x and requires a numeric result.
func (e *Evaluator) RunFloat(x *Expr) (float64, error) {
	v, err := e.Run(x)
	if err != nil {
		return 0, err
	}
	return v.Float()
}

// Eval compiles and evaluates src.
func (e *Evaluator) Eval(src string) (Value, error) {
	x, err := e.Compile(src)
	if err != nil {
		return Value{}, err
	}
	return e.Run(x)
}

// EvalFloat evaluates src and requires a numeric result.
func (e *Evaluator) EvalFloat(src string) (float64, error) {
	x, err := e.Compile(src)
	if err != nil {
		return 0, err
	}
	return e.RunFloat(x)
}

// Call invokes a bound user function with positional arguments.
func (e *Evaluator) Call(name string, args ...Value) (Value, error) {
	fn, ok := e.lib.funcs[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUndefinedFunction, name)
	}
	if len(args) != len(fn.def.Params) {
		return Value{}, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, name, len(fn.def.Params), len(args))
	}
	return fn.invoke(e, args)
}

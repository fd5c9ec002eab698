package eval

import (
	"fmt"
	"math"

	"github.com/roach88/g3d/internal/expr"
)

// frame is the runtime context of one evaluation: the evaluator supplying
// variables, and the argument values of the function being called.
type frame struct {
	ev     *Evaluator
	params []Value
}

type thunk func(f *frame) (Value, error)

// compiler turns an expression tree into closures. Names are resolved
// against the library at compile time, except variables, which are read
// from the evaluator when the closure runs.
type compiler struct {
	lib     *library
	params  map[string]int
	missing []string
}

func (c *compiler) compile(n expr.Node) (thunk, error) {
	switch n := n.(type) {
	case *expr.Num:
		v := Number(n.Value)
		return func(*frame) (Value, error) { return v, nil }, nil
	case *expr.Str:
		v := String(n.Value)
		return func(*frame) (Value, error) { return v, nil }, nil
	case *expr.Ident:
		return c.ident(n.Name), nil
	case *expr.Unary:
		return c.unary(n)
	case *expr.Binary:
		return c.binary(n)
	case *expr.Call:
		return c.call(n)
	case *expr.List:
		return c.list(n)
	}
	return nil, fmt.Errorf("unsupported expression node %T", n)
}

func (c *compiler) ident(name string) thunk {
	if i, ok := c.params[name]; ok {
		return func(f *frame) (Value, error) { return f.params[i], nil }
	}

	var fallback thunk
	if fn, ok := c.lib.funcs[name]; ok && fn.def.IsConstant() {
		fallback = func(f *frame) (Value, error) { return fn.invoke(f.ev, nil) }
	} else if k, ok := lookupConstant(name); ok {
		v := Number(k)
		fallback = func(*frame) (Value, error) { return v, nil }
	}

	return func(f *frame) (Value, error) {
		if v, ok := f.ev.vars[name]; ok {
			return v, nil
		}
		if fallback != nil {
			return fallback(f)
		}
		return Value{}, fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
	}
}

func (c *compiler) unary(n *expr.Unary) (thunk, error) {
	x, err := c.compile(n.X)
	if err != nil {
		return nil, err
	}
	negate := n.Op == expr.Minus
	return func(f *frame) (Value, error) {
		v, err := x(f)
		if err != nil {
			return Value{}, err
		}
		if v.Kind == KindString {
			return Value{}, fmt.Errorf("%w: unary operator on string", ErrType)
		}
		if negate {
			return mapNum(v, func(a float64) float64 { return -a }), nil
		}
		return v, nil
	}, nil
}

var arith = map[expr.Kind]func(a, b float64) float64{
	expr.Plus:    func(a, b float64) float64 { return a + b },
	expr.Minus:   func(a, b float64) float64 { return a - b },
	expr.Star:    func(a, b float64) float64 { return a * b },
	expr.Slash:   func(a, b float64) float64 { return a / b },
	expr.Percent: math.Mod,
	expr.Caret:   math.Pow,
}

func (c *compiler) binary(n *expr.Binary) (thunk, error) {
	x, err := c.compile(n.X)
	if err != nil {
		return nil, err
	}
	y, err := c.compile(n.Y)
	if err != nil {
		return nil, err
	}
	op, ok := arith[n.Op]
	if !ok {
		return nil, fmt.Errorf("unsupported operator %s", n.Op)
	}
	plus := n.Op == expr.Plus
	return func(f *frame) (Value, error) {
		a, err := x(f)
		if err != nil {
			return Value{}, err
		}
		b, err := y(f)
		if err != nil {
			return Value{}, err
		}
		if plus && (a.Kind == KindString || b.Kind == KindString) {
			return concat(a, b), nil
		}
		return zipNum(a, b, op)
	}, nil
}

func (c *compiler) args(nodes []expr.Node) ([]thunk, error) {
	out := make([]thunk, len(nodes))
	for i, a := range nodes {
		t, err := c.compile(a)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func evalArgs(f *frame, args []thunk) ([]Value, error) {
	vals := make([]Value, len(args))
	for i, a := range args {
		v, err := a(f)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (c *compiler) call(n *expr.Call) (thunk, error) {
	args, err := c.args(n.Args)
	if err != nil {
		return nil, err
	}

	if fn, ok := c.lib.funcs[n.Name]; ok {
		if len(args) != len(fn.def.Params) {
			return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, n.Name, len(fn.def.Params), len(args))
		}
		return func(f *frame) (Value, error) {
			vals, err := evalArgs(f, args)
			if err != nil {
				return Value{}, err
			}
			return fn.invoke(f.ev, vals)
		}, nil
	}

	if b, ok := lookupBuiltin(n.Name); ok {
		if len(args) < b.min || (b.max >= 0 && len(args) > b.max) {
			return nil, fmt.Errorf("%w: %s called with %d", ErrArity, n.Name, len(args))
		}
		return func(f *frame) (Value, error) {
			vals, err := evalArgs(f, args)
			if err != nil {
				return Value{}, err
			}
			return b.fn(vals)
		}, nil
	}

	c.missing = append(c.missing, n.Name)
	name := n.Name
	return func(*frame) (Value, error) {
		return Value{}, fmt.Errorf("%w: %s", ErrUndefinedFunction, name)
	}, nil
}

func (c *compiler) list(n *expr.List) (thunk, error) {
	switch expr.ShapeOf(n) {
	case expr.ShapeVector:
		comps, err := c.args(n.Elems)
		if err != nil {
			return nil, err
		}
		return func(f *frame) (Value, error) {
			xs, err := numbers(f, comps)
			if err != nil {
				return Value{}, err
			}
			return Vector(xs[0], xs[1], xs[2]), nil
		}, nil
	case expr.ShapeTensor:
		var cells []expr.Node
		for _, row := range n.Elems {
			cells = append(cells, row.(*expr.List).Elems...)
		}
		comps, err := c.args(cells)
		if err != nil {
			return nil, err
		}
		return func(f *frame) (Value, error) {
			xs, err := numbers(f, comps)
			if err != nil {
				return Value{}, err
			}
			return Tensor(xs[0], xs[1], xs[2], xs[3]), nil
		}, nil
	}
	return nil, fmt.Errorf("%w: bracket list must be [x, y, z] or [[a, b], [c, d]]", ErrType)
}

func numbers(f *frame, comps []thunk) ([]float64, error) {
	vals, err := evalArgs(f, comps)
	if err != nil {
		return nil, err
	}
	return floats(vals)
}

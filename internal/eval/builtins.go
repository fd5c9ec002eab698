package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// builtin is a library function. max < 0 means variadic.
type builtin struct {
	min, max int
	fn       func(args []Value) (Value, error)
}

// Constants visible to every expression unless shadowed by a variable.
var constants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
	"phi": math.Phi,
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"tan":   unary(math.Tan),
		"asin":  unary(math.Asin),
		"acos":  unary(math.Acos),
		"atan":  unary(math.Atan),
		"sinh":  unary(math.Sinh),
		"cosh":  unary(math.Cosh),
		"tanh":  unary(math.Tanh),
		"exp":   unary(math.Exp),
		"ln":    unary(math.Log),
		"log10": unary(math.Log10),
		"log2":  unary(math.Log2),
		"sqrt":  unary(math.Sqrt),
		"cbrt":  unary(math.Cbrt),
		"abs":   unary(math.Abs),
		"floor": unary(math.Floor),
		"ceil":  unary(math.Ceil),
		"round": unary(math.Round),
		"trunc": unary(math.Trunc),
		"fract": unary(func(x float64) float64 { return x - math.Floor(x) }),
		"sign":  unary(sign),

		"atan2": binary(math.Atan2),
		"pow":   binary(math.Pow),
		"hypot": binary(math.Hypot),
		"mod":   binary(func(a, b float64) float64 { return a - b*math.Floor(a/b) }),
		"step":  binary(func(edge, x float64) float64 { return boolNum(x >= edge) }),

		"log":        {min: 1, max: 2, fn: logFn},
		"min":        {min: 1, max: -1, fn: fold(math.Min)},
		"max":        {min: 1, max: -1, fn: fold(math.Max)},
		"clamp":      ternary(func(x, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, x)) }),
		"mix":        ternary(func(a, b, t float64) float64 { return a + (b-a)*t }),
		"smoothstep": ternary(smoothstep),

		"dot":   {min: 2, max: 2, fn: dot},
		"cross": {min: 2, max: 2, fn: cross},
		"norm":  {min: 1, max: 1, fn: norm},

		"format": {min: 1, max: -1, fn: format},
		"fixed":  {min: 2, max: 2, fn: fixed},
		"str":    {min: 1, max: 1, fn: func(args []Value) (Value, error) { return String(args[0].String()), nil }},
	}
}

// lookupBuiltin resolves name exactly, then case-insensitively, so that
// SIN(x) and sin(x) are the same call.
func lookupBuiltin(name string) (builtin, bool) {
	if b, ok := builtins[name]; ok {
		return b, true
	}
	b, ok := builtins[strings.ToLower(name)]
	return b, ok
}

func lookupConstant(name string) (float64, bool) {
	if c, ok := constants[name]; ok {
		return c, true
	}
	c, ok := constants[strings.ToLower(name)]
	return c, ok
}

// unary lifts fn over numbers, vectors and tensors component-wise.
func unary(fn func(float64) float64) builtin {
	return builtin{min: 1, max: 1, fn: func(args []Value) (Value, error) {
		if args[0].Kind == KindString {
			return Value{}, fmt.Errorf("%w: numeric function applied to string", ErrType)
		}
		return mapNum(args[0], fn), nil
	}}
}

func binary(fn func(a, b float64) float64) builtin {
	return builtin{min: 2, max: 2, fn: func(args []Value) (Value, error) {
		return zipNum(args[0], args[1], fn)
	}}
}

func ternary(fn func(a, b, c float64) float64) builtin {
	return builtin{min: 3, max: 3, fn: func(args []Value) (Value, error) {
		nums, err := floats(args)
		if err != nil {
			return Value{}, err
		}
		return Number(fn(nums[0], nums[1], nums[2])), nil
	}}
}

func fold(fn func(a, b float64) float64) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		nums, err := floats(args)
		if err != nil {
			return Value{}, err
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			acc = fn(acc, n)
		}
		return Number(acc), nil
	}
}

func floats(args []Value) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := a.Float()
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

func logFn(args []Value) (Value, error) {
	if len(args) == 1 {
		return unary(math.Log).fn(args)
	}
	return zipNum(args[0], args[1], func(x, base float64) float64 {
		return math.Log(x) / math.Log(base)
	})
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func smoothstep(e0, e1, x float64) float64 {
	t := math.Max(0, math.Min(1, (x-e0)/(e1-e0)))
	return t * t * (3 - 2*t)
}

func vectors(args []Value) error {
	for i, a := range args {
		if a.Kind != KindVector {
			return fmt.Errorf("%w: argument %d: expected vector, got %s", ErrType, i+1, a.Kind)
		}
	}
	return nil
}

func dot(args []Value) (Value, error) {
	if err := vectors(args); err != nil {
		return Value{}, err
	}
	a, b := args[0].Vec, args[1].Vec
	return Number(a[0]*b[0] + a[1]*b[1] + a[2]*b[2]), nil
}

func cross(args []Value) (Value, error) {
	if err := vectors(args); err != nil {
		return Value{}, err
	}
	a, b := args[0].Vec, args[1].Vec
	return Vector(a[1]*b[2]-a[2]*b[1], a[2]*b[0]-a[0]*b[2], a[0]*b[1]-a[1]*b[0]), nil
}

func norm(args []Value) (Value, error) {
	switch v := args[0]; v.Kind {
	case KindNumber:
		return Number(math.Abs(v.Num)), nil
	case KindVector:
		return Number(math.Sqrt(v.Vec[0]*v.Vec[0] + v.Vec[1]*v.Vec[1] + v.Vec[2]*v.Vec[2])), nil
	case KindTensor:
		var s float64
		for _, row := range v.Ten {
			s += row[0]*row[0] + row[1]*row[1]
		}
		return Number(math.Sqrt(s)), nil
	}
	return Value{}, fmt.Errorf("%w: norm of string", ErrType)
}

// format renders a printf-style label through cty's format function, so
// verbs such as %.2f, %d and %s behave as they do in HCL templates.
func format(args []Value) (Value, error) {
	if args[0].Kind != KindString {
		return Value{}, fmt.Errorf("%w: format string must be a string", ErrType)
	}
	vals := make([]cty.Value, 0, len(args)-1)
	for _, a := range args[1:] {
		vals = append(vals, toCty(a))
	}
	out, err := stdlib.Format(cty.StringVal(args[0].Str), vals...)
	if err != nil {
		return Value{}, fmt.Errorf("format: %w", err)
	}
	return String(out.AsString()), nil
}

func toCty(v Value) cty.Value {
	switch v.Kind {
	case KindNumber:
		if !isFinite(v.Num) {
			return cty.StringVal(formatNum(v.Num))
		}
		return cty.NumberFloatVal(v.Num)
	case KindString:
		return cty.StringVal(v.Str)
	}
	return cty.StringVal(v.String())
}

func fixed(args []Value) (Value, error) {
	nums, err := floats(args)
	if err != nil {
		return Value{}, err
	}
	digits := int(nums[1])
	if digits < 0 || digits > 20 {
		return Value{}, fmt.Errorf("%w: fixed digits %d out of range", ErrType, digits)
	}
	return String(strconv.FormatFloat(nums[0], 'f', digits, 64)), nil
}

// IsBuiltin reports whether name is a library function.
func IsBuiltin(name string) bool {
	_, ok := lookupBuiltin(name)
	return ok
}

// IsConstant reports whether name is a library constant such as pi.
func IsConstant(name string) bool {
	_, ok := lookupConstant(name)
	return ok
}

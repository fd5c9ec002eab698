package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind classifies a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindVector
	KindTensor
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindVector:
		return "vector"
	case KindTensor:
		return "tensor"
	case KindString:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is the result of evaluating an expression.
type Value struct {
	Kind Kind
	Num  float64
	Vec  [3]float64
	Ten  [2][2]float64
	Str  string
}

// Number returns a numeric value.
func Number(v float64) Value { return Value{Kind: KindNumber, Num: v} }

// Vector returns a 3-component vector value.
func Vector(x, y, z float64) Value { return Value{Kind: KindVector, Vec: [3]float64{x, y, z}} }

// Tensor returns a 2x2 tensor value in row-major order.
func Tensor(a, b, c, d float64) Value {
	return Value{Kind: KindTensor, Ten: [2][2]float64{{a, b}, {c, d}}}
}

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Float returns the numeric payload, or ErrType for other kinds.
func (v Value) Float() (float64, error) {
	if v.Kind != KindNumber {
		return 0, fmt.Errorf("%w: expected number, got %s", ErrType, v.Kind)
	}
	return v.Num, nil
}

// Finite reports whether every numeric component is finite. Strings are
// always finite.
func (v Value) Finite() bool {
	switch v.Kind {
	case KindNumber:
		return isFinite(v.Num)
	case KindVector:
		return isFinite(v.Vec[0]) && isFinite(v.Vec[1]) && isFinite(v.Vec[2])
	case KindTensor:
		for _, row := range v.Ten {
			if !isFinite(row[0]) || !isFinite(row[1]) {
				return false
			}
		}
	}
	return true
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatNum(v.Num)
	case KindVector:
		return "[" + formatNum(v.Vec[0]) + ", " + formatNum(v.Vec[1]) + ", " + formatNum(v.Vec[2]) + "]"
	case KindTensor:
		return "[[" + formatNum(v.Ten[0][0]) + ", " + formatNum(v.Ten[0][1]) + "], [" +
			formatNum(v.Ten[1][0]) + ", " + formatNum(v.Ten[1][1]) + "]]"
	case KindString:
		return v.Str
	}
	return ""
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// mapNum applies fn to every numeric component of v.
func mapNum(v Value, fn func(float64) float64) Value {
	switch v.Kind {
	case KindNumber:
		v.Num = fn(v.Num)
	case KindVector:
		for i := range v.Vec {
			v.Vec[i] = fn(v.Vec[i])
		}
	case KindTensor:
		for i := range v.Ten {
			for j := range v.Ten[i] {
				v.Ten[i][j] = fn(v.Ten[i][j])
			}
		}
	}
	return v
}

// zipNum combines two values component-wise. A number on either side is
// broadcast over the other operand.
func zipNum(a, b Value, fn func(x, y float64) float64) (Value, error) {
	switch {
	case a.Kind == KindString || b.Kind == KindString:
		return Value{}, fmt.Errorf("%w: arithmetic on string", ErrType)
	case a.Kind == KindNumber:
		return mapNum(b, func(y float64) float64 { return fn(a.Num, y) }), nil
	case b.Kind == KindNumber:
		return mapNum(a, func(x float64) float64 { return fn(x, b.Num) }), nil
	case a.Kind != b.Kind:
		return Value{}, fmt.Errorf("%w: %s and %s", ErrType, a.Kind, b.Kind)
	case a.Kind == KindVector:
		for i := range a.Vec {
			a.Vec[i] = fn(a.Vec[i], b.Vec[i])
		}
		return a, nil
	default:
		for i := range a.Ten {
			for j := range a.Ten[i] {
				a.Ten[i][j] = fn(a.Ten[i][j], b.Ten[i][j])
			}
		}
		return a, nil
	}
}

func concat(a, b Value) Value {
	var sb strings.Builder
	sb.WriteString(a.String())
	sb.WriteString(b.String())
	return String(sb.String())
}

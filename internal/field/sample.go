package field

import (
	"fmt"

	"github.com/roach88/g3d/internal/eval"
)

// ScalarFunc is a scalar field over the xy plane.
type ScalarFunc func(x, y float64) float64

// VectorFunc is a vector field. Planar fields ignore p.Z.
type VectorFunc func(p Vec3) Vec3

// DefaultStep is the central-difference step used by Gradient callers.
const DefaultStep = 0.01

// Safe returns v, or def when v is not finite.
func Safe(v, def float64) float64 {
	if Finite(v) {
		return v
	}
	return def
}

// SafeScalar wraps f so that non-finite samples become def.
func SafeScalar(f ScalarFunc, def float64) ScalarFunc {
	return func(x, y float64) float64 {
		return Safe(f(x, y), def)
	}
}

// SafeVector wraps f so that non-finite components become zero.
func SafeVector(f VectorFunc) VectorFunc {
	return func(p Vec3) Vec3 {
		v := f(p)
		return Vec3{Safe(v.X, 0), Safe(v.Y, 0), Safe(v.Z, 0)}
	}
}

// Gradient estimates ∇f at (x, y) with symmetric central differences of
// step h.
func Gradient(f ScalarFunc, x, y, h float64) Vec2 {
	return Vec2{
		X: (f(x+h, y) - f(x-h, y)) / (2 * h),
		Y: (f(x, y+h) - f(x, y-h)) / (2 * h),
	}
}

// NegGradientField returns the planar field -∇f, the direction of
// steepest descent.
func NegGradientField(f ScalarFunc, h float64) VectorFunc {
	return func(p Vec3) Vec3 {
		g := Gradient(f, p.X, p.Y, h)
		return Vec3{-g.X, -g.Y, 0}
	}
}

// GradientField returns the planar field ∇f.
func GradientField(f ScalarFunc, h float64) VectorFunc {
	return func(p Vec3) Vec3 {
		g := Gradient(f, p.X, p.Y, h)
		return Vec3{g.X, g.Y, 0}
	}
}

// Surface compiles src against ev and returns it as a scalar field of x
// and y. The returned function assigns x and y on ev, so it shares ev's
// variable scope; use a Clone per concurrent caller. Evaluation failures
// and non-finite values sample as 0.
func Surface(ev *eval.Evaluator, src string) (ScalarFunc, error) {
	x, err := ev.Compile(src)
	if err != nil {
		return nil, err
	}
	return func(px, py float64) float64 {
		ev.Set("x", px)
		ev.Set("y", py)
		v, err := ev.RunFloat(x)
		if err != nil {
			return 0
		}
		return Safe(v, 0)
	}, nil
}

// VectorField adapts a vector-valued user function of (x, y) or (x, y, z)
// to a VectorFunc. Failures sample as the zero vector.
func VectorField(ev *eval.Evaluator, name string) (VectorFunc, error) {
	fn, ok := ev.Function(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", eval.ErrUndefinedFunction, name)
	}
	arity := len(fn.Params)
	if arity > 3 {
		arity = 3
	}
	return SafeVector(func(p Vec3) Vec3 {
		args := make([]eval.Value, len(fn.Params))
		coords := [3]float64{p.X, p.Y, p.Z}
		for i := range args {
			if i < arity {
				args[i] = eval.Number(coords[i])
			} else {
				args[i] = eval.Number(0)
			}
		}
		v, err := ev.Call(name, args...)
		if err != nil || v.Kind != eval.KindVector {
			return Vec3{}
		}
		return Vec3{v.Vec[0], v.Vec[1], v.Vec[2]}
	}), nil
}

package field

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/eval"
	"github.com/roach88/g3d/internal/ir"
)

func bowl(x, y float64) float64 { return x*x + y*y }

func TestGradientCentralDifference(t *testing.T) {
	g := Gradient(bowl, 1, -2, DefaultStep)
	assert.InDelta(t, 2.0, g.X, 1e-9)
	assert.InDelta(t, -4.0, g.Y, 1e-9)

	d := NegGradientField(bowl, DefaultStep)(Vec3{X: 1, Y: -2})
	assert.InDelta(t, -2.0, d.X, 1e-9)
	assert.InDelta(t, 4.0, d.Y, 1e-9)
	assert.Zero(t, d.Z)
}

func TestSafe(t *testing.T) {
	assert.Equal(t, 1.5, Safe(1.5, 0))
	assert.Equal(t, 0.0, Safe(math.NaN(), 0))
	assert.Equal(t, -1.0, Safe(math.Inf(1), -1))

	f := SafeScalar(func(x, y float64) float64 { return 1 / x }, 7)
	assert.Equal(t, 7.0, f(0, 0))
	assert.Equal(t, 0.5, f(2, 0))

	v := SafeVector(func(p Vec3) Vec3 { return Vec3{math.NaN(), 1, math.Inf(-1)} })(Vec3{})
	assert.Equal(t, Vec3{0, 1, 0}, v)
}

func TestSurfaceAdapter(t *testing.T) {
	ev, err := eval.New([]ir.NamedFunction{
		{Name: "F", Kind: ir.FunctionScalar, Params: []string{"x", "y"}, Body: "x^2 - y^2"},
	})
	require.NoError(t, err)

	f, err := Surface(ev, "F(x, y)")
	require.NoError(t, err)
	assert.Equal(t, 3.0, f(2, 1))

	bad, err := Surface(ev, "1 / (x - x)")
	require.NoError(t, err)
	assert.Equal(t, 0.0, bad(1, 1), "non-finite samples coerce to zero")

	undefined, err := Surface(ev, "x + missing")
	require.NoError(t, err)
	assert.Equal(t, 0.0, undefined(1, 1), "evaluation errors coerce to zero")

	_, err = Surface(ev, "x +")
	assert.Error(t, err)
}

func TestVectorFieldAdapter(t *testing.T) {
	ev, err := eval.New([]ir.NamedFunction{
		{Name: "ROT", Kind: ir.FunctionVector, Params: []string{"x", "y"}, Body: "[-y, x, 0]"},
		{Name: "V_UP", Kind: ir.FunctionConstant, Params: []string{}, Body: "[0, 0, 1]"},
	})
	require.NoError(t, err)

	rot, err := VectorField(ev, "ROT")
	require.NoError(t, err)
	assert.Equal(t, Vec3{-2, 1, 0}, rot(Vec3{X: 1, Y: 2}))

	up, err := VectorField(ev, "V_UP")
	require.NoError(t, err)
	assert.Equal(t, Vec3{0, 0, 1}, up(Vec3{X: 5, Y: 5}))

	_, err = VectorField(ev, "NOPE")
	assert.ErrorIs(t, err, eval.ErrUndefinedFunction)
}

func TestGradientCache(t *testing.T) {
	calls := 0
	f := func(x, y float64) float64 {
		calls++
		return bowl(x, y)
	}
	c := NewGradientCache(f, DefaultStep, WithCapacity(2), WithQuantum(0.1))

	g := c.Gradient(1.01, 0)
	assert.InDelta(t, 2.0, g.X, 1e-9)
	c.Gradient(0.99, 0)
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, c.Stats())
	assert.Equal(t, 4, calls, "one gradient is four samples")

	c.Gradient(2, 0)
	c.Gradient(3, 0)
	stats := c.Stats()
	assert.Equal(t, 1, stats.Clears)
	assert.Equal(t, 1, stats.Entries)

	c.Reset()
	assert.Equal(t, CacheStats{}, c.Stats())
}

func TestGradientCacheBypassesHugeCoordinates(t *testing.T) {
	// ∂(xy)/∂y = x, so distinct huge x must give distinct gradients.
	c := NewGradientCache(func(x, y float64) float64 { return x * y }, DefaultStep)

	assert.InEpsilon(t, 1e20, c.Gradient(1e20, 0).Y, 1e-6)
	assert.InEpsilon(t, 3e20, c.Gradient(3e20, 0).Y, 1e-6)
	assert.InEpsilon(t, -3e20, c.Gradient(-3e20, 0).Y, 1e-6)
	assert.Equal(t, CacheStats{}, c.Stats())

	c.Gradient(math.NaN(), 0)
	assert.Equal(t, CacheStats{}, c.Stats())
}

func TestBoundsGrid(t *testing.T) {
	b := Bounds{X: ir.Range{Min: 0, Max: 2}, Y: ir.Range{Min: -1, Max: 1}, Z: ir.DefaultRange}
	pts := b.Grid(3)
	require.Len(t, pts, 9)
	assert.Equal(t, Vec2{0, -1}, pts[0])
	assert.Equal(t, Vec2{2, 1}, pts[8])
	assert.Equal(t, Vec2{1, 0}, pts[4])
	assert.True(t, b.Contains(2, -1))
	assert.False(t, b.Contains(2.1, 0))
	assert.Equal(t, []Vec2{{1, 0}}, b.Grid(1))
}

func TestTraceSampleLength(t *testing.T) {
	tr := TraceSample{Points: []Vec3{{0, 0, 0}, {3, 4, 0}, {3, 4, 12}}}
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, 17.0, tr.Length())
}

package streamline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/ir"
)

var square = field.Bounds{
	X: ir.Range{Min: -2, Max: 2},
	Y: ir.Range{Min: -2, Max: 2},
	Z: ir.DefaultRange,
}

func rotation(p field.Vec3) field.Vec3 { return field.Vec3{X: -p.Y, Y: p.X} }

func TestRK4FollowsCircle(t *testing.T) {
	opts := DefaultOptions()
	opts.StepSize = 0.01
	opts.MaxSteps = 628

	tr := New(rotation, square, opts).Trace(field.Vec2{X: 1})
	require.Equal(t, 629, tr.Len())
	for _, p := range tr.Points {
		assert.InDelta(t, 1.0, math.Hypot(p.X, p.Y), 1e-6)
	}
	// Unit circle: magnitude 1 and curvature 1 everywhere inside the trace.
	assert.InDelta(t, 1.0, tr.Magnitudes[100], 1e-6)
	assert.InDelta(t, 1.0, tr.Aux[100], 1e-3)
	assert.Zero(t, tr.Aux[0])
}

func TestTraceStopsAtBoundary(t *testing.T) {
	uniform := func(field.Vec3) field.Vec3 { return field.Vec3{X: 1} }
	opts := DefaultOptions()
	opts.StepSize = 0.1

	tr := New(uniform, square, opts).Trace(field.Vec2{X: 0, Y: 0.5})
	require.NotEmpty(t, tr.Points)
	last := tr.Points[tr.Len()-1]
	assert.LessOrEqual(t, last.X, 2.0)
	assert.Greater(t, last.X, 1.85)
	assert.InDelta(t, 21, tr.Len(), 1)
}

func TestTraceStopsAtSink(t *testing.T) {
	bowl := func(x, y float64) float64 { return x*x + y*y }
	opts := DefaultOptions()
	opts.MinMagnitude = 1e-3
	opts.MaxSteps = 10000

	tr := New(field.NegGradientField(bowl, field.DefaultStep), square, opts, WithSurface(bowl)).
		Trace(field.Vec2{X: 1.5, Y: -1})
	last := tr.Points[tr.Len()-1]
	assert.Less(t, tr.Len(), 10001)
	assert.InDelta(t, 0, last.X, 1e-3)
	assert.InDelta(t, 0, last.Y, 1e-3)
	assert.InDelta(t, bowl(last.X, last.Y), last.Z, 1e-12, "points are lifted onto the surface")
	assert.Less(t, tr.Magnitudes[tr.Len()-1], 1e-3)
}

func TestTraceOutsideSeed(t *testing.T) {
	tr := New(rotation, square, DefaultOptions()).Trace(field.Vec2{X: 5})
	assert.Zero(t, tr.Len())
}

func TestSeedStrategies(t *testing.T) {
	for _, st := range []Strategy{StrategyRandom, StrategyGrid, StrategyBoundary, StrategyCriticalPoint} {
		t.Run(string(st), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Strategy = st
			opts.SeedCount = 20

			seeds, err := New(rotation, square, opts).Seeds()
			require.NoError(t, err)
			require.NotEmpty(t, seeds)
			assert.LessOrEqual(t, len(seeds), 20)
			for _, s := range seeds {
				assert.True(t, square.Contains(s.X, s.Y), "seed %+v outside domain", s)
			}
		})
	}
}

func TestGridSeeds(t *testing.T) {
	opts := DefaultOptions()
	opts.SeedCount = 10
	seeds, err := New(rotation, square, opts).Seeds()
	require.NoError(t, err)
	require.Len(t, seeds, 9)
	assert.InDelta(t, -4.0/3, seeds[0].X, 1e-12)
	assert.InDelta(t, 0, seeds[4].X, 1e-12)
}

func TestCriticalPointSeedsRingTheCenter(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = StrategyCriticalPoint
	opts.ScanResolution = 41
	opts.RingSize = 8

	seeds, err := New(rotation, square, opts).Seeds()
	require.NoError(t, err)
	require.Len(t, seeds, 8)
	radius := opts.RingRadiusFrac * 4
	for _, s := range seeds {
		assert.InDelta(t, radius, math.Hypot(s.X, s.Y), 1e-9)
	}
}

func TestCriticalPointFallsBackToGrid(t *testing.T) {
	uniform := func(field.Vec3) field.Vec3 { return field.Vec3{X: 1, Y: 1} }
	opts := DefaultOptions()
	opts.Strategy = StrategyCriticalPoint
	opts.SeedCount = 16

	seeds, err := New(uniform, square, opts).Seeds()
	require.NoError(t, err)
	assert.Len(t, seeds, 16)
}

func TestTraceAllDropsShortTraces(t *testing.T) {
	zero := func(field.Vec3) field.Vec3 { return field.Vec3{} }
	traces, err := New(zero, square, DefaultOptions()).TraceAll()
	require.NoError(t, err)
	assert.Empty(t, traces)

	traces, err = New(rotation, square, DefaultOptions()).TraceAll()
	require.NoError(t, err)
	assert.NotEmpty(t, traces)
}

func TestUnknownStrategy(t *testing.T) {
	_, err := ParseStrategy("spiral")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	st, err := ParseStrategy("critical-point")
	require.NoError(t, err)
	assert.Equal(t, StrategyCriticalPoint, st)

	opts := DefaultOptions()
	opts.Strategy = "spiral"
	_, err = New(rotation, square, opts).TraceAll()
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestCurvature(t *testing.T) {
	straight := []field.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	assert.Equal(t, []float64{0, 0, 0}, Curvature(straight))

	corner := []field.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	assert.InDelta(t, 1.0, Curvature(corner)[1], 1e-12)
}

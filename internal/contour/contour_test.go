package contour

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/ir"
)

var unitSquare = field.Bounds{X: ir.Range{Min: 0, Max: 1}, Y: ir.Range{Min: 0, Max: 1}, Z: ir.DefaultRange}

func TestBilinearCrossingIsExact(t *testing.T) {
	// f = x*y on one cell: corners BL=0 BR=0 TL=0 TR=1, so level 0.3 cuts
	// the top edge at x=0.3 and the right edge at y=0.3.
	f := func(x, y float64) float64 { return x * y }

	levels := Extract(f, unitSquare, []float64{0.3}, 1)
	require.Len(t, levels, 1)
	require.Len(t, levels[0].Segments, 1)

	s := levels[0].Segments[0]
	assert.InDelta(t, 0.3, s.A.X, 1e-12)
	assert.InDelta(t, 1.0, s.A.Y, 1e-12)
	assert.InDelta(t, 1.0, s.B.X, 1e-12)
	assert.InDelta(t, 0.3, s.B.Y, 1e-12)
}

func TestCaseIndex(t *testing.T) {
	c := cell{tl: 1, tr: 0, br: 1, bl: 0, level: 0.5}
	assert.Equal(t, 10, c.index())
	c = cell{tl: 0, tr: 1, br: 0, bl: 1, level: 0.5}
	assert.Equal(t, 5, c.index())
	c = cell{tl: 0.5, tr: 0.5, br: 0.5, bl: 0.5, level: 0.5}
	assert.Equal(t, 0, c.index(), "equal to the level is not above it")
}

func TestSaddleEmitsTwoSegments(t *testing.T) {
	square := field.Bounds{X: ir.Range{Min: -1, Max: 1}, Y: ir.Range{Min: -1, Max: 1}}
	saddle := func(x, y float64) float64 { return x * y }

	levels := Extract(saddle, square, []float64{0}, 1)
	segs := levels[0].Segments
	require.Len(t, segs, 2)
	// Case 5: BL and TR are above, each gets its corner cut off.
	assert.Equal(t, Segment{A: field.Vec2{X: -1, Y: 0}, B: field.Vec2{X: 0, Y: -1}}, segs[0])
	assert.Equal(t, Segment{A: field.Vec2{X: 0, Y: 1}, B: field.Vec2{X: 1, Y: 0}}, segs[1])
}

func TestCircleIsOneClosedLoop(t *testing.T) {
	square := field.Bounds{X: ir.Range{Min: -2, Max: 2}, Y: ir.Range{Min: -2, Max: 2}}
	bowl := func(x, y float64) float64 { return x*x + y*y }

	levels := Extract(bowl, square, []float64{1}, 79)
	for _, s := range levels[0].Segments {
		assert.InDelta(t, 1.0, math.Hypot(s.A.X, s.A.Y), 2e-3)
	}

	lines := Polylines(levels[0].Segments, 1e-9)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, line[0], line[len(line)-1], "loop closes on itself")
	assert.Len(t, line, len(levels[0].Segments)+1)

	var length float64
	for i := 1; i < len(line); i++ {
		length += line[i].Dist(line[i-1])
	}
	assert.InDelta(t, 2*math.Pi, length, 0.01)
}

func TestLevelThroughGridVertices(t *testing.T) {
	square := field.Bounds{X: ir.Range{Min: -2, Max: 2}, Y: ir.Range{Min: -2, Max: 2}}
	bowl := func(x, y float64) float64 { return x*x + y*y }

	// Step 0.1 puts (±0.6, ±0.8) and (±0.8, ±0.6) exactly on the unit circle.
	levels := Extract(bowl, square, []float64{1}, 40)
	lines := Polylines(levels[0].Segments, 1e-9)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, line[0], line[len(line)-1], "loop closes on itself")

	var length float64
	for i := 1; i < len(line); i++ {
		length += line[i].Dist(line[i-1])
	}
	assert.InDelta(t, 2*math.Pi, length, 0.05)
}

func TestPolylinesSkipsSlivers(t *testing.T) {
	a := field.Vec2{X: 0, Y: 0}
	b := field.Vec2{X: 1, Y: 0}
	c := field.Vec2{X: 1 + 2e-16, Y: -1e-16}
	d := field.Vec2{X: 1, Y: 1}

	lines := Polylines([]Segment{{A: a, B: b}, {A: b, B: c}, {A: c, B: d}}, 1e-9)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0], 3)
	assert.Equal(t, a, lines[0][0])
	assert.Equal(t, d, lines[0][2])
}

func TestMultipleLevels(t *testing.T) {
	square := field.Bounds{X: ir.Range{Min: -2, Max: 2}, Y: ir.Range{Min: -2, Max: 2}}
	bowl := func(x, y float64) float64 { return x*x + y*y }

	levels := Extract(bowl, square, []float64{0.5, 1, 100}, 39)
	require.Len(t, levels, 3)
	assert.NotEmpty(t, levels[0].Segments)
	assert.NotEmpty(t, levels[1].Segments)
	assert.Empty(t, levels[2].Segments, "level above the whole field")

	traces := Traces(bowl, levels, 1e-9)
	require.Len(t, traces, 2)
	assert.Equal(t, 0.5, traces[0].Points[0].Z)
	assert.Equal(t, 1.0, traces[1].Aux[0])
	assert.InDelta(t, 2.0, traces[1].Magnitudes[0], 0.02, "|∇(x²+y²)| = 2r")
}

func TestNonFiniteSamples(t *testing.T) {
	f := func(x, y float64) float64 { return 1 / x }
	g := Sample(f, unitSquare, 4)
	assert.Equal(t, 0.0, g.At(0, 0))
	assert.Equal(t, 1.0, g.At(4, 0))
}

func TestNoLevels(t *testing.T) {
	assert.Nil(t, Extract(func(x, y float64) float64 { return x }, unitSquare, nil, 8))
}

func TestOpenPolyline(t *testing.T) {
	segs := []Segment{
		{A: field.Vec2{X: 1}, B: field.Vec2{X: 2}},
		{A: field.Vec2{X: 0}, B: field.Vec2{X: 1}},
		{A: field.Vec2{X: 3}, B: field.Vec2{X: 2}},
	}
	lines := Polylines(segs, 1e-9)
	require.Len(t, lines, 1)
	assert.Equal(t, []field.Vec2{{X: 0}, {X: 1}, {X: 2}, {X: 3}}, lines[0])
}

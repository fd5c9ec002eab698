package geodesic

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/ir"
)

// strip is a 3-cell ribbon: bottom row b0..b3 at y=0 (indices 0..3), top
// row t0..t3 at y=0.5 (indices 4..7). Diagonals run from b_i to t_{i+1}.
func strip() *Mesh {
	m := &Mesh{}
	for i := 0; i < 4; i++ {
		m.Vertices = append(m.Vertices, field.Vec3{X: float64(i)})
	}
	for i := 0; i < 4; i++ {
		m.Vertices = append(m.Vertices, field.Vec3{X: float64(i), Y: 0.5})
	}
	for i := 0; i < 3; i++ {
		b, b1, t, t1 := i, i+1, 4+i, 5+i
		m.Triangles = append(m.Triangles, [3]int{b, b1, t1}, [3]int{b, t1, t})
	}
	return m
}

func TestPathAlongStripEdge(t *testing.T) {
	pf, err := NewPathfinder(strip())
	require.NoError(t, err)

	res, err := pf.Path(field.Vec3{X: 0}, field.Vec3{X: 3})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, res.Vertices)
	assert.InDelta(t, 3.0, res.Distance, 1e-12)
	assert.Zero(t, res.SnapStart)
	assert.Zero(t, res.SnapEnd)
}

func TestPathTakesDiagonal(t *testing.T) {
	pf, err := NewPathfinder(strip())
	require.NoError(t, err)

	res, err := pf.Path(field.Vec3{X: 0}, field.Vec3{X: 1, Y: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5}, res.Vertices)
	assert.InDelta(t, math.Hypot(1, 0.5), res.Distance, 1e-12)
}

func TestPathSplicesQueryPoints(t *testing.T) {
	pf, err := NewPathfinder(strip())
	require.NoError(t, err)

	from := field.Vec3{X: -0.1, Z: 0.2}
	to := field.Vec3{X: 3.1}
	res, err := pf.Path(from, to)
	require.NoError(t, err)

	require.Len(t, res.Points, 6)
	assert.Equal(t, from, res.Points[0])
	assert.Equal(t, to, res.Points[5])
	assert.InDelta(t, math.Sqrt(0.05), res.SnapStart, 1e-12)
	assert.InDelta(t, 0.1, res.SnapEnd, 1e-12)
	assert.InDelta(t, 3+math.Sqrt(0.05)+0.1, res.Distance, 1e-12)

	tr := res.Trace()
	assert.Equal(t, 6, tr.Len())
	assert.InDelta(t, res.Distance, tr.Aux[5], 1e-12)
}

func TestSameVertex(t *testing.T) {
	pf, err := NewPathfinder(strip())
	require.NoError(t, err)

	res, err := pf.Path(field.Vec3{X: 0.1}, field.Vec3{Y: 0.1})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, res.Vertices)
	assert.Zero(t, res.GraphDistance)
	assert.InDelta(t, 0.2, res.Distance, 1e-12)
}

func TestDisconnectedMesh(t *testing.T) {
	m := &Mesh{
		Vertices: []field.Vec3{
			{X: 0}, {X: 1}, {Y: 1},
			{X: 10}, {X: 11}, {X: 10, Y: 1},
		},
		Triangles: [][3]int{{0, 1, 2}, {3, 4, 5}},
	}
	pf, err := NewPathfinder(m)
	require.NoError(t, err)

	_, err = pf.Path(field.Vec3{}, field.Vec3{X: 11})
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestSharedSideIsWelded(t *testing.T) {
	// Two triangles of the unit square, each with its own copy of the
	// diagonal (0,0)-(1,1).
	m := &Mesh{
		Vertices: []field.Vec3{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1},
			{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		},
		Triangles: [][3]int{{0, 1, 2}, {3, 4, 5}},
	}
	pf, err := NewPathfinder(m)
	require.NoError(t, err)
	assert.Len(t, pf.Mesh().Vertices, 4)
	assert.Len(t, m.Vertices, 6, "input mesh untouched")

	res, err := pf.Path(field.Vec3{X: 1, Y: 0}, field.Vec3{X: 0, Y: 1})
	require.NoError(t, err)
	assert.InDelta(t, 2, res.Distance, 1e-12)
	assert.Len(t, res.Vertices, 3)

	res, err = pf.Path(field.Vec3{}, field.Vec3{X: 1, Y: 1})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, res.Distance, 1e-12)
}

func TestWeldKeepsIndexedMesh(t *testing.T) {
	m := strip()
	assert.Same(t, m, weld(m))
}

func TestInvalidMesh(t *testing.T) {
	_, err := NewPathfinder(&Mesh{})
	assert.ErrorIs(t, err, ErrEmptyMesh)

	_, err = NewPathfinder(nil)
	assert.ErrorIs(t, err, ErrEmptyMesh)

	_, err = NewPathfinder(&Mesh{
		Vertices:  []field.Vec3{{}, {X: 1}},
		Triangles: [][3]int{{0, 1, 2}},
	})
	assert.ErrorIs(t, err, ErrBadMesh)
}

func TestSampleSurface(t *testing.T) {
	b := field.Bounds{X: ir.Range{Min: -1, Max: 1}, Y: ir.Range{Min: 0, Max: 2}}
	m := SampleSurface(func(x, y float64) float64 {
		if x > 0.9 {
			return math.NaN()
		}
		return x + y
	}, b, 4)

	assert.Len(t, m.Vertices, 25)
	assert.Len(t, m.Triangles, 32)
	assert.Equal(t, field.Vec3{X: -1, Y: 0, Z: -1}, m.Vertices[0])
	assert.Equal(t, field.Vec3{X: -0.5, Y: 0, Z: -0.5}, m.Vertices[1])
	assert.Equal(t, field.Vec3{X: 1, Y: 0, Z: 0}, m.Vertices[4], "non-finite samples become zero")
	assert.Equal(t, field.Vec3{X: -1, Y: 0.5, Z: -0.5}, m.Vertices[5])
}

func TestFlatPlane(t *testing.T) {
	square := field.Bounds{X: ir.Range{Min: -1, Max: 1}, Y: ir.Range{Min: -1, Max: 1}}
	pf, err := NewPathfinder(SampleSurface(func(x, y float64) float64 { return 0 }, square, 10))
	require.NoError(t, err)

	// Cell diagonals run bottom-left to top-right, so this is exact.
	res, err := pf.Path(field.Vec3{X: -1, Y: -1}, field.Vec3{X: 1, Y: 1})
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Sqrt2, res.Distance, 1e-9)

	// Against the diagonals the path staircases.
	res, err = pf.Path(field.Vec3{X: -1, Y: 1}, field.Vec3{X: 1, Y: -1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Distance, 2*math.Sqrt2)
	assert.InDelta(t, 4.0, res.Distance, 1e-9)
}

func TestDistanceNeverBeatsChord(t *testing.T) {
	square := field.Bounds{X: ir.Range{Min: -3, Max: 3}, Y: ir.Range{Min: -3, Max: 3}}
	f := func(x, y float64) float64 { return math.Sin(x) * math.Cos(y) }
	pf, err := NewPathfinder(SampleSurface(f, square, 24))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	point := func() field.Vec3 {
		x, y := rng.Float64()*6-3, rng.Float64()*6-3
		return field.Vec3{X: x, Y: y, Z: f(x, y)}
	}
	for i := 0; i < 20; i++ {
		from, to := point(), point()
		res, err := pf.Path(from, to)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Distance+1e-9, from.Dist(to))
	}
}

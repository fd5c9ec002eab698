// Package contour extracts isolines of a scalar field with marching
// squares.
//
// Corners are encoded TL=8, TR=4, BR=2, BL=1, a bit being set when the
// corner value is strictly above the level. The saddle cases 5 and 10 are
// not disambiguated: each emits two segments, one cutting off each
// above-level corner, which can leave the isoline locally disconnected at
// a saddle.
package contour

import (
	"math"

	"github.com/roach88/g3d/internal/field"
)

// DefaultResolution is the number of grid cells per axis.
const DefaultResolution = 64

// Segment is one isoline piece inside a cell.
type Segment struct {
	A field.Vec2 `json:"a"`
	B field.Vec2 `json:"b"`
}

// Level holds the segments extracted for one threshold.
type Level struct {
	Value    float64   `json:"value"`
	Segments []Segment `json:"segments"`
}

// Grid is a scalar field sampled at (N+1)×(N+1) regularly spaced points.
type Grid struct {
	Bounds field.Bounds
	N      int
	Values []float64 // row-major from (X.Min, Y.Min)
}

// Sample evaluates f over b with n cells per axis. Non-finite samples are
// stored as 0.
func Sample(f field.ScalarFunc, b field.Bounds, n int) *Grid {
	if n < 1 {
		n = DefaultResolution
	}
	f = field.SafeScalar(f, 0)
	g := &Grid{Bounds: b, N: n, Values: make([]float64, (n+1)*(n+1))}
	for j := 0; j <= n; j++ {
		y := g.y(j)
		for i := 0; i <= n; i++ {
			g.Values[j*(n+1)+i] = f(g.x(i), y)
		}
	}
	return g
}

func (g *Grid) x(i int) float64 { return g.Bounds.X.Lerp(float64(i) / float64(g.N)) }
func (g *Grid) y(j int) float64 { return g.Bounds.Y.Lerp(float64(j) / float64(g.N)) }

// At returns the sample at column i, row j.
func (g *Grid) At(i, j int) float64 {
	return g.Values[j*(g.N+1)+i]
}

// Extract samples f once and returns the segments for every level.
func Extract(f field.ScalarFunc, b field.Bounds, levels []float64, n int) []Level {
	if len(levels) == 0 {
		return nil
	}
	return Sample(f, b, n).Extract(levels)
}

// Extract runs marching squares over the grid for each level.
func (g *Grid) Extract(levels []float64) []Level {
	out := make([]Level, len(levels))
	for k, level := range levels {
		out[k] = Level{Value: level, Segments: g.march(level)}
	}
	return out
}

func (g *Grid) march(level float64) []Segment {
	segs := []Segment{}
	for j := 0; j < g.N; j++ {
		y0, y1 := g.y(j), g.y(j+1)
		for i := 0; i < g.N; i++ {
			x0, x1 := g.x(i), g.x(i+1)
			c := cell{
				tl: g.At(i, j+1), tr: g.At(i+1, j+1),
				br: g.At(i+1, j), bl: g.At(i, j),
				x0: x0, x1: x1, y0: y0, y1: y1,
				level: level,
			}
			segs = c.segments(segs)
		}
	}
	return segs
}

// cell is one grid square with its corner values.
type cell struct {
	tl, tr, br, bl float64
	x0, x1, y0, y1 float64
	level          float64
}

func (c cell) index() int {
	idx := 0
	if c.tl > c.level {
		idx |= 8
	}
	if c.tr > c.level {
		idx |= 4
	}
	if c.br > c.level {
		idx |= 2
	}
	if c.bl > c.level {
		idx |= 1
	}
	return idx
}

// crossing interpolates the level crossing between corner values va at a
// and vb at b.
func (c cell) crossing(va, vb float64, a, b field.Vec2) field.Vec2 {
	t := 0.5
	if d := vb - va; d != 0 {
		t = (c.level - va) / d
	}
	return a.Lerp(b, t)
}

func (c cell) top() field.Vec2 {
	return c.crossing(c.tl, c.tr, field.Vec2{X: c.x0, Y: c.y1}, field.Vec2{X: c.x1, Y: c.y1})
}

func (c cell) right() field.Vec2 {
	return c.crossing(c.tr, c.br, field.Vec2{X: c.x1, Y: c.y1}, field.Vec2{X: c.x1, Y: c.y0})
}

func (c cell) bottom() field.Vec2 {
	return c.crossing(c.bl, c.br, field.Vec2{X: c.x0, Y: c.y0}, field.Vec2{X: c.x1, Y: c.y0})
}

func (c cell) left() field.Vec2 {
	return c.crossing(c.tl, c.bl, field.Vec2{X: c.x0, Y: c.y1}, field.Vec2{X: c.x0, Y: c.y0})
}

func (c cell) segments(out []Segment) []Segment {
	// A level equal to a corner value can collapse a segment to a point.
	seg := func(a, b field.Vec2) {
		if a != b {
			out = append(out, Segment{A: a, B: b})
		}
	}
	switch c.index() {
	case 1, 14:
		seg(c.left(), c.bottom())
	case 2, 13:
		seg(c.bottom(), c.right())
	case 3, 12:
		seg(c.left(), c.right())
	case 4, 11:
		seg(c.top(), c.right())
	case 5:
		seg(c.left(), c.bottom())
		seg(c.top(), c.right())
	case 6, 9:
		seg(c.top(), c.bottom())
	case 7, 8:
		seg(c.top(), c.left())
	case 10:
		seg(c.top(), c.left())
		seg(c.bottom(), c.right())
	}
	return out
}

// Polylines chains segments sharing endpoints (within tol) into
// polylines. Closed isolines start and end on the same point.
func Polylines(segs []Segment, tol float64) [][]field.Vec2 {
	if tol <= 0 {
		tol = 1e-9
	}
	key := func(p field.Vec2) [2]int64 {
		return [2]int64{int64(math.Round(p.X / tol)), int64(math.Round(p.Y / tol))}
	}
	ends := make(map[[2]int64][]int, 2*len(segs))
	used := make([]bool, len(segs))
	for i, s := range segs {
		// A grid vertex lying on the level yields slivers whose ends
		// share a key; the neighbouring segments already meet there.
		if key(s.A) == key(s.B) {
			used[i] = true
			continue
		}
		ends[key(s.A)] = append(ends[key(s.A)], i)
		ends[key(s.B)] = append(ends[key(s.B)], i)
	}

	// next finds an unused segment touching p and returns its far end.
	next := func(p field.Vec2) (field.Vec2, bool) {
		for _, i := range ends[key(p)] {
			if used[i] {
				continue
			}
			used[i] = true
			if key(segs[i].A) == key(p) {
				return segs[i].B, true
			}
			return segs[i].A, true
		}
		return field.Vec2{}, false
	}

	var lines [][]field.Vec2
	for i, s := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		line := []field.Vec2{s.A, s.B}
		for p, ok := next(s.B); ok; p, ok = next(p) {
			line = append(line, p)
		}
		var head []field.Vec2
		for p, ok := next(s.A); ok; p, ok = next(p) {
			head = append(head, p)
		}
		if len(head) > 0 {
			rev := make([]field.Vec2, 0, len(head)+len(line))
			for k := len(head) - 1; k >= 0; k-- {
				rev = append(rev, head[k])
			}
			line = append(rev, line...)
		}
		lines = append(lines, line)
	}
	return lines
}

// Traces chains each level's segments and lifts the polylines to z =
// level. Magnitudes hold |∇f| at each point; Aux holds the level.
func Traces(f field.ScalarFunc, levels []Level, tol float64) []field.TraceSample {
	var out []field.TraceSample
	for _, lv := range levels {
		for _, line := range Polylines(lv.Segments, tol) {
			tr := field.TraceSample{
				Points:     make([]field.Vec3, len(line)),
				Magnitudes: make([]float64, len(line)),
				Aux:        make([]float64, len(line)),
			}
			for i, p := range line {
				tr.Points[i] = p.WithZ(lv.Value)
				tr.Magnitudes[i] = field.Safe(field.Gradient(f, p.X, p.Y, field.DefaultStep).Len(), 0)
				tr.Aux[i] = lv.Value
			}
			out = append(out, tr)
		}
	}
	return out
}

package field

import "github.com/roach88/g3d/internal/ir"

// Bounds is the sampling domain of an analysis.
type Bounds struct {
	X ir.Range `json:"x"`
	Y ir.Range `json:"y"`
	Z ir.Range `json:"z"`
}

// BoundsOf returns the ranges declared by p.
func BoundsOf(p *ir.Program) Bounds {
	return Bounds{X: p.Ranges.X, Y: p.Ranges.Y, Z: p.Ranges.Z}
}

// Contains reports whether (x, y) lies inside the planar domain.
func (b Bounds) Contains(x, y float64) bool {
	return b.X.Contains(x) && b.Y.Contains(y)
}

// Diagonal returns the length of the planar domain's diagonal.
func (b Bounds) Diagonal() float64 {
	return Vec2{b.X.Span(), b.Y.Span()}.Len()
}

// Grid returns n×n sample points spanning the planar domain, row by row
// from (X.Min, Y.Min). n < 2 yields the domain center.
func (b Bounds) Grid(n int) []Vec2 {
	if n < 2 {
		return []Vec2{{b.X.Lerp(0.5), b.Y.Lerp(0.5)}}
	}
	pts := make([]Vec2, 0, n*n)
	for j := 0; j < n; j++ {
		y := b.Y.Lerp(float64(j) / float64(n-1))
		for i := 0; i < n; i++ {
			pts = append(pts, Vec2{b.X.Lerp(float64(i) / float64(n-1)), y})
		}
	}
	return pts
}

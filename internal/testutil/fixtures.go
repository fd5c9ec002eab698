package testutil

import (
	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/ir"
)

// G3D sources shared by package tests.
const (
	SaddleProgram = "SET RANGE X -2 TO 2\nSET RANGE Y -2 TO 2\nSET RANGE Z -4 TO 4\nDEF FNSADDLE(x,y) = x^2 - y^2\nPLOT3D FNSADDLE(x,y)"

	BowlProgram = `SET RANGE X -2 TO 2
SET RANGE Y -2 TO 2
DEF FNBOWL(x,y) = x^2 + y^2
PLOT3D FNBOWL(x,y)
CONTOUR LEVELS 1, 2
PARTICLES 20
`

	SwirlProgram = `SET RANGE X -3 TO 3
SET RANGE Y -3 TO 3
DEF S_K = 0.5
DEF SWIRL(x,y,z) = [-y, x, 0]
PLOT3D S_K * (x^2 + y^2)
PLOT_VECFIELD SWIRL GRID 8 PHYSICS damping=0.2, dt=0.02
ANIMATE t FROM 0 TO 1 STEP 0.25
`
)

// Analytic potentials.
func Bowl(x, y float64) float64   { return x*x + y*y }
func Saddle(x, y float64) float64 { return x*x - y*y }
func Ridge(x, y float64) float64  { return -x * x }

// Square returns the bounds [-h, h]² with the default z range.
func Square(h float64) field.Bounds {
	return field.Bounds{
		X: ir.Range{Min: -h, Max: h},
		Y: ir.Range{Min: -h, Max: h},
		Z: ir.DefaultRange,
	}
}

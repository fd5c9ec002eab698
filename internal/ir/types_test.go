package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgramDefaults(t *testing.T) {
	p := NewProgram()

	assert.Equal(t, DefaultRange, p.Ranges.X)
	assert.Equal(t, DefaultRange, p.Ranges.Y)
	assert.Equal(t, DefaultRange, p.Ranges.Z)
	assert.Equal(t, DefaultColorMap, p.ColorMap)
	assert.Empty(t, p.Plots)
	assert.Empty(t, p.Labels)
	assert.Nil(t, p.Animation)
	assert.Nil(t, p.Particles)
}

func TestRangeHelpers(t *testing.T) {
	r := Range{Min: -2, Max: 2}

	assert.Equal(t, 4.0, r.Span())
	assert.True(t, r.Contains(-2))
	assert.True(t, r.Contains(2))
	assert.False(t, r.Contains(2.0001))
	assert.Equal(t, -2.0, r.Clamp(-7))
	assert.Equal(t, 2.0, r.Clamp(9))
	assert.Equal(t, 0.5, r.Clamp(0.5))
	assert.Equal(t, 0.0, r.Lerp(0.5))
	assert.Equal(t, "[-2, 2]", r.String())
}

func TestProgramPotential(t *testing.T) {
	p := NewProgram()
	assert.Equal(t, "0", p.Potential(), "no surfaces falls back to flat")

	p.Plots = append(p.Plots,
		Plot{Kind: PlotVector, Vector: &VectorPlot{Function: "F"}},
		Plot{Kind: PlotSurface, Surface: &SurfacePlot{Expr: "x^2 + y^2"}},
		Plot{Kind: PlotSurface, Surface: &SurfacePlot{Expr: "x"}},
	)

	assert.Equal(t, "x^2 + y^2", p.Potential())
	assert.Len(t, p.Surfaces(), 2)
}

func TestAnimationFrames(t *testing.T) {
	a := Animation{Param: "t", From: 0, To: 1, Step: 0.25}
	assert.Equal(t, 5, a.Frames())
	assert.Equal(t, 0.75, a.Value(3))

	down := Animation{Param: "t", From: 1, To: 0, Step: 0.5}
	assert.Equal(t, 3, down.Frames())
	assert.Equal(t, 0.0, down.Value(2))

	assert.Equal(t, 0, Animation{Step: 0}.Frames())
}

func TestPlotJSONTags(t *testing.T) {
	p := Plot{Kind: PlotTensor, Line: 4, Tensor: &TensorPlot{Function: "T", Glyph: "box"}}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `{"kind":"tensor","line":4,"tensor":{"function":"T","glyph":"box"}}`, string(data))
}

func TestNamedFunctionIsConstant(t *testing.T) {
	assert.True(t, NamedFunction{Name: "S_K", Body: "2"}.IsConstant())
	assert.False(t, NamedFunction{Name: "F", Params: []string{"x"}, Body: "x"}.IsConstant())
}

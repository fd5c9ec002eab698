package ir

import "fmt"

// Limits enforced at compile time. Exceeding them is a validation error,
// never a runtime failure.
const (
	// MaxParticles is the ceiling for a PARTICLES statement.
	MaxParticles = 5000

	// MaxGridSize is the ceiling for a PLOT_VECFIELD GRID clause.
	MaxGridSize = 64

	// DefaultColorMap is used when a program has no COLOR MAP statement.
	DefaultColorMap = "viridis"

	// DefaultGridSize is the vector-field sampling grid when none is declared.
	DefaultGridSize = 12
)

// DefaultRange is the bound applied to any axis without a SET RANGE statement.
var DefaultRange = Range{Min: -5, Max: 5}

// ValidColorMaps defines the closed set of color map names.
var ValidColorMaps = map[string]bool{
	"viridis":   true,
	"plasma":    true,
	"inferno":   true,
	"magma":     true,
	"cividis":   true,
	"turbo":     true,
	"jet":       true,
	"rainbow":   true,
	"coolwarm":  true,
	"grayscale": true,
}

// ValidGlyphs defines the closed set of tensor glyph kinds.
var ValidGlyphs = map[string]bool{
	"ellipsoid":    true,
	"box":          true,
	"cylinder":     true,
	"superquadric": true,
}

// ValidPhysicsKeys defines the parameters a PLOT_VECFIELD PHYSICS clause may set.
var ValidPhysicsKeys = map[string]bool{
	"damping":     true,
	"coupling":    true,
	"dt":          true,
	"restitution": true,
}

// Program is the root aggregate produced by a successful compile.
type Program struct {
	Ranges        Ranges                   `json:"ranges"`
	Functions     map[string]NamedFunction `json:"functions"`
	FunctionOrder []string                 `json:"function_order"`
	Plots         []Plot                   `json:"plots"`
	Animation     *Animation               `json:"animation,omitempty"`
	Contour       *Contour                 `json:"contour,omitempty"`
	Particles     *ParticleConfig          `json:"particles,omitempty"`
	ColorMap      string                   `json:"color_map"`
	Labels        []Label                  `json:"labels"`
}

// NewProgram returns a Program with default ranges and color map.
func NewProgram() *Program {
	return &Program{
		Ranges:    Ranges{X: DefaultRange, Y: DefaultRange, Z: DefaultRange},
		Functions: make(map[string]NamedFunction),
		Plots:     []Plot{},
		ColorMap:  DefaultColorMap,
		Labels:    []Label{},
	}
}

// Function looks up a named function.
func (p *Program) Function(name string) (NamedFunction, bool) {
	fn, ok := p.Functions[name]
	return fn, ok
}

// Surfaces returns the surface plots in declaration order.
func (p *Program) Surfaces() []SurfacePlot {
	var out []SurfacePlot
	for _, plot := range p.Plots {
		if plot.Kind == PlotSurface && plot.Surface != nil {
			out = append(out, *plot.Surface)
		}
	}
	return out
}

// Potential returns the expression of the first surface plot. Compiled
// programs always have one.
func (p *Program) Potential() string {
	for _, s := range p.Surfaces() {
		return s.Expr
	}
	return "0"
}

// Range is the real bound of one axis. Invariant: Min < Max.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp limits v to [Min, Max].
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Lerp maps t in [0,1] onto the range.
func (r Range) Lerp(t float64) float64 {
	return r.Min + t*(r.Max-r.Min)
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// Ranges holds the bounds of the three axes.
type Ranges struct {
	X Range `json:"x"`
	Y Range `json:"y"`
	Z Range `json:"z"`
}

// FunctionKind classifies a NamedFunction by the shape of its body.
type FunctionKind string

const (
	FunctionScalar   FunctionKind = "scalar"
	FunctionVector   FunctionKind = "vector"
	FunctionTensor   FunctionKind = "tensor"
	FunctionConstant FunctionKind = "constant"
)

// NamedFunction is a user-defined function or constant. A constant has no
// params. Vector bodies are a bracketed triple, tensor bodies a 2x2 nested
// bracket block.
type NamedFunction struct {
	Name   string       `json:"name"`
	Kind   FunctionKind `json:"kind"`
	Params []string     `json:"params"`
	Body   string       `json:"body"`
	Line   int          `json:"line"`
}

// IsConstant reports whether the function takes no parameters.
func (f NamedFunction) IsConstant() bool {
	return len(f.Params) == 0
}

// PlotKind tags the Plot union.
type PlotKind string

const (
	PlotSurface PlotKind = "surface"
	PlotVector  PlotKind = "vector"
	PlotTensor  PlotKind = "tensor"
)

// Plot is a tagged union: exactly one of Surface, Vector, Tensor is set,
// matching Kind.
type Plot struct {
	Kind    PlotKind     `json:"kind"`
	Line    int          `json:"line"`
	Surface *SurfacePlot `json:"surface,omitempty"`
	Vector  *VectorPlot  `json:"vector,omitempty"`
	Tensor  *TensorPlot  `json:"tensor,omitempty"`
}

// SurfacePlot renders z = Expr(x, y).
type SurfacePlot struct {
	Expr     string `json:"expr"`
	Source   string `json:"source,omitempty"`   // text as written, when it differs from Expr
	Function string `json:"function,omitempty"` // function inlined into Expr, if any
	Implicit bool   `json:"implicit,omitempty"` // synthesized z=0 surface
}

// VectorPlot renders a vector-valued NamedFunction as a field of arrows.
type VectorPlot struct {
	Function string             `json:"function"`
	GridSize int                `json:"grid_size"`
	Physics  map[string]float64 `json:"physics,omitempty"`
}

// TensorPlot renders a 2x2 tensor NamedFunction as glyphs.
type TensorPlot struct {
	Function string `json:"function"`
	Glyph    string `json:"glyph"`
}

// Animation sweeps Param from From to To in increments of Step. Step > 0.
type Animation struct {
	Param string  `json:"param"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Step  float64 `json:"step"`
}

// Frames returns the number of animation frames, including both ends.
func (a Animation) Frames() int {
	if a.Step <= 0 {
		return 0
	}
	span := a.To - a.From
	if span < 0 {
		span = -span
	}
	return int(span/a.Step) + 1
}

// Value returns the parameter value at frame i.
func (a Animation) Value(i int) float64 {
	if a.To < a.From {
		return a.From - float64(i)*a.Step
	}
	return a.From + float64(i)*a.Step
}

// Contour is the ordered set of isoline thresholds.
type Contour struct {
	Levels []float64 `json:"levels"`
}

// Label is a text overlay whose text and position are evaluated per frame.
type Label struct {
	Text     string    `json:"text"`
	Position [3]string `json:"position"`
	Line     int       `json:"line"`
}

// ParticleConfig requests a particle overlay. 0 < Count <= MaxParticles.
type ParticleConfig struct {
	Count int `json:"count"`
}

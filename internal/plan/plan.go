// Package plan loads analysis plans and runs them against compiled
// programs.
//
// A plan names a G3D program (by path or inline) and lists the analyses to
// run over it: particle integration, streamline tracing, contour
// extraction, geodesic search and stability estimation. Plans are written
// in CUE or HCL; both decode to the same Plan value.
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/g3d/internal/ir"
	"github.com/roach88/g3d/internal/streamline"
)

// Kind names an analysis.
type Kind string

const (
	KindParticles   Kind = "particles"
	KindStreamlines Kind = "streamlines"
	KindContours    Kind = "contours"
	KindGeodesic    Kind = "geodesic"
	KindLyapunov    Kind = "lyapunov"
)

// Kinds lists every analysis kind in execution-report order.
var Kinds = []Kind{KindParticles, KindStreamlines, KindContours, KindGeodesic, KindLyapunov}

// MaxResolution is the largest grid resolution an analysis may request.
// Geodesic meshes grow with its square, stability fields with its square
// times the step count.
const MaxResolution = 512

// ErrUnsupportedFormat is returned by Load for files that are neither CUE
// nor HCL.
var ErrUnsupportedFormat = errors.New("unsupported plan format")

// Plan is a decoded plan file.
type Plan struct {
	Name     string     `json:"name,omitempty"`
	Source   string     `json:"source,omitempty"`  // program path, relative to the plan file
	Program  string     `json:"program,omitempty"` // inline program text
	Analyses []Analysis `json:"analyses"`
}

// Analysis configures one analysis. Zero values select the analysis
// defaults; fields that do not apply to Kind are ignored.
type Analysis struct {
	Kind       Kind      `json:"kind"`
	Steps      int       `json:"steps,omitempty"`
	Count      int       `json:"count,omitempty"`
	Seed       int64     `json:"seed,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Seeds      int       `json:"seeds,omitempty"`
	StepSize   float64   `json:"step_size,omitempty"`
	Levels     []float64 `json:"levels,omitempty"`
	Resolution int       `json:"resolution,omitempty"`
	From       []float64 `json:"from,omitempty"`
	To         []float64 `json:"to,omitempty"`
}

// PlanError describes an invalid plan. Pos is set for CUE plans.
type PlanError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *PlanError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the plan independently of its source format.
func (p *Plan) Validate() error {
	switch {
	case p.Source == "" && p.Program == "":
		return &PlanError{Field: "source", Message: "one of source or program is required"}
	case p.Source != "" && p.Program != "":
		return &PlanError{Field: "source", Message: "source and program are mutually exclusive"}
	case len(p.Analyses) == 0:
		return &PlanError{Field: "analyses", Message: "at least one analysis is required"}
	}
	for i, a := range p.Analyses {
		if err := a.validate(); err != nil {
			err.Field = fmt.Sprintf("analyses[%d].%s", i, err.Field)
			return err
		}
	}
	return nil
}

func (a Analysis) validate() *PlanError {
	known := false
	for _, k := range Kinds {
		known = known || a.Kind == k
	}
	if !known {
		return &PlanError{Field: "kind", Message: fmt.Sprintf("unknown analysis %q", a.Kind)}
	}
	if a.Steps < 0 || a.Seeds < 0 || a.Resolution < 0 || a.StepSize < 0 {
		return &PlanError{Field: string(a.Kind), Message: "numeric settings must not be negative"}
	}
	if a.Resolution != 0 && (a.Resolution < 2 || a.Resolution > MaxResolution) {
		return &PlanError{Field: "resolution", Message: fmt.Sprintf("resolution %d outside 2..%d", a.Resolution, MaxResolution)}
	}
	if a.Count < 0 || a.Count > ir.MaxParticles {
		return &PlanError{Field: "count", Message: fmt.Sprintf("particle count %d outside 0..%d", a.Count, ir.MaxParticles)}
	}
	if a.Strategy != "" {
		if _, err := streamline.ParseStrategy(a.Strategy); err != nil {
			return &PlanError{Field: "strategy", Message: err.Error()}
		}
	}
	if a.Kind == KindGeodesic {
		if len(a.From) != 2 {
			return &PlanError{Field: "from", Message: "geodesic endpoints are [x, y] pairs"}
		}
		if len(a.To) != 2 {
			return &PlanError{Field: "to", Message: "geodesic endpoints are [x, y] pairs"}
		}
	}
	return nil
}

// Load reads a plan file, choosing the decoder by extension. A relative
// Source is resolved against the plan file's directory.
func Load(path string) (*Plan, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	var p *Plan
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		p, err = ParseCUE(src, path)
	case ".hcl":
		p, err = ParseHCL(src, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	if p.Source != "" && !filepath.IsAbs(p.Source) {
		p.Source = filepath.Join(filepath.Dir(path), p.Source)
	}
	return p, nil
}

// ProgramText returns the inline program or the contents of Source.
func (p *Plan) ProgramText() (string, error) {
	if p.Program != "" {
		return p.Program, nil
	}
	b, err := os.ReadFile(p.Source)
	if err != nil {
		return "", fmt.Errorf("reading program: %w", err)
	}
	return string(b), nil
}

package plan

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/g3d/internal/eval"
	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/ir"
)

// Scene binds a compiled program to the sampled fields the analyses
// consume.
type Scene struct {
	Program *ir.Program
	Bounds  field.Bounds

	// Potential is the program's first surface.
	Potential field.ScalarFunc

	// Flow is the first declared vector field, or the negative gradient of
	// Potential when the program has none. FlowSource names which.
	Flow       field.VectorFunc
	FlowSource string

	evaluators []*eval.Evaluator
}

// NegGradient is the FlowSource of a scene without a vector plot.
const NegGradient = "-grad"

// NewScene binds p's functions and adapts its surface and vector field.
// An animated program starts at the first frame of its parameter.
func NewScene(p *ir.Program, logger *slog.Logger) (*Scene, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ev, err := eval.FromProgram(p, eval.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("binding functions: %w", err)
	}

	s := &Scene{Program: p, Bounds: field.BoundsOf(p)}

	// Each adapter owns a clone so sampling one never clobbers the other's
	// x and y.
	surfaceEv := ev.Clone()
	s.evaluators = append(s.evaluators, surfaceEv)
	if s.Potential, err = field.Surface(surfaceEv, p.Potential()); err != nil {
		return nil, fmt.Errorf("compiling surface: %w", err)
	}

	s.Flow = field.NegGradientField(s.Potential, field.DefaultStep)
	s.FlowSource = NegGradient
	for _, plot := range p.Plots {
		if plot.Kind != ir.PlotVector {
			continue
		}
		flowEv := ev.Clone()
		s.evaluators = append(s.evaluators, flowEv)
		if s.Flow, err = field.VectorField(flowEv, plot.Vector.Function); err != nil {
			return nil, err
		}
		s.FlowSource = plot.Vector.Function
		break
	}

	if p.Animation != nil {
		s.SetParam(p.Animation.From)
	}
	return s, nil
}

// SetParam assigns the animation parameter on every bound evaluator. It is
// a no-op for programs without an animation.
func (s *Scene) SetParam(v float64) {
	if s.Program.Animation == nil {
		return
	}
	for _, ev := range s.evaluators {
		ev.Set(s.Program.Animation.Param, v)
	}
}

// SetFrame moves the animation to frame i.
func (s *Scene) SetFrame(i int) {
	if s.Program.Animation != nil {
		s.SetParam(s.Program.Animation.Value(i))
	}
}

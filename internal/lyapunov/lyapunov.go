// Package lyapunov estimates finite-time Lyapunov exponents of the
// damped gradient-descent dynamics used by the particle integrator.
//
// Two trajectories start at rest, one at the query point and one displaced
// by Epsilon along x. After every step the estimator accumulates
// ln(d/Epsilon), where d is their planar separation, and reports the mean.
// Positive values mark diverging neighbourhoods, negative values
// converging ones.
package lyapunov

import (
	"io"
	"log/slog"
	"math"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/particles"
)

// Options holds the integration parameters of an estimate.
type Options struct {
	Steps    int     `json:"steps"`
	Epsilon  float64 `json:"epsilon"`
	Damping  float64 `json:"damping"`
	Coupling float64 `json:"coupling"`
	Dt       float64 `json:"dt"`
	GradStep float64 `json:"grad_step"`
}

// DefaultOptions uses the particle integrator's default dynamics.
func DefaultOptions() Options {
	return OptionsFrom(particles.DefaultConfig())
}

// OptionsFrom copies the dynamics of a particle configuration.
func OptionsFrom(cfg particles.Config) Options {
	return Options{
		Steps:    200,
		Epsilon:  1e-6,
		Damping:  cfg.Damping,
		Coupling: cfg.Coupling,
		Dt:       cfg.Dt,
		GradStep: cfg.GradStep,
	}
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger used for grid summaries.
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// Estimator computes exponents for one potential.
type Estimator struct {
	potential field.ScalarFunc
	opts      Options
	logger    *slog.Logger
}

// New returns an Estimator for potential.
func New(potential field.ScalarFunc, opts Options, options ...Option) *Estimator {
	e := &Estimator{
		potential: potential,
		opts:      opts,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Options returns the integration parameters.
func (e *Estimator) Options() Options {
	return e.opts
}

type state struct {
	pos, vel field.Vec2
}

// dynamics returns the particle equation of motion for these options.
func (o Options) dynamics() particles.Dynamics {
	return particles.Dynamics{Damping: o.Damping, Coupling: o.Coupling, Dt: o.Dt}
}

// step advances s under the particle dynamics with no boundary handling.
func (e *Estimator) step(s state) state {
	g := field.Gradient(e.potential, s.pos.X, s.pos.Y, e.opts.GradStep)
	s.pos, s.vel = e.opts.dynamics().Advance(s.pos, s.vel, g)
	return s
}

// Estimate returns the exponent at (x, y). Accumulation stops at the first
// step whose log-separation is not finite; if that is the first step the
// result is 0.
func (e *Estimator) Estimate(x, y float64) float64 {
	eps := e.opts.Epsilon
	if eps <= 0 || e.opts.Steps <= 0 {
		return 0
	}
	a := state{pos: field.Vec2{X: x, Y: y}}
	b := state{pos: field.Vec2{X: x + eps, Y: y}}

	var sum float64
	var n int
	for i := 0; i < e.opts.Steps; i++ {
		a, b = e.step(a), e.step(b)
		l := math.Log(a.pos.Dist(b.pos) / eps)
		if !field.Finite(l) {
			break
		}
		sum += l
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Sample is one grid point of a stability field.
type Sample struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Exponent float64 `json:"exponent"`
}

// Field is a stability field over an N×N grid, row by row from the
// domain's minimum corner.
type Field struct {
	N       int      `json:"n"`
	Samples []Sample `json:"samples"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
}

// At returns the sample in column i of row j.
func (f *Field) At(i, j int) Sample {
	return f.Samples[j*f.N+i]
}

// Field estimates the exponent at every point of an n×n grid over b.
// Cost grows as n² × Steps.
func (e *Estimator) Field(b field.Bounds, n int) *Field {
	if n < 1 {
		n = 1
	}
	pts := b.Grid(n)
	out := &Field{
		N:       n,
		Samples: make([]Sample, len(pts)),
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
	}
	for i, p := range pts {
		v := e.Estimate(p.X, p.Y)
		out.Samples[i] = Sample{X: p.X, Y: p.Y, Exponent: v}
		out.Min = math.Min(out.Min, v)
		out.Max = math.Max(out.Max, v)
	}
	e.logger.Debug("stability field computed", "n", out.N, "min", out.Min, "max", out.Max)
	return out
}

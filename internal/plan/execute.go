package plan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/g3d/internal/contour"
	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/geodesic"
	"github.com/roach88/g3d/internal/ir"
	"github.com/roach88/g3d/internal/lyapunov"
	"github.com/roach88/g3d/internal/particles"
	"github.com/roach88/g3d/internal/streamline"
)

// Analysis defaults used when a plan leaves a setting at zero.
const (
	DefaultParticleSteps    = 300
	DefaultGeodesicRes      = 40
	DefaultLyapunovRes      = 12
	DefaultContourTolerance = 1e-9
)

// Report is the outcome of executing a plan.
type Report struct {
	Plan        string   `json:"plan,omitempty"`
	ProgramHash string   `json:"program_hash"`
	Results     []Result `json:"results"`
}

// Result holds the outcome of one analysis. Exactly one payload is set,
// matching Kind.
type Result struct {
	Kind      Kind    `json:"kind"`
	ElapsedMS float64 `json:"elapsed_ms"`

	Particles   *ParticlesResult   `json:"particles,omitempty"`
	Streamlines *StreamlinesResult `json:"streamlines,omitempty"`
	Contours    *ContoursResult    `json:"contours,omitempty"`
	Geodesic    *geodesic.Path     `json:"geodesic,omitempty"`
	Lyapunov    *lyapunov.Field    `json:"lyapunov,omitempty"`
}

// ParticlesResult summarizes a particle run by its final frame.
type ParticlesResult struct {
	Config particles.Config `json:"config"`
	Final  particles.Frame  `json:"final"`
}

// StreamlinesResult summarizes traced streamlines.
type StreamlinesResult struct {
	Flow        string              `json:"flow"`
	Strategy    string              `json:"strategy"`
	Traces      []field.TraceSample `json:"traces"`
	TotalLength float64             `json:"total_length"`
}

// ContoursResult holds chained isolines per level.
type ContoursResult struct {
	Resolution int           `json:"resolution"`
	Levels     []LevelResult `json:"levels"`
}

// LevelResult is the isolines of one level.
type LevelResult struct {
	Value    float64 `json:"value"`
	Segments int     `json:"segments"`
	Lines    int     `json:"lines"`
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger. It is also handed to the
// evaluator and the analyses.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Executor runs plans.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor returns an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every analysis of p against prog in order. Cancellation is
// checked between analyses.
func (e *Executor) Execute(ctx context.Context, p *Plan, prog *ir.Program) (*Report, error) {
	hash, err := ir.ProgramHash(prog)
	if err != nil {
		return nil, err
	}
	scene, err := NewScene(prog, e.logger)
	if err != nil {
		return nil, err
	}

	report := &Report{Plan: p.Name, ProgramHash: hash, Results: make([]Result, 0, len(p.Analyses))}
	for i, a := range p.Analyses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		res, err := e.run(scene, a)
		if err != nil {
			return nil, fmt.Errorf("analysis %d (%s): %w", i, a.Kind, err)
		}
		res.Kind = a.Kind
		res.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000
		e.logger.Info("analysis finished", "index", i, "kind", a.Kind, "elapsed_ms", res.ElapsedMS)
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (e *Executor) run(s *Scene, a Analysis) (Result, error) {
	switch a.Kind {
	case KindParticles:
		return Result{Particles: e.runParticles(s, a)}, nil
	case KindStreamlines:
		r, err := e.runStreamlines(s, a)
		return Result{Streamlines: r}, err
	case KindContours:
		return Result{Contours: runContours(s, a)}, nil
	case KindGeodesic:
		r, err := e.runGeodesic(s, a)
		return Result{Geodesic: r}, err
	case KindLyapunov:
		return Result{Lyapunov: e.runLyapunov(s, a)}, nil
	}
	return Result{}, &PlanError{Field: "kind", Message: fmt.Sprintf("unknown analysis %q", a.Kind)}
}

func (e *Executor) runParticles(s *Scene, a Analysis) *ParticlesResult {
	cfg := particles.ConfigFor(s.Program)
	if a.Count > 0 {
		cfg.Count = a.Count
	}
	if a.Seed != 0 {
		cfg.Seed = a.Seed
	}
	steps := a.Steps
	if steps == 0 {
		steps = DefaultParticleSteps
	}
	cache := field.NewGradientCache(s.Potential, cfg.GradStep, field.WithCacheLogger(e.logger))
	sys := particles.New(s.Potential, s.Bounds, cfg,
		particles.WithLogger(e.logger),
		particles.WithGradientCache(cache),
	)
	sys.Run(steps)
	return &ParticlesResult{Config: cfg, Final: sys.Snapshot()}
}

func (e *Executor) runStreamlines(s *Scene, a Analysis) (*StreamlinesResult, error) {
	opts := streamline.DefaultOptions()
	if a.Strategy != "" {
		st, err := streamline.ParseStrategy(a.Strategy)
		if err != nil {
			return nil, err
		}
		opts.Strategy = st
	}
	if a.Seeds > 0 {
		opts.SeedCount = a.Seeds
	}
	if a.StepSize > 0 {
		opts.StepSize = a.StepSize
	}
	if a.Steps > 0 {
		opts.MaxSteps = a.Steps
	}
	if a.Seed != 0 {
		opts.Seed = a.Seed
	}
	if a.Resolution > 0 {
		opts.ScanResolution = a.Resolution
	}

	tr := streamline.New(s.Flow, s.Bounds, opts,
		streamline.WithSurface(s.Potential),
		streamline.WithLogger(e.logger),
	)
	traces, err := tr.TraceAll()
	if err != nil {
		return nil, err
	}
	res := &StreamlinesResult{Flow: s.FlowSource, Strategy: string(opts.Strategy), Traces: traces}
	for _, t := range traces {
		res.TotalLength += t.Length()
	}
	return res, nil
}

func runContours(s *Scene, a Analysis) *ContoursResult {
	levels := a.Levels
	if len(levels) == 0 && s.Program.Contour != nil {
		levels = s.Program.Contour.Levels
	}
	n := a.Resolution
	if n == 0 {
		n = contour.DefaultResolution
	}
	res := &ContoursResult{Resolution: n, Levels: []LevelResult{}}
	for _, lv := range contour.Extract(s.Potential, s.Bounds, levels, n) {
		res.Levels = append(res.Levels, LevelResult{
			Value:    lv.Value,
			Segments: len(lv.Segments),
			Lines:    len(contour.Polylines(lv.Segments, DefaultContourTolerance)),
		})
	}
	return res
}

func (e *Executor) runGeodesic(s *Scene, a Analysis) (*geodesic.Path, error) {
	n := a.Resolution
	if n == 0 {
		n = DefaultGeodesicRes
	}
	pf, err := geodesic.NewPathfinder(geodesic.SampleSurface(s.Potential, s.Bounds, n), geodesic.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	lift := func(xy []float64) field.Vec3 {
		return field.Vec3{X: xy[0], Y: xy[1], Z: s.Potential(xy[0], xy[1])}
	}
	return pf.Path(lift(a.From), lift(a.To))
}

func (e *Executor) runLyapunov(s *Scene, a Analysis) *lyapunov.Field {
	opts := lyapunov.OptionsFrom(particles.ConfigFor(s.Program))
	if a.Steps > 0 {
		opts.Steps = a.Steps
	}
	n := a.Resolution
	if n == 0 {
		n = DefaultLyapunovRes
	}
	return lyapunov.New(s.Potential, opts, lyapunov.WithLogger(e.logger)).Field(s.Bounds, n)
}

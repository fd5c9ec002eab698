// Package particles integrates point masses descending a scalar potential.
//
// Each step applies damped gradient descent,
//
//	a = -γ·v - α·∇φ
//
// updating velocity before position. Particles that leave the domain are
// clamped to the boundary with an inelastic bounce, and particles whose
// state becomes non-finite are respawned near a fixed anchor.
package particles

import (
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/ir"
)

// Config holds the integration parameters.
type Config struct {
	Count       int     `json:"count"`
	Damping     float64 `json:"damping"`     // γ
	Coupling    float64 `json:"coupling"`    // α
	Dt          float64 `json:"dt"`          // time step
	Restitution float64 `json:"restitution"` // fraction of speed kept on a bounce
	TrailLength int     `json:"trail_length"`
	GradStep    float64 `json:"grad_step"`
	Seed        int64   `json:"seed"`
}

// DefaultConfig returns the parameters used when a program sets none.
func DefaultConfig() Config {
	return Config{
		Count:       100,
		Damping:     0.1,
		Coupling:    1.0,
		Dt:          0.016,
		Restitution: 0.8,
		TrailLength: 50,
		GradStep:    field.DefaultStep,
		Seed:        1,
	}
}

// ConfigFor derives a Config from a program: the PARTICLES count and the
// PHYSICS parameters of the first vector plot that declares any.
func ConfigFor(p *ir.Program) Config {
	cfg := DefaultConfig()
	if p.Particles != nil {
		cfg.Count = p.Particles.Count
	}
	for _, plot := range p.Plots {
		if plot.Kind != ir.PlotVector || len(plot.Vector.Physics) == 0 {
			continue
		}
		for k, v := range plot.Vector.Physics {
			switch k {
			case "damping":
				cfg.Damping = v
			case "coupling":
				cfg.Coupling = v
			case "dt":
				cfg.Dt = v
			case "restitution":
				cfg.Restitution = v
			}
		}
		break
	}
	return cfg
}

// Dynamics is the boundary-free equation of motion. Other integrators of
// the same descent (stability estimates) step through it too.
type Dynamics struct {
	Damping  float64
	Coupling float64
	Dt       float64
}

// Dynamics returns the equation of motion configured by c.
func (c Config) Dynamics() Dynamics {
	return Dynamics{Damping: c.Damping, Coupling: c.Coupling, Dt: c.Dt}
}

// Advance applies one semi-implicit Euler step under the potential
// gradient g, updating velocity before position.
func (d Dynamics) Advance(pos, vel, g field.Vec2) (field.Vec2, field.Vec2) {
	acc := vel.Scale(-d.Damping).Sub(g.Scale(d.Coupling))
	vel = vel.Add(acc.Scale(d.Dt))
	return pos.Add(vel.Scale(d.Dt)), vel
}

// Particle is one simulated point mass.
type Particle struct {
	ID    int          `json:"id"`
	Pos   field.Vec2   `json:"pos"`
	Vel   field.Vec2   `json:"vel"`
	Trail []field.Vec3 `json:"trail"`
}

// Option configures a System.
type Option func(*System)

// WithLogger sets the logger that records respawns.
func WithLogger(l *slog.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGradientCache samples gradients through c instead of computing them
// on every step.
func WithGradientCache(c *field.GradientCache) Option {
	return func(s *System) {
		if c != nil {
			s.grad = c.Gradient
		}
	}
}

// System is a particle population bound to one potential and domain.
// It is not safe for concurrent use.
type System struct {
	cfg       Config
	potential field.ScalarFunc
	bounds    field.Bounds
	grad      func(x, y float64) field.Vec2
	rng       *rand.Rand
	anchors   []field.Vec2
	particles []Particle
	steps     int
	respawns  int
	logger    *slog.Logger
}

// New seeds cfg.Count particles uniformly over the planar domain at rest.
func New(potential field.ScalarFunc, bounds field.Bounds, cfg Config, opts ...Option) *System {
	s := &System{
		cfg:       cfg,
		potential: potential,
		bounds:    bounds,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s.grad = func(x, y float64) field.Vec2 {
		return field.Gradient(potential, x, y, cfg.GradStep)
	}
	for _, opt := range opts {
		opt(s)
	}

	// Respawn anchors: the center and the four quarter points.
	for _, t := range [][2]float64{{0.5, 0.5}, {0.25, 0.25}, {0.75, 0.25}, {0.25, 0.75}, {0.75, 0.75}} {
		s.anchors = append(s.anchors, field.Vec2{X: bounds.X.Lerp(t[0]), Y: bounds.Y.Lerp(t[1])})
	}

	s.particles = make([]Particle, cfg.Count)
	for i := range s.particles {
		p := &s.particles[i]
		p.ID = i
		p.Pos = field.Vec2{
			X: bounds.X.Lerp(s.rng.Float64()),
			Y: bounds.Y.Lerp(s.rng.Float64()),
		}
		s.record(p)
	}
	return s
}

// Step advances every particle by one time step.
func (s *System) Step() {
	for i := range s.particles {
		s.advance(&s.particles[i])
	}
	s.steps++
}

// Run advances n steps.
func (s *System) Run(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

func (s *System) advance(p *Particle) {
	c := s.cfg
	g := s.grad(p.Pos.X, p.Pos.Y)
	p.Pos, p.Vel = c.Dynamics().Advance(p.Pos, p.Vel, g)

	p.Pos.X, p.Vel.X = bounce(p.Pos.X, p.Vel.X, s.bounds.X, c.Restitution)
	p.Pos.Y, p.Vel.Y = bounce(p.Pos.Y, p.Vel.Y, s.bounds.Y, c.Restitution)

	if !p.Pos.Finite() || !p.Vel.Finite() {
		s.respawn(p)
	}
	s.record(p)
}

// bounce clamps pos into r and reflects an outgoing velocity, keeping
// the restitution fraction of its speed.
func bounce(pos, vel float64, r ir.Range, restitution float64) (float64, float64) {
	switch {
	case pos < r.Min:
		return r.Min, -vel * restitution
	case pos > r.Max:
		return r.Max, -vel * restitution
	}
	return pos, vel
}

// respawn places p near a random anchor with a small tangential velocity
// and clears its trail.
func (s *System) respawn(p *Particle) {
	anchor := s.anchors[s.rng.Intn(len(s.anchors))]
	angle := s.rng.Float64() * 2 * math.Pi
	radius := 0.05 * math.Min(s.bounds.X.Span(), s.bounds.Y.Span()) * (0.5 + s.rng.Float64())
	dir := field.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}

	p.Pos = field.Vec2{
		X: s.bounds.X.Clamp(anchor.X + dir.X*radius),
		Y: s.bounds.Y.Clamp(anchor.Y + dir.Y*radius),
	}
	p.Vel = field.Vec2{X: -dir.Y, Y: dir.X}.Scale(0.1)
	p.Trail = p.Trail[:0]

	s.respawns++
	s.logger.Debug("particle respawned", "id", p.ID, "step", s.steps, "respawns", s.respawns)
}

// record appends the current position to the trail, lifted onto the
// potential surface, evicting the oldest point past the cap.
func (s *System) record(p *Particle) {
	if s.cfg.TrailLength <= 0 {
		return
	}
	z := field.Safe(s.potential(p.Pos.X, p.Pos.Y), 0)
	p.Trail = append(p.Trail, p.Pos.WithZ(z))
	if over := len(p.Trail) - s.cfg.TrailLength; over > 0 {
		p.Trail = append(p.Trail[:0], p.Trail[over:]...)
	}
}

// Particles returns the live population. Callers must not modify it.
func (s *System) Particles() []Particle {
	return s.particles
}

// Steps returns the number of steps taken.
func (s *System) Steps() int {
	return s.steps
}

// Respawns returns how many safety respawns have occurred.
func (s *System) Respawns() int {
	return s.respawns
}

// Config returns the integration parameters.
func (s *System) Config() Config {
	return s.cfg
}

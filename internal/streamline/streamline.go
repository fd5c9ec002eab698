// Package streamline traces integral curves of planar vector fields with
// fixed-step fourth-order Runge–Kutta.
package streamline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/roach88/g3d/internal/field"
)

// Strategy selects how seed points are placed.
type Strategy string

const (
	StrategyRandom        Strategy = "random"
	StrategyGrid          Strategy = "grid"
	StrategyCriticalPoint Strategy = "critical-point"
	StrategyBoundary      Strategy = "boundary"
)

// ErrUnknownStrategy is returned for a seeding strategy outside the set above.
var ErrUnknownStrategy = errors.New("unknown seeding strategy")

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyRandom, StrategyGrid, StrategyCriticalPoint, StrategyBoundary:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Options configures seeding and integration.
type Options struct {
	Strategy     Strategy `json:"strategy"`
	SeedCount    int      `json:"seed_count"`    // upper bound on seeds
	StepSize     float64  `json:"step_size"`     // RK4 step
	MaxSteps     int      `json:"max_steps"`     // per trace
	MinMagnitude float64  `json:"min_magnitude"` // stop when |V| falls below
	Seed         int64    `json:"seed"`          // random strategy RNG seed

	// Critical-point seeding. A scan sample is critical when its magnitude
	// is a local minimum below CriticalFraction of the largest sample; each
	// critical sample is ringed with RingSize seeds.
	ScanResolution   int     `json:"scan_resolution"`
	CriticalFraction float64 `json:"critical_fraction"`
	RingSize         int     `json:"ring_size"`
	RingRadiusFrac   float64 `json:"ring_radius_frac"`
}

// DefaultOptions returns grid seeding with settings suited to a 10×10 domain.
func DefaultOptions() Options {
	return Options{
		Strategy:         StrategyGrid,
		SeedCount:        64,
		StepSize:         0.05,
		MaxSteps:         500,
		MinMagnitude:     1e-4,
		Seed:             1,
		ScanResolution:   40,
		CriticalFraction: 0.05,
		RingSize:         6,
		RingRadiusFrac:   0.03,
	}
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithSurface lifts traced points onto z = f(x, y). Without it z is 0.
func WithSurface(f field.ScalarFunc) Option {
	return func(t *Tracer) { t.surface = f }
}

// WithLogger sets the tracer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracer) {
		if l != nil {
			t.logger = l
		}
	}
}

// Tracer integrates streamlines of one field over one domain.
type Tracer struct {
	field   field.VectorFunc
	bounds  field.Bounds
	opts    Options
	surface field.ScalarFunc
	logger  *slog.Logger
}

// New returns a Tracer for the planar part of f.
func New(f field.VectorFunc, bounds field.Bounds, opts Options, o ...Option) *Tracer {
	t := &Tracer{
		field:  field.SafeVector(f),
		bounds: bounds,
		opts:   opts,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range o {
		fn(t)
	}
	return t
}

func (t *Tracer) velocity(p field.Vec2) field.Vec2 {
	v := t.field(p.WithZ(0))
	return field.Vec2{X: v.X, Y: v.Y}
}

// rk4 advances p by one step of size h.
func (t *Tracer) rk4(p field.Vec2, h float64) field.Vec2 {
	k1 := t.velocity(p)
	k2 := t.velocity(p.Add(k1.Scale(h / 2)))
	k3 := t.velocity(p.Add(k2.Scale(h / 2)))
	k4 := t.velocity(p.Add(k3.Scale(h)))
	sum := k1.Add(k2.Scale(2)).Add(k3.Scale(2)).Add(k4)
	return p.Add(sum.Scale(h / 6))
}

// Trace integrates from seed until the curve leaves the domain, the field
// magnitude drops below MinMagnitude, or MaxSteps is reached.
func (t *Tracer) Trace(seed field.Vec2) field.TraceSample {
	var pts []field.Vec2
	var mags []float64

	p := seed
	if !t.bounds.Contains(p.X, p.Y) {
		return field.TraceSample{}
	}
	for step := 0; ; step++ {
		mag := t.velocity(p).Len()
		pts = append(pts, p)
		mags = append(mags, mag)
		if mag < t.opts.MinMagnitude || step >= t.opts.MaxSteps {
			break
		}
		next := t.rk4(p, t.opts.StepSize)
		if !next.Finite() || !t.bounds.Contains(next.X, next.Y) {
			break
		}
		p = next
	}

	out := field.TraceSample{
		Points:     make([]field.Vec3, len(pts)),
		Magnitudes: mags,
		Aux:        Curvature(pts),
	}
	for i, q := range pts {
		z := 0.0
		if t.surface != nil {
			z = field.Safe(t.surface(q.X, q.Y), 0)
		}
		out.Points[i] = q.WithZ(z)
	}
	return out
}

// TraceAll seeds according to the configured strategy and traces from
// every seed. Traces with fewer than two points are dropped.
func (t *Tracer) TraceAll() ([]field.TraceSample, error) {
	seeds, err := t.Seeds()
	if err != nil {
		return nil, err
	}
	var out []field.TraceSample
	for _, s := range seeds {
		tr := t.Trace(s)
		if tr.Len() < 2 {
			continue
		}
		out = append(out, tr)
	}
	t.logger.Debug("streamlines traced", "strategy", t.opts.Strategy, "seeds", len(seeds), "traces", len(out))
	return out, nil
}

// Curvature estimates discrete curvature at each point as the sine of the
// turning angle between adjacent segments divided by their mean length.
// End points and degenerate segments get 0.
func Curvature(pts []field.Vec2) []float64 {
	out := make([]float64, len(pts))
	for i := 1; i+1 < len(pts); i++ {
		a := pts[i].Sub(pts[i-1])
		b := pts[i+1].Sub(pts[i])
		la, lb := a.Len(), b.Len()
		if la == 0 || lb == 0 {
			continue
		}
		sin := math.Abs(a.Cross(b)) / (la * lb)
		out[i] = sin / ((la + lb) / 2)
	}
	return out
}

// Seeds generates seed points for the configured strategy.
func (t *Tracer) Seeds() ([]field.Vec2, error) {
	n := max(t.opts.SeedCount, 1)
	switch t.opts.Strategy {
	case StrategyRandom:
		return t.randomSeeds(n), nil
	case StrategyGrid:
		return t.gridSeeds(n), nil
	case StrategyBoundary:
		return t.boundarySeeds(n), nil
	case StrategyCriticalPoint:
		seeds := t.criticalSeeds(n)
		if len(seeds) == 0 {
			t.logger.Debug("no critical points found, falling back to grid seeding")
			return t.gridSeeds(n), nil
		}
		return seeds, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, t.opts.Strategy)
}

func (t *Tracer) randomSeeds(n int) []field.Vec2 {
	rng := rand.New(rand.NewSource(t.opts.Seed))
	out := make([]field.Vec2, n)
	for i := range out {
		out[i] = field.Vec2{X: t.bounds.X.Lerp(rng.Float64()), Y: t.bounds.Y.Lerp(rng.Float64())}
	}
	return out
}

// gridSeeds places seeds at cell centers of the largest square grid with
// at most n cells.
func (t *Tracer) gridSeeds(n int) []field.Vec2 {
	side := max(int(math.Sqrt(float64(n))), 1)
	out := make([]field.Vec2, 0, side*side)
	for j := 0; j < side; j++ {
		for i := 0; i < side; i++ {
			out = append(out, field.Vec2{
				X: t.bounds.X.Lerp((float64(i) + 0.5) / float64(side)),
				Y: t.bounds.Y.Lerp((float64(j) + 0.5) / float64(side)),
			})
		}
	}
	return out
}

// boundarySeeds spaces n seeds evenly around the domain perimeter.
func (t *Tracer) boundarySeeds(n int) []field.Vec2 {
	w, h := t.bounds.X.Span(), t.bounds.Y.Span()
	perimeter := 2 * (w + h)
	out := make([]field.Vec2, n)
	for i := range out {
		d := perimeter * (float64(i) + 0.5) / float64(n)
		var p field.Vec2
		switch {
		case d < w:
			p = field.Vec2{X: t.bounds.X.Min + d, Y: t.bounds.Y.Min}
		case d < w+h:
			p = field.Vec2{X: t.bounds.X.Max, Y: t.bounds.Y.Min + (d - w)}
		case d < 2*w+h:
			p = field.Vec2{X: t.bounds.X.Max - (d - w - h), Y: t.bounds.Y.Max}
		default:
			p = field.Vec2{X: t.bounds.X.Min, Y: t.bounds.Y.Max - (d - 2*w - h)}
		}
		out[i] = p
	}
	return out
}

// criticalSeeds scans the domain for samples whose magnitude is a local
// minimum below CriticalFraction of the largest sampled magnitude, then
// rings each with RingSize seeds. At most n seeds are returned.
func (t *Tracer) criticalSeeds(n int) []field.Vec2 {
	res := max(t.opts.ScanResolution, 3)
	pts := t.bounds.Grid(res)
	mags := make([]float64, len(pts))
	peak := 0.0
	for i, p := range pts {
		mags[i] = t.velocity(p).Len()
		peak = math.Max(peak, mags[i])
	}
	if peak == 0 {
		return nil
	}
	threshold := t.opts.CriticalFraction * peak
	radius := t.opts.RingRadiusFrac * math.Min(t.bounds.X.Span(), t.bounds.Y.Span())
	ring := max(t.opts.RingSize, 1)

	var out []field.Vec2
	for j := 0; j < res; j++ {
		for i := 0; i < res; i++ {
			idx := j*res + i
			if mags[idx] > threshold || !localMin(mags, res, i, j) {
				continue
			}
			c := pts[idx]
			t.logger.Debug("critical point", "x", c.X, "y", c.Y, "magnitude", mags[idx])
			for k := 0; k < ring; k++ {
				a := 2 * math.Pi * float64(k) / float64(ring)
				out = append(out, field.Vec2{
					X: t.bounds.X.Clamp(c.X + radius*math.Cos(a)),
					Y: t.bounds.Y.Clamp(c.Y + radius*math.Sin(a)),
				})
				if len(out) == n {
					return out
				}
			}
		}
	}
	return out
}

func localMin(mags []float64, res, i, j int) bool {
	v := mags[j*res+i]
	for dj := -1; dj <= 1; dj++ {
		for di := -1; di <= 1; di++ {
			ni, nj := i+di, j+dj
			if (di == 0 && dj == 0) || ni < 0 || nj < 0 || ni >= res || nj >= res {
				continue
			}
			if mags[nj*res+ni] < v {
				return false
			}
		}
	}
	return true
}

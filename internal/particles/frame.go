package particles

import "github.com/roach88/g3d/internal/field"

// Frame is a point-in-time copy of the population, suitable for
// serialization to a renderer.
type Frame struct {
	Step      int             `json:"step"`
	Time      float64         `json:"time"`
	Respawns  int             `json:"respawns"`
	Particles []ParticleState `json:"particles"`
}

// ParticleState is the renderable state of one particle. Z is the
// potential at its position.
type ParticleState struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Snapshot copies the current state of every particle.
func (s *System) Snapshot() Frame {
	f := Frame{
		Step:      s.steps,
		Time:      float64(s.steps) * s.cfg.Dt,
		Respawns:  s.respawns,
		Particles: make([]ParticleState, len(s.particles)),
	}
	for i, p := range s.particles {
		f.Particles[i] = ParticleState{
			ID: p.ID,
			X:  p.Pos.X,
			Y:  p.Pos.Y,
			Z:  field.Safe(s.potential(p.Pos.X, p.Pos.Y), 0),
			VX: p.Vel.X,
			VY: p.Vel.Y,
		}
	}
	return f
}

// Trails copies every particle's trail.
func (s *System) Trails() []field.TraceSample {
	out := make([]field.TraceSample, len(s.particles))
	for i, p := range s.particles {
		pts := make([]field.Vec3, len(p.Trail))
		copy(pts, p.Trail)
		mags := make([]float64, len(pts))
		for j, q := range pts {
			mags[j] = s.grad(q.X, q.Y).Len()
		}
		out[i] = field.TraceSample{Points: pts, Magnitudes: mags}
	}
	return out
}

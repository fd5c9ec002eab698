// Package publish streams simulation output to a renderer over socket.io.
//
// A Publisher wraps an Emitter and sends two events: "frame", carrying a
// particle snapshot, and "traces", carrying a batch of traced curves
// (streamlines, isolines, geodesics) to overlay.
package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/particles"
)

// Event names.
const (
	EventFrame  = "frame"
	EventTraces = "traces"
)

// Emitter sends named events with a JSON-serializable payload.
type Emitter interface {
	Emit(event string, payload any) error
	Close() error
}

// FrameMessage is the payload of a frame event.
type FrameMessage struct {
	ProgramHash string          `json:"program_hash,omitempty"`
	Seq         int             `json:"seq"`
	Frame       particles.Frame `json:"frame"`
}

// TracesMessage is the payload of a traces event.
type TracesMessage struct {
	ProgramHash string              `json:"program_hash,omitempty"`
	Seq         int                 `json:"seq"`
	Kind        string              `json:"kind"`
	Traces      []field.TraceSample `json:"traces"`
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithProgramHash tags every message with the program's IR hash.
func WithProgramHash(h string) Option {
	return func(p *Publisher) { p.programHash = h }
}

// WithLogger sets the publisher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// Publisher sends frames and traces through an Emitter. Messages carry a
// per-publisher sequence number starting at 1.
type Publisher struct {
	em          Emitter
	programHash string
	seq         int
	logger      *slog.Logger
}

// New returns a Publisher over em.
func New(em Emitter, opts ...Option) *Publisher {
	p := &Publisher{
		em:     em,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sent returns how many messages have been emitted.
func (p *Publisher) Sent() int {
	return p.seq
}

// PublishFrame emits one particle frame.
func (p *Publisher) PublishFrame(f particles.Frame) error {
	p.seq++
	msg := FrameMessage{ProgramHash: p.programHash, Seq: p.seq, Frame: f}
	if err := p.em.Emit(EventFrame, msg); err != nil {
		return fmt.Errorf("emit frame %d: %w", f.Step, err)
	}
	p.logger.Debug("frame published", "seq", p.seq, "step", f.Step, "particles", len(f.Particles))
	return nil
}

// PublishTraces emits a batch of curves of one kind.
func (p *Publisher) PublishTraces(kind string, traces []field.TraceSample) error {
	p.seq++
	msg := TracesMessage{ProgramHash: p.programHash, Seq: p.seq, Kind: kind, Traces: traces}
	if err := p.em.Emit(EventTraces, msg); err != nil {
		return fmt.Errorf("emit %s traces: %w", kind, err)
	}
	p.logger.Debug("traces published", "seq", p.seq, "kind", kind, "count", len(traces))
	return nil
}

// Stream advances sys by steps, publishing the initial frame and then one
// frame every `every` steps, plus the final frame if it was not already
// sent. Cancellation is checked before every step.
func (p *Publisher) Stream(ctx context.Context, sys *particles.System, steps, every int) error {
	if every < 1 {
		every = 1
	}
	if err := p.PublishFrame(sys.Snapshot()); err != nil {
		return err
	}
	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sys.Step()
		if i%every == 0 || i == steps {
			if err := p.PublishFrame(sys.Snapshot()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the underlying Emitter.
func (p *Publisher) Close() error {
	return p.em.Close()
}

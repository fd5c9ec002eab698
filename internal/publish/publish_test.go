package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/g3d/internal/field"
	"github.com/roach88/g3d/internal/particles"
	"github.com/roach88/g3d/internal/testutil"
)

type emitted struct {
	event   string
	payload any
}

type recorder struct {
	events []emitted
	failAt int
	closed bool
}

func (r *recorder) Emit(event string, payload any) error {
	if r.failAt > 0 && len(r.events)+1 == r.failAt {
		return errors.New("socket closed")
	}
	r.events = append(r.events, emitted{event, payload})
	return nil
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func newSystem() *particles.System {
	cfg := particles.DefaultConfig()
	cfg.Count = 5
	return particles.New(testutil.Bowl, testutil.Square(2), cfg)
}

func TestStreamPublishesEveryNthStep(t *testing.T) {
	rec := &recorder{}
	p := New(rec, WithProgramHash("abc"))

	require.NoError(t, p.Stream(context.Background(), newSystem(), 10, 4))

	// Initial frame, steps 4 and 8, and the final step 10.
	require.Len(t, rec.events, 4)
	var steps []int
	for i, e := range rec.events {
		assert.Equal(t, EventFrame, e.event)
		msg := e.payload.(FrameMessage)
		assert.Equal(t, "abc", msg.ProgramHash)
		assert.Equal(t, i+1, msg.Seq)
		assert.Len(t, msg.Frame.Particles, 5)
		steps = append(steps, msg.Frame.Step)
	}
	assert.Equal(t, []int{0, 4, 8, 10}, steps)
	assert.Equal(t, 4, p.Sent())
}

func TestStreamStopsOnEmitError(t *testing.T) {
	rec := &recorder{failAt: 2}
	p := New(rec)

	err := p.Stream(context.Background(), newSystem(), 10, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "emit frame 1")
}

func TestStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	err := New(rec).Stream(ctx, newSystem(), 10, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.events, 1, "the initial frame is sent before the first check")
}

func TestPublishTraces(t *testing.T) {
	rec := &recorder{}
	p := New(rec)
	tr := []field.TraceSample{{Points: []field.Vec3{{}, {X: 1}}, Magnitudes: []float64{1, 1}}}

	require.NoError(t, p.PublishTraces("streamlines", tr))
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventTraces, rec.events[0].event)
	msg := rec.events[0].payload.(TracesMessage)
	assert.Equal(t, "streamlines", msg.Kind)
	assert.Equal(t, 1, msg.Seq)
	assert.Len(t, msg.Traces, 1)

	require.NoError(t, p.Close())
	assert.True(t, rec.closed)
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), "not a url", DialOptions{})
	assert.Error(t, err)
}

func TestDialUnreachable(t *testing.T) {
	_, err := Dial(context.Background(), "http://127.0.0.1:1/socket.io/", DialOptions{Timeout: 300 * time.Millisecond})
	assert.Error(t, err)
}

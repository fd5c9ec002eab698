package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock(t *testing.T) {
	c := NewStepClock(0)
	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Second), c.Now())
	assert.Equal(t, int64(2), c.Calls())

	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestStepClockConcurrent(t *testing.T) {
	c := NewStepClock(time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Calls())
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "run-0001", g.Generate())
	assert.Equal(t, "run-0002", g.Generate())

	g = NewSequentialIDs("plan")
	assert.Equal(t, "plan-0001", g.Generate())
}

func TestSquare(t *testing.T) {
	b := Square(2)
	assert.Equal(t, -2.0, b.X.Min)
	assert.Equal(t, 2.0, b.Y.Max)
	assert.Equal(t, 4.0, Bowl(b.X.Max, 0))
	assert.Equal(t, -4.0, Saddle(0, b.Y.Min))
}

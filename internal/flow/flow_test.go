package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdleToBusyToIdle(t *testing.T) {
	c := New(0)
	assert.False(t, c.Busy())
	assert.False(t, c.ShouldHold(0))

	c.MarkBusy(10)
	assert.True(t, c.Busy())
	assert.True(t, c.ShouldHold(11))

	assert.True(t, c.Ack())
	assert.False(t, c.Busy())
	assert.False(t, c.ShouldHold(12))

	// Acking an idle controller is harmless.
	assert.False(t, c.Ack())
}

func TestHoldsUntilStaleThreshold(t *testing.T) {
	c := New(60)
	c.MarkBusy(100)

	for tick := uint64(100); tick < 160; tick++ {
		assert.True(t, c.ShouldHold(tick), "tick %d", tick)
	}

	// At 60 elapsed ticks the guard stops holding but the flag stays set.
	assert.False(t, c.ShouldHold(160))
	assert.True(t, c.Busy())
	assert.False(t, c.ShouldHold(161))
	assert.Equal(t, uint64(2), c.StaleFallthroughs())
}

func TestMarkBusyRearmsStaleWindow(t *testing.T) {
	c := New(60)
	c.MarkBusy(0)
	assert.False(t, c.ShouldHold(60))

	// A fresh send attempt restarts the window.
	c.MarkBusy(60)
	assert.True(t, c.ShouldHold(61))
	assert.True(t, c.ShouldHold(119))
	assert.False(t, c.ShouldHold(120))
}

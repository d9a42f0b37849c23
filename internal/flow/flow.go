package flow

import "sync"

// DefaultStaleTicks is how many producer ticks a Busy flag may go
// unacknowledged before the controller stops early-returning the tick.
const DefaultStaleTicks = 60

// Controller is the single in-flight-frame gate between the producer tick
// and the active consumer. Busy is set the instant a frame send is
// attempted and cleared only by an acknowledgment from the consumer.
//
// The inbound message callbacks and the producer tick run on different
// goroutines, so the flag is mutex-guarded rather than relying on a
// serialized event loop.
type Controller struct {
	mu         sync.Mutex
	busy       bool
	busySetAt  uint64
	staleTicks uint64
	staleSeen  uint64
}

// New returns a controller that treats Busy as stale after staleTicks
// producer ticks without an acknowledgment. Zero selects DefaultStaleTicks.
func New(staleTicks uint64) *Controller {
	if staleTicks == 0 {
		staleTicks = DefaultStaleTicks
	}
	return &Controller{staleTicks: staleTicks}
}

// MarkBusy records a send attempt at the given producer tick. Called
// before the actual I/O so a reentrant tick cannot enter the pipeline
// while a write is still in flight.
func (c *Controller) MarkBusy(tick uint64) {
	c.mu.Lock()
	c.busy = true
	c.busySetAt = tick
	c.mu.Unlock()
}

// Ack clears Busy. Any well-formed inbound message from the consumer
// counts as an acknowledgment. Reports whether the flag was set.
func (c *Controller) Ack() bool {
	c.mu.Lock()
	was := c.busy
	c.busy = false
	c.mu.Unlock()
	return was
}

// Busy reports whether a sent frame is still unacknowledged.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// ShouldHold reports whether the tick must stop after the heartbeat: Busy
// and not yet stale. Once the stale threshold is crossed the flag stays
// set but the tick is allowed to fall through, so a run of lost
// acknowledgments degrades to heartbeat-plus-send instead of blocking
// forever. Stale fallthroughs are counted for telemetry only.
func (c *Controller) ShouldHold(tick uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.busy {
		return false
	}
	if tick-c.busySetAt < c.staleTicks {
		return true
	}
	c.staleSeen++
	return false
}

// StaleFallthroughs returns how many ticks have fallen through the stale
// guard since startup.
func (c *Controller) StaleFallthroughs() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staleSeen
}

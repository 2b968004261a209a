package debounce

import (
	"sync"
	"time"
)

// Coalescer turns a burst of events into one call to fire, made once the
// events have been quiet for a fixed interval. Each event restarts the wait.
//
// Trigger, timer expiry and the last-event marker share one mutex. fire
// runs outside it, so a slow callback never blocks event arrival.
type Coalescer struct {
	quiet time.Duration
	fire  func()

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	lastEvent  time.Time
	stopped    bool

	now func() time.Time
}

// New creates a Coalescer that calls fire after quiet has elapsed since the
// most recent Trigger.
func New(quiet time.Duration, fire func()) *Coalescer {
	return &Coalescer{quiet: quiet, fire: fire, now: time.Now}
}

// Trigger records a relevant event and (re)arms the timer.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	c.lastEvent = c.now()
	if c.timer != nil {
		c.timer.Stop()
	}

	// Stop cannot recall a timer whose func has already started; the
	// generation check in expire turns such a late firing into a no-op.
	c.generation++
	gen := c.generation
	c.timer = time.AfterFunc(c.quiet, func() { c.expire(gen) })
}

func (c *Coalescer) expire(gen uint64) {
	c.mu.Lock()
	if c.stopped || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	c.fire()
}

// Armed reports whether a timer is pending.
func (c *Coalescer) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// LastEvent returns the time of the most recent Trigger since the marker was
// last cleared.
func (c *Coalescer) LastEvent() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEvent, !c.lastEvent.IsZero()
}

// ClearLastEventIf forgets the last event if it is still the one seen at at,
// so staleness is not reported again until a new event arrives. It reports
// whether the marker was cleared.
func (c *Coalescer) ClearLastEventIf(at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastEvent.Equal(at) {
		return false
	}
	c.lastEvent = time.Time{}
	return true
}

// Stop cancels any pending timer. Later triggers are ignored.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

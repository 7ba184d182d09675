package core

import "time"

// Clock measures wall time for the frame loop. The zero value is stopped.
type Clock struct {
	now       func() time.Time
	startTime time.Time
	lastTick  time.Time
	elapsed   time.Duration
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Start resets the clock and begins measuring from now.
func (c *Clock) Start() {
	c.startTime = c.now()
	c.lastTick = c.startTime
	c.elapsed = 0
}

// Stop halts the clock. Elapsed keeps the value of the last Update.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

// Running reports whether Start was called without a later Stop.
func (c *Clock) Running() bool {
	return !c.startTime.IsZero()
}

// Update samples the time since Start. No effect on a stopped clock.
func (c *Clock) Update() {
	if c.Running() {
		c.elapsed = c.now().Sub(c.startTime)
	}
}

// Tick updates the clock and returns the seconds since the previous Tick
// (or Start). A stopped clock always returns 0.
func (c *Clock) Tick() float64 {
	if !c.Running() {
		return 0
	}
	now := c.now()
	delta := now.Sub(c.lastTick)
	c.lastTick = now
	c.elapsed = now.Sub(c.startTime)
	return delta.Seconds()
}

// Elapsed returns the seconds since Start as of the last Update or Tick.
func (c *Clock) Elapsed() float64 {
	return c.elapsed.Seconds()
}

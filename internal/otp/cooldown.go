package otp

import (
	"time"
)

// DefaultResendCooldown is how long the resend action stays disabled after a send.
const DefaultResendCooldown = 30 * time.Second

// Cooldown counts down in whole seconds from the last Start.
type Cooldown struct {
	period  time.Duration
	now     func() time.Time
	started time.Time
	running bool
}

// NewCooldown builds a Cooldown. A nil clock uses time.Now.
func NewCooldown(period time.Duration, now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	return &Cooldown{period: period, now: now}
}

// Start (re)starts the countdown.
func (c *Cooldown) Start() {
	c.started = c.now()
	c.running = true
}

// Stop cancels the countdown.
func (c *Cooldown) Stop() {
	c.running = false
}

// Remaining returns the whole seconds left, rounded up, or 0 when ready.
func (c *Cooldown) Remaining() int {
	if !c.running {
		return 0
	}
	left := c.period - c.now().Sub(c.started)
	if left <= 0 {
		c.running = false
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Ready reports whether the resend action is enabled.
func (c *Cooldown) Ready() bool {
	return c.Remaining() == 0
}

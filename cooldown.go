package hfsm

// Cooldown is a decrementing countdown. The zero value is an inactive
// cooldown with no duration.
type Cooldown struct {
	duration  float64
	remaining float64
	active    bool
}

// NewCooldown creates a cooldown with the given duration in seconds
func NewCooldown(duration float64) Cooldown {
	c := Cooldown{}
	c.SetDuration(duration)
	return c
}

// SetDuration sets the length of the countdown. Negative values are treated as zero.
func (c *Cooldown) SetDuration(duration float64) {
	if duration < 0 {
		duration = 0
	}
	c.duration = duration
	if c.remaining > duration {
		c.remaining = duration
	}
}

// Duration returns the configured length of the countdown
func (c *Cooldown) Duration() float64 {
	return c.duration
}

// Start arms the countdown. It is a no-op when the duration is not positive.
func (c *Cooldown) Start() {
	if c.duration <= 0 {
		return
	}
	c.remaining = c.duration
	c.active = true
}

// Update advances the countdown by delta seconds
func (c *Cooldown) Update(delta float64) {
	if !c.active {
		return
	}
	c.remaining -= delta
	if c.remaining <= 0 {
		c.remaining = 0
		c.active = false
	}
}

// Reset clears the countdown immediately
func (c *Cooldown) Reset() {
	c.remaining = 0
	c.active = false
}

// IsActive reports whether the countdown is still running
func (c *Cooldown) IsActive() bool {
	return c.active
}

// Remaining returns the seconds left before the cooldown expires
func (c *Cooldown) Remaining() float64 {
	return c.remaining
}

// Progress returns elapsed/duration in [0,1]. An inactive cooldown reports 1.
func (c *Cooldown) Progress() float64 {
	if c.duration <= 0 || !c.active {
		return 1
	}
	return clamp01((c.duration - c.remaining) / c.duration)
}

// NormalizedRemaining returns remaining/duration in [0,1]
func (c *Cooldown) NormalizedRemaining() float64 {
	if c.duration <= 0 || !c.active {
		return 0
	}
	return clamp01(c.remaining / c.duration)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package clock provides the master timeline clock.
package clock

import (
	"errors"
	"math"
)

// ErrRunning is returned when the stored time is set while the clock follows its source
var ErrRunning = errors.New("clock is running")

// ErrInvalidTime is returned for non-finite or negative times
var ErrInvalidTime = errors.New("timeline time must be a finite value >= 0")

// Source is a monotonically advancing time base, normally the audio output
type Source interface {
	Now() float64
}

// Clock is the single authority for the current timeline time.
// While running it derives time from a Source anchored at Start; otherwise it
// returns a stored value.
type Clock struct {
	source         Source
	anchorTimeline float64
	anchorSource   float64
	stored         float64
}

// New creates a stopped clock at zero
func New() *Clock {
	return &Clock{}
}

// Now returns the current timeline time in seconds
func (c *Clock) Now() float64 {
	if c.source == nil {
		return c.stored
	}
	return c.anchorTimeline + (c.source.Now() - c.anchorSource)
}

// Running reports whether the clock follows a source
func (c *Clock) Running() bool {
	return c.source != nil
}

// Start anchors the stored time to the source's current reading.
// Starting a running clock re-anchors it at its current time.
func (c *Clock) Start(src Source) {
	if src == nil {
		return
	}
	c.stored = c.Now()
	c.source = src
	c.anchorTimeline = c.stored
	c.anchorSource = src.Now()
}

// Stop detaches the source and freezes the clock at its current time
func (c *Clock) Stop() float64 {
	c.stored = c.Now()
	c.source = nil
	return c.stored
}

// Set replaces the stored time; the clock must be stopped
func (c *Clock) Set(t float64) error {
	if c.source != nil {
		return ErrRunning
	}
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return ErrInvalidTime
	}
	c.stored = t
	return nil
}

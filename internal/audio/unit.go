package audio

import (
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
)

// resampleQuality is the beep resampler quality used when a buffer's rate differs from the output
const resampleQuality = 4

// PlaybackUnit renders one bounded span of a decoded buffer, once.
// It cannot be re-targeted after Start; build a new unit instead.
type PlaybackUnit struct {
	clipID   uuid.UUID
	source   beep.Streamer
	rate     beep.SampleRate
	length   float64
	bus      *GainUnit
	ctrl     *beep.Ctrl
	startAt  float64
	started  bool
	stopped  bool
	finished atomic.Bool
}

// NewPlaybackUnit prepares a unit reading length seconds of buf from offset seconds,
// rendered at the output rate.
func NewPlaybackUnit(clipID uuid.UUID, buf *beep.Buffer, offset, length float64, outRate beep.SampleRate) (*PlaybackUnit, error) {
	if buf == nil {
		return nil, ErrNoBuffer
	}

	bufRate := buf.Format().SampleRate
	from := clampSamples(samplesAt(bufRate, offset), buf.Len())
	to := clampSamples(from+samplesAt(bufRate, length), buf.Len())
	if from >= to {
		return nil, ErrEmptyWindow
	}

	var source beep.Streamer = buf.Streamer(from, to)
	if bufRate != outRate {
		source = beep.Resample(resampleQuality, bufRate, outRate, source)
	}

	return &PlaybackUnit{
		clipID: clipID,
		source: source,
		rate:   outRate,
		length: float64(to-from) / float64(bufRate),
	}, nil
}

// Start mixes the unit into bus so that it becomes audible delay seconds after the
// output's current position outNow.
func (u *PlaybackUnit) Start(bus *GainUnit, outNow, delay float64) error {
	if u.started {
		return ErrUnitSpent
	}
	u.started = true

	lead := beep.Silence(samplesAt(u.rate, math.Max(0, delay)))
	u.ctrl = &beep.Ctrl{Streamer: beep.Seq(lead, u.source, beep.Callback(func() {
		u.finished.Store(true)
	}))}

	if err := bus.add(u.ctrl); err != nil {
		u.stopped = true
		return err
	}

	u.bus = bus
	u.startAt = outNow + math.Max(0, delay)
	return nil
}

// Stop silences the unit whether or not it has become audible yet. Stopping twice is a no-op.
func (u *PlaybackUnit) Stop() {
	if !u.started || u.stopped {
		return
	}
	u.stopped = true
	u.bus.withLock(func() {
		u.ctrl.Streamer = nil
	})
}

// ClipID returns the clip this unit plays
func (u *PlaybackUnit) ClipID() uuid.UUID {
	return u.clipID
}

// StartAt returns the output time at which the unit becomes audible
func (u *PlaybackUnit) StartAt() float64 {
	return u.startAt
}

// Length returns the playable span in seconds
func (u *PlaybackUnit) Length() float64 {
	return u.length
}

// Finished reports whether the unit played to its end
func (u *PlaybackUnit) Finished() bool {
	return u.finished.Load()
}

// Stopped reports whether Stop was called
func (u *PlaybackUnit) Stopped() bool {
	return u.stopped
}

func samplesAt(rate beep.SampleRate, seconds float64) int {
	return int(math.Round(seconds * float64(rate)))
}

func clampSamples(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}

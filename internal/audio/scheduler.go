package audio

import (
	"errors"
	"math"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
)

// Voice is an audio clip as seen by the scheduler
type Voice interface {
	Placement() models.Placement
	Buffer() *beep.Buffer
	Bus() *GainUnit
}

// Window is the span of a clip to schedule relative to a timeline instant
type Window struct {
	StartDelay    float64 // seconds from now until the clip becomes audible
	ContentOffset float64 // content-local read position
	PlayLength    float64 // seconds of content to render
}

// PlanWindow computes which part of p is audible from timeline time t on.
// Before the clip starts the read position is the clip's own in-point.
func PlanWindow(p models.Placement, t float64) Window {
	w := Window{
		StartDelay:    math.Max(0, p.TimelineStart-t),
		ContentOffset: p.ClipStartOffset,
	}
	if t >= p.TimelineStart {
		w.ContentOffset = t - p.TimelineStart + p.ClipStartOffset
	}
	w.PlayLength = math.Max(0, p.ClipDuration-(w.ContentOffset-p.ClipStartOffset))
	return w
}

// Scheduler owns the audio output and every live playback unit
type Scheduler struct {
	rate   beep.SampleRate
	output atomic.Pointer[Output]
	active []*PlaybackUnit
}

// NewScheduler creates a scheduler with no output
func NewScheduler(rate beep.SampleRate) *Scheduler {
	return &Scheduler{rate: rate}
}

// SampleRate returns the rate outputs are built at
func (s *Scheduler) SampleRate() beep.SampleRate {
	return s.rate
}

// Output returns the current output, or nil once torn down. Safe from any goroutine.
func (s *Scheduler) Output() *Output {
	return s.output.Load()
}

// EnsureOutput returns the live output, building a new one if it was torn down.
// On rebuild every voice's gain unit is reconnected to the new output.
func (s *Scheduler) EnsureOutput(voices []Voice) (*Output, bool) {
	if out := s.output.Load(); out != nil && !out.Closed() {
		return out, false
	}

	out := NewOutput(s.rate)
	for _, v := range voices {
		bus := v.Bus()
		if bus == nil {
			continue
		}
		if err := bus.Connect(out); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("clip_id", v.Placement().ID.String()).
				Msg("Failed to rebind gain unit to new output")
		}
	}
	s.output.Store(out)

	logger.Log.Debug().
		Int("sample_rate", int(s.rate)).
		Int("voices", len(voices)).
		Msg("Audio output built")

	return out, true
}

// TeardownOutput closes the output and forgets it. Units must be stopped first.
func (s *Scheduler) TeardownOutput() {
	out := s.output.Swap(nil)
	if out == nil {
		return
	}
	out.Close()

	logger.Log.Debug().Msg("Audio output torn down")
}

// ScheduleAll starts a playback unit for every voice audible from timeline time t.
// Per-clip failures are logged and returned joined; they never stop other clips.
func (s *Scheduler) ScheduleAll(t float64, voices []Voice) (int, error) {
	out := s.output.Load()
	if out == nil || out.Closed() {
		return 0, ErrNoOutput
	}

	var errs []error
	scheduled := 0
	for _, v := range voices {
		unit, err := s.schedule(out, t, v)
		if err != nil {
			p := v.Placement()
			engineErr := models.NewEngineError(models.KindPlaybackRefused, "schedule audio", p.ID, "could not start playback unit", err)
			logger.Log.Warn().
				Err(err).
				Str("clip_id", p.ID.String()).
				Float64("timeline_time", t).
				Msg("Audio clip not scheduled")
			errs = append(errs, engineErr)
			continue
		}
		if unit == nil {
			continue
		}
		s.active = append(s.active, unit)
		scheduled++
	}

	logger.Log.Debug().
		Float64("timeline_time", t).
		Int("scheduled", scheduled).
		Int("failed", len(errs)).
		Msg("Audio clips scheduled")

	return scheduled, errors.Join(errs...)
}

func (s *Scheduler) schedule(out *Output, t float64, v Voice) (*PlaybackUnit, error) {
	p := v.Placement()
	w := PlanWindow(p, t)
	if w.PlayLength <= 0 {
		return nil, nil
	}

	buf := v.Buffer()
	if buf == nil {
		return nil, ErrNoBuffer
	}

	// The buffer may be shorter than the placement when a clip loops its source
	bufSeconds := float64(buf.Len()) / float64(buf.Format().SampleRate)
	length := math.Min(w.PlayLength, bufSeconds-w.ContentOffset)
	if length <= 0 {
		return nil, nil
	}

	bus := v.Bus()
	if bus == nil {
		return nil, ErrBusDisconnected
	}

	unit, err := NewPlaybackUnit(p.ID, buf, w.ContentOffset, length, s.rate)
	if err != nil {
		if errors.Is(err, ErrEmptyWindow) {
			return nil, nil
		}
		return nil, err
	}
	if err := unit.Start(bus, out.Now(), w.StartDelay); err != nil {
		return nil, err
	}
	return unit, nil
}

// StopAll stops every active unit, including ones still waiting for their start, and clears the set
func (s *Scheduler) StopAll() int {
	n := len(s.active)
	for _, u := range s.active {
		u.Stop()
	}
	s.active = nil

	if n > 0 {
		logger.Log.Debug().
			Int("stopped", n).
			Msg("Audio units stopped")
	}
	return n
}

// Active returns the number of registered playback units
func (s *Scheduler) Active() int {
	return len(s.active)
}

// Units returns the registered playback units
func (s *Scheduler) Units() []*PlaybackUnit {
	units := make([]*PlaybackUnit, len(s.active))
	copy(units, s.active)
	return units
}

// Package session runs a timeline editor session: one goroutine owns the transport
// and timeline, a display-refresh ticker drives rendering and an audio pump stands
// in for the output device.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/stwalsh4118/reel/internal/audio"
	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/resources"
	"github.com/stwalsh4118/reel/internal/timeline"
	"github.com/stwalsh4118/reel/internal/transport"
	"github.com/stwalsh4118/reel/internal/video"
)

var (
	// ErrSessionClosed is returned for commands issued after Close
	ErrSessionClosed = errors.New("session closed")

	// ErrNotStarted is returned for commands issued before Start
	ErrNotStarted = errors.New("session not started")

	// ErrClipNotFound is returned when a command names an unknown clip
	ErrClipNotFound = errors.New("clip not found")
)

// Options configures a session
type Options struct {
	SampleRate      beep.SampleRate
	RefreshRate     int           // display refreshes per second
	PumpInterval    time.Duration // how often the audio pump pulls samples
	PixelsPerSecond float64
	WorkDir         string // ephemeral files live here; swept on startup
	Surface         *video.Surface
	Compositor      video.Options
	Importer        Importer // optional, enables the Import* operations
}

// Status is a point-in-time view of the transport
type Status struct {
	State            transport.State `json:"state"`
	Time             float64         `json:"time"`
	Timecode         string          `json:"timecode"`
	ProjectDuration  float64         `json:"project_duration"`
	DurationTimecode string          `json:"duration_timecode"`
	ClipID           *uuid.UUID      `json:"clip_id,omitempty"`
}

type command struct {
	fn    func(c *transport.Controller) error
	reply chan error
}

// Session serialises every timeline and transport operation onto a single goroutine
type Session struct {
	opts      Options
	registry  *timeline.Registry
	resources *resources.Manager
	scheduler *audio.Scheduler
	surface   *video.Surface
	ctrl      *transport.Controller
	frames    *frameQueue

	commands chan command
	stopChan chan struct{}
	loopDone chan struct{}
	pumpDone chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	closeErr  error
}

// New builds a stopped session. Leftover work directories from an earlier run are removed.
func New(opts Options) (*Session, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = 60
	}
	if opts.PumpInterval <= 0 {
		opts.PumpInterval = 10 * time.Millisecond
	}
	if opts.PixelsPerSecond <= 0 {
		opts.PixelsPerSecond = timeline.DefaultPixelsPerSecond
	}
	if opts.Surface == nil {
		opts.Surface = video.NewSurface()
	}

	if opts.WorkDir != "" {
		if err := os.MkdirAll(opts.WorkDir, 0755); err != nil {
			return nil, fmt.Errorf("%w: %w", resources.ErrDirectoryCreation, err)
		}
		if _, err := resources.SweepOrphans(opts.WorkDir, nil); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("work_dir", opts.WorkDir).
				Msg("Failed to sweep orphaned work directories")
		}
	}

	compositor, err := video.NewCompositor(opts.Surface, opts.Compositor)
	if err != nil {
		return nil, fmt.Errorf("failed to create compositor: %w", err)
	}

	rm := resources.NewManager()
	registry := timeline.NewRegistry(rm)
	scheduler := audio.NewScheduler(opts.SampleRate)
	frames := newFrameQueue()

	return &Session{
		opts:      opts,
		registry:  registry,
		resources: rm,
		scheduler: scheduler,
		surface:   opts.Surface,
		ctrl:      transport.NewController(registry, scheduler, compositor, frames),
		frames:    frames,
		commands:  make(chan command),
		stopChan:  make(chan struct{}),
		loopDone:  make(chan struct{}),
		pumpDone:  make(chan struct{}),
	}, nil
}

// Start launches the session goroutines. They stop when ctx is cancelled or Close is called.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run(ctx)
		go s.pump(ctx)

		logger.Log.Info().
			Int("sample_rate", int(s.opts.SampleRate)).
			Int("refresh_rate", s.opts.RefreshRate).
			Msg("Session started")
	})
}

// Done is closed once the session loop has exited
func (s *Session) Done() <-chan struct{} {
	return s.loopDone
}

// Close stops the session and releases every clip resource. It is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)

		// Prevent a later Start from launching goroutines on a closed session
		s.startOnce.Do(func() {})

		if s.started.Load() {
			<-s.loopDone
			<-s.pumpDone
		} else {
			s.shutdown()
			close(s.loopDone)
			close(s.pumpDone)
		}

		logger.Log.Info().Msg("Session closed")
	})
	return s.closeErr
}

// Do runs fn on the session goroutine and returns its error. Once fn has been
// handed to the loop, Do waits for it to finish even if ctx is cancelled.
func (s *Session) Do(ctx context.Context, fn func(c *transport.Controller) error) error {
	if !s.started.Load() {
		select {
		case <-s.stopChan:
			return ErrSessionClosed
		default:
			return ErrNotStarted
		}
	}

	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.loopDone:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	return <-cmd.reply
}

// Toggle plays or pauses and returns the resulting state
func (s *Session) Toggle(ctx context.Context) (transport.State, error) {
	var state transport.State
	err := s.Do(ctx, func(c *transport.Controller) error {
		state = c.Toggle()
		return nil
	})
	return state, err
}

// Seek moves the playhead and renders a still frame at the new position
func (s *Session) Seek(ctx context.Context, seconds float64) (float64, error) {
	var got float64
	err := s.Do(ctx, func(c *transport.Controller) error {
		t, err := c.Seek(seconds)
		if err != nil {
			return err
		}
		got = t
		c.Render()
		return nil
	})
	return got, err
}

// SeekPixel seeks to the time under a horizontal ruler position
func (s *Session) SeekPixel(ctx context.Context, x float64) (float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, models.NewEngineError(models.KindValidation, "seek pixel", uuid.Nil, "pixel position must be finite", nil)
	}
	return s.Seek(ctx, timeline.SecondsAtPixel(x, s.opts.PixelsPerSecond))
}

// AppendVideo appends an element to the video track
func (s *Session) AppendVideo(ctx context.Context, element video.Element, duration float64, label string, handles ...resources.Handle) (timeline.ClipInfo, error) {
	var info timeline.ClipInfo

	// On rejection the caller's handles and the element itself are released here
	owned := append([]resources.Handle(nil), handles...)
	if h, ok := element.(resources.Handle); ok {
		owned = append(owned, h)
	}

	ran := false
	err := s.Do(ctx, func(c *transport.Controller) error {
		ran = true
		clip, err := c.Registry().AppendVideoClip(element, duration, handles...)
		if err != nil {
			releaseHandles(owned)
			return err
		}
		clip.SetLabel(label)
		info = timeline.ClipInfo{Placement: clip.Placement(), Track: models.TrackVideo, Label: label}
		s.refreshStill(c)
		return nil
	})
	if err != nil && !ran {
		releaseHandles(owned)
	}
	return info, err
}

// AppendAudio appends a decoded buffer to the audio track at the given gain
func (s *Session) AppendAudio(ctx context.Context, buffer *beep.Buffer, duration float64, label string, gain float64, handles ...resources.Handle) (timeline.ClipInfo, error) {
	var info timeline.ClipInfo
	ran := false
	err := s.Do(ctx, func(c *transport.Controller) error {
		ran = true
		bus := audio.NewGainUnit(gain)
		clip, err := c.Registry().AppendAudioClip(buffer, duration, bus, handles...)
		if err != nil {
			releaseHandles(handles)
			return err
		}
		clip.SetLabel(label)

		// A clip added mid-playback joins the live output but is only scheduled on the next play
		if out := s.scheduler.Output(); out != nil && !out.Closed() {
			if err := bus.Connect(out); err != nil {
				logger.Log.Warn().
					Err(err).
					Str("clip_id", clip.Placement().ID.String()).
					Msg("Failed to connect new gain unit to output")
			}
		}

		g := bus.Gain()
		info = timeline.ClipInfo{Placement: clip.Placement(), Track: models.TrackAudio, Label: label, Gain: &g}
		return nil
	})
	if err != nil && !ran {
		releaseHandles(handles)
	}
	return info, err
}

// RemoveClip removes a clip and releases its resources. Removing a clip that is
// already gone is a no-op.
func (s *Session) RemoveClip(ctx context.Context, kind models.TrackKind, id uuid.UUID) error {
	return s.Do(ctx, func(c *transport.Controller) error {
		removed, err := c.Registry().RemoveClip(kind, id)
		if err != nil {
			return err
		}
		if !removed {
			logger.Log.Debug().
				Str("clip_id", id.String()).
				Str("track", string(kind)).
				Msg("Clip already removed")
			return nil
		}
		s.refreshStill(c)
		return nil
	})
}

// SetGain changes an audio clip's gain. It takes effect immediately, including mid-playback.
func (s *Session) SetGain(ctx context.Context, id uuid.UUID, gain float64) error {
	return s.Do(ctx, func(c *transport.Controller) error {
		clip, ok := c.Registry().AudioTrack().Find(id)
		if !ok {
			return ErrClipNotFound
		}
		if err := clip.Bus().SetGain(gain); err != nil {
			return models.NewEngineError(models.KindValidation, "set gain", id, "gain must be a finite value >= 0", err)
		}
		return nil
	})
}

// Status returns the transport state and current time
func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.Do(ctx, func(c *transport.Controller) error {
		now := c.Now()
		st = Status{
			State:            c.State(),
			Time:             now,
			Timecode:         timeline.FormatTimecode(now),
			ProjectDuration:  c.ProjectDuration(),
			DurationTimecode: timeline.FormatTimecode(c.ProjectDuration()),
		}
		if clip, ok := c.Registry().VideoTrack().At(now); ok {
			id := clip.Placement().ID
			st.ClipID = &id
		}
		return nil
	})
	return st, err
}

// Snapshot returns the current tracks
func (s *Session) Snapshot(ctx context.Context) (timeline.Snapshot, error) {
	var snap timeline.Snapshot
	err := s.Do(ctx, func(c *transport.Controller) error {
		snap = c.Registry().Snapshot()
		return nil
	})
	return snap, err
}

// Frame returns a copy of the presentation surface. Safe from any goroutine.
func (s *Session) Frame() *image.RGBA {
	return s.surface.Snapshot()
}

// refreshStill redraws the surface while stopped so edits are visible without playing
func (s *Session) refreshStill(c *transport.Controller) {
	if c.State() != transport.StatePlaying {
		c.Render()
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.loopDone)

	ticker := time.NewTicker(time.Second / time.Duration(s.opts.RefreshRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-s.stopChan:
			s.shutdown()
			return
		case cmd := <-s.commands:
			cmd.reply <- cmd.fn(s.ctrl)
		case <-ticker.C:
			s.frames.fire()
		}
	}
}

// pump pulls rendered samples from the live output at wall-clock pace
func (s *Session) pump(ctx context.Context) {
	defer close(s.pumpDone)

	ticker := time.NewTicker(s.opts.PumpInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			n := s.opts.SampleRate.N(now.Sub(last))
			last = now
			if out := s.scheduler.Output(); out != nil {
				out.Advance(n)
			}
		}
	}
}

func (s *Session) shutdown() {
	s.ctrl.Close()
	if err := s.registry.Close(); err != nil {
		s.closeErr = err
		logger.Log.Error().
			Err(err).
			Msg("Some clip resources failed to release")
	}
}

func releaseHandles(handles []resources.Handle) {
	for _, h := range handles {
		if h == nil {
			continue
		}
		if err := h.Release(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to release handle of rejected clip")
		}
	}
}

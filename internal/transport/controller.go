package transport

import (
	"math"

	"github.com/google/uuid"
	"github.com/stwalsh4118/reel/internal/audio"
	"github.com/stwalsh4118/reel/internal/clock"
	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/timeline"
	"github.com/stwalsh4118/reel/internal/video"
)

// FrameScheduler runs callbacks on the next display refresh. The returned function
// cancels the request if it has not fired yet.
type FrameScheduler interface {
	RequestFrame(callback func()) (cancel func())
}

// Controller is the transport state machine. It is not safe for concurrent use;
// a single goroutine must own it.
type Controller struct {
	registry   *timeline.Registry
	clock      *clock.Clock
	scheduler  *audio.Scheduler
	compositor *video.Compositor
	frames     FrameScheduler

	state State

	// Render loop handle, valid only while playing. epoch is bumped on every
	// transition away from playing so a stale tick can tell it is stale.
	epoch       uint64
	cancelFrame func()
	last        video.Result
}

// NewController wires a controller over its collaborators. frames may be nil, in which
// case Render must be driven by the caller.
func NewController(registry *timeline.Registry, scheduler *audio.Scheduler, compositor *video.Compositor, frames FrameScheduler) *Controller {
	return &Controller{
		registry:   registry,
		clock:      clock.New(),
		scheduler:  scheduler,
		compositor: compositor,
		frames:     frames,
		state:      StateStopped,
	}
}

// State returns the current transport state
func (c *Controller) State() State {
	return c.state
}

// Now returns the master clock time
func (c *Controller) Now() float64 {
	return c.clock.Now()
}

// ProjectDuration returns the registry's project duration
func (c *Controller) ProjectDuration() float64 {
	return c.registry.ProjectDuration()
}

// Registry returns the clip registry the controller plays
func (c *Controller) Registry() *timeline.Registry {
	return c.registry
}

// LastFrame returns the result of the most recent render
func (c *Controller) LastFrame() video.Result {
	return c.last
}

// Toggle plays when stopped and pauses when playing, returning the new state
func (c *Controller) Toggle() State {
	if c.state == StatePlaying {
		c.Pause()
	} else {
		c.Play()
	}
	return c.state
}

// Play starts playback from the current time. It is a no-op while playing or
// when both tracks are empty.
func (c *Controller) Play() {
	if c.state == StatePlaying {
		return
	}
	if c.registry.Empty() {
		logger.Log.Debug().Msg("Play requested on empty timeline, ignoring")
		return
	}

	voices := c.registry.Voices()
	out, rebuilt := c.scheduler.EnsureOutput(voices)

	// Units are scheduled and the clock anchored against a frozen output, so
	// both see the same output position.
	out.Suspend()
	t := c.clock.Now()
	if _, err := c.scheduler.ScheduleAll(t, voices); err != nil {
		logger.Log.Warn().
			Err(err).
			Float64("timeline_time", t).
			Msg("Some audio clips failed to start")
	}
	c.clock.Start(out)
	out.Resume()

	for _, l := range c.registry.Layers() {
		c.startElement(l, t)
	}

	c.setState(StatePlaying)
	c.requestFrame()

	logger.Log.Info().
		Float64("timeline_time", t).
		Bool("output_rebuilt", rebuilt).
		Msg("Playback started")
}

// Pause stops playback in place. It is a no-op unless playing.
func (c *Controller) Pause() {
	if c.state != StatePlaying {
		return
	}

	if out := c.scheduler.Output(); out != nil {
		out.Suspend()
	}
	t := c.clock.Stop()

	for _, l := range c.registry.Layers() {
		c.pauseElement(l)
	}
	c.scheduler.StopAll()
	c.cancelFrameLoop()
	c.setState(StateStopped)

	logger.Log.Info().
		Float64("timeline_time", t).
		Msg("Playback paused")
}

// Seek moves the playhead to target, clamped to [0, ProjectDuration], and always
// leaves the transport stopped. It returns the clamped time.
func (c *Controller) Seek(target float64) (float64, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return c.clock.Now(), models.NewEngineError(models.KindValidation, "seek", uuid.Nil, "seek target must be finite", nil)
	}

	t := math.Min(math.Max(target, 0), c.registry.ProjectDuration())

	if c.state == StatePlaying {
		c.Pause()
	}
	c.setState(StateSeeking)

	for _, l := range c.registry.Layers() {
		c.positionElement(l, l.Placement().LocalTime(t))
		c.pauseElement(l)
	}

	// Units scheduled against the old output cannot be re-targeted; start over with a fresh one
	c.scheduler.StopAll()
	c.scheduler.TeardownOutput()

	if err := c.clock.Set(t); err != nil {
		logger.Log.Error().
			Err(err).
			Float64("timeline_time", t).
			Msg("Failed to set clock during seek")
	}
	c.setState(StateStopped)

	logger.Log.Info().
		Float64("requested", target).
		Float64("timeline_time", t).
		Msg("Seek complete")

	return t, nil
}

// Render composites the current time. While playing, reaching the end of the
// project resets the transport to the start.
func (c *Controller) Render() video.Result {
	t := c.clock.Now()
	res, err := c.compositor.Render(t, c.registry.ProjectDuration(), c.registry.Layers())
	if err != nil {
		logger.Log.Debug().
			Err(err).
			Float64("timeline_time", t).
			Msg("Frame not rendered")
	}
	c.last = res

	if res.Ended && c.state == StatePlaying {
		c.finish()
	}
	return res
}

// finish performs the end-of-project reset: everything stopped and rewound to zero
func (c *Controller) finish() {
	c.scheduler.StopAll()
	c.scheduler.TeardownOutput()
	c.clock.Stop()

	for _, l := range c.registry.Layers() {
		c.pauseElement(l)
		c.positionElement(l, 0)
	}

	if err := c.clock.Set(0); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to rewind clock")
	}
	c.cancelFrameLoop()
	c.setState(StateStopped)

	logger.Log.Info().
		Float64("project_duration", c.registry.ProjectDuration()).
		Msg("Playback finished")
}

// Close stops playback and tears the output down
func (c *Controller) Close() {
	c.Pause()
	c.scheduler.StopAll()
	c.scheduler.TeardownOutput()
	c.cancelFrameLoop()
}

func (c *Controller) requestFrame() {
	if c.frames == nil {
		return
	}
	epoch := c.epoch
	c.cancelFrame = c.frames.RequestFrame(func() {
		c.tick(epoch)
	})
}

func (c *Controller) tick(epoch uint64) {
	if epoch != c.epoch || c.state != StatePlaying {
		return
	}
	c.cancelFrame = nil

	c.Render()

	if epoch == c.epoch && c.state == StatePlaying {
		c.requestFrame()
	}
}

func (c *Controller) cancelFrameLoop() {
	c.epoch++
	if c.cancelFrame != nil {
		c.cancelFrame()
		c.cancelFrame = nil
	}
}

func (c *Controller) setState(next State) {
	if !c.state.CanTransitionTo(next) {
		logger.Log.Warn().
			Err(ErrInvalidStateTransition).
			Str("from", c.state.String()).
			Str("to", next.String()).
			Msg("Unexpected transport transition")
	}
	c.state = next
}

func (c *Controller) startElement(l video.Layer, t float64) {
	el := l.Element()
	if el == nil {
		return
	}
	p := l.Placement()
	c.positionElement(l, p.LocalTime(t))
	if err := el.Play(); err != nil {
		c.refused(p.ID, "play video", err)
	}
}

func (c *Controller) pauseElement(l video.Layer) {
	el := l.Element()
	if el == nil {
		return
	}
	if err := el.Pause(); err != nil {
		c.refused(l.Placement().ID, "pause video", err)
	}
}

func (c *Controller) positionElement(l video.Layer, pos float64) {
	el := l.Element()
	if el == nil {
		return
	}
	if err := el.SetPosition(pos); err != nil {
		c.refused(l.Placement().ID, "seek video", err)
	}
}

func (c *Controller) refused(clipID uuid.UUID, op string, cause error) {
	err := models.NewEngineError(models.KindPlaybackRefused, op, clipID, "decoded element refused", cause)
	logger.Log.Warn().
		Err(err).
		Str("clip_id", clipID.String()).
		Str("severity", err.Severity.String()).
		Msg("Video element operation failed, continuing")
}

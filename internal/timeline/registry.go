package timeline

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/stwalsh4118/reel/internal/audio"
	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/resources"
	"github.com/stwalsh4118/reel/internal/video"
)

// Registry owns the video and audio tracks. Clips are only ever appended at the end
// of their track. Removing a clip leaves a gap and never shrinks ProjectDuration.
type Registry struct {
	video     Track[*VideoClip]
	audio     Track[*AudioClip]
	duration  float64
	resources *resources.Manager
	closed    bool
}

// NewRegistry creates an empty registry releasing clip resources through rm
func NewRegistry(rm *resources.Manager) *Registry {
	if rm == nil {
		rm = resources.NewManager()
	}
	return &Registry{
		video:     Track[*VideoClip]{kind: models.TrackVideo},
		audio:     Track[*AudioClip]{kind: models.TrackAudio},
		resources: rm,
	}
}

// AppendVideoClip places a clip covering the whole element at the end of the video track.
// handles are extra ephemeral resources the clip owns, such as its frame directory.
func (r *Registry) AppendVideoClip(element video.Element, originalDuration float64, handles ...resources.Handle) (*VideoClip, error) {
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if element == nil {
		return nil, models.NewEngineError(models.KindValidation, "append video clip", uuid.Nil, "video element is required", nil)
	}

	p, err := models.NewPlacement(r.video.End(), originalDuration)
	if err != nil {
		return nil, err
	}

	clip := &VideoClip{placement: p, element: element}
	r.video.append(clip)

	for _, h := range handles {
		r.resources.Acquire(p.ID, resources.KindEphemeralFile, h)
	}
	if h, ok := element.(resources.Handle); ok {
		r.resources.Acquire(p.ID, resources.KindVideoElement, h)
	}

	r.extend(p.TimelineEnd)

	logger.Log.Info().
		Str("clip_id", p.ID.String()).
		Float64("timeline_start", p.TimelineStart).
		Float64("duration", p.ClipDuration).
		Float64("project_duration", r.duration).
		Msg("Video clip appended")

	return clip, nil
}

// AppendAudioClip places a clip covering the whole buffer at the end of the audio track.
// A nil gain unit is replaced with a unity-gain one.
func (r *Registry) AppendAudioClip(buffer *beep.Buffer, originalDuration float64, bus *audio.GainUnit, handles ...resources.Handle) (*AudioClip, error) {
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if buffer == nil {
		return nil, models.NewEngineError(models.KindValidation, "append audio clip", uuid.Nil, "audio buffer is required", nil)
	}

	p, err := models.NewPlacement(r.audio.End(), originalDuration)
	if err != nil {
		return nil, err
	}

	if bus == nil {
		bus = audio.NewGainUnit(1)
	}

	clip := &AudioClip{placement: p, buffer: buffer, bus: bus}
	r.audio.append(clip)

	for _, h := range handles {
		r.resources.Acquire(p.ID, resources.KindEphemeralFile, h)
	}
	r.resources.Acquire(p.ID, resources.KindGainUnit, bus)

	r.extend(p.TimelineEnd)

	logger.Log.Info().
		Str("clip_id", p.ID.String()).
		Float64("timeline_start", p.TimelineStart).
		Float64("duration", p.ClipDuration).
		Float64("gain", bus.Gain()).
		Float64("project_duration", r.duration).
		Msg("Audio clip appended")

	return clip, nil
}

// RemoveClip removes a clip and releases everything it owns. Removing a clip that is
// not on the track reports false and no error.
func (r *Registry) RemoveClip(kind models.TrackKind, id uuid.UUID) (bool, error) {
	var found bool
	switch kind {
	case models.TrackVideo:
		var clip *VideoClip
		clip, found = r.video.remove(id)
		if found {
			if err := clip.element.Pause(); err != nil {
				logger.Log.Debug().
					Err(err).
					Str("clip_id", id.String()).
					Msg("Pause on removal failed")
			}
		}
	case models.TrackAudio:
		_, found = r.audio.remove(id)
	default:
		return false, models.NewEngineError(models.KindValidation, "remove clip", id, fmt.Sprintf("unknown track %q", kind), nil)
	}

	if !found {
		logger.Log.Debug().
			Str("clip_id", id.String()).
			Str("track", kind.String()).
			Msg("Clip not on track, nothing to remove")
		return false, nil
	}

	err := r.resources.Release(id)

	logger.Log.Info().
		Str("clip_id", id.String()).
		Str("track", kind.String()).
		Msg("Clip removed")

	return true, err
}

// Close removes every clip and releases all resources. Closing twice is a no-op.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.video.reset()
	r.audio.reset()
	return r.resources.ReleaseAll()
}

// ProjectDuration returns the furthest TimelineEnd ever appended
func (r *Registry) ProjectDuration() float64 {
	return r.duration
}

// Empty reports whether both tracks are empty
func (r *Registry) Empty() bool {
	return r.video.Len() == 0 && r.audio.Len() == 0
}

// VideoTrack returns the video track
func (r *Registry) VideoTrack() *Track[*VideoClip] {
	return &r.video
}

// AudioTrack returns the audio track
func (r *Registry) AudioTrack() *Track[*AudioClip] {
	return &r.audio
}

// Find returns the clip with the given id on either track
func (r *Registry) Find(id uuid.UUID) (Clip, bool) {
	if c, ok := r.video.Find(id); ok {
		return c, true
	}
	if c, ok := r.audio.Find(id); ok {
		return c, true
	}
	return nil, false
}

// Layers returns the video clips in track order as compositor layers
func (r *Registry) Layers() []video.Layer {
	clips := r.video.clips
	layers := make([]video.Layer, len(clips))
	for i, c := range clips {
		layers[i] = c
	}
	return layers
}

// Voices returns the audio clips in track order as scheduler voices
func (r *Registry) Voices() []audio.Voice {
	clips := r.audio.clips
	voices := make([]audio.Voice, len(clips))
	for i, c := range clips {
		voices[i] = c
	}
	return voices
}

func (r *Registry) extend(end float64) {
	r.duration = math.Max(r.duration, end)
}

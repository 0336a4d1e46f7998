package timeline

import (
	"github.com/google/uuid"
	"github.com/stwalsh4118/reel/internal/models"
)

// Track is an ordered sequence of same-kind clips, ordered by TimelineStart
type Track[C Clip] struct {
	kind  models.TrackKind
	clips []C
}

// Kind returns the track kind
func (t *Track[C]) Kind() models.TrackKind {
	return t.kind
}

// Len returns the number of clips
func (t *Track[C]) Len() int {
	return len(t.clips)
}

// Clips returns a copy of the clips in track order
func (t *Track[C]) Clips() []C {
	out := make([]C, len(t.clips))
	copy(out, t.clips)
	return out
}

// End returns the TimelineEnd of the last clip, or 0 for an empty track
func (t *Track[C]) End() float64 {
	if len(t.clips) == 0 {
		return 0
	}
	return t.clips[len(t.clips)-1].Placement().TimelineEnd
}

// Find returns the clip with the given id
func (t *Track[C]) Find(id uuid.UUID) (C, bool) {
	for _, c := range t.clips {
		if c.Placement().ID == id {
			return c, true
		}
	}
	var zero C
	return zero, false
}

// At returns the first clip in track order whose interval contains time
func (t *Track[C]) At(time float64) (C, bool) {
	for _, c := range t.clips {
		p := c.Placement()
		if p.Contains(time) {
			return c, true
		}
		// Clips are ordered by start, nothing later can contain time
		if p.TimelineStart > time {
			break
		}
	}
	var zero C
	return zero, false
}

func (t *Track[C]) append(c C) {
	t.clips = append(t.clips, c)
}

func (t *Track[C]) remove(id uuid.UUID) (C, bool) {
	for i, c := range t.clips {
		if c.Placement().ID == id {
			t.clips = append(t.clips[:i], t.clips[i+1:]...)
			return c, true
		}
	}
	var zero C
	return zero, false
}

func (t *Track[C]) reset() {
	t.clips = nil
}

// Package timeline holds the clip registry: the video and audio tracks and the project duration.
package timeline

import (
	"github.com/gopxl/beep/v2"
	"github.com/stwalsh4118/reel/internal/audio"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/video"
)

// Clip is either a *VideoClip or an *AudioClip
type Clip interface {
	Placement() models.Placement
	Kind() models.TrackKind
	Label() string
	isClip()
}

// VideoClip is a placed reference to a decoded video element
type VideoClip struct {
	placement models.Placement
	element   video.Element
	label     string
}

// Placement returns the clip's timeline placement
func (c *VideoClip) Placement() models.Placement { return c.placement }

// Kind returns models.TrackVideo
func (c *VideoClip) Kind() models.TrackKind { return models.TrackVideo }

// Element returns the decoded video element
func (c *VideoClip) Element() video.Element { return c.element }

// Label returns the display name
func (c *VideoClip) Label() string { return c.label }

// SetLabel sets the display name
func (c *VideoClip) SetLabel(label string) { c.label = label }

func (c *VideoClip) isClip() {}

// AudioClip is a placed reference to a decoded audio buffer with its own gain unit
type AudioClip struct {
	placement models.Placement
	buffer    *beep.Buffer
	bus       *audio.GainUnit
	label     string
}

// Placement returns the clip's timeline placement
func (c *AudioClip) Placement() models.Placement { return c.placement }

// Kind returns models.TrackAudio
func (c *AudioClip) Kind() models.TrackKind { return models.TrackAudio }

// Buffer returns the decoded audio buffer
func (c *AudioClip) Buffer() *beep.Buffer { return c.buffer }

// Bus returns the clip's gain unit
func (c *AudioClip) Bus() *audio.GainUnit { return c.bus }

// Label returns the display name
func (c *AudioClip) Label() string { return c.label }

// SetLabel sets the display name
func (c *AudioClip) SetLabel(label string) { c.label = label }

func (c *AudioClip) isClip() {}

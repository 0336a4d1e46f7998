// Package video selects the active video clip each tick and composites its frame onto the output surface.
package video

import (
	"image"

	"github.com/stwalsh4118/reel/internal/models"
)

// Element is a decoded video source that can be positioned, played and drawn
type Element interface {
	// Position returns the current content position in seconds
	Position() float64
	// SetPosition seeks to t seconds; completion is observed on a later tick
	SetPosition(t float64) error
	// Duration returns the decodable length in seconds
	Duration() float64
	Play() error
	Pause() error
	// Ready reports whether at least one frame can be drawn
	Ready() bool
	// Frame returns the frame at the current position
	Frame() (image.Image, error)
}

// Layer is a video clip as seen by the compositor
type Layer interface {
	Placement() models.Placement
	Element() Element
}

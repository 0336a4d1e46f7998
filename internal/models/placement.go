// Package models holds the plain data types shared by the timeline engine packages.
package models

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// TrackKind identifies one of the two timeline tracks
type TrackKind string

// Track kinds
const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// String returns the string representation of the track kind
func (k TrackKind) String() string {
	return string(k)
}

// IsValid checks if the track kind is a known value
func (k TrackKind) IsValid() bool {
	switch k {
	case TrackVideo, TrackAudio:
		return true
	default:
		return false
	}
}

// ParseTrackKind converts a string into a TrackKind
func ParseTrackKind(s string) (TrackKind, error) {
	k := TrackKind(s)
	if !k.IsValid() {
		return "", NewEngineError(KindValidation, "parse track", uuid.Nil,
			fmt.Sprintf("unknown track %q (must be video or audio)", s), nil)
	}
	return k, nil
}

// Placement is the position of a clip on the shared timeline.
// All values are seconds. TimelineEnd is always TimelineStart + ClipDuration.
type Placement struct {
	ID               uuid.UUID `json:"id"`
	OriginalDuration float64   `json:"original_duration"`
	TimelineStart    float64   `json:"timeline_start"`
	TimelineEnd      float64   `json:"timeline_end"`
	ClipStartOffset  float64   `json:"clip_start_offset"`
	ClipDuration     float64   `json:"clip_duration"`
}

// NewPlacement creates a placement covering the whole source starting at start
func NewPlacement(start, originalDuration float64) (Placement, error) {
	p := Placement{
		ID:               uuid.New(),
		OriginalDuration: originalDuration,
		TimelineStart:    start,
		TimelineEnd:      start + originalDuration,
		ClipStartOffset:  0,
		ClipDuration:     originalDuration,
	}
	if err := p.Validate(); err != nil {
		return Placement{}, err
	}
	return p, nil
}

// Validate checks the placement invariants
func (p Placement) Validate() error {
	switch {
	case !finite(p.OriginalDuration) || p.OriginalDuration <= 0:
		return p.invalid(fmt.Sprintf("original duration must be positive, got %v", p.OriginalDuration))
	case !finite(p.ClipDuration) || p.ClipDuration <= 0:
		return p.invalid(fmt.Sprintf("clip duration must be positive, got %v", p.ClipDuration))
	case !finite(p.ClipStartOffset) || p.ClipStartOffset < 0 || p.ClipStartOffset >= p.OriginalDuration:
		return p.invalid(fmt.Sprintf("clip start offset %v outside [0, %v)", p.ClipStartOffset, p.OriginalDuration))
	case !finite(p.TimelineStart) || p.TimelineStart < 0:
		return p.invalid(fmt.Sprintf("timeline start must be >= 0, got %v", p.TimelineStart))
	case p.TimelineEnd != p.TimelineStart+p.ClipDuration:
		return p.invalid("timeline end does not match start + duration")
	}
	return nil
}

func (p Placement) invalid(msg string) error {
	return NewEngineError(KindValidation, "validate placement", p.ID, msg, nil)
}

// Contains reports whether t lies in [TimelineStart, TimelineEnd)
func (p Placement) Contains(t float64) bool {
	return t >= p.TimelineStart && t < p.TimelineEnd
}

// LocalTime maps timeline time to the content position a decoded element should hold,
// clamped at zero for instants before the clip starts.
func (p Placement) LocalTime(t float64) float64 {
	return math.Max(0, t-p.TimelineStart+p.ClipStartOffset)
}

// ContentTime maps timeline time to content time, wrapping around the source length
func (p Placement) ContentTime(t float64) float64 {
	ct := math.Mod(p.ClipStartOffset+(t-p.TimelineStart), p.OriginalDuration)
	if ct < 0 {
		ct += p.OriginalDuration
	}
	return ct
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

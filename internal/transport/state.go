// Package transport implements the play/pause/seek state machine that drives the
// master clock, the audio scheduler and the video compositor.
package transport

import "errors"

// State is the transport state
type State string

// Transport states
const (
	StateStopped State = "stopped" // Initial and resting state
	StatePlaying State = "playing" // Clock follows the audio output, render loop active
	StateSeeking State = "seeking" // Transient, collapses back to stopped
)

// ErrInvalidStateTransition is logged when the controller is asked for an impossible transition
var ErrInvalidStateTransition = errors.New("invalid state transition")

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid checks if the state is a known value
func (s State) IsValid() bool {
	switch s {
	case StateStopped, StatePlaying, StateSeeking:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a transition from s to next is valid
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateStopped:
		// From stopped, can start playing or begin a seek
		return next == StatePlaying || next == StateSeeking
	case StatePlaying:
		// Playing always stops before seeking
		return next == StateStopped
	case StateSeeking:
		return next == StateStopped
	default:
		return false
	}
}

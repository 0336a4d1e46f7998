package audio

import "errors"

var (
	// ErrNoOutput is returned when scheduling is requested before an output exists
	ErrNoOutput = errors.New("audio output has not been built")

	// ErrOutputClosed is returned when a closed output is asked to do work
	ErrOutputClosed = errors.New("audio output is closed")

	// ErrBusDisconnected is returned when a playback unit targets a gain unit with no output
	ErrBusDisconnected = errors.New("gain unit is not connected to an output")

	// ErrGainReleased is returned when a released gain unit is reused
	ErrGainReleased = errors.New("gain unit has been released")

	// ErrInvalidGain is returned for negative or non-finite gain values
	ErrInvalidGain = errors.New("gain must be a finite value >= 0")

	// ErrUnitSpent is returned when a playback unit is started a second time
	ErrUnitSpent = errors.New("playback unit has already been started")

	// ErrEmptyWindow is returned when a playback unit would cover no samples
	ErrEmptyWindow = errors.New("playback window is empty")

	// ErrNoBuffer is returned when a clip has no decoded buffer
	ErrNoBuffer = errors.New("clip has no decoded audio buffer")
)

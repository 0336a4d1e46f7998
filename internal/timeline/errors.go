package timeline

import "errors"

var (
	// ErrRegistryClosed is returned when clips are appended after the session ended
	ErrRegistryClosed = errors.New("clip registry is closed")
)

package media

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrFFprobeNotFound   = errors.New("ffprobe not found in PATH")
	ErrFFmpegNotFound    = errors.New("ffmpeg not found in PATH")
	ErrFileNotFound      = errors.New("file not found or not readable")
	ErrInvalidFile       = errors.New("invalid or corrupted media file")
	ErrTimeout           = errors.New("media tool execution timed out")
	ErrUnsupportedFormat = errors.New("unsupported media format")
	ErrNoFrames          = errors.New("no frames extracted")
	ErrElementReleased   = errors.New("video element released")
	ErrInvalidFrameSize  = errors.New("invalid frame size")
	ErrDiskSpace         = errors.New("insufficient disk space")
)

// parseToolError maps ffmpeg/ffprobe stderr output to one of the sentinel errors
func parseToolError(tool, stderr string) error {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "no such file or directory"):
		return fmt.Errorf("%w: %s: %s", ErrFileNotFound, tool, stderr)
	case strings.Contains(lower, "invalid data found"),
		strings.Contains(lower, "could not find codec"),
		strings.Contains(lower, "invalid argument"),
		strings.Contains(lower, "moov atom not found"):
		return fmt.Errorf("%w: %s: %s", ErrInvalidFile, tool, stderr)
	case strings.Contains(lower, "no space left on device"),
		strings.Contains(lower, "disk full"):
		return fmt.Errorf("%w: %s: %s", ErrDiskSpace, tool, stderr)
	case strings.Contains(lower, "timed out"),
		strings.Contains(lower, "timeout"):
		return fmt.Errorf("%w: %s: %s", ErrTimeout, tool, stderr)
	default:
		return fmt.Errorf("%s failed: %s", tool, stderr)
	}
}

// isInputError reports whether err is the input's fault rather than the tool's
func isInputError(err error) bool {
	return errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrInvalidFile) ||
		errors.Is(err, ErrUnsupportedFormat)
}

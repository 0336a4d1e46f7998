package timeline

import (
	"fmt"
	"math"
)

// DefaultPixelsPerSecond is the ruler scale used when none is configured
const DefaultPixelsPerSecond = 30.0

// FormatTimecode renders seconds as zero-padded MM:SS, truncating fractions
func FormatTimecode(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// SecondsAtPixel converts a horizontal ruler offset into timeline seconds.
// Offsets left of the ruler map to zero.
func SecondsAtPixel(x, pixelsPerSecond float64) float64 {
	if pixelsPerSecond <= 0 {
		pixelsPerSecond = DefaultPixelsPerSecond
	}
	return math.Max(0, x/pixelsPerSecond)
}

// PixelAtSeconds converts timeline seconds into a horizontal ruler offset
func PixelAtSeconds(seconds, pixelsPerSecond float64) float64 {
	if pixelsPerSecond <= 0 {
		pixelsPerSecond = DefaultPixelsPerSecond
	}
	return seconds * pixelsPerSecond
}

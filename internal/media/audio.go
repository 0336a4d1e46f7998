package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

const resampleQuality = 4

// SupportedAudioFormats returns the audio extensions that can be decoded
func SupportedAudioFormats() []string {
	formats := make([]string, len(supportedAudioFormats))
	copy(formats, supportedAudioFormats)
	return formats
}

// decodeStream decodes an audio stream based on the file extension
func decodeStream(r io.ReadSeekCloser, filePath string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".mp3":
		return mp3.Decode(r)
	case ".wav":
		return wav.Decode(r)
	case ".flac":
		return flac.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// DecodeAudio fully decodes an audio file into an in-memory buffer at the given
// sample rate and returns it with its duration in seconds.
func DecodeAudio(filePath string, rate beep.SampleRate) (*beep.Buffer, float64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}

	streamer, format, err := decodeStream(f, filePath)
	if err != nil {
		f.Close()
		if errors.Is(err, ErrUnsupportedFormat) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	// Closing the decoder closes the file
	defer streamer.Close()

	var source beep.Streamer = streamer
	if format.SampleRate != rate {
		source = beep.Resample(resampleQuality, format.SampleRate, rate, streamer)
	}

	buffer := beep.NewBuffer(beep.Format{
		SampleRate:  rate,
		NumChannels: 2,
		Precision:   format.Precision,
	})
	buffer.Append(source)

	if err := streamer.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if buffer.Len() == 0 {
		return nil, 0, fmt.Errorf("%w: no audio samples", ErrInvalidFile)
	}

	return buffer, float64(buffer.Len()) / float64(rate), nil
}

// ReadTitle returns the tag title of an audio file, falling back to its cleaned file name
func ReadTitle(filePath string) string {
	fallback := CleanLabel(filePath)

	f, err := os.Open(filePath)
	if err != nil {
		return fallback
	}
	defer f.Close()

	metadata, err := tag.ReadFrom(f)
	if err != nil {
		return fallback
	}
	return getOrDefault(strings.TrimSpace(metadata.Title()), fallback)
}

// getOrDefault returns the value if non-empty, otherwise returns the default
func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

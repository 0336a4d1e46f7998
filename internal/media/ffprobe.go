package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/stwalsh4118/reel/internal/logger"
)

// DefaultProbeTimeout bounds a single ffprobe run when no timeout is configured
const DefaultProbeTimeout = 30 * time.Second

// FFprobeResult represents the top-level JSON output from FFprobe
type FFprobeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream represents a video or audio stream
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"` // "video" or "audio"
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	Duration      string `json:"duration,omitempty"`
	AvgFrameRate  string `json:"avg_frame_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	ChannelLayout string `json:"channel_layout,omitempty"`
}

// Format represents the file format information
type Format struct {
	Filename   string `json:"filename"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// Metadata is the probe result used by the importer
type Metadata struct {
	Duration   float64 // seconds
	VideoCodec string
	AudioCodec string
	Width      int
	Height     int
	FrameRate  float64
	SampleRate int
	Channels   int
	FileSize   int64
}

// HasVideo reports whether a video stream was found
func (m *Metadata) HasVideo() bool {
	return m.VideoCodec != ""
}

// HasAudio reports whether an audio stream was found
func (m *Metadata) HasAudio() bool {
	return m.AudioCodec != ""
}

// CheckFFprobeInstalled checks if FFprobe is available in PATH
func CheckFFprobeInstalled() error {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFFprobeNotFound
	}
	return nil
}

// ProbeFile executes FFprobe on the given file and returns its metadata.
// A zero timeout falls back to DefaultProbeTimeout.
func ProbeFile(ctx context.Context, filePath string, timeout time.Duration) (*Metadata, error) {
	if err := CheckFFprobeInstalled(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	logger.Log.Debug().
		Str("file_path", filePath).
		Msg("Probing media file with FFprobe")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Log.Error().
				Str("file_path", filePath).
				Dur("timeout", timeout).
				Msg("FFprobe execution timed out")
			return nil, ErrTimeout
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			logger.Log.Error().
				Str("file_path", filePath).
				Str("stderr", string(exitErr.Stderr)).
				Msg("FFprobe execution failed")
			return nil, parseToolError("ffprobe", string(exitErr.Stderr))
		}

		logger.Log.Error().
			Err(err).
			Str("file_path", filePath).
			Msg("FFprobe command failed")
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}

	var result FFprobeResult
	if err := json.Unmarshal(output, &result); err != nil {
		logger.Log.Error().
			Err(err).
			Str("file_path", filePath).
			Msg("Failed to parse FFprobe JSON output")
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	metadata, err := extractMetadata(&result)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("file_path", filePath).
			Msg("Failed to extract metadata from FFprobe result")
		return nil, err
	}

	logger.Log.Info().
		Str("file_path", filePath).
		Float64("duration", metadata.Duration).
		Str("video_codec", metadata.VideoCodec).
		Str("audio_codec", metadata.AudioCodec).
		Int("width", metadata.Width).
		Int("height", metadata.Height).
		Msg("Successfully probed media file")

	return metadata, nil
}

// extractMetadata converts FFprobeResult to Metadata
func extractMetadata(result *FFprobeResult) (*Metadata, error) {
	metadata := &Metadata{}

	var videoStream, audioStream *Stream
	for i := range result.Streams {
		stream := &result.Streams[i]
		if stream.CodecType == "video" && videoStream == nil {
			videoStream = stream
		}
		if stream.CodecType == "audio" && audioStream == nil {
			audioStream = stream
		}
	}

	if videoStream != nil {
		metadata.VideoCodec = videoStream.CodecName
		metadata.Width = videoStream.Width
		metadata.Height = videoStream.Height
		metadata.FrameRate = parseFrameRate(videoStream.AvgFrameRate)
	}

	if audioStream != nil {
		metadata.AudioCodec = audioStream.CodecName
		metadata.Channels = audioStream.Channels
		if rate, err := strconv.Atoi(audioStream.SampleRate); err == nil {
			metadata.SampleRate = rate
		}
	}

	// Stream duration first, then the container's
	for _, s := range []*Stream{videoStream, audioStream} {
		if s == nil || s.Duration == "" {
			continue
		}
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > 0 {
			metadata.Duration = d
			break
		}
	}
	if metadata.Duration == 0 && result.Format.Duration != "" {
		if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil && d > 0 {
			metadata.Duration = d
		}
	}

	if result.Format.Size != "" {
		if size, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
			metadata.FileSize = size
		}
	}

	if metadata.Duration == 0 {
		return nil, fmt.Errorf("%w: could not determine duration", ErrInvalidFile)
	}
	if videoStream == nil && audioStream == nil {
		return nil, fmt.Errorf("%w: no audio or video stream", ErrInvalidFile)
	}

	return metadata, nil
}

// parseFrameRate parses ffprobe's "num/den" rate notation
func parseFrameRate(rate string) float64 {
	var num, den float64
	if _, err := fmt.Sscanf(rate, "%g/%g", &num, &den); err != nil || den == 0 {
		return 0
	}
	return num / den
}

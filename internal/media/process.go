package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/stwalsh4118/reel/internal/logger"
)

// Output names inside a clip's work directory
const (
	framePattern  = "frame_%05d.jpg"
	frameGlob     = "frame_*.jpg"
	reversedName  = "reversed.mp4"
	boomerangName = "boomerang.mp4"
	jpegQuality   = 3
)

// FrameOptions controls frame extraction
type FrameOptions struct {
	FPS    int
	Width  int // 0 keeps the source size
	Height int
}

// Filter is one link in an ffmpeg video filter chain
type Filter interface {
	FilterArgs() []string
}

// FPSFilter sets the output frame rate
type FPSFilter struct {
	FPS int
}

// FilterArgs implements Filter
func (f FPSFilter) FilterArgs() []string {
	return []string{fmt.Sprintf("fps=%d", f.FPS)}
}

// ScaleFilter resizes the video
type ScaleFilter struct {
	Width  int
	Height int
}

// FilterArgs implements Filter
func (f ScaleFilter) FilterArgs() []string {
	return []string{fmt.Sprintf("scale=%d:%d", f.Width, f.Height)}
}

// ComposeFilters joins filters into a single -vf chain
func ComposeFilters(filters ...Filter) string {
	var args []string
	for _, f := range filters {
		args = append(args, f.FilterArgs()...)
	}
	return strings.Join(args, ",")
}

// ParseFrameSize parses a WIDTHxHEIGHT size. An empty size means "keep the source size".
func ParseFrameSize(size string) (int, int, error) {
	if size == "" {
		return 0, 0, nil
	}

	dimensions := strings.Split(size, "x")
	if len(dimensions) != 2 {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidFrameSize, size)
	}
	width, err := strconv.Atoi(dimensions[0])
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid width %q", ErrInvalidFrameSize, dimensions[0])
	}
	height, err := strconv.Atoi(dimensions[1])
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid height %q", ErrInvalidFrameSize, dimensions[1])
	}
	return width, height, nil
}

// ReverseCommand plays src backwards, video and audio, into dst
func ReverseCommand(src, dst string) *ffmpeg.Stream {
	return ffmpeg.Input(src).
		Output(dst, ffmpeg.KwArgs{"vf": "reverse", "af": "areverse"}).
		OverWriteOutput()
}

// ConcatCommand joins the video streams of first and second into dst
func ConcatCommand(first, second, dst string) *ffmpeg.Stream {
	return ffmpeg.Concat([]*ffmpeg.Stream{
		ffmpeg.Input(first).Video(),
		ffmpeg.Input(second).Video(),
	}).Output(dst).OverWriteOutput()
}

// FramesCommand writes numbered JPEG frames of src into dir
func FramesCommand(src, dir string, opts FrameOptions) *ffmpeg.Stream {
	filters := []Filter{FPSFilter{FPS: opts.FPS}}
	if opts.Width > 0 && opts.Height > 0 {
		filters = append(filters, ScaleFilter{Width: opts.Width, Height: opts.Height})
	}

	return ffmpeg.Input(src).
		Output(filepath.Join(dir, framePattern), ffmpeg.KwArgs{
			"vf":  ComposeFilters(filters...),
			"q:v": jpegQuality,
		}).
		OverWriteOutput()
}

// CheckFFmpegInstalled checks if FFmpeg is available in PATH
func CheckFFmpegInstalled() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFFmpegNotFound
	}
	return nil
}

// RunFunc executes ffmpeg with the given arguments
type RunFunc func(ctx context.Context, args []string) error

// Processor runs clip processing and frame extraction through ffmpeg
type Processor struct {
	breaker *Breaker
	run     RunFunc
}

// NewProcessor creates a processor. A nil run executes the ffmpeg binary.
func NewProcessor(breaker *Breaker, run RunFunc) *Processor {
	if run == nil {
		run = runFFmpeg
	}
	return &Processor{breaker: breaker, run: run}
}

// Boomerang writes src followed by its reverse into dir and returns the output path.
// The intermediate reversed file is removed.
func (p *Processor) Boomerang(ctx context.Context, src, dir string) (string, error) {
	reversed := filepath.Join(dir, reversedName)
	combined := filepath.Join(dir, boomerangName)

	if err := p.exec(ctx, ReverseCommand(src, reversed)); err != nil {
		return "", fmt.Errorf("failed to reverse clip: %w", err)
	}
	defer os.Remove(reversed)

	if err := p.exec(ctx, ConcatCommand(src, reversed, combined)); err != nil {
		return "", fmt.Errorf("failed to concatenate clip: %w", err)
	}

	logger.Log.Debug().
		Str("source", src).
		Str("output", combined).
		Msg("Boomerang clip built")

	return combined, nil
}

// ExtractFrames decodes src into JPEG frames under dir and returns their paths in order
func (p *Processor) ExtractFrames(ctx context.Context, src, dir string, opts FrameOptions) ([]string, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %d", opts.FPS)
	}

	if err := p.exec(ctx, FramesCommand(src, dir, opts)); err != nil {
		return nil, fmt.Errorf("failed to extract frames: %w", err)
	}

	frames, err := listFrames(dir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	logger.Log.Debug().
		Str("source", src).
		Str("dir", dir).
		Int("frames", len(frames)).
		Int("fps", opts.FPS).
		Msg("Frames extracted")

	return frames, nil
}

func (p *Processor) exec(ctx context.Context, stream *ffmpeg.Stream) error {
	args := stream.GetArgs()
	if p.breaker == nil {
		return p.run(ctx, args)
	}
	return p.breaker.Call(func() error {
		return p.run(ctx, args)
	})
}

// runFFmpeg executes the ffmpeg binary, classifying failures from its stderr
func runFFmpeg(ctx context.Context, args []string) error {
	if err := CheckFFmpegInstalled(); err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Log.Error().
			Err(err).
			Strs("args", args).
			Str("stderr", stderr.String()).
			Msg("FFmpeg execution failed")
		return parseToolError("ffmpeg", strings.TrimSpace(stderr.String()))
	}
	return nil
}

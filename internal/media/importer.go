package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"

	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/resources"
)

// ProbeCache stores probe results keyed by path, size and modification time
type ProbeCache interface {
	// Lookup returns the cached record for path, or nil when there is none or it is stale
	Lookup(ctx context.Context, path string, size int64, modTime time.Time) (*models.MediaFile, error)
	Store(ctx context.Context, file *models.MediaFile) error
}

// ProbeFunc reads stream metadata from a media file
type ProbeFunc func(ctx context.Context, path string, timeout time.Duration) (*Metadata, error)

// ImporterConfig configures the import pipeline
type ImporterConfig struct {
	WorkDir      string
	FrameRate    int
	FrameWidth   int
	FrameHeight  int
	Boomerang    bool
	ProbeTimeout time.Duration
	SampleRate   beep.SampleRate
}

// VideoImport is a decoded video file ready to be appended to the timeline.
// Releasing Element removes its frame directory.
type VideoImport struct {
	Element  *FrameElement
	Duration float64
	Label    string
	Source   *models.MediaFile
}

// AudioImport is a decoded audio file ready to be appended to the timeline
type AudioImport struct {
	Buffer   *beep.Buffer
	Duration float64
	Label    string
	Source   *models.MediaFile
}

// Importer turns files on disk into decoded timeline media
type Importer struct {
	cfg       ImporterConfig
	processor *Processor
	cache     ProbeCache
	probe     ProbeFunc
}

// NewImporter creates an importer. cache may be nil; a nil probe runs ffprobe.
func NewImporter(cfg ImporterConfig, processor *Processor, cache ProbeCache, probe ProbeFunc) (*Importer, error) {
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory cannot be empty")
	}
	if cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %d", cfg.FrameRate)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if processor == nil {
		processor = NewProcessor(nil, nil)
	}
	if probe == nil {
		probe = ProbeFile
	}

	return &Importer{
		cfg:       cfg,
		processor: processor,
		cache:     cache,
		probe:     probe,
	}, nil
}

// ImportVideo probes a video file, optionally turns it into a boomerang and
// extracts its frames into a fresh work directory.
func (i *Importer) ImportVideo(ctx context.Context, path string) (*VideoImport, error) {
	const op = "import_video"

	record, err := i.inspect(ctx, op, path, models.TrackVideo)
	if err != nil {
		return nil, err
	}

	dir, err := resources.NewTempDir(i.cfg.WorkDir, "clip")
	if err != nil {
		return nil, decodeFailure(op, path, err)
	}

	element, duration, err := i.decodeVideo(ctx, path, dir.Path, record.Duration)
	if err != nil {
		if rmErr := dir.Release(); rmErr != nil {
			logger.Log.Warn().
				Err(rmErr).
				Str("dir", dir.Path).
				Msg("Failed to remove work directory after failed import")
		}
		return nil, decodeFailure(op, path, err)
	}

	logger.Log.Info().
		Str("file_path", path).
		Str("dir", dir.Path).
		Float64("duration", duration).
		Int("frames", element.FrameCount()).
		Bool("boomerang", i.cfg.Boomerang).
		Msg("Video imported")

	return &VideoImport{
		Element:  element,
		Duration: duration,
		Label:    record.Title,
		Source:   record,
	}, nil
}

// ImportAudio decodes an audio file into a buffer at the output sample rate
func (i *Importer) ImportAudio(ctx context.Context, path string) (*AudioImport, error) {
	const op = "import_audio"

	record, err := i.inspect(ctx, op, path, models.TrackAudio)
	if err != nil {
		return nil, err
	}

	buffer, duration, err := DecodeAudio(path, i.cfg.SampleRate)
	if err != nil {
		return nil, decodeFailure(op, path, err)
	}

	logger.Log.Info().
		Str("file_path", path).
		Float64("duration", duration).
		Int("samples", buffer.Len()).
		Msg("Audio imported")

	return &AudioImport{
		Buffer:   buffer,
		Duration: duration,
		Label:    record.Title,
		Source:   record,
	}, nil
}

func (i *Importer) decodeVideo(ctx context.Context, path, dir string, duration float64) (*FrameElement, float64, error) {
	src := path
	if i.cfg.Boomerang {
		combined, err := i.processor.Boomerang(ctx, path, dir)
		if err != nil {
			return nil, 0, err
		}
		src = combined
		duration *= 2
	}

	opts := FrameOptions{FPS: i.cfg.FrameRate, Width: i.cfg.FrameWidth, Height: i.cfg.FrameHeight}
	if _, err := i.processor.ExtractFrames(ctx, src, dir, opts); err != nil {
		return nil, 0, err
	}
	if src != path {
		// Frames are all that playback reads
		if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
			logger.Log.Warn().
				Err(err).
				Str("file", src).
				Msg("Failed to remove boomerang intermediate")
		}
	}

	element, err := NewFrameElement(dir, float64(i.cfg.FrameRate), duration)
	if err != nil {
		return nil, 0, err
	}
	return element, element.Duration(), nil
}

// inspect validates path for the given track and returns its probe record,
// served from the cache when the file is unchanged.
func (i *Importer) inspect(ctx context.Context, op, path string, kind models.TrackKind) (*models.MediaFile, error) {
	fileCheck := ValidateFile(path)
	if !fileCheck.Readable {
		return nil, decodeFailure(op, path, fmt.Errorf("%w: %s", ErrFileNotFound, strings.Join(fileCheck.Reasons, "; ")))
	}
	if classified, ok := ClassifyPath(path); !ok || classified != kind {
		return nil, decodeFailure(op, path, fmt.Errorf("%w: not a %s file", ErrUnsupportedFormat, kind))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, decodeFailure(op, path, fmt.Errorf("%w: %v", ErrFileNotFound, err))
	}

	if record := i.cached(ctx, path, info); record != nil {
		return record, nil
	}

	metadata, err := i.probeOrDecode(ctx, path, kind)
	if err != nil {
		return nil, decodeFailure(op, path, err)
	}

	result := ValidateMedia(metadata, kind)
	if !result.Usable {
		return nil, decodeFailure(op, path, fmt.Errorf("%w: %s", ErrInvalidFile, strings.Join(result.Reasons, "; ")))
	}

	record := recordFromMetadata(path, kind, metadata, info)
	if kind == models.TrackAudio {
		record.Title = ReadTitle(path)
	}
	i.store(ctx, record)
	return record, nil
}

// probeOrDecode runs ffprobe. Audio falls back to a full decode when ffprobe is missing.
func (i *Importer) probeOrDecode(ctx context.Context, path string, kind models.TrackKind) (*Metadata, error) {
	metadata, err := i.probe(ctx, path, i.cfg.ProbeTimeout)
	if err == nil || kind != models.TrackAudio || !errors.Is(err, ErrFFprobeNotFound) {
		return metadata, err
	}

	logger.Log.Debug().
		Str("file_path", path).
		Msg("FFprobe unavailable, measuring audio by decoding")

	buffer, duration, err := DecodeAudio(path, i.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Duration:   duration,
		AudioCodec: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		SampleRate: int(i.cfg.SampleRate),
		Channels:   buffer.Format().NumChannels,
	}, nil
}

func (i *Importer) cached(ctx context.Context, path string, info os.FileInfo) *models.MediaFile {
	if i.cache == nil {
		return nil
	}

	record, err := i.cache.Lookup(ctx, path, info.Size(), info.ModTime())
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("file_path", path).
			Msg("Probe cache lookup failed")
		return nil
	}
	if record != nil {
		logger.Log.Debug().
			Str("file_path", path).
			Msg("Probe cache hit")
	}
	return record
}

func (i *Importer) store(ctx context.Context, record *models.MediaFile) {
	if i.cache == nil {
		return
	}
	if err := i.cache.Store(ctx, record); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("file_path", record.FilePath).
			Msg("Failed to store probe result")
	}
}

func recordFromMetadata(path string, kind models.TrackKind, metadata *Metadata, info os.FileInfo) *models.MediaFile {
	record := models.NewMediaFile(path, kind, metadata.Duration)
	record.Title = CleanLabel(path)
	record.Width = metadata.Width
	record.Height = metadata.Height
	record.FileSize = info.Size()
	record.ModTime = info.ModTime().UTC()
	if metadata.VideoCodec != "" {
		codec := metadata.VideoCodec
		record.VideoCodec = &codec
	}
	if metadata.AudioCodec != "" {
		codec := metadata.AudioCodec
		record.AudioCodec = &codec
	}
	return record
}

func decodeFailure(op, path string, err error) error {
	var engineErr *models.EngineError
	if errors.As(err, &engineErr) {
		return err
	}
	return models.NewEngineError(models.KindDecodeFailure, op, uuid.Nil, path, err)
}

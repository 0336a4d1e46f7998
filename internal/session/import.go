package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/reel/internal/media"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/timeline"
)

// ErrNoImporter is returned by import operations on a session built without an importer
var ErrNoImporter = errors.New("session has no importer")

// Importer decodes media files for the timeline
type Importer interface {
	ImportVideo(ctx context.Context, path string) (*media.VideoImport, error)
	ImportAudio(ctx context.Context, path string) (*media.AudioImport, error)
}

// ImportVideo decodes a video file and appends it to the video track. Decoding
// runs on the caller's goroutine; only the append is serialised.
func (s *Session) ImportVideo(ctx context.Context, path string) (timeline.ClipInfo, error) {
	if s.opts.Importer == nil {
		return timeline.ClipInfo{}, ErrNoImporter
	}

	imported, err := s.opts.Importer.ImportVideo(ctx, path)
	if err != nil {
		return timeline.ClipInfo{}, err
	}
	return s.AppendVideo(ctx, imported.Element, imported.Duration, imported.Label)
}

// ImportAudio decodes an audio file and appends it to the audio track at gain
func (s *Session) ImportAudio(ctx context.Context, path string, gain float64) (timeline.ClipInfo, error) {
	if s.opts.Importer == nil {
		return timeline.ClipInfo{}, ErrNoImporter
	}

	imported, err := s.opts.Importer.ImportAudio(ctx, path)
	if err != nil {
		return timeline.ClipInfo{}, err
	}
	return s.AppendAudio(ctx, imported.Buffer, imported.Duration, imported.Label, gain)
}

// ImportFile appends a file to the track its extension selects, at unity gain for audio
func (s *Session) ImportFile(ctx context.Context, found media.Found) (timeline.ClipInfo, error) {
	switch found.Kind {
	case models.TrackVideo:
		return s.ImportVideo(ctx, found.Path)
	case models.TrackAudio:
		return s.ImportAudio(ctx, found.Path, 1)
	default:
		return timeline.ClipInfo{}, fmt.Errorf("%w: %s", media.ErrUnsupportedFormat, found.Path)
	}
}

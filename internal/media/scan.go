package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
)

// ErrInvalidDirectory is returned when a scan root is missing or not a directory
var ErrInvalidDirectory = errors.New("invalid directory path")

// Found is a media file discovered by FindMedia
type Found struct {
	Path string
	Kind models.TrackKind
}

// FindMedia walks dirPath and returns every importable file, sorted by path.
// Unreadable entries are logged and skipped.
func FindMedia(ctx context.Context, dirPath string) ([]Found, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory does not exist", ErrInvalidDirectory)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: path is not a directory", ErrInvalidDirectory)
	}

	var found []Found
	err = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			logger.Log.Warn().
				Str("path", path).
				Err(err).
				Msg("Error during directory walk")
			return nil // Continue walking
		}

		if d.IsDir() {
			return nil
		}

		if kind, ok := ClassifyPath(path); ok {
			found = append(found, Found{Path: path, Kind: kind})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

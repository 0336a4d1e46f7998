package resources

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stwalsh4118/reel/internal/logger"
)

// ErrDirectoryCreation is returned when a work directory cannot be created
var ErrDirectoryCreation = fmt.Errorf("failed to create directory")

// TempDir is an ephemeral directory removed on release
type TempDir struct {
	Path string
}

// NewTempDir creates a fresh directory under root with the given name prefix
func NewTempDir(root, prefix string) (*TempDir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryCreation, err)
	}

	dir, err := os.MkdirTemp(root, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryCreation, err)
	}

	return &TempDir{Path: dir}, nil
}

// Release removes the directory tree. A missing directory is not an error.
func (d *TempDir) Release() error {
	return RemoveDir(d.Path)
}

// RemoveDir removes a directory tree, treating a missing directory as already removed
func RemoveDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Log.Debug().
			Str("dir", dir).
			Msg("Directory does not exist, nothing to cleanup")
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove directory: %w", err)
	}

	logger.Log.Debug().
		Str("dir", dir).
		Msg("Directory removed")

	return nil
}

// SweepOrphans removes every directory under root that keep does not claim.
// It is used at startup to clear work directories left by a previous process.
func SweepOrphans(root string, keep func(name string) bool) (int, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return 0, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("failed to read work directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if keep != nil && keep(entry.Name()) {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("dir", dir).
				Msg("Failed to remove orphaned work directory")
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Log.Info().
			Str("root", root).
			Int("removed", removed).
			Msg("Orphaned work directories cleaned up")
	}

	return removed, nil
}

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/reel/internal/models"
	"gorm.io/gorm"
)

// MediaRepository stores probe results for imported files
type MediaRepository struct {
	db *DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// GetByPath retrieves the record for a file path
func (r *MediaRepository) GetByPath(ctx context.Context, path string) (*models.MediaFile, error) {
	var file models.MediaFile
	result := r.db.WithContext(ctx).Where("file_path = ?", path).First(&file)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &file, nil
}

// Lookup returns the record for path when it still matches the file's size and
// modification time. A missing or stale record yields nil, nil.
func (r *MediaRepository) Lookup(ctx context.Context, path string, size int64, modTime time.Time) (*models.MediaFile, error) {
	file, err := r.GetByPath(ctx, path)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up media: %w", err)
	}
	if !file.Matches(size, modTime) {
		return nil, nil
	}
	return file, nil
}

// Store saves a probe result, replacing any earlier record for the same path
func (r *MediaRepository) Store(ctx context.Context, file *models.MediaFile) error {
	if file.FilePath == "" {
		return fmt.Errorf("%w: file path is required", ErrInvalidInput)
	}
	if !file.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, file.Kind)
	}

	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("file_path = ?", file.FilePath).Delete(&models.MediaFile{}).Error; err != nil {
			return fmt.Errorf("failed to replace media: %w", MapGormError(err))
		}
		if err := tx.Create(file).Error; err != nil {
			return fmt.Errorf("failed to store media: %w", MapGormError(err))
		}
		return nil
	})
}

// List retrieves records newest first, optionally filtered by kind
func (r *MediaRepository) List(ctx context.Context, kind models.TrackKind, limit, offset int) ([]*models.MediaFile, error) {
	var files []*models.MediaFile
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("file_path ASC")

	if kind != "" {
		query = query.Where("kind = ?", string(kind))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	result := query.Find(&files)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list media: %w", MapGormError(result.Error))
	}
	return files, nil
}

// Count returns the number of cached records
func (r *MediaRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.MediaFile{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count media: %w", MapGormError(result.Error))
	}
	return count, nil
}

// DeleteByPath removes the record for a file path
func (r *MediaRepository) DeleteByPath(ctx context.Context, path string) error {
	result := r.db.WithContext(ctx).Where("file_path = ?", path).Delete(&models.MediaFile{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete media: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MediaFile is a cached probe result for a media file on disk. A record is only
// valid while the file's size and modification time still match.
type MediaFile struct {
	ID         uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	FilePath   string    `json:"file_path" gorm:"type:text;not null;uniqueIndex;column:file_path"`
	Kind       TrackKind `json:"kind" gorm:"type:text;not null;column:kind"`
	Title      string    `json:"title" gorm:"type:text;not null;column:title"`
	Duration   float64   `json:"duration" gorm:"type:real;not null;column:duration"` // seconds
	VideoCodec *string   `json:"video_codec,omitempty" gorm:"type:text;column:video_codec"`
	AudioCodec *string   `json:"audio_codec,omitempty" gorm:"type:text;column:audio_codec"`
	Width      int       `json:"width" gorm:"type:integer;column:width"`
	Height     int       `json:"height" gorm:"type:integer;column:height"`
	FileSize   int64     `json:"file_size" gorm:"type:integer;not null;column:file_size"`
	ModTime    time.Time `json:"mod_time" gorm:"type:datetime;not null;column:mod_time"`
	CreatedAt  time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
}

// TableName pins the table used by the probe cache
func (MediaFile) TableName() string {
	return "media_files"
}

// NewMediaFile creates a MediaFile with a generated UUID and timestamp
func NewMediaFile(filePath string, kind TrackKind, duration float64) *MediaFile {
	return &MediaFile{
		ID:        uuid.New(),
		FilePath:  filePath,
		Kind:      kind,
		Duration:  duration,
		CreatedAt: time.Now().UTC(),
	}
}

// Matches reports whether the record still describes a file of the given size and mtime
func (m *MediaFile) Matches(size int64, modTime time.Time) bool {
	// Millisecond resolution survives the sqlite round trip
	return m.FileSize == size && m.ModTime.UnixMilli() == modTime.UnixMilli()
}

// DurationString returns duration in HH:MM:SS format
func (m *MediaFile) DurationString() string {
	total := int64(0)
	if m.Duration > 0 && !math.IsInf(m.Duration, 0) {
		total = int64(m.Duration)
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Resolution returns WIDTHxHEIGHT, or "" for audio-only files
func (m *MediaFile) Resolution() string {
	if m.Width <= 0 || m.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

package media

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/stwalsh4118/reel/internal/models"
)

// Supported file extensions per track
var (
	supportedVideoFormats = []string{".mp4", ".mkv", ".avi", ".mov", ".webm"}
	supportedAudioFormats = []string{".mp3", ".wav", ".flac"}
)

// ValidationResult contains the result of media validation
type ValidationResult struct {
	Readable bool     // File exists and is accessible
	Usable   bool     // File carries the stream its track needs
	Reasons  []string // Human-readable reasons the file was rejected
}

// ClassifyPath returns the track a file belongs on, judged by its extension
func ClassifyPath(filePath string) (models.TrackKind, bool) {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supported := range supportedVideoFormats {
		if ext == supported {
			return models.TrackVideo, true
		}
	}
	for _, supported := range supportedAudioFormats {
		if ext == supported {
			return models.TrackAudio, true
		}
	}
	return "", false
}

// ValidateMedia checks that probed metadata suits the given track
func ValidateMedia(metadata *Metadata, kind models.TrackKind) ValidationResult {
	result := ValidationResult{
		Readable: true, // Assumed readable if we have metadata
		Usable:   true,
		Reasons:  []string{},
	}

	if metadata.Duration <= 0 {
		result.Usable = false
		result.Reasons = append(result.Reasons, "duration is not positive")
	}

	switch kind {
	case models.TrackVideo:
		if !metadata.HasVideo() {
			result.Usable = false
			result.Reasons = append(result.Reasons, "no video stream")
		}
	case models.TrackAudio:
		if !metadata.HasAudio() {
			result.Usable = false
			result.Reasons = append(result.Reasons, "no audio stream")
		}
	default:
		result.Usable = false
		result.Reasons = append(result.Reasons, "unknown track kind '"+string(kind)+"'")
	}

	return result
}

// ValidateFile checks if a file exists and is readable
func ValidateFile(filePath string) ValidationResult {
	result := ValidationResult{
		Reasons: []string{},
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			result.Reasons = append(result.Reasons, "file does not exist")
		} else if os.IsPermission(err) {
			result.Reasons = append(result.Reasons, "file is not readable (permission denied)")
		} else {
			result.Reasons = append(result.Reasons, "file access error: "+err.Error())
		}
		return result
	}

	if info.IsDir() {
		result.Reasons = append(result.Reasons, "path is a directory, not a file")
		return result
	}

	// Actually try to open the file to verify read permissions
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsPermission(err) {
			result.Reasons = append(result.Reasons, "file is not readable (permission denied)")
		} else {
			result.Reasons = append(result.Reasons, "cannot open file: "+err.Error())
		}
		return result
	}
	file.Close()

	result.Readable = true
	return result
}

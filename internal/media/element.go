package media

import (
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/resources"
)

// FrameElement is a decoded video element backed by a directory of extracted JPEG
// frames. Its playback position advances with wall time while playing.
type FrameElement struct {
	mu       sync.Mutex
	dir      string
	frames   []string
	fps      float64
	duration float64
	position float64
	playing  bool
	playedAt time.Time
	now      func() time.Time

	cachedIndex int
	cached      image.Image
	released    bool
}

// NewFrameElement loads the frame listing in dir. A zero duration is derived from
// the frame count.
func NewFrameElement(dir string, fps, duration float64) (*FrameElement, error) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, fmt.Errorf("frame rate must be positive, got %v", fps)
	}

	frames, err := listFrames(dir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = float64(len(frames)) / fps
	}

	return &FrameElement{
		dir:         dir,
		frames:      frames,
		fps:         fps,
		duration:    duration,
		now:         time.Now,
		cachedIndex: -1,
	}, nil
}

// Position returns the current playback position in seconds
func (e *FrameElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

// SetPosition seeks to t, clamped to the element's duration
func (e *FrameElement) SetPosition(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("invalid position %v", t)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return ErrElementReleased
	}
	e.position = math.Min(math.Max(t, 0), e.duration)
	e.playedAt = e.now()
	return nil
}

// Duration returns the element's length in seconds
func (e *FrameElement) Duration() float64 {
	return e.duration
}

// Play starts advancing the position with wall time
func (e *FrameElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return ErrElementReleased
	}
	if !e.playing {
		e.playing = true
		e.playedAt = e.now()
	}
	return nil
}

// Pause freezes the position
func (e *FrameElement) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playing {
		e.position = e.positionLocked()
		e.playing = false
	}
	return nil
}

// Playing reports whether the element is advancing
func (e *FrameElement) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Ready reports whether frames can be drawn
func (e *FrameElement) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.released && len(e.frames) > 0
}

// Frame decodes the frame shown at the current position
func (e *FrameElement) Frame() (image.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return nil, ErrElementReleased
	}

	index := e.indexAt(e.positionLocked())
	if index == e.cachedIndex && e.cached != nil {
		return e.cached, nil
	}

	img, err := decodeJPEG(e.frames[index])
	if err != nil {
		return nil, err
	}
	e.cachedIndex = index
	e.cached = img
	return img, nil
}

// FrameCount returns the number of extracted frames
func (e *FrameElement) FrameCount() int {
	return len(e.frames)
}

// Release stops the element and removes its frame directory. It is idempotent.
func (e *FrameElement) Release() error {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return nil
	}
	e.released = true
	e.playing = false
	e.cached = nil
	dir := e.dir
	e.mu.Unlock()

	logger.Log.Debug().
		Str("dir", dir).
		Int("frames", len(e.frames)).
		Msg("Releasing video element")

	return resources.RemoveDir(dir)
}

func (e *FrameElement) positionLocked() float64 {
	if !e.playing {
		return e.position
	}
	elapsed := e.now().Sub(e.playedAt).Seconds()
	return math.Min(e.position+elapsed, e.duration)
}

func (e *FrameElement) indexAt(t float64) int {
	index := int(math.Floor(t * e.fps))
	if index < 0 {
		return 0
	}
	if index >= len(e.frames) {
		return len(e.frames) - 1
	}
	return index
}

// listFrames returns the extracted frames in dir in playback order
func listFrames(dir string) ([]string, error) {
	frames, err := filepath.Glob(filepath.Join(dir, frameGlob))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	sort.Strings(frames)
	return frames, nil
}

func decodeJPEG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return img, nil
}

package media

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/reel/internal/models"
)

type foundRecorder struct {
	mu    sync.Mutex
	found []Found
}

func (r *foundRecorder) record(f Found) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found = append(r.found, f)
}

func (r *foundRecorder) snapshot() []Found {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Found(nil), r.found...)
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher("", time.Second, func(Found) {})
	assert.Error(t, err)

	_, err = NewWatcher(t.TempDir(), time.Second, nil)
	assert.Error(t, err)

	dir := filepath.Join(t.TempDir(), "incoming")
	w, err := NewWatcher(dir, 0, func(Found) {})
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, defaultPollInterval, w.pollInterval)
}

func TestWatcher_ReportsNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.mp4"), []byte("x"), 0644))

	rec := &foundRecorder{}
	w, err := NewWatcher(dir, 50*time.Millisecond, rec.record)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.wav"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 5*time.Second, 50*time.Millisecond)

	// Give any duplicate events time to arrive
	time.Sleep(2 * debounceWindow)
	found := rec.snapshot()
	require.Len(t, found, 1)
	assert.Equal(t, Found{Path: filepath.Join(dir, "new.wav"), Kind: models.TrackAudio}, found[0])
}

func TestWatcher_PollingFallback(t *testing.T) {
	dir := t.TempDir()
	rec := &foundRecorder{}
	w, err := NewWatcher(dir, 20*time.Millisecond, rec.record)
	require.NoError(t, err)

	// Drive the polling loop directly
	w.started = true
	go w.runWatching()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mkv"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, w.Stop())
	assert.Equal(t, models.TrackVideo, rec.snapshot()[0].Kind)
}

func TestWatcher_ProcessPendingWaitsForSettle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	rec := &foundRecorder{}
	w, err := NewWatcher(dir, time.Second, rec.record)
	require.NoError(t, err)

	w.handleFileEvent(path, true)
	w.processPending()
	assert.Empty(t, rec.snapshot(), "a fresh event is not reported yet")

	w.mu.Lock()
	w.pending[path] = time.Now().Add(-settleTime)
	w.mu.Unlock()
	w.processPending()
	require.Len(t, rec.snapshot(), 1)

	// Seen files are not reported twice
	w.handleFileEvent(path, true)
	w.mu.Lock()
	assert.Empty(t, w.pending)
	w.mu.Unlock()

	// A removed and re-added file is reported again
	w.forget(path)
	w.handleFileEvent(path, true)
	w.mu.Lock()
	w.pending[path] = time.Now().Add(-settleTime)
	w.mu.Unlock()
	w.processPending()
	assert.Len(t, rec.snapshot(), 2)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), time.Second, func(Found) {})
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.Error(t, w.Start())
}

package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/models"
)

// memoryCache is an in-memory ProbeCache
type memoryCache struct {
	mu      sync.Mutex
	records map[string]*models.MediaFile
	lookups int
	stores  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{records: make(map[string]*models.MediaFile)}
}

func (c *memoryCache) Lookup(_ context.Context, path string, size int64, modTime time.Time) (*models.MediaFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	record, ok := c.records[path]
	if !ok || !record.Matches(size, modTime) {
		return nil, nil
	}
	return record, nil
}

func (c *memoryCache) Store(_ context.Context, file *models.MediaFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	c.records[file.FilePath] = file
	return nil
}

type probeStub struct {
	mu       sync.Mutex
	calls    int
	metadata *Metadata
	err      error
}

func (p *probeStub) probe(_ context.Context, _ string, _ time.Duration) (*Metadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	m := *p.metadata
	return &m, nil
}

func videoMetadata(duration float64) *Metadata {
	return &Metadata{Duration: duration, VideoCodec: "h264", AudioCodec: "aac", Width: 1920, Height: 1080, FrameRate: 30}
}

type importerFixture struct {
	importer *Importer
	runner   *fakeRunner
	probe    *probeStub
	cache    *memoryCache
	workDir  string
	mediaDir string
}

func newImporterFixture(t *testing.T, boomerang bool) *importerFixture {
	t.Helper()
	f := &importerFixture{
		runner:   &fakeRunner{frames: 6},
		probe:    &probeStub{metadata: videoMetadata(3)},
		cache:    newMemoryCache(),
		workDir:  filepath.Join(t.TempDir(), "work"),
		mediaDir: t.TempDir(),
	}

	importer, err := NewImporter(ImporterConfig{
		WorkDir:      f.workDir,
		FrameRate:    2,
		Boomerang:    boomerang,
		ProbeTimeout: time.Second,
		SampleRate:   8000,
	}, NewProcessor(nil, f.runner.run), f.cache, f.probe.probe)
	require.NoError(t, err)
	f.importer = importer
	return f
}

func (f *importerFixture) writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.mediaDir, name)
	require.NoError(t, os.WriteFile(path, []byte("media"), 0644))
	return path
}

func workDirs(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}

func TestNewImporter_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ImporterConfig
	}{
		{"missing work dir", ImporterConfig{FrameRate: 30, SampleRate: 48000}},
		{"zero frame rate", ImporterConfig{WorkDir: "/tmp/x", SampleRate: 48000}},
		{"zero sample rate", ImporterConfig{WorkDir: "/tmp/x", FrameRate: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImporter(tt.cfg, nil, nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestImportVideo(t *testing.T) {
	f := newImporterFixture(t, false)
	path := f.writeFile(t, "beach_day.mp4")

	imported, err := f.importer.ImportVideo(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3.0, imported.Duration)
	assert.Equal(t, "beach day", imported.Label)
	assert.Equal(t, 6, imported.Element.FrameCount())
	assert.Equal(t, models.TrackVideo, imported.Source.Kind)
	require.NotNil(t, imported.Source.VideoCodec)
	assert.Equal(t, "h264", *imported.Source.VideoCodec)
	assert.Equal(t, "1920x1080", imported.Source.Resolution())
	assert.Equal(t, 1, f.runner.callCount(), "only frame extraction runs without boomerang")

	dirs := workDirs(t, f.workDir)
	require.Len(t, dirs, 1)

	require.NoError(t, imported.Element.Release())
	assert.Empty(t, workDirs(t, f.workDir))
}

func TestImportVideo_Boomerang(t *testing.T) {
	f := newImporterFixture(t, true)
	path := f.writeFile(t, "wave.mov")

	imported, err := f.importer.ImportVideo(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 6.0, imported.Duration, "forward plus reverse doubles the length")
	assert.Equal(t, 3, f.runner.callCount())
	assert.Equal(t, 3.0, imported.Source.Duration, "the cache keeps the source duration")

	dirs := workDirs(t, f.workDir)
	require.Len(t, dirs, 1)
	_, err = os.Stat(filepath.Join(f.workDir, dirs[0], boomerangName))
	assert.True(t, os.IsNotExist(err), "the boomerang intermediate is removed once frames exist")
}

func TestImportVideo_BoomerangCleanupFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	previous := logger.Log
	logger.Log = zerolog.New(&logs)
	t.Cleanup(func() { logger.Log = previous })

	f := newImporterFixture(t, true)
	f.runner.stuckOutput = true
	path := f.writeFile(t, "wave.mov")

	imported, err := f.importer.ImportVideo(context.Background(), path)
	require.NoError(t, err, "a leftover intermediate does not fail the import")
	assert.Equal(t, 6.0, imported.Duration)

	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "Failed to remove boomerang intermediate")
}

func TestImportVideo_UsesProbeCache(t *testing.T) {
	f := newImporterFixture(t, false)
	path := f.writeFile(t, "clip.mp4")
	ctx := context.Background()

	first, err := f.importer.ImportVideo(ctx, path)
	require.NoError(t, err)
	second, err := f.importer.ImportVideo(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, 1, f.probe.calls)
	assert.Equal(t, 1, f.cache.stores)
	assert.Equal(t, first.Source.ID, second.Source.ID)
	assert.Len(t, workDirs(t, f.workDir), 2, "each import gets its own frames")

	// A changed file is probed again
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	_, err = f.importer.ImportVideo(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, f.probe.calls)
}

func TestImportVideo_Failures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		setup   func(f *importerFixture)
		wantErr error
	}{
		{
			name:    "missing file",
			file:    "",
			wantErr: ErrFileNotFound,
		},
		{
			name:    "wrong extension",
			file:    "song.mp3",
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "probe fails",
			file:    "clip.mp4",
			setup:   func(f *importerFixture) { f.probe.err = ErrInvalidFile },
			wantErr: ErrInvalidFile,
		},
		{
			name:    "no video stream",
			file:    "clip.mp4",
			setup:   func(f *importerFixture) { f.probe.metadata = &Metadata{Duration: 3, AudioCodec: "aac"} },
			wantErr: ErrInvalidFile,
		},
		{
			name:    "no frames extracted",
			file:    "clip.mp4",
			setup:   func(f *importerFixture) { f.runner.frames = 0 },
			wantErr: ErrNoFrames,
		},
		{
			name:    "ffmpeg fails",
			file:    "clip.mp4",
			setup:   func(f *importerFixture) { f.runner.err = errors.New("encoder crashed") },
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newImporterFixture(t, false)
			if tt.setup != nil {
				tt.setup(f)
			}
			path := filepath.Join(f.mediaDir, "missing.mp4")
			if tt.file != "" {
				path = f.writeFile(t, tt.file)
			}

			_, err := f.importer.ImportVideo(context.Background(), path)
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.KindDecodeFailure))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, workDirs(t, f.workDir), "failed imports leave no work directory")
		})
	}
}

func TestImportAudio(t *testing.T) {
	f := newImporterFixture(t, false)
	path := filepath.Join(f.mediaDir, "room_tone.wav")
	writeWAV(t, path, 8000, 4000)
	f.probe.metadata = &Metadata{Duration: 0.5, AudioCodec: "pcm_s16le", SampleRate: 8000, Channels: 2}

	imported, err := f.importer.ImportAudio(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 4000, imported.Buffer.Len())
	assert.InDelta(t, 0.5, imported.Duration, 1e-9)
	assert.Equal(t, "room tone", imported.Label)
	assert.Equal(t, models.TrackAudio, imported.Source.Kind)
	assert.Equal(t, 0, f.runner.callCount())
}

func TestImportAudio_WithoutFFprobe(t *testing.T) {
	f := newImporterFixture(t, false)
	path := filepath.Join(f.mediaDir, "voice.wav")
	writeWAV(t, path, 8000, 800)
	f.probe.err = ErrFFprobeNotFound

	imported, err := f.importer.ImportAudio(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, imported.Duration, 1e-9)
	require.NotNil(t, imported.Source.AudioCodec)
	assert.Equal(t, "wav", *imported.Source.AudioCodec)
}

func TestImportAudio_Failures(t *testing.T) {
	f := newImporterFixture(t, false)
	ctx := context.Background()

	_, err := f.importer.ImportAudio(ctx, f.writeFile(t, "clip.mp4"))
	assert.True(t, models.IsKind(err, models.KindDecodeFailure))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	f.probe.metadata = &Metadata{Duration: 1, AudioCodec: "pcm_s16le"}
	_, err = f.importer.ImportAudio(ctx, f.writeFile(t, "corrupt.wav"))
	assert.True(t, models.IsKind(err, models.KindDecodeFailure))
	assert.ErrorIs(t, err, ErrInvalidFile)
}

//go:build integration
// +build integration

package integration

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/reel/internal/config"
	"github.com/stwalsh4118/reel/internal/db"
	"github.com/stwalsh4118/reel/internal/media"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/server"
	"github.com/stwalsh4118/reel/internal/session"
)

const (
	testSampleRate = beep.SampleRate(8000)
	testFrameRate  = 10
)

// frameColor is the colour of every frame the fake ffmpeg writes
var frameColor = color.RGBA{R: 20, G: 40, B: 220, A: 255}

// setupTestDB creates an in-memory test database with migrations applied
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories) {
	t.Helper()

	database, err := db.New(":memory:")
	require.NoError(t, err, "Failed to create in-memory database")
	t.Cleanup(func() { _ = database.Close() })

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err, "Failed to get SQL DB")

	// Resolve migrations relative to this file so tests work from any directory
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")
	root := filepath.Dir(filepath.Dir(filepath.Dir(filename)))
	require.NoError(t, db.RunMigrations(sqlDB, "file://"+filepath.Join(root, "migrations")), "Failed to run migrations")

	return database, db.NewRepositories(database)
}

// fakeFFmpeg writes real JPEG frames wherever ffmpeg would have extracted them
func fakeFFmpeg(frames int) media.RunFunc {
	return func(_ context.Context, args []string) error {
		for _, arg := range args {
			if !strings.HasSuffix(arg, "frame_%05d.jpg") {
				continue
			}
			dir := filepath.Dir(arg)
			for i := 1; i <= frames; i++ {
				if err := writeJPEG(filepath.Join(dir, fmt.Sprintf("frame_%05d.jpg", i))); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

func writeJPEG(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, frameColor)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
}

// fakeProbe reports video files as h264 of the given duration. Audio acts as if
// ffprobe were missing so the importer measures it by decoding.
func fakeProbe(videoDuration float64) media.ProbeFunc {
	return func(_ context.Context, path string, _ time.Duration) (*media.Metadata, error) {
		if kind, _ := media.ClassifyPath(path); kind == models.TrackAudio {
			return nil, media.ErrFFprobeNotFound
		}
		return &media.Metadata{Duration: videoDuration, VideoCodec: "h264", Width: 16, Height: 9, FrameRate: testFrameRate}, nil
	}
}

// writeWAV writes a silent stereo WAV file of the given length
func writeWAV(t *testing.T, path string, seconds float64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: testSampleRate, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(testSampleRate.N(time.Duration(seconds*float64(time.Second)))), format))
}

// writeMediaFolder creates a video and an audio file plus a file that is not media
func writeMediaFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_harbour.mp4"), []byte("not really h264"), 0644))
	writeWAV(t, filepath.Join(dir, "b_gulls.wav"), 1.5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("shot list"), 0644))
	return dir
}

// setupTestServer builds the full stack: probe cache, importer, session and router
func setupTestServer(t *testing.T) (http.Handler, *session.Session, *db.Repositories) {
	t.Helper()

	database, repos := setupTestDB(t)
	workDir := t.TempDir()

	importer, err := media.NewImporter(media.ImporterConfig{
		WorkDir:    workDir,
		FrameRate:  testFrameRate,
		SampleRate: testSampleRate,
	}, media.NewProcessor(media.NewBreaker(3, time.Minute), fakeFFmpeg(20)), repos.Media, fakeProbe(2))
	require.NoError(t, err)

	sess, err := session.New(session.Options{
		SampleRate:   testSampleRate,
		RefreshRate:  100,
		PumpInterval: 5 * time.Millisecond,
		WorkDir:      workDir,
		Importer:     importer,
	})
	require.NoError(t, err)
	sess.Start(context.Background())
	t.Cleanup(func() { _ = sess.Close() })

	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Logging: config.LoggingConfig{Level: "info"},
	}
	srv := server.New(cfg, database, sess)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return srv.Handler(), sess, repos
}

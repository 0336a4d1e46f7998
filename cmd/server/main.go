package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gopxl/beep/v2"
	"golang.org/x/sync/errgroup"

	"github.com/stwalsh4118/reel/internal/config"
	"github.com/stwalsh4118/reel/internal/db"
	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/media"
	"github.com/stwalsh4118/reel/internal/server"
	"github.com/stwalsh4118/reel/internal/session"
	"github.com/stwalsh4118/reel/internal/video"
)

const (
	shutdownTimeout  = 30 * time.Second
	breakerThreshold = 3
	breakerReset     = 30 * time.Second
	importTimeout    = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reel: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)
	logger.Log.Info().Msg("Reel timeline engine starting")

	if err := media.CheckFFmpegInstalled(); err != nil {
		logger.Log.Warn().Err(err).Msg("FFmpeg not found, video import will fail")
	}
	if err := media.CheckFFprobeInstalled(); err != nil {
		logger.Log.Warn().Err(err).Msg("FFprobe not found, audio will be measured by decoding")
	}

	database, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	if database != nil {
		defer func() {
			if err := database.Close(); err != nil {
				logger.Log.Error().Err(err).Msg("Failed to close database")
			}
		}()
	}

	importer, err := newImporter(cfg, database)
	if err != nil {
		return err
	}

	surface := video.NewSurface()
	if cfg.Render.SurfaceMode == config.SurfaceModeFixed {
		surface = video.NewFixedSurface(cfg.Render.Width, cfg.Render.Height)
	}

	sess, err := session.New(session.Options{
		SampleRate:      beep.SampleRate(cfg.Playback.SampleRate),
		RefreshRate:     cfg.Render.RefreshRate,
		PumpInterval:    cfg.Playback.PumpInterval,
		PixelsPerSecond: cfg.Playback.PixelsPerSecond,
		WorkDir:         cfg.Media.WorkDir,
		Surface:         surface,
		Compositor: video.Options{
			Background:    cfg.Render.Background,
			Width:         cfg.Render.Width,
			Height:        cfg.Render.Height,
			SeekTolerance: cfg.Playback.SeekTolerance.Seconds(),
		},
		Importer: importer,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess.Start(ctx)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to release session resources")
		}
	}()

	srv := server.New(cfg, database, sess)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Media.WatchDir != "" {
		watcher, err := media.NewWatcher(cfg.Media.WatchDir, 0, func(found media.Found) {
			fileCtx, cancel := context.WithTimeout(gctx, importTimeout)
			defer cancel()
			if _, err := sess.ImportFile(fileCtx, found); err != nil {
				logger.Log.Warn().
					Err(err).
					Str("file_path", found.Path).
					Msg("Failed to import watched file")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return watcher.Stop()
		})
	}

	g.Go(srv.Start)

	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Log.Info().Msg("Reel stopped")
	return nil
}

// openDatabase opens and migrates the probe cache. An empty path disables it.
func openDatabase(cfg config.DatabaseConfig) (*db.DB, error) {
	if cfg.Path == "" {
		logger.Log.Info().Msg("Probe cache disabled")
		return nil, nil
	}

	database, err := db.Open(cfg.Path, db.Options{
		EnableWAL:      cfg.EnableWAL,
		ConnectTimeout: cfg.ConnectionTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Migrate(cfg.MigrationsPath); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Log.Info().
		Str("path", cfg.Path).
		Bool("wal", cfg.EnableWAL).
		Msg("Probe cache ready")
	return database, nil
}

func newImporter(cfg *config.Config, database *db.DB) (*media.Importer, error) {
	width, height, err := media.ParseFrameSize(cfg.Media.FrameSize)
	if err != nil {
		return nil, fmt.Errorf("invalid frame size: %w", err)
	}

	var cache media.ProbeCache
	if database != nil {
		cache = db.NewMediaRepository(database)
	}

	processor := media.NewProcessor(media.NewBreaker(breakerThreshold, breakerReset), nil)

	importer, err := media.NewImporter(media.ImporterConfig{
		WorkDir:      cfg.Media.WorkDir,
		FrameRate:    cfg.Media.FrameRate,
		FrameWidth:   width,
		FrameHeight:  height,
		Boomerang:    cfg.Media.Boomerang,
		ProbeTimeout: cfg.Media.ProbeTimeout,
		SampleRate:   beep.SampleRate(cfg.Playback.SampleRate),
	}, processor, cache, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create importer: %w", err)
	}
	return importer, nil
}

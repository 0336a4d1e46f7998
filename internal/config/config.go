// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "127.0.0.1"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/reel.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultDatabaseEnableWAL         = true
	defaultMigrationsPath            = "file://./migrations"
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultMediaWorkDir              = "./data/work"
	defaultMediaWatchDir             = ""
	defaultMediaBoomerang            = false
	defaultMediaFrameRate            = 30
	defaultMediaProbeTimeout         = 30 * time.Second
	defaultPlaybackSampleRate        = 48000
	defaultPlaybackSeekTolerance     = 50 * time.Millisecond
	defaultPlaybackPixelsPerSecond   = 30.0
	defaultPlaybackPumpInterval      = 10 * time.Millisecond
	defaultRenderRefreshRate         = 60
	defaultRenderBackground          = "#000000"
	defaultRenderWidth               = 1280
	defaultRenderHeight              = 720
	defaultRenderSurfaceMode         = SurfaceModeMatch
	envPrefix                        = "REEL"
)

// Surface sizing modes
const (
	// SurfaceModeMatch resizes the visible surface to the source frame size
	SurfaceModeMatch = "match"
	// SurfaceModeFixed keeps the configured surface size and scales frames into it
	SurfaceModeFixed = "fixed"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Media    MediaConfig
	Playback PlaybackConfig
	Render   RenderConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds the probe cache database configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
	MigrationsPath    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// MediaConfig holds import pipeline configuration
type MediaConfig struct {
	WorkDir      string        // Root for per-clip ephemeral directories
	WatchDir     string        // Optional folder whose new files are imported automatically
	Boomerang    bool          // Append a reversed copy to imported video (forward + reverse)
	FrameRate    int           // Frames per second extracted for decoded video elements
	FrameSize    string        // Optional WxH scale for extracted frames, empty keeps native size
	ProbeTimeout time.Duration // Upper bound for a single ffprobe run
}

// PlaybackConfig holds transport and audio output configuration
type PlaybackConfig struct {
	SampleRate      int
	SeekTolerance   time.Duration // Drift allowed before a video element is re-seeked
	PixelsPerSecond float64       // Timeline ruler scale used by pixel seeks
	PumpInterval    time.Duration // How often the audio pump pulls samples from the output
}

// RenderConfig holds compositor output configuration
type RenderConfig struct {
	RefreshRate int    // Render ticks per second while playing
	Background  string // Hex colour used when no video clip is active
	Width       int
	Height      int
	SurfaceMode string
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/reel")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)
	v.SetDefault("database.migrationspath", defaultMigrationsPath)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	v.SetDefault("media.workdir", defaultMediaWorkDir)
	v.SetDefault("media.watchdir", defaultMediaWatchDir)
	v.SetDefault("media.boomerang", defaultMediaBoomerang)
	v.SetDefault("media.framerate", defaultMediaFrameRate)
	v.SetDefault("media.framesize", "")
	v.SetDefault("media.probetimeout", defaultMediaProbeTimeout)

	v.SetDefault("playback.samplerate", defaultPlaybackSampleRate)
	v.SetDefault("playback.seektolerance", defaultPlaybackSeekTolerance)
	v.SetDefault("playback.pixelspersecond", defaultPlaybackPixelsPerSecond)
	v.SetDefault("playback.pumpinterval", defaultPlaybackPumpInterval)

	v.SetDefault("render.refreshrate", defaultRenderRefreshRate)
	v.SetDefault("render.background", defaultRenderBackground)
	v.SetDefault("render.width", defaultRenderWidth)
	v.SetDefault("render.height", defaultRenderHeight)
	v.SetDefault("render.surfacemode", defaultRenderSurfaceMode)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if c.Media.FrameRate < 1 || c.Media.FrameRate > 120 {
		return fmt.Errorf("invalid media frame rate: %d (must be between 1 and 120)", c.Media.FrameRate)
	}
	if c.Media.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: %v (must be > 0)", c.Media.ProbeTimeout)
	}

	if c.Playback.SampleRate < 8000 || c.Playback.SampleRate > 192000 {
		return fmt.Errorf("invalid sample rate: %d (must be between 8000 and 192000)", c.Playback.SampleRate)
	}
	if c.Playback.SeekTolerance <= 0 {
		return fmt.Errorf("invalid seek tolerance: %v (must be > 0)", c.Playback.SeekTolerance)
	}
	if c.Playback.PixelsPerSecond <= 0 {
		return fmt.Errorf("invalid pixels per second: %v (must be > 0)", c.Playback.PixelsPerSecond)
	}
	if c.Playback.PumpInterval <= 0 {
		return fmt.Errorf("invalid pump interval: %v (must be > 0)", c.Playback.PumpInterval)
	}

	if c.Render.RefreshRate < 1 || c.Render.RefreshRate > 240 {
		return fmt.Errorf("invalid refresh rate: %d (must be between 1 and 240)", c.Render.RefreshRate)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("invalid render size: %dx%d (must be > 0)", c.Render.Width, c.Render.Height)
	}
	validModes := []string{SurfaceModeMatch, SurfaceModeFixed}
	if !contains(validModes, c.Render.SurfaceMode) {
		return fmt.Errorf("invalid surface mode: %s (must be one of: %s)", c.Render.SurfaceMode, strings.Join(validModes, ", "))
	}

	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

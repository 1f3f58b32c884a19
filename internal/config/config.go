// Package config provides configuration for the Reelroom server.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8090
	DefaultLogLevel = "info"
	DefaultDataDir  = ".reelroom"
	DefaultStore    = StoreSQLite
	DefaultWorkers  = 2

	// Store modes
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	// Environment variable names
	EnvPort             = "REELROOM_PORT"
	EnvLogLevel         = "REELROOM_LOG_LEVEL"
	EnvDataDir          = "REELROOM_DATA_DIR"
	EnvStore            = "REELROOM_STORE"
	EnvWorkers          = "REELROOM_WORKERS"
	EnvFFmpeg           = "REELROOM_FFMPEG"
	EnvFFprobe          = "REELROOM_FFPROBE"
	EnvProbeTimeout     = "REELROOM_PROBE_TIMEOUT"
	EnvTranscodeTimeout = "REELROOM_TRANSCODE_TIMEOUT"

	// Database filename
	DBFilename = "reelroom.db"

	// External tool defaults
	DefaultProbeTimeout     = 30 * time.Second
	DefaultTranscodeTimeout = 20 * time.Minute
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Store() string
	Workers() int
	OriginalsDir() string
	ProxiesDir() string
	ThumbnailsDir() string
	FFmpegPath() string
	FFprobePath() string
	ProbeTimeout() time.Duration
	TranscodeTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port             int
	logLevel         string
	dataDir          string
	store            string
	workers          int
	ffmpeg           string
	ffprobe          string
	probeTimeout     time.Duration
	transcodeTimeout time.Duration
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:             DefaultPort,
		logLevel:         DefaultLogLevel,
		dataDir:          defaultDataDir(),
		store:            DefaultStore,
		workers:          DefaultWorkers,
		probeTimeout:     DefaultProbeTimeout,
		transcodeTimeout: DefaultTranscodeTimeout,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if st := os.Getenv(EnvStore); st != "" {
		if st != StoreSQLite && st != StoreMemory {
			return nil, fmt.Errorf("invalid %s: must be %q or %q", EnvStore, StoreSQLite, StoreMemory)
		}
		cfg.store = st
	}

	if w := os.Getenv(EnvWorkers); w != "" {
		workers, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		if workers < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvWorkers)
		}
		cfg.workers = workers
	}

	cfg.ffmpeg = os.Getenv(EnvFFmpeg)
	cfg.ffprobe = os.Getenv(EnvFFprobe)

	if pt, err := timeoutFromEnv(EnvProbeTimeout); err != nil {
		return nil, err
	} else if pt > 0 {
		cfg.probeTimeout = pt
	}

	if tt, err := timeoutFromEnv(EnvTranscodeTimeout); err != nil {
		return nil, err
	} else if tt > 0 {
		cfg.transcodeTimeout = tt
	}

	return cfg, nil
}

// timeoutFromEnv parses a duration env var ("45s", "10m"); 0 means unset.
func timeoutFromEnv(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Store returns the persistence backend ("sqlite" or "memory")
func (c *EnvConfig) Store() string {
	return c.store
}

// Workers returns the maximum number of concurrent clip pipelines
func (c *EnvConfig) Workers() int {
	return c.workers
}

// OriginalsDir returns the directory holding uploaded raw files
func (c *EnvConfig) OriginalsDir() string {
	return filepath.Join(c.dataDir, "originals")
}

// ProxiesDir returns the directory holding generated proxy videos
func (c *EnvConfig) ProxiesDir() string {
	return filepath.Join(c.dataDir, "proxies")
}

// ThumbnailsDir returns the directory holding generated thumbnails
func (c *EnvConfig) ThumbnailsDir() string {
	return filepath.Join(c.dataDir, "thumbnails")
}

// FFmpegPath returns the configured ffmpeg binary path, empty for auto-detect
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpeg
}

// FFprobePath returns the configured ffprobe binary path, empty for auto-detect
func (c *EnvConfig) FFprobePath() string {
	return c.ffprobe
}

// ProbeTimeout returns the maximum wall time for one ffprobe run
func (c *EnvConfig) ProbeTimeout() time.Duration {
	return c.probeTimeout
}

// TranscodeTimeout returns the maximum wall time for one ffmpeg run
func (c *EnvConfig) TranscodeTimeout() time.Duration {
	return c.transcodeTimeout
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Package config provides configuration management for the Jumpcut engine.
// Configuration is loaded from a .env file when present, then from environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort            = 8690
	DefaultLogLevel        = "info"
	DefaultDataDir         = ".jumpcut"
	DefaultAheadWindow     = 3
	DefaultBehindRetention = 2
	DefaultTickMs          = 50
	DefaultManifestTimeout = 30 // seconds
	DefaultManifestPollMs  = 2000

	// Environment variable names
	EnvPort            = "JUMPCUT_PORT"
	EnvLogLevel        = "JUMPCUT_LOG_LEVEL"
	EnvDataDir         = "JUMPCUT_DATA_DIR"
	EnvMediaDir        = "JUMPCUT_MEDIA_DIR"
	EnvAheadWindow     = "JUMPCUT_BUFFER_AHEAD"
	EnvBehindRetention = "JUMPCUT_BUFFER_BEHIND"
	EnvTickMs          = "JUMPCUT_TICK_MS"
	EnvManifestURL     = "JUMPCUT_MANIFEST_BUILDER_URL"
	EnvManifestTimeout = "JUMPCUT_MANIFEST_TIMEOUT_S"

	// Database filename
	DBFilename = "jumpcut.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	AheadWindow() int
	BehindRetention() int
	TickInterval() time.Duration
	ManifestBuilderURL() string
	ManifestTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port            int
	logLevel        string
	dataDir         string
	mediaDir        string
	aheadWindow     int
	behindRetention int
	tickMs          int
	manifestURL     string
	manifestTimeout int
}

// New creates a new EnvConfig with defaults and environment variable
// overrides. A .env file in the working directory is loaded first if present.
func New() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		dataDir:         defaultDataDir(),
		aheadWindow:     DefaultAheadWindow,
		behindRetention: DefaultBehindRetention,
		tickMs:          DefaultTickMs,
		manifestTimeout: DefaultManifestTimeout,
	}

	// Override port from environment
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

	cfg.mediaDir = os.Getenv(EnvMediaDir)
	if cfg.mediaDir == "" {
		cfg.mediaDir = filepath.Join(cfg.dataDir, "media")
	}

	var err error
	if cfg.aheadWindow, err = envInt(EnvAheadWindow, cfg.aheadWindow, 1); err != nil {
		return nil, err
	}
	if cfg.behindRetention, err = envInt(EnvBehindRetention, cfg.behindRetention, 0); err != nil {
		return nil, err
	}
	if cfg.tickMs, err = envInt(EnvTickMs, cfg.tickMs, 10); err != nil {
		return nil, err
	}
	if cfg.manifestTimeout, err = envInt(EnvManifestTimeout, cfg.manifestTimeout, 1); err != nil {
		return nil, err
	}

	cfg.manifestURL = os.Getenv(EnvManifestURL)

	return cfg, nil
}

func envInt(key string, fallback, min int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < min {
		return 0, fmt.Errorf("invalid %s: must be >= %d", key, min)
	}
	return n, nil
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

// MediaDir returns the directory source media is served from
func (c *EnvConfig) MediaDir() string {
	return c.mediaDir
}

// AheadWindow returns how many clips to buffer ahead of the cursor
func (c *EnvConfig) AheadWindow() int {
	return c.aheadWindow
}

// BehindRetention returns how many clips to retain behind the cursor
func (c *EnvConfig) BehindRetention() int {
	return c.behindRetention
}

// TickInterval returns the playback clock tick interval
func (c *EnvConfig) TickInterval() time.Duration {
	return time.Duration(c.tickMs) * time.Millisecond
}

// ManifestBuilderURL returns the unified manifest builder base URL, empty when
// the streaming path is disabled
func (c *EnvConfig) ManifestBuilderURL() string {
	return c.manifestURL
}

// ManifestTimeout returns how long to wait for a manifest build before falling
// back to sequential playback
func (c *EnvConfig) ManifestTimeout() time.Duration {
	return time.Duration(c.manifestTimeout) * time.Second
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

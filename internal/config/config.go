package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/baysound/sf-events/internal/logger"
)

const (
	DefaultDataDir    = "~/.local/share/sf-events"
	DefaultConfigFile = "~/.config/sf-events/config.toml"
	DefaultUserAgent  = "sf-events/1.0 (+https://github.com/baysound/sf-events)"
	DefaultBind       = "127.0.0.1:8089"
)

// Fetch controls page downloads.
type Fetch struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Extract controls candidate extraction.
type Extract struct {
	WindowRadius int `toml:"window_radius"`
	AssumedYear  int `toml:"assumed_year"` // 0 means roll forward from today
	Workers      int `toml:"workers"`
}

// Schedule controls the serve loop.
type Schedule struct {
	IntervalMinutes int `toml:"interval_minutes"`
	KeepRuns        int `toml:"keep_runs"` // 0 keeps everything
}

// Server controls the status endpoint.
type Server struct {
	Bind string `toml:"bind"`
}

// Config is the full application configuration.
type Config struct {
	DataDir    string   `toml:"data_dir"`
	VenuesFile string   `toml:"venues_file"`
	LogLevel   string   `toml:"log_level"`
	Fetch      Fetch    `toml:"fetch"`
	Extract    Extract  `toml:"extract"`
	Schedule   Schedule `toml:"schedule"`
	Server     Server   `toml:"server"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  DefaultDataDir,
		LogLevel: "info",
		Fetch: Fetch{
			TimeoutSeconds: 30,
			UserAgent:      DefaultUserAgent,
		},
		Extract: Extract{
			WindowRadius: 200,
			Workers:      1,
		},
		Schedule: Schedule{
			IntervalMinutes: 360,
		},
		Server: Server{
			Bind: DefaultBind,
		},
	}
}

// Load reads path over the defaults, expands paths and validates.
// An empty path means DefaultConfigFile, which may be absent. An explicit
// path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		if err := Decode(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("open config: %w", err)
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode parses TOML from r into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// Encode writes cfg as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Normalize expands ~ in path fields and lowercases the log level.
func (c *Config) Normalize() error {
	var err error
	if c.DataDir, err = expandPath(c.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if c.VenuesFile, err = expandPath(c.VenuesFile); err != nil {
		return fmt.Errorf("venues_file: %w", err)
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	if c.Extract.WindowRadius <= 0 {
		return errors.New("extract.window_radius must be positive")
	}
	if c.Extract.Workers < 1 {
		return errors.New("extract.workers must be at least 1")
	}
	if c.Extract.AssumedYear < 0 {
		return errors.New("extract.assumed_year must not be negative")
	}
	if c.Schedule.IntervalMinutes <= 0 {
		return errors.New("schedule.interval_minutes must be positive")
	}
	if c.Schedule.KeepRuns < 0 {
		return errors.New("schedule.keep_runs must not be negative")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// FetchTimeout returns the per-fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// Interval returns the scheduler interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}

func expandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if p[1] == '/' {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Clean(p), nil
}

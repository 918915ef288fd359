// Package config loads the board's settings from a TOML file, with
// environment overrides, and watches the file for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"CanvasBoard/internal/logging"
)

// Environment variables that override the file.
const (
	EnvGenURL    = "CANVASBOARD_GEN_URL"
	EnvGenToken  = "CANVASBOARD_GEN_TOKEN"
	EnvSharePort = "CANVASBOARD_SHARE_PORT"
	EnvLogLevel  = "CANVASBOARD_LOG_LEVEL"
)

// Generation configures the generation backend.
type Generation struct {
	URL        string `toml:"url"`
	Token      string `toml:"token"`
	Model      string `toml:"model"`
	TargetSize int    `toml:"target_size"`
}

// Share configures the LAN viewer.
type Share struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
	MDNS    bool `toml:"mdns"`
}

// Stroke holds the default annotation style.
type Stroke struct {
	Color string  `toml:"color"`
	Width float64 `toml:"width"`
}

// Config is the full settings file.
type Config struct {
	LogLevel        string     `toml:"log_level"`
	HistoryCapacity int        `toml:"history_capacity"`
	RasterPadding   float64    `toml:"raster_padding"`
	BoardDir        string     `toml:"board_dir"`
	Generation      Generation `toml:"generation"`
	Share           Share      `toml:"share"`
	Stroke          Stroke     `toml:"stroke"`
}

// Default returns the settings used when no file exists.
func Default() Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return Config{
		LogLevel:        "info",
		HistoryCapacity: 50,
		RasterPadding:   10,
		BoardDir:        filepath.Join(dir, "canvasboard", "boards"),
		Generation: Generation{
			URL:        "http://localhost:8080",
			TargetSize: 1024,
		},
		Share: Share{
			Enabled: true,
			Port:    8888,
			MDNS:    true,
		},
		Stroke: Stroke{
			Color: "#ef4444",
			Width: 4,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/canvasboard/config.toml, or the
// platform's equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, "canvasboard", "config.toml"), nil
}

// WorkspacePath is where the board workspace is saved.
func (c Config) WorkspacePath() string {
	return filepath.Join(c.BoardDir, "workspace.json")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Logger().Debug("no config file, using defaults", "path", path)
	case err != nil:
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	default:
		for _, key := range md.Undecoded() {
			logging.Logger().Warn("unknown config key", "key", key.String(), "path", path)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvGenURL); v != "" {
		c.Generation.URL = v
	}
	if v := getenv(EnvGenToken); v != "" {
		c.Generation.Token = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvSharePort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSharePort, err)
		}
		c.Share.Port = port
	}
	return nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Share.Port < 0 || c.Share.Port > 65535 {
		errs = append(errs, fmt.Errorf("share.port %d out of range", c.Share.Port))
	}
	if c.HistoryCapacity < 1 {
		errs = append(errs, fmt.Errorf("history_capacity must be positive, got %d", c.HistoryCapacity))
	}
	if c.RasterPadding < 0 {
		errs = append(errs, fmt.Errorf("raster_padding must not be negative, got %g", c.RasterPadding))
	}
	if c.Stroke.Width <= 0 {
		errs = append(errs, fmt.Errorf("stroke.width must be positive, got %g", c.Stroke.Width))
	}
	if c.Generation.TargetSize < 0 {
		errs = append(errs, fmt.Errorf("generation.target_size must not be negative, got %d", c.Generation.TargetSize))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q unknown", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Save writes c to path as TOML, creating the directory.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

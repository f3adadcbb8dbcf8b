// Package config loads the startup configuration: defaults, then a TOML file,
// then HANDPC_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/oneoblomov/HandPC/internal/action"
	"github.com/oneoblomov/HandPC/internal/capture"
	"github.com/oneoblomov/HandPC/internal/detector"
	"github.com/oneoblomov/HandPC/internal/gesture"
)

// Config is the full application configuration.
type Config struct {
	DataDir string `toml:"data_dir"`
	Addr    string `toml:"addr"`
	Tray    bool   `toml:"tray"`
	Debug   bool   `toml:"debug"`

	Camera   capture.Config  `toml:"camera"`
	Detector detector.Config `toml:"detector"`
	Gesture  gesture.Config  `toml:"gesture"`
	Action   action.Config   `toml:"action"`

	// Apps maps app names an open_app gesture may request to commands.
	Apps map[string]string `toml:"apps"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  DefaultDataDir(),
		Addr:     "127.0.0.1:8765",
		Tray:     true,
		Camera:   capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Gesture:  gesture.DefaultConfig(),
		Action:   action.DefaultConfig(),
		Apps:     action.DefaultApps(),
	}
}

// DefaultDataDir returns ~/.handpc, or .handpc when there is no home
// directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".handpc"
	}
	return filepath.Join(home, ".handpc")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

// DBPath returns the database file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "handpc.db")
}

// Validate reports settings no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Gesture.ScreenWidth <= 0 || c.Gesture.ScreenHeight <= 0 {
		errs = append(errs, fmt.Errorf("screen size %dx%d must be positive", c.Gesture.ScreenWidth, c.Gesture.ScreenHeight))
	}
	if c.Action.MinConfidence < 0 || c.Action.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min_confidence %v must be within [0, 1]", c.Action.MinConfidence))
	}
	if c.Action.MaxActionsPerSecond < 1 {
		errs = append(errs, fmt.Errorf("max_actions_per_second %d must be at least 1", c.Action.MaxActionsPerSecond))
	}
	if c.Action.EdgeMargin < 0 {
		errs = append(errs, fmt.Errorf("edge_margin %v must not be negative", c.Action.EdgeMargin))
	}
	if c.Camera.ActiveFPS <= 0 || c.Camera.IdleFPS <= 0 {
		errs = append(errs, fmt.Errorf("camera fps %d/%d must be positive", c.Camera.ActiveFPS, c.Camera.IdleFPS))
	}
	return errors.Join(errs...)
}

// Load reads the config file at path over the defaults. A missing file is
// created with the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return cfg, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

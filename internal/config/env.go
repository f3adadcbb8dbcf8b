package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HANDPC_"

// overrides lists the settings that may be set from the environment. Unset
// variables leave the pointer nil.
type overrides struct {
	DataDir             *string  `env:"DATA_DIR"`
	Addr                *string  `env:"ADDR"`
	Tray                *bool    `env:"TRAY"`
	Debug               *bool    `env:"DEBUG"`
	CameraDevice        *int     `env:"CAMERA"`
	CameraFPS           *int     `env:"CAMERA_FPS"`
	SafeMode            *bool    `env:"SAFE_MODE"`
	Tutorial            *bool    `env:"TUTORIAL"`
	AutoCalibrate       *bool    `env:"AUTO_CALIBRATE"`
	MinConfidence       *float64 `env:"MIN_CONFIDENCE"`
	MaxActionsPerSecond *int     `env:"MAX_ACTIONS_PER_SECOND"`
	EdgeMargin          *float64 `env:"EDGE_MARGIN"`
	ScreenWidth         *int     `env:"SCREEN_WIDTH"`
	ScreenHeight        *int     `env:"SCREEN_HEIGHT"`
}

// ApplyEnv applies HANDPC_ overrides from environ to cfg. A nil environ
// reads the process environment.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	var o overrides
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	set(&cfg.DataDir, o.DataDir)
	set(&cfg.Addr, o.Addr)
	set(&cfg.Tray, o.Tray)
	set(&cfg.Debug, o.Debug)
	set(&cfg.Camera.Device, o.CameraDevice)
	set(&cfg.Camera.ActiveFPS, o.CameraFPS)
	set(&cfg.Action.SafeMode, o.SafeMode)
	set(&cfg.Action.DryRun, o.Tutorial)
	set(&cfg.Gesture.AutoCalibrate, o.AutoCalibrate)
	set(&cfg.Action.MinConfidence, o.MinConfidence)
	set(&cfg.Action.MaxActionsPerSecond, o.MaxActionsPerSecond)
	set(&cfg.Action.EdgeMargin, o.EdgeMargin)
	set(&cfg.Gesture.ScreenWidth, o.ScreenWidth)
	set(&cfg.Gesture.ScreenHeight, o.ScreenHeight)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

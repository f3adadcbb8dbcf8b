package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector finds hand landmarks in camera frames.
type Detector interface {
	// Detect returns the hands in frame, or an empty slice when there are none.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)
	Close() error
}

// Config configures the MediaPipe hand tracking service.
type Config struct {
	// MaxHands caps the hands reported per frame. Only the first one moves
	// the cursor.
	MaxHands int `toml:"max_hands"`

	// Detection and tracking confidence floors, 0 to 1.
	MinConfidence   float64 `toml:"min_confidence"`
	MinTrackingConf float64 `toml:"min_tracking_confidence"`

	// ScriptPath and Python override the lookup of the service script and
	// its interpreter.
	ScriptPath string `toml:"script_path"`
	Python     string `toml:"python"`

	IdleTimeout time.Duration `toml:"idle_timeout"`
}

// DefaultConfig tracks one hand and stops the service after 30s idle.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}

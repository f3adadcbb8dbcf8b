// Package calibration derives per-user hand geometry from a short
// observation window.
package calibration

import (
	"log"
	"math"
	"time"

	"github.com/oneoblomov/HandPC/internal/detector"
)

// State is the calibrator lifecycle state.
type State int

const (
	Idle State = iota
	Collecting
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Config holds calibration parameters.
type Config struct {
	Duration   time.Duration `toml:"duration"`
	MinSamples int           `toml:"min_samples"`

	// Thresholds are derived as a fraction of the mean hand size.
	PinchRatio    float64 `toml:"pinch_ratio"`
	MovementRatio float64 `toml:"movement_ratio"`

	// Average palm motion range above WideRange or below NarrowRange picks
	// the matching sensitivity.
	WideRange         float64 `toml:"wide_range"`
	NarrowRange       float64 `toml:"narrow_range"`
	WideSensitivity   float64 `toml:"wide_sensitivity"`
	NarrowSensitivity float64 `toml:"narrow_sensitivity"`
}

// DefaultConfig returns a three second window needing at least 30 samples.
func DefaultConfig() Config {
	return Config{
		Duration:          3 * time.Second,
		MinSamples:        30,
		PinchRatio:        0.12,
		MovementRatio:     0.08,
		WideRange:         0.3,
		NarrowRange:       0.1,
		WideSensitivity:   0.8,
		NarrowSensitivity: 1.5,
	}
}

// Range is the bounding box of palm motion in normalized coordinates.
type Range struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal extent.
func (r Range) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent.
func (r Range) Height() float64 { return r.MaxY - r.MinY }

// Profile holds the thresholds derived for one user.
type Profile struct {
	HandSize          float64 `json:"hand_size"`
	PinchThreshold    float64 `json:"pinch_threshold"`
	MovementThreshold float64 `json:"movement_threshold"`
	Sensitivity       float64 `json:"sensitivity"`
	RestX             float64 `json:"rest_x"`
	RestY             float64 `json:"rest_y"`
	MovementRange     Range   `json:"movement_range"`
	Samples           int     `json:"samples"`
	Calibrated        bool    `json:"calibrated"`
}

// DefaultProfile returns the thresholds used before calibration.
func DefaultProfile() Profile {
	return Profile{
		PinchThreshold:    0.05,
		MovementThreshold: 0.02,
		Sensitivity:       1.0,
	}
}

type sample struct {
	handSize float64
	palmX    float64
	palmY    float64
}

// Calibrator collects hand samples and computes a Profile. It is not safe
// for concurrent use.
type Calibrator struct {
	config  Config
	state   State
	started time.Time
	samples []sample
	profile Profile
}

// New creates an idle Calibrator.
func New(config Config) *Calibrator {
	return &Calibrator{
		config:  config,
		profile: DefaultProfile(),
	}
}

// Start begins a new collection window, discarding earlier samples.
func (c *Calibrator) Start(now time.Time) {
	c.state = Collecting
	c.started = now
	c.samples = c.samples[:0]
	log.Printf("Calibration started: hold your hand naturally for %s", c.config.Duration)
}

// AddSample records one frame. It returns true when the window has elapsed
// and a profile was produced. When the window elapses with too few samples
// the attempt is abandoned and the calibrator returns to Idle.
func (c *Calibrator) AddSample(hand *detector.HandLandmarks, now time.Time) bool {
	if c.state != Collecting {
		return false
	}
	if now.Sub(c.started) >= c.config.Duration {
		return c.Finish(now)
	}

	x, y := hand.PalmCenter()
	c.samples = append(c.samples, sample{
		handSize: hand.Size(),
		palmX:    x,
		palmY:    y,
	})
	return false
}

// Finish ends the window early and computes the profile from what was
// collected so far.
func (c *Calibrator) Finish(now time.Time) bool {
	if c.state != Collecting {
		return c.state == Done
	}

	if len(c.samples) < c.config.MinSamples {
		log.Printf("Calibration abandoned: %d samples, need %d", len(c.samples), c.config.MinSamples)
		c.state = Idle
		return false
	}

	p := c.compute()
	if p.HandSize <= 1e-6 {
		log.Printf("Calibration abandoned: degenerate hand size %.6f", p.HandSize)
		c.state = Idle
		return false
	}

	c.profile = p
	c.state = Done
	log.Printf("Calibration complete: hand size %.3f, pinch %.3f, movement %.3f, sensitivity %.2f",
		p.HandSize, p.PinchThreshold, p.MovementThreshold, p.Sensitivity)
	return true
}

func (c *Calibrator) compute() Profile {
	r := Range{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
	}
	var sizeSum, xSum, ySum float64
	for _, s := range c.samples {
		sizeSum += s.handSize
		xSum += s.palmX
		ySum += s.palmY
		r.MinX = math.Min(r.MinX, s.palmX)
		r.MaxX = math.Max(r.MaxX, s.palmX)
		r.MinY = math.Min(r.MinY, s.palmY)
		r.MaxY = math.Max(r.MaxY, s.palmY)
	}

	n := float64(len(c.samples))
	size := sizeSum / n

	sensitivity := 1.0
	switch avg := (r.Width() + r.Height()) / 2; {
	case avg > c.config.WideRange:
		sensitivity = c.config.WideSensitivity
	case avg < c.config.NarrowRange:
		sensitivity = c.config.NarrowSensitivity
	}

	return Profile{
		HandSize:          size,
		PinchThreshold:    size * c.config.PinchRatio,
		MovementThreshold: size * c.config.MovementRatio,
		Sensitivity:       sensitivity,
		RestX:             xSum / n,
		RestY:             ySum / n,
		MovementRange:     r,
		Samples:           len(c.samples),
		Calibrated:        true,
	}
}

// State returns the current lifecycle state.
func (c *Calibrator) State() State {
	return c.state
}

// Samples returns how many samples the current window holds.
func (c *Calibrator) Samples() int {
	return len(c.samples)
}

// Progress returns the elapsed fraction of the collection window.
func (c *Calibrator) Progress(now time.Time) float64 {
	switch c.state {
	case Done:
		return 1
	case Collecting:
		if c.config.Duration <= 0 {
			return 1
		}
		return math.Min(1, float64(now.Sub(c.started))/float64(c.config.Duration))
	default:
		return 0
	}
}

// Profile returns the computed profile and whether calibration completed.
// Before completion it returns DefaultProfile.
func (c *Calibrator) Profile() (Profile, bool) {
	return c.profile, c.state == Done
}

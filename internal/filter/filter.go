// Package filter turns raw normalized landmark positions into stable screen
// cursor positions.
//
// Each frame passes through a Kalman filter, a velocity-adaptive weighted
// average and a jitter suppressor before it is scaled to the screen and
// clamped to the screen bounds. Inside precision zones the cursor covers
// only a fraction of each step.
package filter

import (
	"math"
	"time"
)

// Point is a 2D position, normalized or in pixels depending on context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a screen region in pixels.
type Rect struct {
	X      float64 `toml:"x" json:"x"`
	Y      float64 `toml:"y" json:"y"`
	Width  float64 `toml:"width" json:"width"`
	Height float64 `toml:"height" json:"height"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Config holds the tuning of the filter stack.
type Config struct {
	FrameInterval     time.Duration `toml:"frame_interval"`
	ProcessNoise      float64       `toml:"process_noise"`
	MeasurementNoise  float64       `toml:"measurement_noise"`
	InitialCovariance float64       `toml:"initial_covariance"`

	HistorySize int     `toml:"history_size"`
	SlowSpeed   float64 `toml:"slow_speed"` // pixels per second
	FastSpeed   float64 `toml:"fast_speed"`

	JitterThreshold float64 `toml:"jitter_threshold"` // pixels
	DeadZone        float64 `toml:"dead_zone"`
	StableFrames    int     `toml:"stable_frames"`

	Deceleration   float64 `toml:"deceleration"`
	PrecisionZones []Rect  `toml:"precision_zones"`
}

// DefaultConfig returns the tuning used for a 30 fps camera.
func DefaultConfig() Config {
	return Config{
		FrameInterval:     time.Second / 30,
		ProcessNoise:      0.1,
		MeasurementNoise:  10,
		InitialCovariance: 1000,
		HistorySize:       5,
		SlowSpeed:         50,
		FastSpeed:         200,
		JitterThreshold:   2,
		DeadZone:          0.5,
		StableFrames:      3,
		Deceleration:      0.8,
	}
}

// Stats counts processed frames.
type Stats struct {
	Total     int `json:"total"`
	Held      int `json:"held"`
	Precision int `json:"precision"`
}

// Stack is the per-hand cursor filter. It is not safe for concurrent use.
type Stack struct {
	config   Config
	kalman   *Kalman
	adaptive *Adaptive
	jitter   *Jitter

	sensitivity float64
	zones       []Rect

	last    Point
	hasLast bool
	stats   Stats
}

// New creates a Stack with unit sensitivity.
func New(config Config) *Stack {
	dt := config.FrameInterval.Seconds()
	s := &Stack{
		config:      config,
		kalman:      NewKalman(dt, config.ProcessNoise, config.MeasurementNoise, config.InitialCovariance),
		adaptive:    NewAdaptive(config.HistorySize, dt, config.SlowSpeed, config.FastSpeed),
		jitter:      NewJitter(config.JitterThreshold, config.DeadZone, config.StableFrames),
		sensitivity: 1,
		zones:       append([]Rect(nil), config.PrecisionZones...),
	}
	return s
}

// Process filters one raw normalized position and returns the cursor
// position in pixels, always within [0,w-1]x[0,h-1]. It never fails: a
// non-finite input yields the previous output.
func (s *Stack) Process(rawX, rawY float64, screenW, screenH int) Point {
	w, h := float64(max(screenW, 1)), float64(max(screenH, 1))

	if !finite(rawX) || !finite(rawY) {
		if s.hasLast {
			return s.last
		}
		return clamp(Point{X: w / 2, Y: h / 2}, w, h)
	}

	s.stats.Total++

	kp, _ := s.kalman.Update(rawX, rawY)
	ap := s.adaptive.Add(kp, w, h)
	jp, held := s.jitter.Filter(Point{X: ap.X * w, Y: ap.Y * h})
	if held {
		s.stats.Held++
	}

	if !s.hasLast {
		s.hasLast = true
		s.last = clamp(Point{X: rawX * w, Y: rawY * h}, w, h)
		return s.last
	}

	cx, cy := w/2, h/2
	target := clamp(Point{X: cx + (jp.X-cx)*s.sensitivity, Y: cy + (jp.Y-cy)*s.sensitivity}, w, h)

	// Inside a precision zone only part of the step towards the target is
	// taken, so the cursor slows down without being pulled off its path.
	if s.inPrecisionZone(target) {
		s.stats.Precision++
		dx, dy := target.X-s.last.X, target.Y-s.last.Y
		if math.Hypot(dx, dy) > s.config.DeadZone {
			target = Point{
				X: s.last.X + dx*s.config.Deceleration,
				Y: s.last.Y + dy*s.config.Deceleration,
			}
		}
	}

	s.last = clamp(target, w, h)
	return s.last
}

// SetSensitivity sets the gain applied around the screen centre. Values that
// are not positive are ignored.
func (s *Stack) SetSensitivity(v float64) {
	if v > 0 && finite(v) {
		s.sensitivity = v
	}
}

// Sensitivity returns the current gain.
func (s *Stack) Sensitivity() float64 {
	return s.sensitivity
}

// AddPrecisionZone registers a screen region where motion is slowed.
func (s *Stack) AddPrecisionZone(r Rect) {
	s.zones = append(s.zones, r)
}

// Stats returns the frame counters.
func (s *Stack) Stats() Stats {
	return s.stats
}

// Reset clears all filter state and counters. Sensitivity and precision
// zones are kept.
func (s *Stack) Reset() {
	s.kalman.Reset()
	s.adaptive.Reset()
	s.jitter.Reset()
	s.hasLast = false
	s.last = Point{}
	s.stats = Stats{}
}

func (s *Stack) inPrecisionZone(p Point) bool {
	for _, z := range s.zones {
		if z.Contains(p) {
			return true
		}
	}
	return false
}

func clamp(p Point, w, h float64) Point {
	return Point{
		X: math.Max(0, math.Min(w-1, p.X)),
		Y: math.Max(0, math.Min(h-1, p.Y)),
	}
}

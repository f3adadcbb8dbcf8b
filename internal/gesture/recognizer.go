package gesture

import (
	"log"
	"math"
	"time"

	"github.com/oneoblomov/HandPC/internal/calibration"
	"github.com/oneoblomov/HandPC/internal/detector"
	"github.com/oneoblomov/HandPC/internal/filter"
)

// Config holds recognizer timing and geometry.
type Config struct {
	ScreenWidth  int `toml:"screen_width"`
	ScreenHeight int `toml:"screen_height"`

	// AutoCalibrate feeds the first frames to the calibrator before any
	// gesture is recognized.
	AutoCalibrate     bool `toml:"auto_calibrate"`
	CalibrationFrames int  `toml:"calibration_frames"`

	GripRatio     float64 `toml:"grip_ratio"`     // of the pinch threshold
	ExtendedRatio float64 `toml:"extended_ratio"` // of the hand size

	// Releases within PrecisionMargin pixels of a screen edge use the
	// shorter PrecisionCooldown.
	PrecisionMargin   float64       `toml:"precision_margin"`
	PrecisionCooldown time.Duration `toml:"precision_cooldown"`
	ClickCooldown     time.Duration `toml:"click_cooldown"`
	MultiClickWindow  time.Duration `toml:"multi_click_window"`

	MenuCooldown     time.Duration `toml:"menu_cooldown"`
	MenuConfirmDelay time.Duration `toml:"menu_confirm_delay"`
	MenuTimeout      time.Duration `toml:"menu_timeout"`

	Filter      filter.Config      `toml:"filter"`
	Calibration calibration.Config `toml:"calibration"`
}

// DefaultConfig returns the recognizer defaults for a 1920x1080 screen.
func DefaultConfig() Config {
	return Config{
		ScreenWidth:       1920,
		ScreenHeight:      1080,
		AutoCalibrate:     true,
		CalibrationFrames: 90,
		GripRatio:         1.3,
		ExtendedRatio:     0.6,
		PrecisionMargin:   100,
		PrecisionCooldown: 100 * time.Millisecond,
		ClickCooldown:     150 * time.Millisecond,
		MultiClickWindow:  time.Second,
		MenuCooldown:      time.Second,
		MenuConfirmDelay:  500 * time.Millisecond,
		MenuTimeout:       3 * time.Second,
		Filter:            filter.DefaultConfig(),
		Calibration:       calibration.DefaultConfig(),
	}
}

// state is the cross-frame memory of the recognizer.
type state struct {
	prevPinch bool
	prevGrip  bool
	prevPose  Pose

	// Opening distance of the pinch in progress. Only a pinch that began
	// outside a grip is recorded, and only a recorded pinch can click.
	pinchStart   float64
	pinchStarted bool

	clicks     []time.Time
	lastAction time.Time

	menuOpen     bool
	menuOpenedAt time.Time
	lastMenuOpen time.Time

	// calibFrames counts every frame of the session spent calibrating.
	// Once it reaches the budget and the forced finish fails, gestures run
	// on the default profile while attempts continue.
	calibFrames   int
	calibAttempts int
	calibForced   bool
}

// CalibrationStatus describes the calibration of the current session.
type CalibrationStatus struct {
	Calibrated        bool    `json:"calibrated"`
	State             string  `json:"state"`
	Progress          float64 `json:"progress"`
	Samples           int     `json:"samples"`
	HandSize          float64 `json:"hand_size"`
	PinchThreshold    float64 `json:"pinch_threshold"`
	MovementThreshold float64 `json:"movement_threshold"`
	Sensitivity       float64 `json:"sensitivity"`
	Attempts          int     `json:"attempts"`
}

// Recognizer owns the calibrator and cursor filter of one tracked hand and
// runs the per-frame gesture state machine. It is not safe for concurrent use.
type Recognizer struct {
	config     Config
	calibrator *calibration.Calibrator
	cursor     *filter.Stack
	profile    calibration.Profile
	state      state
}

// New creates an uncalibrated Recognizer.
func New(config Config) *Recognizer {
	r := &Recognizer{config: config}
	r.ResetCalibration()
	return r
}

// ResetCalibration discards the calibrator, cursor filter and profile and
// starts over with fresh instances.
func (r *Recognizer) ResetCalibration() {
	r.calibrator = calibration.New(r.config.Calibration)
	r.cursor = filter.New(r.config.Filter)
	r.profile = calibration.DefaultProfile()
	r.state = state{}
}

// SetProfile installs a previously computed profile, skipping calibration.
// Uncalibrated profiles are ignored.
func (r *Recognizer) SetProfile(p calibration.Profile) {
	if !p.Calibrated {
		return
	}
	r.profile = p
	r.cursor.SetSensitivity(p.Sensitivity)
}

// Profile returns the profile in use.
func (r *Recognizer) Profile() calibration.Profile {
	return r.profile
}

// FilterStats returns the cursor filter counters.
func (r *Recognizer) FilterStats() filter.Stats {
	return r.cursor.Stats()
}

// MenuOpen reports whether the system menu is latched open.
func (r *Recognizer) MenuOpen() bool {
	return r.state.menuOpen
}

// Status returns the calibration status at now.
func (r *Recognizer) Status(now time.Time) CalibrationStatus {
	st := CalibrationStatus{
		Calibrated:        r.profile.Calibrated,
		State:             r.calibrator.State().String(),
		Progress:          r.calibrator.Progress(now),
		Samples:           r.calibrator.Samples(),
		HandSize:          r.profile.HandSize,
		PinchThreshold:    r.profile.PinchThreshold,
		MovementThreshold: r.profile.MovementThreshold,
		Sensitivity:       r.cursor.Sensitivity(),
		Attempts:          r.state.calibAttempts,
	}
	if r.profile.Calibrated {
		st.State = calibration.Done.String()
		st.Progress = 1
	}
	return st
}

// HandLost clears the per-hand transition memory when the tracker loses
// the hand, so a returning hand starts from a neutral pose.
func (r *Recognizer) HandLost() {
	r.state.prevPinch = false
	r.state.prevGrip = false
	r.state.prevPose = PoseNone
	r.state.pinchStarted = false
}

// Process runs one frame. Malformed landmarks are rejected with an error
// and leave all state untouched.
func (r *Recognizer) Process(hand *detector.HandLandmarks, now time.Time) (Event, error) {
	if err := hand.Validate(); err != nil {
		return Event{}, err
	}

	if !r.profile.Calibrated && r.config.AutoCalibrate {
		if ev, calibrating := r.calibrate(hand, now); calibrating {
			return ev, nil
		}
	}

	thumb := hand.Points[detector.ThumbTip]
	index := hand.Points[detector.IndexTip]
	middle := hand.Points[detector.MiddleTip]

	cursor := r.cursor.Process(index.X, index.Y, r.config.ScreenWidth, r.config.ScreenHeight)

	pt := r.profile.PinchThreshold
	pinchDist := detector.Distance2D(thumb, index)
	pinch := pinchDist < pt
	gripLimit := pt * r.config.GripRatio
	grip := pinchDist < gripLimit &&
		detector.Distance2D(thumb, middle) < gripLimit &&
		detector.Distance2D(index, middle) < gripLimit
	pose := ClassifyPose(hand, r.profile.HandSize, r.config.ExtendedRatio)

	ev := Event{
		Kind:           EventNone,
		Stable:         true,
		Cursor:         cursor,
		PinchActive:    pinch,
		DragActive:     grip,
		Pose:           pose,
		PinchDistance:  pinchDist,
		PinchThreshold: pt,
	}

	st := &r.state
	switch {
	case grip && !st.prevGrip:
		ev.Kind, ev.Action, ev.Confidence = EventDrag, ActionDragStart, 0.95
		st.lastAction = now
		st.pinchStarted = false
	case grip:
		ev.Kind, ev.Action, ev.Confidence = EventDrag, ActionDragMove, 0.95
	case st.prevGrip:
		ev.Kind, ev.Action, ev.Confidence = EventDrag, ActionDragEnd, 0.95
		st.lastAction = now
	case pinch && !st.prevPinch:
		st.pinchStart = pinchDist
		st.pinchStarted = true
	case !pinch && st.prevPinch:
		r.release(&ev, pinchDist, cursor, now)
	default:
		r.poseTransition(&ev, hand, pose, now)
	}

	if st.menuOpen && now.Sub(st.menuOpenedAt) > r.config.MenuTimeout {
		st.menuOpen = false
		log.Println("System menu closed after timeout")
	}

	st.prevPinch = pinch
	st.prevGrip = grip
	st.prevPose = pose

	return ev, nil
}

// calibrate feeds hand to the calibrator. It reports false once the frame
// budget is spent without a profile, and the frame goes to gesture logic.
func (r *Recognizer) calibrate(hand *detector.HandLandmarks, now time.Time) (Event, bool) {
	st := &r.state
	if r.calibrator.State() != calibration.Collecting {
		r.calibrator.Start(now)
		st.calibAttempts++
	}
	st.calibFrames++

	done := r.calibrator.AddSample(hand, now)
	if !done && !st.calibForced && st.calibFrames >= r.config.CalibrationFrames {
		st.calibForced = true
		done = r.calibrator.Finish(now)
		if !done {
			log.Printf("Calibration budget of %d frames spent, using default thresholds", r.config.CalibrationFrames)
		}
	}

	if done {
		p, _ := r.calibrator.Profile()
		r.profile = p
		r.cursor.SetSensitivity(p.Sensitivity)
	} else if st.calibForced {
		return Event{}, false
	}

	return Event{
		Kind:           EventCalibration,
		PinchThreshold: r.profile.PinchThreshold,
	}, true
}

// release decides whether the pinch ending this frame is a click.
func (r *Recognizer) release(ev *Event, dist float64, cursor filter.Point, now time.Time) {
	st := &r.state
	started, start := st.pinchStarted, st.pinchStart
	st.pinchStarted = false
	if !started {
		return
	}

	cooldown := r.config.ClickCooldown
	if r.inPrecisionArea(cursor) {
		cooldown = r.config.PrecisionCooldown
	}
	if !st.lastAction.IsZero() && now.Sub(st.lastAction) < cooldown {
		return
	}

	// A release too close to where the pinch began is tremor crossing the
	// threshold.
	if math.Abs(dist-start) < r.profile.MovementThreshold {
		return
	}

	kept := st.clicks[:0]
	for _, t := range st.clicks {
		if now.Sub(t) < r.config.MultiClickWindow {
			kept = append(kept, t)
		}
	}
	st.clicks = append(kept, now)

	ev.Kind = EventClick
	ev.Confidence = 0.95
	ev.Stable = true
	if len(st.clicks) >= 2 {
		ev.Action = ActionRightClick
		st.clicks = st.clicks[:0]
	} else {
		ev.Action = ActionLeftClick
	}
	st.lastAction = now
}

// poseTransition handles the fist/open system menu gesture.
func (r *Recognizer) poseTransition(ev *Event, hand *detector.HandLandmarks, pose Pose, now time.Time) {
	st := &r.state
	switch {
	case st.prevPose == PoseFist && pose == PoseOpen && !st.menuOpen &&
		(st.lastMenuOpen.IsZero() || now.Sub(st.lastMenuOpen) > r.config.MenuCooldown):
		ev.Kind, ev.Action, ev.Confidence = EventSystem, ActionWinKey, 0.9
		ev.Cursor = r.menuAnchor(hand)
		st.menuOpen = true
		st.menuOpenedAt = now
		st.lastMenuOpen = now
		log.Println("System menu opened")

	case st.prevPose == PoseOpen && pose == PoseFist && st.menuOpen &&
		now.Sub(st.menuOpenedAt) > r.config.MenuConfirmDelay:
		ev.Kind, ev.Action, ev.Confidence = EventClick, ActionLeftClick, 0.9
		st.menuOpen = false
		log.Println("System menu selection confirmed")
	}
}

// menuAnchor maps the centroid of the thumb, index and middle tips straight
// to the screen, bypassing the cursor filter.
func (r *Recognizer) menuAnchor(hand *detector.HandLandmarks) filter.Point {
	var x, y float64
	for _, i := range []int{detector.ThumbTip, detector.IndexTip, detector.MiddleTip} {
		x += hand.Points[i].X
		y += hand.Points[i].Y
	}
	w, h := float64(r.config.ScreenWidth), float64(r.config.ScreenHeight)
	return filter.Point{
		X: math.Max(0, math.Min(w-1, x/3*w)),
		Y: math.Max(0, math.Min(h-1, y/3*h)),
	}
}

func (r *Recognizer) inPrecisionArea(p filter.Point) bool {
	m := r.config.PrecisionMargin
	w, h := float64(r.config.ScreenWidth), float64(r.config.ScreenHeight)
	return p.X < m || p.X > w-m || p.Y < m || p.Y > h-m
}

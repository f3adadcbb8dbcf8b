// Package app runs the per-frame gesture pipeline and exposes the controls
// and status a tray or HTTP surface needs.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oneoblomov/HandPC/internal/action"
	"github.com/oneoblomov/HandPC/internal/calibration"
	"github.com/oneoblomov/HandPC/internal/filter"
	"github.com/oneoblomov/HandPC/internal/gesture"
	"github.com/oneoblomov/HandPC/internal/store"
)

// ActionLog persists dispatched actions.
type ActionLog interface {
	Append(e *store.ActionEntry) error
}

// ProfileStore persists calibration profiles.
type ProfileStore interface {
	Create(p *store.Profile) error
	Latest() (*store.Profile, error)
}

// SettingsStore persists runtime toggles between runs.
type SettingsStore interface {
	GetBool(key string, def bool) (bool, error)
	SetBool(key string, value bool) error
}

// SettingEnabled is the settings key of the gesture on/off switch.
const SettingEnabled = "enabled"

// Config holds configuration options for the application.
type Config struct {
	Gesture gesture.Config
	Action  action.Config

	// Optional persistence.
	ActionLog ActionLog
	Profiles  ProfileStore
}

// Status is a point-in-time view of the pipeline for display.
type Status struct {
	Session          string                    `json:"session"`
	Running          bool                      `json:"running"`
	Enabled          bool                      `json:"enabled"`
	HandVisible      bool                      `json:"hand_visible"`
	ProfileID        string                    `json:"profile_id,omitempty"`
	Safety           action.Status             `json:"safety"`
	Actions          action.Stats              `json:"actions"`
	Calibration      gesture.CalibrationStatus `json:"calibration"`
	Filter           filter.Stats              `json:"filter"`
	FramesProcessed  int64                     `json:"frames_processed"`
	GesturesDetected int64                     `json:"gestures_detected"`
	Performance      Performance               `json:"performance"`
	LastEvent        *gesture.Event            `json:"last_event,omitempty"`
}

// App owns the recognizer and action gate of the tracked hand. Frames are
// processed one at a time; control calls from other goroutines wait for the
// current frame to finish.
type App struct {
	mu         sync.Mutex
	config     Config
	session    string
	recognizer *gesture.Recognizer
	gate       *action.Gate

	profileID   string
	running     bool
	handVisible bool
	frames      int64
	gestures    int64
	lastEvent   *gesture.Event
	perf        *perfMonitor

	listeners []func(gesture.Event)
	now       func() time.Time
}

// New creates a new App injecting input through inj.
func New(config Config, inj action.Injector) *App {
	a := &App{
		config:     config,
		session:    uuid.New().String(),
		recognizer: gesture.New(config.Gesture),
		gate:       action.NewGate(config.Action, inj),
		perf:       newPerfMonitor(),
		now:        time.Now,
	}
	a.gate.OnRecord(a.logAction)
	return a
}

// Session returns the ID of this pipeline run.
func (a *App) Session() string {
	return a.session
}

// OnEvent registers fn to receive every event that requests an action or
// reports calibration progress. fn runs on the pipeline goroutine.
func (a *App) OnEvent(fn func(gesture.Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// RestoreProfile installs the newest stored profile, if any, so the user
// does not have to calibrate again.
func (a *App) RestoreProfile() error {
	if a.config.Profiles == nil {
		return nil
	}

	p, err := a.config.Profiles.Latest()
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.recognizer.SetProfile(p.Profile)
	a.profileID = p.ID
	log.Printf("Restored calibration profile %s: hand size %.3f", p.ID, p.Profile.HandSize)
	return nil
}

// LoadControls applies the toggles stored in s.
func (a *App) LoadControls(s SettingsStore) error {
	enabled, err := s.GetBool(SettingEnabled, true)
	if err != nil {
		return fmt.Errorf("load controls: %w", err)
	}
	a.SetEnabled(enabled)
	if !enabled {
		log.Println("Gestures disabled by saved setting")
	}
	return nil
}

// SetEnabled enables or disables gesture actions.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate.SetDisabled(!enabled)
}

// IsEnabled returns whether gesture actions are enabled.
func (a *App) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.gate.Disabled()
}

// SetCursorFrozen freezes or releases the cursor.
func (a *App) SetCursorFrozen(frozen bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate.SetCursorFrozen(frozen)
}

// SetSafeMode turns the action rate limiter on or off.
func (a *App) SetSafeMode(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate.SetSafeMode(enabled)
}

// ResetCalibration forgets the current profile and calibrates again from
// the next frame. A held drag is released first.
func (a *App) ResetCalibration() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate.ReleaseDrag()
	a.recognizer.ResetCalibration()
	a.profileID = ""
	log.Println("Calibration reset")
}

// Snapshot returns the current status.
func (a *App) Snapshot() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	s := Status{
		Session:          a.session,
		Running:          a.running,
		Enabled:          !a.gate.Disabled(),
		HandVisible:      a.handVisible,
		ProfileID:        a.profileID,
		Safety:           a.gate.Status(now),
		Actions:          a.gate.Stats(now),
		Calibration:      a.recognizer.Status(now),
		Filter:           a.recognizer.FilterStats(),
		FramesProcessed:  a.frames,
		GesturesDetected: a.gestures,
		Performance:      a.perf.snapshot(),
	}
	if a.lastEvent != nil {
		ev := *a.lastEvent
		s.LastEvent = &ev
	}
	return s
}

// logAction is called by the gate with a.mu held.
func (a *App) logAction(r action.Record) {
	if a.config.ActionLog == nil {
		return
	}
	e := &store.ActionEntry{
		SessionID: a.session,
		ProfileID: a.profileID,
		Action:    r.Action.String(),
		App:       r.App,
		Success:   r.Success,
		CreatedAt: r.At,
	}
	if err := a.config.ActionLog.Append(e); err != nil {
		log.Printf("Failed to log action %s: %v", r.Action, err)
	}
}

// saveProfile is called with a.mu held.
func (a *App) saveProfile(p calibration.Profile) {
	if a.config.Profiles == nil {
		return
	}
	sp := &store.Profile{Profile: p}
	if err := a.config.Profiles.Create(sp); err != nil {
		log.Printf("Failed to save calibration profile: %v", err)
		return
	}
	a.profileID = sp.ID
}

// Package action gates recognized gestures through safety policy and turns
// the accepted ones into OS input.
package action

import (
	"errors"
)

// ErrUnsupported is returned by an Injector for an operation or target it
// cannot perform.
var ErrUnsupported = errors.New("unsupported input operation")

// Button is a pointer button.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Key names understood by Injector.Hotkey.
const (
	KeyAlt   = "alt"
	KeyCtrl  = "ctrl"
	KeySuper = "cmd"
	KeyTab   = "tab"
	KeyLeft  = "left"
	KeyRight = "right"
	KeyPlus  = "="
	KeyMinus = "-"
	KeyD     = "d"
)

// Injector performs OS input. Every call may fail; callers treat a failure as
// a rejected action, never as fatal.
type Injector interface {
	MoveTo(x, y int) error
	Position() (x, y int)
	Click(b Button) error
	ButtonDown(b Button) error
	ButtonUp(b Button) error
	// Scroll moves the wheel by delta notches, positive is up.
	Scroll(delta int) error
	// Hotkey taps the last key while the preceding keys are held.
	Hotkey(keys ...string) error
	Launch(app string) error
	ScreenSize() (width, height int)
}

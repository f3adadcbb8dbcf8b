package action

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// RobotInjector injects input through robotgo.
type RobotInjector struct {
	launcher *Launcher
}

// NewRobotInjector creates a RobotInjector that launches apps through l.
func NewRobotInjector(l *Launcher) *RobotInjector {
	return &RobotInjector{launcher: l}
}

func (r *RobotInjector) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (r *RobotInjector) Position() (int, int) {
	return robotgo.Location()
}

func (r *RobotInjector) Click(b Button) error {
	robotgo.Click(string(b))
	return nil
}

func (r *RobotInjector) ButtonDown(b Button) error {
	if err := robotgo.Toggle(string(b)); err != nil {
		return fmt.Errorf("%s button down: %w", b, err)
	}
	return nil
}

func (r *RobotInjector) ButtonUp(b Button) error {
	if err := robotgo.Toggle(string(b), "up"); err != nil {
		return fmt.Errorf("%s button up: %w", b, err)
	}
	return nil
}

func (r *RobotInjector) Scroll(delta int) error {
	robotgo.Scroll(0, delta)
	return nil
}

func (r *RobotInjector) Hotkey(keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("%w: empty hotkey", ErrUnsupported)
	}
	key := keys[len(keys)-1]
	mods := make([]interface{}, 0, len(keys)-1)
	for _, m := range keys[:len(keys)-1] {
		mods = append(mods, m)
	}
	if err := robotgo.KeyTap(key, mods...); err != nil {
		return fmt.Errorf("hotkey %v: %w", keys, err)
	}
	return nil
}

func (r *RobotInjector) Launch(app string) error {
	if r.launcher == nil {
		return fmt.Errorf("%w: no launcher", ErrUnsupported)
	}
	return r.launcher.Launch(app)
}

func (r *RobotInjector) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// Package tray provides the system tray menu of HandPC.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Controls is the part of the pipeline the menu drives.
type Controls interface {
	SetEnabled(enabled bool)
	SetCursorFrozen(frozen bool)
	SetSafeMode(enabled bool)
	ResetCalibration()
}

// Tray represents the system tray application.
type Tray struct {
	controls Controls
	onOpenUI func()
	onQuit   func()
	enabled  bool
	frozen   bool
	safeMode bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuFreeze     *systray.MenuItem
	menuSafeMode   *systray.MenuItem
	menuLastAction *systray.MenuItem
}

// New creates a Tray driving c. enabled and safeMode are the states the
// pipeline starts with.
func New(c Controls, enabled, safeMode bool) *Tray {
	return &Tray{
		controls: c,
		enabled:  enabled,
		safeMode: safeMode,
	}
}

// OnOpenUI sets the callback for the dashboard menu item.
func (t *Tray) OnOpenUI(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenUI = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("HandPC")
	systray.SetTooltip("HandPC gesture control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(enabledTitle(t.enabled), "Toggle gesture control")
	t.menuFreeze = systray.AddMenuItemCheckbox("Freeze cursor", "Keep the cursor still", t.frozen)
	t.menuSafeMode = systray.AddMenuItemCheckbox("Safe mode", "Limit how fast actions fire", t.safeMode)
	t.mu.Unlock()
	menuRecalibrate := systray.AddMenuItem("Recalibrate", "Measure your hand again")
	systray.AddSeparator()

	t.mu.Lock()
	t.menuLastAction = systray.AddMenuItem("Last: none", "Last performed action")
	t.menuLastAction.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpenUI := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	menuQuit := systray.AddMenuItem("Quit", "Quit HandPC")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuFreeze.ClickedCh:
				t.handleFreeze()
			case <-t.menuSafeMode.ClickedCh:
				t.handleSafeMode()
			case <-menuRecalibrate.ClickedCh:
				t.controls.ResetCalibration()
			case <-menuOpenUI.ClickedCh:
				t.handleOpenUI()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func enabledTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func setChecked(item *systray.MenuItem, checked bool) {
	if item == nil {
		return
	}
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(enabledTitle(enabled))
	}
	t.mu.Unlock()

	t.controls.SetEnabled(enabled)
}

func (t *Tray) handleFreeze() {
	t.mu.Lock()
	t.frozen = !t.frozen
	frozen := t.frozen
	setChecked(t.menuFreeze, frozen)
	t.mu.Unlock()

	t.controls.SetCursorFrozen(frozen)
}

func (t *Tray) handleSafeMode() {
	t.mu.Lock()
	t.safeMode = !t.safeMode
	safe := t.safeMode
	setChecked(t.menuSafeMode, safe)
	t.mu.Unlock()

	t.controls.SetSafeMode(safe)
}

func (t *Tray) handleOpenUI() {
	t.mu.RLock()
	callback := t.onOpenUI
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastAction updates the last action display in the menu.
func (t *Tray) SetLastAction(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastAction != nil {
		if name == "" {
			t.menuLastAction.SetTitle("Last: none")
		} else {
			t.menuLastAction.SetTitle("Last: " + name)
		}
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

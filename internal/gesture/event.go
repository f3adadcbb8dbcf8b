// Package gesture turns per-frame hand landmarks into discrete gesture events.
package gesture

import (
	"fmt"

	"github.com/oneoblomov/HandPC/internal/filter"
)

// ActionKind is a control action a gesture can request.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionLeftClick
	ActionRightClick
	ActionDrag
	ActionDragStart
	ActionDragMove
	ActionDragEnd
	ActionScrollUp
	ActionScrollDown
	ActionNavigateBack
	ActionNavigateForward
	ActionZoomIn
	ActionZoomOut
	ActionShowApplications
	ActionWinKey
	ActionShowDesktop
	ActionWorkspaceLeft
	ActionWorkspaceRight
	ActionOpenApp
	ActionToggleMode
	ActionFreezeCursor
)

var actionNames = [...]string{
	ActionNone:             "none",
	ActionLeftClick:        "left_click",
	ActionRightClick:       "right_click",
	ActionDrag:             "drag",
	ActionDragStart:        "drag_start",
	ActionDragMove:         "drag_move",
	ActionDragEnd:          "drag_end",
	ActionScrollUp:         "scroll_up",
	ActionScrollDown:       "scroll_down",
	ActionNavigateBack:     "navigate_back",
	ActionNavigateForward:  "navigate_forward",
	ActionZoomIn:           "zoom_in",
	ActionZoomOut:          "zoom_out",
	ActionShowApplications: "show_applications",
	ActionWinKey:           "win_key",
	ActionShowDesktop:      "show_desktop",
	ActionWorkspaceLeft:    "workspace_left",
	ActionWorkspaceRight:   "workspace_right",
	ActionOpenApp:          "open_app",
	ActionToggleMode:       "toggle_mode",
	ActionFreezeCursor:     "freeze_cursor",
}

func (a ActionKind) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("ActionKind(%d)", int(a))
	}
	return actionNames[a]
}

// ParseActionKind returns the action with the given name.
func ParseActionKind(name string) (ActionKind, error) {
	for i, n := range actionNames {
		if n == name {
			return ActionKind(i), nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", name)
}

// MarshalText encodes the action by name.
func (a ActionKind) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name.
func (a *ActionKind) UnmarshalText(text []byte) error {
	kind, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*a = kind
	return nil
}

// EventKind classifies a GestureEvent.
type EventKind int

const (
	EventNone EventKind = iota
	EventClick
	EventDrag
	EventSystem
	EventCalibration
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventClick:
		return "click"
	case EventDrag:
		return "drag"
	case EventSystem:
		return "system"
	case EventCalibration:
		return "calibration"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *EventKind) UnmarshalText(text []byte) error {
	for c := EventNone; c <= EventCalibration; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", text)
}

// Event is the recognizer output for one frame.
type Event struct {
	Kind       EventKind  `json:"kind"`
	Action     ActionKind `json:"action"`
	App        string     `json:"app,omitempty"` // set for ActionOpenApp
	Confidence float64    `json:"confidence"`
	Stable     bool       `json:"stable"`

	Cursor      filter.Point `json:"cursor"`
	PinchActive bool         `json:"pinch_active"`
	DragActive  bool         `json:"drag_active"`
	Pose        Pose         `json:"pose"`

	PinchDistance  float64 `json:"pinch_distance"`
	PinchThreshold float64 `json:"pinch_threshold"`
}

// HasAction reports whether the event requests an action.
func (e Event) HasAction() bool {
	return e.Action != ActionNone
}

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/oneoblomov/HandPC/internal/app"
)

// Controller is the runtime surface of the gesture pipeline.
type Controller interface {
	Snapshot() app.Status
	SetEnabled(enabled bool)
	SetCursorFrozen(frozen bool)
	SetSafeMode(enabled bool)
	ResetCalibration()
}

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	ctrl Controller
}

// NewStatusHandler creates a StatusHandler reporting ctrl.
func NewStatusHandler(ctrl Controller) *StatusHandler {
	return &StatusHandler{ctrl: ctrl}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

type controlsRequest struct {
	Enabled      *bool `json:"enabled"`
	CursorFrozen *bool `json:"cursor_frozen"`
	SafeMode     *bool `json:"safe_mode"`
}

// ControlsHandler serves POST /api/controls. Omitted fields are left
// unchanged. The enabled switch is saved to settings when one is given.
type ControlsHandler struct {
	ctrl     Controller
	settings app.SettingsStore
}

// NewControlsHandler creates a ControlsHandler. settings may be nil.
func NewControlsHandler(ctrl Controller, settings app.SettingsStore) *ControlsHandler {
	return &ControlsHandler{ctrl: ctrl, settings: settings}
}

func (h *ControlsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req controlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil && req.CursorFrozen == nil && req.SafeMode == nil {
		writeError(w, http.StatusBadRequest, "No controls given")
		return
	}

	if req.Enabled != nil {
		h.ctrl.SetEnabled(*req.Enabled)
		if h.settings != nil {
			if err := h.settings.SetBool(app.SettingEnabled, *req.Enabled); err != nil {
				log.Printf("Failed to save setting %s: %v", app.SettingEnabled, err)
			}
		}
	}
	if req.CursorFrozen != nil {
		h.ctrl.SetCursorFrozen(*req.CursorFrozen)
	}
	if req.SafeMode != nil {
		h.ctrl.SetSafeMode(*req.SafeMode)
	}

	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// CalibrationHandler serves POST /api/calibration/reset.
type CalibrationHandler struct {
	ctrl Controller
}

// NewCalibrationHandler creates a CalibrationHandler for ctrl.
func NewCalibrationHandler(ctrl Controller) *CalibrationHandler {
	return &CalibrationHandler{ctrl: ctrl}
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.ctrl.ResetCalibration()
	writeJSON(w, http.StatusAccepted, h.ctrl.Snapshot().Calibration)
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oneoblomov/HandPC/internal/app"
	"github.com/oneoblomov/HandPC/internal/gesture"
)

type fakeController struct {
	status app.Status
	resets int
}

func (f *fakeController) Snapshot() app.Status        { return f.status }
func (f *fakeController) SetEnabled(enabled bool)     { f.status.Enabled = enabled }
func (f *fakeController) SetCursorFrozen(frozen bool) { f.status.Safety.CursorFrozen = frozen }
func (f *fakeController) SetSafeMode(enabled bool)    { f.status.Safety.SafeMode = enabled }
func (f *fakeController) ResetCalibration() {
	f.resets++
	f.status.Calibration = gesture.CalibrationStatus{State: "idle"}
}

type fakeSettings map[string]bool

func (f fakeSettings) GetBool(key string, def bool) (bool, error) {
	if v, ok := f[key]; ok {
		return v, nil
	}
	return def, nil
}

func (f fakeSettings) SetBool(key string, value bool) error {
	f[key] = value
	return nil
}

func TestStatusHandler(t *testing.T) {
	ctrl := &fakeController{status: app.Status{Session: "abc", Enabled: true}}
	handler := NewStatusHandler(ctrl)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got app.Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Session != "abc" || !got.Enabled {
		t.Errorf("unexpected status: %+v", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestControlsHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantStatus func(app.Status) bool
		wantSaved  map[string]bool
	}{
		{
			name:       "disable",
			body:       `{"enabled": false}`,
			wantCode:   http.StatusOK,
			wantStatus: func(s app.Status) bool { return !s.Enabled && s.Safety.SafeMode },
			wantSaved:  map[string]bool{app.SettingEnabled: false},
		},
		{
			name:     "freeze and unsafe",
			body:     `{"cursor_frozen": true, "safe_mode": false}`,
			wantCode: http.StatusOK,
			wantStatus: func(s app.Status) bool {
				return s.Enabled && s.Safety.CursorFrozen && !s.Safety.SafeMode
			},
			wantSaved: map[string]bool{},
		},
		{
			name:     "empty body",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid json",
			body:     `{"enabled": `,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{status: app.Status{Enabled: true}}
			ctrl.status.Safety.SafeMode = true
			settings := fakeSettings{}
			handler := NewControlsHandler(ctrl, settings)

			req := httptest.NewRequest(http.MethodPost, "/api/controls", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantStatus == nil {
				return
			}

			var got app.Status
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !tt.wantStatus(got) {
				t.Errorf("unexpected status: enabled=%v safety=%+v", got.Enabled, got.Safety)
			}
			if len(settings) != len(tt.wantSaved) {
				t.Errorf("saved settings = %v, want %v", settings, tt.wantSaved)
			}
			for k, v := range tt.wantSaved {
				if settings[k] != v {
					t.Errorf("setting %s = %v, want %v", k, settings[k], v)
				}
			}
		})
	}

	t.Run("get not allowed", func(t *testing.T) {
		handler := NewControlsHandler(&fakeController{}, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/controls", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestCalibrationHandler(t *testing.T) {
	ctrl := &fakeController{}
	ctrl.status.Calibration = gesture.CalibrationStatus{Calibrated: true, State: "complete"}
	handler := NewCalibrationHandler(ctrl)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calibration/reset", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}
	if ctrl.resets != 1 {
		t.Errorf("expected 1 reset, got %d", ctrl.resets)
	}

	var got gesture.CalibrationStatus
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Calibrated {
		t.Error("calibration still reported after reset")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calibration/reset", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

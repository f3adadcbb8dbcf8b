package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oneoblomov/HandPC/internal/action"
	"github.com/oneoblomov/HandPC/internal/app"
	"github.com/oneoblomov/HandPC/internal/calibration"
	"github.com/oneoblomov/HandPC/internal/gesture"
	"github.com/oneoblomov/HandPC/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *app.App, *store.Store) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	a := app.New(app.Config{
		Gesture:   gesture.DefaultConfig(),
		Action:    action.DefaultConfig(),
		ActionLog: st.ActionLog(),
		Profiles:  st.Profiles(),
	}, action.NewMockInjector(1920, 1080))

	srv := New(Config{Store: st, App: a})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, srv, a, st
}

func postJSON(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	return resp
}

func TestAPI_ControlWorkflow(t *testing.T) {
	ts, _, a, st := newTestServer(t)

	// 1. Status reports the defaults
	resp, err := ts.Client().Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status error = %v", err)
	}
	var status app.Status
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()

	if !status.Enabled || !status.Safety.SafeMode || status.Session != a.Session() {
		t.Fatalf("initial status = %+v", status)
	}

	// 2. Disable gestures
	resp = postJSON(t, ts, "/api/controls", `{"enabled": false, "cursor_frozen": true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/controls status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	if a.IsEnabled() || !a.Snapshot().Safety.CursorFrozen {
		t.Error("controls were not applied to the pipeline")
	}
	if saved, _ := st.Settings().GetBool(app.SettingEnabled, true); saved {
		t.Error("enabled switch was not saved")
	}

	// 3. Reset calibration
	resp = postJSON(t, ts, "/api/calibration/reset", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /api/calibration/reset status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	resp.Body.Close()
}

func TestAPI_ProfileWorkflow(t *testing.T) {
	ts, _, _, st := newTestServer(t)
	client := ts.Client()

	p := &store.Profile{Profile: calibration.Profile{HandSize: 0.5, PinchThreshold: 0.05, Calibrated: true}}
	if err := st.Profiles().Create(p); err != nil {
		t.Fatal(err)
	}
	st.ActionLog().Append(&store.ActionEntry{SessionID: "s", ProfileID: p.ID, Action: "left_click", Success: true})

	// 1. List profiles
	resp, _ := client.Get(ts.URL + "/api/profiles")
	var listed struct {
		Profiles []struct {
			ID string `json:"id"`
		} `json:"profiles"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed.Profiles) != 1 || listed.Profiles[0].ID != p.ID {
		t.Fatalf("profiles = %+v", listed.Profiles)
	}

	// 2. Delete it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/profiles/"+p.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 3. The logged action survives without its profile
	resp, _ = client.Get(ts.URL + "/api/actions?limit=5")
	var actions struct {
		Actions []struct {
			Action    string `json:"action"`
			ProfileID string `json:"profile_id"`
		} `json:"actions"`
	}
	json.NewDecoder(resp.Body).Decode(&actions)
	resp.Body.Close()
	if len(actions.Actions) != 1 || actions.Actions[0].ProfileID != "" {
		t.Errorf("actions = %+v", actions.Actions)
	}
}

func TestAPI_EventStream(t *testing.T) {
	ts, srv, a, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var greeting message
	if err := conn.ReadJSON(&greeting); err != nil {
		t.Fatalf("reading greeting: %v", err)
	}
	if greeting.Type != "status" || greeting.Status == nil || greeting.Status.Session != a.Session() {
		t.Fatalf("greeting = %+v", greeting)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.events.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv.PublishEvent(gesture.Event{
		Kind:       gesture.EventClick,
		Action:     gesture.ActionLeftClick,
		Confidence: 0.95,
		Stable:     true,
	})

	var got message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if got.Type != "gesture" || got.Event == nil || got.Event.Action != gesture.ActionLeftClick {
		t.Errorf("event = %+v", got)
	}
}

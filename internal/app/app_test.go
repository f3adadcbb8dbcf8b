package app

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/oneoblomov/HandPC/internal/action"
	"github.com/oneoblomov/HandPC/internal/calibration"
	"github.com/oneoblomov/HandPC/internal/detector"
	"github.com/oneoblomov/HandPC/internal/gesture"
	"github.com/oneoblomov/HandPC/internal/store"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, s *store.Store) (*App, *action.MockInjector) {
	t.Helper()
	inj := action.NewMockInjector(1920, 1080)
	cfg := Config{
		Gesture: gesture.DefaultConfig(),
		Action:  action.DefaultConfig(),
	}
	if s != nil {
		cfg.ActionLog = s.ActionLog()
		cfg.Profiles = s.Profiles()
	}
	return New(cfg, inj), inj
}

func seedProfile(t *testing.T, s *store.Store, handSize float64) *store.Profile {
	t.Helper()
	p := &store.Profile{Profile: calibration.Profile{
		HandSize:          handSize,
		PinchThreshold:    0.05,
		MovementThreshold: 0.02,
		Sensitivity:       1,
		Samples:           40,
		Calibrated:        true,
	}}
	if err := s.Profiles().Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return p
}

func frames(hands ...detector.HandLandmarks) [][]detector.HandLandmarks {
	out := make([][]detector.HandLandmarks, len(hands))
	for i, h := range hands {
		out[i] = []detector.HandLandmarks{h}
	}
	return out
}

func feed(t *testing.T, a *App, start, step int, input [][]detector.HandLandmarks) []gesture.Event {
	t.Helper()
	var events []gesture.Event
	for i, hands := range input {
		ev, err := a.ProcessHands(hands, ms(start+i*step))
		if err != nil {
			t.Fatalf("frame %d: ProcessHands() error = %v", i, err)
		}
		events = append(events, ev)
	}
	return events
}

func contains(calls []string, want string) bool {
	for _, c := range calls {
		if c == want {
			return true
		}
	}
	return false
}

func TestApp_CalibratesAndSavesProfile(t *testing.T) {
	s := newTestStore(t)
	a, _ := newTestApp(t, s)

	palm := detector.OpenPalmLandmarks()
	input := make([][]detector.HandLandmarks, 90)
	for i := range input {
		input[i] = []detector.HandLandmarks{palm}
	}
	feed(t, a, 0, 33, input)

	st := a.Snapshot()
	if !st.Calibration.Calibrated {
		t.Fatalf("not calibrated after 90 frames: %+v", st.Calibration)
	}
	if st.ProfileID == "" {
		t.Fatal("calibrated profile was not saved")
	}

	saved, err := s.Profiles().Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if saved.ID != st.ProfileID {
		t.Errorf("saved profile %s, status reports %s", saved.ID, st.ProfileID)
	}
	if math.Abs(saved.Profile.HandSize-palm.Size()) > 1e-9 {
		t.Errorf("saved hand size = %f, want %f", saved.Profile.HandSize, palm.Size())
	}
}

func TestApp_RestoreProfile(t *testing.T) {
	t.Run("latest profile installed", func(t *testing.T) {
		s := newTestStore(t)
		seedProfile(t, s, 0.3)
		want := seedProfile(t, s, 0.52)

		a, _ := newTestApp(t, s)
		if err := a.RestoreProfile(); err != nil {
			t.Fatalf("RestoreProfile() error = %v", err)
		}
		st := a.Snapshot()
		if !st.Calibration.Calibrated || st.Calibration.HandSize != 0.52 {
			t.Errorf("Calibration = %+v", st.Calibration)
		}
		if st.ProfileID != want.ID {
			t.Errorf("ProfileID = %q, want %q", st.ProfileID, want.ID)
		}
	})

	t.Run("empty store", func(t *testing.T) {
		a, _ := newTestApp(t, newTestStore(t))
		if err := a.RestoreProfile(); err != nil {
			t.Fatalf("RestoreProfile() error = %v", err)
		}
		if a.Snapshot().Calibration.Calibrated {
			t.Error("calibrated without a stored profile")
		}
	})

	t.Run("no store", func(t *testing.T) {
		a, _ := newTestApp(t, nil)
		if err := a.RestoreProfile(); err != nil {
			t.Errorf("RestoreProfile() error = %v", err)
		}
	})
}

func TestApp_PinchClickIsInjectedAndLogged(t *testing.T) {
	s := newTestStore(t)
	seedProfile(t, s, 0.52)
	a, inj := newTestApp(t, s)
	if err := a.RestoreProfile(); err != nil {
		t.Fatal(err)
	}

	var notified []gesture.ActionKind
	a.OnEvent(func(ev gesture.Event) { notified = append(notified, ev.Action) })

	open, pinch := detector.OpenPalmLandmarks(), detector.PinchLandmarks()
	events := feed(t, a, 0, 33, frames(open, pinch, open))

	if events[2].Action != gesture.ActionLeftClick {
		t.Fatalf("release event = %s, want left_click", events[2].Action)
	}
	if !contains(inj.Calls(), "click left") {
		t.Errorf("calls = %v, want a left click", inj.Calls())
	}
	if len(inj.Moves()) != 1 {
		t.Errorf("cursor moved %d times, want only while pinched", len(inj.Moves()))
	}
	if len(notified) != 1 || notified[0] != gesture.ActionLeftClick {
		t.Errorf("listener got %v", notified)
	}

	entries, err := s.ActionLog().List(10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("logged %d actions, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != "left_click" || !e.Success || e.SessionID != a.Session() {
		t.Errorf("entry = %+v", e)
	}

	st := a.Snapshot()
	if st.GesturesDetected != 1 || st.FramesProcessed != 3 {
		t.Errorf("counters = %d gestures, %d frames", st.GesturesDetected, st.FramesProcessed)
	}
	if st.Actions.Total != 1 || st.Actions.Successful != 1 {
		t.Errorf("Actions = %+v", st.Actions)
	}
	if st.LastEvent == nil || st.LastEvent.Action != gesture.ActionLeftClick {
		t.Errorf("LastEvent = %+v", st.LastEvent)
	}
}

func TestApp_HandLostReleasesDrag(t *testing.T) {
	s := newTestStore(t)
	seedProfile(t, s, 0.52)
	a, inj := newTestApp(t, s)
	a.RestoreProfile()

	open, grip := detector.OpenPalmLandmarks(), detector.GripLandmarks()
	feed(t, a, 0, 33, frames(open, grip, grip))
	if !a.Snapshot().Safety.DragMode {
		t.Fatal("drag not started")
	}

	feed(t, a, 99, 33, [][]detector.HandLandmarks{nil})

	st := a.Snapshot()
	if st.Safety.DragMode {
		t.Error("drag still held after the hand left")
	}
	if st.HandVisible {
		t.Error("HandVisible = true with no hand")
	}
	calls := inj.Calls()
	if len(calls) < 2 || calls[0] != "down left" || calls[len(calls)-1] != "up left" {
		t.Errorf("calls = %v, want down then up", calls)
	}
}

func TestApp_MalformedFrameSkipped(t *testing.T) {
	a, inj := newTestApp(t, nil)

	bad := detector.OpenPalmLandmarks()
	bad.Points[detector.IndexTip].X = math.NaN()

	_, err := a.ProcessHands([]detector.HandLandmarks{bad}, t0)
	if !errors.Is(err, detector.ErrInvalidLandmarks) {
		t.Fatalf("ProcessHands() error = %v, want ErrInvalidLandmarks", err)
	}
	if len(inj.Calls())+len(inj.Moves()) != 0 {
		t.Error("malformed frame reached the injector")
	}
	if st := a.Snapshot(); st.FramesProcessed != 1 || st.Calibration.Samples != 0 {
		t.Errorf("status after malformed frame = %+v", st)
	}
}

func TestApp_Performance(t *testing.T) {
	a, _ := newTestApp(t, nil)

	// Every clock read advances 3ms, so each frame takes 3ms to process.
	clock := t0
	a.now = func() time.Time {
		clock = clock.Add(3 * time.Millisecond)
		return clock
	}

	if p := a.Snapshot().Performance; p.FPS != 0 || p.AvgProcessingMS != 0 {
		t.Errorf("Performance before any frame = %+v", p)
	}

	open := detector.OpenPalmLandmarks()
	for i := 0; i <= 30; i++ {
		if _, err := a.ProcessHands([]detector.HandLandmarks{open}, ms(i*40)); err != nil {
			t.Fatalf("frame %d: ProcessHands() error = %v", i, err)
		}
	}

	bad := detector.OpenPalmLandmarks()
	bad.Points[detector.Wrist].Y = math.Inf(1)
	if _, err := a.ProcessHands([]detector.HandLandmarks{bad}, ms(31*40)); err == nil {
		t.Fatal("malformed frame accepted")
	}

	p := a.Snapshot().Performance
	// 32 frames 40ms apart.
	if math.Abs(p.FPS-25) > 1e-9 {
		t.Errorf("FPS = %f, want 25", p.FPS)
	}
	if math.Abs(p.AvgProcessingMS-3) > 1e-9 || math.Abs(p.MaxProcessingMS-3) > 1e-9 {
		t.Errorf("processing avg/max = %f/%f ms, want 3/3", p.AvgProcessingMS, p.MaxProcessingMS)
	}
	if p.Errors != 1 {
		t.Errorf("Errors = %d, want 1", p.Errors)
	}
}

func TestPerfMonitor_Window(t *testing.T) {
	m := newPerfMonitor()
	for i := 0; i < perfFrames; i++ {
		m.add(ms(i*100), 50*time.Millisecond)
	}
	// A newer, faster run of frames replaces the old ones.
	for i := 0; i < perfFrames; i++ {
		m.add(ms(100000+i*20), time.Millisecond)
	}

	p := m.snapshot()
	if math.Abs(p.FPS-50) > 1e-6 {
		t.Errorf("FPS = %f, want 50", p.FPS)
	}
	if p.MaxProcessingMS != 1 {
		t.Errorf("MaxProcessingMS = %f, want 1", p.MaxProcessingMS)
	}
}

func TestApp_Controls(t *testing.T) {
	s := newTestStore(t)
	seedProfile(t, s, 0.52)
	a, inj := newTestApp(t, s)
	a.RestoreProfile()

	a.SetEnabled(false)
	if a.IsEnabled() || a.Snapshot().Enabled {
		t.Fatal("still enabled")
	}
	open, pinch := detector.OpenPalmLandmarks(), detector.PinchLandmarks()
	feed(t, a, 0, 33, frames(open, pinch, open))
	if len(inj.Calls())+len(inj.Moves()) != 0 {
		t.Errorf("disabled app injected %v %v", inj.Calls(), inj.Moves())
	}

	a.SetEnabled(true)
	a.SetCursorFrozen(true)
	a.SetSafeMode(false)
	st := a.Snapshot()
	if !st.Enabled || !st.Safety.CursorFrozen || st.Safety.SafeMode {
		t.Errorf("Safety = %+v", st.Safety)
	}

	a.ResetCalibration()
	st = a.Snapshot()
	if st.Calibration.Calibrated || st.ProfileID != "" {
		t.Errorf("after reset: calibrated = %v, profile = %q", st.Calibration.Calibrated, st.ProfileID)
	}
}

type fakeSource struct {
	frames [][]detector.HandLandmarks
	errs   map[int]error
	calls  int
	cancel context.CancelFunc
}

func (f *fakeSource) Next(ctx context.Context) ([]detector.HandLandmarks, error) {
	i := f.calls
	f.calls++
	if i >= len(f.frames) {
		f.cancel()
		return nil, ctx.Err()
	}
	if err := f.errs[i]; err != nil {
		return nil, err
	}
	return f.frames[i], nil
}

func TestApp_Run(t *testing.T) {
	s := newTestStore(t)
	seedProfile(t, s, 0.52)
	a, inj := newTestApp(t, s)
	a.RestoreProfile()

	clock := t0
	a.now = func() time.Time {
		clock = clock.Add(33 * time.Millisecond)
		return clock
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	open, pinch := detector.OpenPalmLandmarks(), detector.PinchLandmarks()
	bad := detector.OpenPalmLandmarks()
	bad.Points[0].Y = math.Inf(1)

	// The read error swallows the first pinch frame.
	src := &fakeSource{
		frames: append(frames(open, pinch, pinch, open, bad), nil),
		errs:   map[int]error{1: errors.New("camera hiccup")},
		cancel: cancel,
	}

	if err := a.Run(ctx, src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	st := a.Snapshot()
	if st.Running {
		t.Error("Running = true after Run returned")
	}
	// Six frames minus the failed read.
	if st.FramesProcessed != 5 {
		t.Errorf("FramesProcessed = %d, want 5", st.FramesProcessed)
	}
	if !contains(inj.Calls(), "click left") {
		t.Errorf("calls = %v, want a left click", inj.Calls())
	}
	if st.HandVisible {
		t.Error("final empty frame should mark the hand lost")
	}
}

func TestApp_RunTwice(t *testing.T) {
	a, _ := newTestApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	src := &blockingSource{started: started}
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, src) }()
	<-started

	if err := a.Run(ctx, src); err == nil {
		t.Error("second Run() should fail while the first is active")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

type blockingSource struct {
	started chan struct{}
	once    bool
}

func (b *blockingSource) Next(ctx context.Context) ([]detector.HandLandmarks, error) {
	if !b.once {
		b.once = true
		close(b.started)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestApp_LoadControls(t *testing.T) {
	s := newTestStore(t)
	a, _ := newTestApp(t, s)

	if err := a.LoadControls(s.Settings()); err != nil {
		t.Fatalf("LoadControls() error = %v", err)
	}
	if !a.IsEnabled() {
		t.Error("unset switch should leave gestures enabled")
	}

	s.Settings().SetBool(SettingEnabled, false)
	if err := a.LoadControls(s.Settings()); err != nil {
		t.Fatalf("LoadControls() error = %v", err)
	}
	if a.IsEnabled() {
		t.Error("saved switch not applied")
	}

	s.Settings().Set(SettingEnabled, "maybe")
	if err := a.LoadControls(s.Settings()); err == nil {
		t.Error("LoadControls() accepted a malformed setting")
	}
}

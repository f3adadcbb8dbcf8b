package action

import (
	"log"
	"math"
	"time"

	"github.com/oneoblomov/HandPC/internal/filter"
	"github.com/oneoblomov/HandPC/internal/gesture"
)

// Config holds the action gate policy.
type Config struct {
	SafeMode            bool          `toml:"safe_mode"`
	MinConfidence       float64       `toml:"min_confidence"`
	MaxActionsPerSecond int           `toml:"max_actions_per_second"`
	RateWindow          time.Duration `toml:"rate_window"`
	SameKindInterval    time.Duration `toml:"same_kind_interval"`
	EdgeMargin          float64       `toml:"edge_margin"`
	MaxJump             float64       `toml:"max_jump"`
	MaxDragJump         float64       `toml:"max_drag_jump"`
	ScrollAmount        int           `toml:"scroll_amount"`
	HistorySize         int           `toml:"history_size"`
	DefaultApp          string        `toml:"default_app"`
	// DryRun evaluates actions without injecting input (tutorial mode).
	DryRun bool `toml:"dry_run"`
}

// DefaultConfig returns the default gate policy.
func DefaultConfig() Config {
	return Config{
		SafeMode:            true,
		MinConfidence:       0.7,
		MaxActionsPerSecond: 3,
		RateWindow:          time.Second,
		SameKindInterval:    300 * time.Millisecond,
		EdgeMargin:          50,
		MaxJump:             100,
		MaxDragJump:         200,
		ScrollAmount:        2,
		HistorySize:         100,
		DefaultApp:          "firefox",
	}
}

// Status is the gate's safety state.
type Status struct {
	Disabled          bool          `json:"disabled"`
	CursorFrozen      bool          `json:"cursor_frozen"`
	DragMode          bool          `json:"drag_mode"`
	SafeMode          bool          `json:"safe_mode"`
	DryRun            bool          `json:"dry_run"`
	DragStart         *filter.Point `json:"drag_start_pos"`
	RecentActionCount int           `json:"recent_action_count"`
	LastActions       []Record      `json:"last_actions"`
}

// Gate applies safety policy to gesture events and dispatches the accepted
// ones to an Injector. A Gate is not safe for concurrent use.
type Gate struct {
	config Config
	inj    Injector
	width  float64
	height float64

	disabled  bool
	frozen    bool
	safeMode  bool
	dragMode  bool
	dragStart filter.Point

	recent     []time.Time
	lastByKind map[gesture.ActionKind]time.Time
	history    *History
	onRecord   func(Record)
}

// NewGate creates a Gate injecting through inj.
func NewGate(config Config, inj Injector) *Gate {
	if config.DryRun {
		inj = newDryRunInjector(inj)
	}
	w, h := inj.ScreenSize()
	return &Gate{
		config:     config,
		inj:        inj,
		width:      float64(w),
		height:     float64(h),
		safeMode:   config.SafeMode,
		lastByKind: make(map[gesture.ActionKind]time.Time),
		history:    NewHistory(config.HistorySize),
	}
}

// OnRecord registers fn to be called for every dispatched action.
func (g *Gate) OnRecord(fn func(Record)) {
	g.onRecord = fn
}

// Submit runs ev through the safety checks and dispatches its action.
// It reports whether the action was executed successfully.
func (g *Gate) Submit(ev gesture.Event, cursor filter.Point, now time.Time) bool {
	if g.disabled {
		return false
	}
	if !ev.HasAction() {
		return false
	}

	kind := ev.Action
	if kind == gesture.ActionDragMove {
		if ev.Confidence < g.config.MinConfidence {
			return false
		}
		return g.moveDrag(cursor)
	}

	releasing := kind == gesture.ActionDragEnd && g.dragMode
	if g.safeMode && !releasing && g.rateLimited(kind, now) {
		return false
	}
	g.lastByKind[kind] = now

	if ev.Confidence < g.config.MinConfidence {
		return false
	}
	if !ev.Stable && needsStable(kind) {
		return false
	}

	ok := g.dispatch(ev)
	r := Record{Action: kind, App: ev.App, At: now, Success: ok}
	g.history.Add(r)
	if ok {
		g.recent = append(g.recent, now)
		if g.config.DryRun {
			log.Printf("Tutorial: %s accepted", kind)
		}
	}
	if g.onRecord != nil {
		g.onRecord(r)
	}
	return ok
}

func needsStable(kind gesture.ActionKind) bool {
	switch kind {
	case gesture.ActionLeftClick, gesture.ActionRightClick, gesture.ActionDrag:
		return true
	}
	return false
}

func (g *Gate) rateLimited(kind gesture.ActionKind, now time.Time) bool {
	g.prune(now)
	if len(g.recent) >= g.config.MaxActionsPerSecond {
		log.Printf("Too many actions, %s blocked", kind)
		return true
	}
	if last, ok := g.lastByKind[kind]; ok && now.Sub(last) < g.config.SameKindInterval {
		return true
	}
	return false
}

func (g *Gate) prune(now time.Time) {
	keep := g.recent[:0]
	for _, t := range g.recent {
		if now.Sub(t) < g.config.RateWindow {
			keep = append(keep, t)
		}
	}
	g.recent = keep
}

func (g *Gate) dispatch(ev gesture.Event) bool {
	switch ev.Action {
	case gesture.ActionLeftClick:
		return g.click(ev.Action, ButtonLeft)
	case gesture.ActionRightClick:
		return g.click(ev.Action, ButtonRight)
	case gesture.ActionDrag:
		if g.dragMode {
			return false
		}
		return g.startDrag()
	case gesture.ActionDragStart:
		if g.dragMode {
			return true
		}
		return g.startDrag()
	case gesture.ActionDragEnd:
		return g.endDrag()
	case gesture.ActionScrollUp:
		return !g.frozen && g.do(ev.Action, g.inj.Scroll(g.config.ScrollAmount))
	case gesture.ActionScrollDown:
		return !g.frozen && g.do(ev.Action, g.inj.Scroll(-g.config.ScrollAmount))
	case gesture.ActionNavigateBack:
		return g.hotkey(ev.Action, KeyAlt, KeyLeft)
	case gesture.ActionNavigateForward:
		return g.hotkey(ev.Action, KeyAlt, KeyRight)
	case gesture.ActionZoomIn:
		return g.hotkey(ev.Action, KeyCtrl, KeyPlus)
	case gesture.ActionZoomOut:
		return g.hotkey(ev.Action, KeyCtrl, KeyMinus)
	case gesture.ActionShowApplications:
		if g.inj.Hotkey(KeySuper, KeyTab) == nil {
			return true
		}
		return g.hotkey(ev.Action, KeyAlt, KeyTab)
	case gesture.ActionWinKey:
		return g.hotkey(ev.Action, KeySuper)
	case gesture.ActionShowDesktop:
		if g.inj.Hotkey(KeySuper, KeyD) == nil {
			return true
		}
		return g.hotkey(ev.Action, KeyCtrl, KeyAlt, KeyD)
	case gesture.ActionWorkspaceLeft:
		return g.hotkey(ev.Action, KeyCtrl, KeyAlt, KeyLeft)
	case gesture.ActionWorkspaceRight:
		return g.hotkey(ev.Action, KeyCtrl, KeyAlt, KeyRight)
	case gesture.ActionOpenApp:
		app := ev.App
		if app == "" {
			app = g.config.DefaultApp
		}
		return g.do(ev.Action, g.inj.Launch(app))
	case gesture.ActionToggleMode:
		g.disabled = !g.disabled
		log.Printf("Gesture control disabled: %v", g.disabled)
		return true
	case gesture.ActionFreezeCursor:
		g.frozen = !g.frozen
		log.Printf("Cursor frozen: %v", g.frozen)
		return true
	}
	return false
}

func (g *Gate) do(kind gesture.ActionKind, err error) bool {
	if err != nil {
		log.Printf("Action %s failed: %v", kind, err)
		return false
	}
	return true
}

func (g *Gate) hotkey(kind gesture.ActionKind, keys ...string) bool {
	return g.do(kind, g.inj.Hotkey(keys...))
}

func (g *Gate) click(kind gesture.ActionKind, b Button) bool {
	if g.frozen {
		return false
	}
	x, y := g.inj.Position()
	if !g.safePosition(float64(x), float64(y)) {
		log.Printf("Click blocked near screen edge (%d, %d)", x, y)
		return false
	}
	return g.do(kind, g.inj.Click(b))
}

func (g *Gate) startDrag() bool {
	x, y := g.inj.Position()
	at := filter.Point{X: float64(x), Y: float64(y)}
	if g.frozen || !g.safePosition(at.X, at.Y) {
		return false
	}
	if err := g.inj.ButtonDown(ButtonLeft); err != nil {
		log.Printf("Drag start failed: %v", err)
		return false
	}
	g.dragMode = true
	g.dragStart = at
	return true
}

func (g *Gate) endDrag() bool {
	if !g.dragMode {
		return false
	}
	g.dragMode = false
	g.dragStart = filter.Point{}
	if err := g.inj.ButtonUp(ButtonLeft); err != nil {
		log.Printf("Drag end failed: %v", err)
		return false
	}
	return true
}

func (g *Gate) moveDrag(cursor filter.Point) bool {
	if !g.dragMode {
		return false
	}
	return g.moveTo(cursor, g.config.MaxDragJump)
}

// ReleaseDrag releases a held drag button, for use when the hand leaves the
// frame mid-drag. It reports whether a drag was active.
func (g *Gate) ReleaseDrag() bool {
	if !g.dragMode {
		return false
	}
	g.endDrag()
	return true
}

// MoveCursor moves the pointer toward target. The pointer only moves while
// the pinch is held and the cursor is neither frozen nor disabled.
func (g *Gate) MoveCursor(target filter.Point, pinchActive bool) bool {
	if g.disabled || g.frozen || !pinchActive {
		return false
	}
	limit := g.config.MaxJump
	if g.dragMode {
		limit = g.config.MaxDragJump
	}
	return g.moveTo(target, limit)
}

func (g *Gate) moveTo(target filter.Point, limit float64) bool {
	if math.IsNaN(target.X) || math.IsNaN(target.Y) || math.IsInf(target.X, 0) || math.IsInf(target.Y, 0) {
		return false
	}
	cx, cy := g.inj.Position()
	curX, curY := float64(cx), float64(cy)

	x, y := g.clampSafe(target.X, target.Y)
	dx, dy := x-curX, y-curY
	if d := math.Hypot(dx, dy); d > limit && d > 0 {
		ratio := limit / d
		x, y = g.clampSafe(curX+dx*ratio, curY+dy*ratio)
	}

	if err := g.inj.MoveTo(int(math.Round(x)), int(math.Round(y))); err != nil {
		log.Printf("Cursor move failed: %v", err)
		return false
	}
	return true
}

func (g *Gate) safePosition(x, y float64) bool {
	m := g.config.EdgeMargin
	return x >= m && x <= g.width-m && y >= m && y <= g.height-m
}

func (g *Gate) clampSafe(x, y float64) (float64, float64) {
	return clampAxis(x, g.config.EdgeMargin, g.width-g.config.EdgeMargin),
		clampAxis(y, g.config.EdgeMargin, g.height-g.config.EdgeMargin)
}

func clampAxis(v, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(v, hi))
}

// SetDisabled enables or disables all gesture actions.
func (g *Gate) SetDisabled(disabled bool) {
	g.disabled = disabled
}

// Disabled reports whether gesture actions are disabled.
func (g *Gate) Disabled() bool {
	return g.disabled
}

// SetCursorFrozen freezes or releases the cursor.
func (g *Gate) SetCursorFrozen(frozen bool) {
	g.frozen = frozen
}

// SetSafeMode turns the rate limiter on or off.
func (g *Gate) SetSafeMode(enabled bool) {
	g.safeMode = enabled
	log.Printf("Safe mode enabled: %v", enabled)
}

// DragActive reports whether the drag button is held.
func (g *Gate) DragActive() bool {
	return g.dragMode
}

// Status returns the current safety state.
func (g *Gate) Status(now time.Time) Status {
	g.prune(now)
	s := Status{
		Disabled:          g.disabled,
		CursorFrozen:      g.frozen,
		DragMode:          g.dragMode,
		SafeMode:          g.safeMode,
		DryRun:            g.config.DryRun,
		RecentActionCount: len(g.recent),
		LastActions:       g.history.Last(5),
	}
	if g.dragMode {
		start := g.dragStart
		s.DragStart = &start
	}
	return s
}

// Stats returns rolling action statistics.
func (g *Gate) Stats(now time.Time) Stats {
	g.prune(now)
	return g.history.Stats(len(g.recent))
}

// dryRunInjector tracks the pointer and reports success without touching the
// OS.
type dryRunInjector struct {
	base Injector
	x, y int
}

func newDryRunInjector(base Injector) *dryRunInjector {
	w, h := base.ScreenSize()
	return &dryRunInjector{base: base, x: w / 2, y: h / 2}
}

func (d *dryRunInjector) MoveTo(x, y int) error {
	d.x, d.y = x, y
	return nil
}

func (d *dryRunInjector) Position() (int, int)    { return d.x, d.y }
func (d *dryRunInjector) Click(Button) error      { return nil }
func (d *dryRunInjector) ButtonDown(Button) error { return nil }
func (d *dryRunInjector) ButtonUp(Button) error   { return nil }
func (d *dryRunInjector) Scroll(int) error        { return nil }
func (d *dryRunInjector) Hotkey(...string) error  { return nil }
func (d *dryRunInjector) Launch(string) error     { return nil }
func (d *dryRunInjector) ScreenSize() (int, int)  { return d.base.ScreenSize() }

package action

import (
	"fmt"
	"strings"
	"sync"
)

// MockInjector records input calls for testing. Errors maps a call string
// such as "click left" or "hotkey cmd+tab" to the error that call returns.
type MockInjector struct {
	mu     sync.Mutex
	x, y   int
	width  int
	height int
	calls  []string
	moves  [][2]int

	Errors map[string]error
}

// NewMockInjector creates a MockInjector with the given screen size and the
// pointer at the screen centre.
func NewMockInjector(width, height int) *MockInjector {
	return &MockInjector{
		x:      width / 2,
		y:      height / 2,
		width:  width,
		height: height,
		Errors: make(map[string]error),
	}
}

func (m *MockInjector) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.Errors[call]
}

// SetPosition places the pointer without recording a call.
func (m *MockInjector) SetPosition(x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.x, m.y = x, y
}

func (m *MockInjector) MoveTo(x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Errors["move"]; err != nil {
		return err
	}
	m.x, m.y = x, y
	m.moves = append(m.moves, [2]int{x, y})
	return nil
}

func (m *MockInjector) Position() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

func (m *MockInjector) Click(b Button) error {
	return m.record("click " + string(b))
}

func (m *MockInjector) ButtonDown(b Button) error {
	return m.record("down " + string(b))
}

func (m *MockInjector) ButtonUp(b Button) error {
	return m.record("up " + string(b))
}

func (m *MockInjector) Scroll(delta int) error {
	return m.record(fmt.Sprintf("scroll %d", delta))
}

func (m *MockInjector) Hotkey(keys ...string) error {
	return m.record("hotkey " + strings.Join(keys, "+"))
}

func (m *MockInjector) Launch(app string) error {
	return m.record("launch " + app)
}

func (m *MockInjector) ScreenSize() (int, int) {
	return m.width, m.height
}

// Calls returns the recorded non-move calls in order.
func (m *MockInjector) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Moves returns the pointer positions passed to MoveTo.
func (m *MockInjector) Moves() [][2]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][2]int, len(m.moves))
	copy(out, m.moves)
	return out
}

// Reset clears recorded calls and moves.
func (m *MockInjector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.moves = nil
}

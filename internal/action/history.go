package action

import (
	"time"

	"github.com/oneoblomov/HandPC/internal/gesture"
)

// Record is one dispatched action.
type Record struct {
	Action  gesture.ActionKind `json:"action"`
	App     string             `json:"app,omitempty"`
	At      time.Time          `json:"at"`
	Success bool               `json:"success"`
}

// Stats summarises the action history.
type Stats struct {
	Total           int            `json:"total_actions"`
	Successful      int            `json:"successful_actions"`
	SuccessRate     float64        `json:"success_rate"` // percent
	Breakdown       map[string]int `json:"action_breakdown"`
	RecentPerMinute int            `json:"recent_actions_per_minute"`
}

// History is a bounded log of dispatched actions, oldest dropped first.
type History struct {
	records []Record
	start   int
	size    int
}

// NewHistory creates a History holding at most capacity records.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{records: make([]Record, capacity)}
}

// Add appends r, evicting the oldest record when full.
func (h *History) Add(r Record) {
	n := len(h.records)
	if h.size < n {
		h.records[(h.start+h.size)%n] = r
		h.size++
		return
	}
	h.records[h.start] = r
	h.start = (h.start + 1) % n
}

// Len returns the number of stored records.
func (h *History) Len() int {
	return h.size
}

// Last returns up to n of the newest records, oldest first.
func (h *History) Last(n int) []Record {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = h.at(h.size - n + i)
	}
	return out
}

// Stats computes totals over the stored records. recent is the number of
// successful actions in the current rate window.
func (h *History) Stats(recent int) Stats {
	s := Stats{Breakdown: make(map[string]int)}
	for i := 0; i < h.size; i++ {
		r := h.at(i)
		s.Total++
		s.Breakdown[r.Action.String()]++
		if r.Success {
			s.Successful++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total) * 100
	}
	s.RecentPerMinute = recent * 60
	return s
}

// Reset drops all records.
func (h *History) Reset() {
	h.start, h.size = 0, 0
}

func (h *History) at(i int) Record {
	return h.records[(h.start+i)%len(h.records)]
}

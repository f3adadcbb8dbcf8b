package app

import "time"

// perfFrames is how many recent frames the performance figures cover,
// about four seconds at the active rate.
const perfFrames = 120

// Performance describes recent pipeline throughput.
type Performance struct {
	FPS             float64 `json:"fps"`
	AvgProcessingMS float64 `json:"avg_processing_ms"`
	MaxProcessingMS float64 `json:"max_processing_ms"`
	Errors          int64   `json:"errors"`
}

type frameTiming struct {
	at   time.Time
	took time.Duration
}

// perfMonitor keeps the timing of the last perfFrames frames.
type perfMonitor struct {
	frames []frameTiming
	next   int
	errors int64
}

func newPerfMonitor() *perfMonitor {
	return &perfMonitor{frames: make([]frameTiming, 0, perfFrames)}
}

func (m *perfMonitor) add(at time.Time, took time.Duration) {
	if len(m.frames) < perfFrames {
		m.frames = append(m.frames, frameTiming{at, took})
		return
	}
	m.frames[m.next] = frameTiming{at, took}
	m.next = (m.next + 1) % perfFrames
}

func (m *perfMonitor) fail() {
	m.errors++
}

func (m *perfMonitor) snapshot() Performance {
	p := Performance{Errors: m.errors}
	if len(m.frames) == 0 {
		return p
	}

	oldest, newest := m.frames[0].at, m.frames[0].at
	var total, longest time.Duration
	for _, f := range m.frames {
		total += f.took
		if f.took > longest {
			longest = f.took
		}
		if f.at.Before(oldest) {
			oldest = f.at
		}
		if f.at.After(newest) {
			newest = f.at
		}
	}

	if span := newest.Sub(oldest); span > 0 {
		p.FPS = float64(len(m.frames)-1) / span.Seconds()
	}
	p.AvgProcessingMS = float64(total) / float64(len(m.frames)) / float64(time.Millisecond)
	p.MaxProcessingMS = float64(longest) / float64(time.Millisecond)
	return p
}

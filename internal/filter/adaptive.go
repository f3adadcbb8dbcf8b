package filter

import "math"

// Weight sets for the adaptive average, oldest sample first.
var (
	slowWeights   = []float64{0.1, 0.2, 0.3, 0.4}
	mediumWeights = []float64{0.2, 0.3, 0.5}
	fastWeights   = []float64{0.4, 0.6}
)

// Adaptive averages the most recent positions with weights chosen by how
// fast the point is moving. Slow motion is smoothed heavily; fast motion
// follows the newest samples.
type Adaptive struct {
	size      int
	dt        float64
	slowSpeed float64
	fastSpeed float64
	history   []Point
}

// NewAdaptive keeps size positions sampled every dt seconds. Speeds below
// slowSpeed or fastSpeed (pixels per second) select the slow or medium weights.
func NewAdaptive(size int, dt, slowSpeed, fastSpeed float64) *Adaptive {
	if size < len(slowWeights) {
		size = len(slowWeights)
	}
	return &Adaptive{
		size:      size,
		dt:        dt,
		slowSpeed: slowSpeed,
		fastSpeed: fastSpeed,
		history:   make([]Point, 0, size),
	}
}

// Add records p and returns the weighted average. scaleX and scaleY convert
// position units to pixels for the speed estimate.
func (a *Adaptive) Add(p Point, scaleX, scaleY float64) Point {
	if len(a.history) == a.size {
		copy(a.history, a.history[1:])
		a.history = a.history[:a.size-1]
	}
	a.history = append(a.history, p)

	if len(a.history) < 2 {
		return p
	}

	weights := a.weightsFor(a.Speed(scaleX, scaleY))
	if len(weights) > len(a.history) {
		weights = weights[:len(a.history)]
	}

	var total float64
	for _, w := range weights {
		total += w
	}

	recent := a.history[len(a.history)-len(weights):]
	var out Point
	for i, w := range weights {
		out.X += recent[i].X * w / total
		out.Y += recent[i].Y * w / total
	}
	return out
}

// Speed returns the mean per-frame speed over the history in pixels per second.
func (a *Adaptive) Speed(scaleX, scaleY float64) float64 {
	if len(a.history) < 2 || a.dt <= 0 {
		return 0
	}
	var sum float64
	for i := 1; i < len(a.history); i++ {
		dx := (a.history[i].X - a.history[i-1].X) * scaleX
		dy := (a.history[i].Y - a.history[i-1].Y) * scaleY
		sum += math.Hypot(dx, dy) / a.dt
	}
	return sum / float64(len(a.history)-1)
}

func (a *Adaptive) weightsFor(speed float64) []float64 {
	switch {
	case speed < a.slowSpeed:
		return slowWeights
	case speed < a.fastSpeed:
		return mediumWeights
	default:
		return fastWeights
	}
}

// Reset clears the history.
func (a *Adaptive) Reset() {
	a.history = a.history[:0]
}

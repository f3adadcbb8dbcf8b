package filter

import "math"

// Jitter holds the output still while the input wanders less than a pixel
// threshold. Sub-threshold motion is accepted only after it persists for a
// number of frames and exceeds the dead zone.
type Jitter struct {
	threshold    float64
	deadZone     float64
	stableFrames int

	stable    Point
	hasStable bool
	count     int
}

// NewJitter builds a suppressor with the given pixel threshold, dead zone and
// debounce length in frames.
func NewJitter(threshold, deadZone float64, stableFrames int) *Jitter {
	if stableFrames < 1 {
		stableFrames = 1
	}
	return &Jitter{
		threshold:    threshold,
		deadZone:     deadZone,
		stableFrames: stableFrames,
	}
}

// Filter returns the point to display for p and whether the previous stable
// point was held instead.
func (j *Jitter) Filter(p Point) (Point, bool) {
	if !j.hasStable {
		j.stable = p
		j.hasStable = true
		return p, false
	}

	d := math.Hypot(p.X-j.stable.X, p.Y-j.stable.Y)
	if d >= j.threshold {
		j.stable = p
		j.count = 0
		return p, false
	}

	if j.count < j.stableFrames {
		j.count++
	}
	if j.count >= j.stableFrames && d >= j.deadZone {
		j.stable = p
		j.count = 0
		return p, false
	}
	return j.stable, true
}

// Reset forgets the stable point.
func (j *Jitter) Reset() {
	j.hasStable = false
	j.count = 0
}

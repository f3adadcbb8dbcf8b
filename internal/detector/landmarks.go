// Package detector provides the hand landmark model and the detectors that produce it.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Fingertips lists the tip index of every finger, thumb first.
var Fingertips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

var (
	// ErrInvalidLandmarks is returned when a hand carries non-finite coordinates.
	ErrInvalidLandmarks = errors.New("invalid landmarks")
	// ErrLandmarkCount is returned when a detector reports a hand with the wrong number of points.
	ErrLandmarkCount = errors.New("unexpected landmark count")
)

// Point3D is a landmark in normalized image coordinates. X and Y are in [0,1],
// Z is the relative depth reported by the tracker.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Distance2D returns the planar distance between two landmarks. Depth is ignored.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Validate reports whether every coordinate of the hand is finite.
func (h *HandLandmarks) Validate() error {
	if h == nil {
		return fmt.Errorf("%w: nil hand", ErrInvalidLandmarks)
	}
	for i, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("%w: point %d is not finite", ErrInvalidLandmarks, i)
		}
	}
	return nil
}

// Size returns the wrist to middle fingertip distance.
func (h *HandLandmarks) Size() float64 {
	return Distance2D(h.Points[Wrist], h.Points[MiddleTip])
}

// PalmCenter returns the mean of the wrist and the five fingertips.
func (h *HandLandmarks) PalmCenter() (x, y float64) {
	x, y = h.Points[Wrist].X, h.Points[Wrist].Y
	for _, tip := range Fingertips {
		x += h.Points[tip].X
		y += h.Points[tip].Y
	}
	n := float64(len(Fingertips) + 1)
	return x / n, y / n
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

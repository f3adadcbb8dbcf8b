package gesture

import "github.com/oneoblomov/HandPC/internal/detector"

// Pose is a coarse open/closed hand classification.
type Pose int

const (
	PoseNone Pose = iota
	PoseFist
	PoseOpen
	PosePartial
)

func (p Pose) String() string {
	switch p {
	case PoseFist:
		return "fist"
	case PoseOpen:
		return "open"
	case PosePartial:
		return "partial"
	default:
		return "none"
	}
}

// MarshalText encodes the pose by name.
func (p Pose) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a pose name. Unknown names decode as PoseNone.
func (p *Pose) UnmarshalText(text []byte) error {
	*p = PoseNone
	for c := PoseFist; c <= PosePartial; c++ {
		if c.String() == string(text) {
			*p = c
		}
	}
	return nil
}

// ExtendedFingers counts fingertips farther than ratio*handSize from the wrist.
func ExtendedFingers(hand *detector.HandLandmarks, handSize, ratio float64) int {
	if handSize <= 0 {
		return 0
	}
	wrist := hand.Points[detector.Wrist]
	n := 0
	for _, tip := range detector.Fingertips {
		if detector.Distance2D(wrist, hand.Points[tip]) > handSize*ratio {
			n++
		}
	}
	return n
}

// ClassifyPose maps the extended finger count to a Pose. Without a known
// hand size the pose is PoseNone.
func ClassifyPose(hand *detector.HandLandmarks, handSize, ratio float64) Pose {
	if handSize <= 0 {
		return PoseNone
	}
	switch n := ExtendedFingers(hand, handSize, ratio); {
	case n <= 1:
		return PoseFist
	case n >= 4:
		return PoseOpen
	default:
		return PosePartial
	}
}

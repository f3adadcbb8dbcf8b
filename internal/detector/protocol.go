package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// The hand tracking service reads frames as a 4 byte big-endian length
// followed by JPEG bytes, and answers each with one JSON line:
//
//	{"hands": [{"points": [{"x":..,"y":..,"z":..}, ...], "handedness": "Right", "score": 0.97}]}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// toHandLandmarks converts a tracker hand, refusing anything that is not a
// complete set of finite landmarks.
func (h jsonHand) toHandLandmarks() (HandLandmarks, error) {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	if len(h.Points) != NumLandmarks {
		return lm, fmt.Errorf("%w: got %d, want %d", ErrLandmarkCount, len(h.Points), NumLandmarks)
	}

	for i, p := range h.Points {
		lm.Points[i] = Point3D{X: p.X, Y: p.Y, Z: p.Z}
	}

	if err := lm.Validate(); err != nil {
		return lm, err
	}
	return lm, nil
}

func writeFrame(w io.Writer, jpeg []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(jpeg)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readHands reads one response line. Malformed hands are returned in
// dropped rather than failing the frame.
func readHands(r *bufio.Reader) (hands []HandLandmarks, dropped []error, err error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, nil, fmt.Errorf("parse response: %w", err)
	}

	hands = make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		lm, err := h.toHandLandmarks()
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		hands = append(hands, lm)
	}
	return hands, dropped, nil
}

package capture

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestMotionDetector(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()

	if moved, _ := md.Detect(&black); moved {
		t.Error("first frame should only set the baseline")
	}
	if moved, pct := md.Detect(&black); moved || pct != 0 {
		t.Errorf("identical frames: moved = %v, changed = %.2f%%", moved, pct)
	}

	bright := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer bright.Close()
	gocv.Rectangle(&bright, image.Rect(100, 100, 400, 400), color.RGBA{R: 255, G: 255, B: 255}, -1)

	moved, pct := md.Detect(&bright)
	if !moved {
		t.Errorf("large change not detected, changed = %.2f%%", pct)
	}

	md.Reset()
	if moved, _ := md.Detect(&black); moved {
		t.Error("frame after Reset should only set the baseline")
	}
}

func TestMotionDetector_EmptyFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if moved, pct := md.Detect(nil); moved || pct != 0 {
		t.Errorf("Detect(nil) = %v, %v", moved, pct)
	}
}

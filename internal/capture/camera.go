// Package capture reads camera frames and turns them into per-frame hand
// landmarks.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrFrameRead is returned when the device yields no usable frame.
	ErrFrameRead = errors.New("no frame from camera")
)

// Config holds camera and frame pacing settings.
type Config struct {
	Device int `toml:"device"`
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// Mirror flips frames horizontally so moving the hand right moves the
	// cursor right when facing the camera.
	Mirror bool `toml:"mirror"`

	// ActiveFPS is used while a hand is in view, IdleFPS after IdleTimeout
	// without one.
	ActiveFPS   int           `toml:"active_fps"`
	IdleFPS     int           `toml:"idle_fps"`
	IdleTimeout time.Duration `toml:"idle_timeout"`

	// MotionThreshold is the percentage of changed pixels that wakes the
	// source while idle. Zero runs the detector on every idle frame.
	MotionThreshold float64 `toml:"motion_threshold"`
}

// DefaultConfig returns a mirrored 640x480 camera at 30 fps, idling at 5 fps.
func DefaultConfig() Config {
	return Config{
		Width:           640,
		Height:          480,
		Mirror:          true,
		ActiveFPS:       30,
		IdleFPS:         5,
		IdleTimeout:     2 * time.Second,
		MotionThreshold: 1.0,
	}
}

// Camera is a frame producer with an adjustable rate.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// deviceCamera reads from a local video device through OpenCV.
type deviceCamera struct {
	mu     sync.Mutex
	config Config
	fps    int
	dev    *gocv.VideoCapture
}

// NewCamera returns a Camera for config.Device, starting at the idle rate.
func NewCamera(config Config) Camera {
	return &deviceCamera{config: config, fps: config.IdleFPS}
}

func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev != nil {
		return nil
	}

	dev, err := gocv.OpenVideoCapture(c.config.Device)
	if err != nil {
		return fmt.Errorf("video device %d: %w", c.config.Device, err)
	}
	if !dev.IsOpened() {
		dev.Close()
		return fmt.Errorf("video device %d: unavailable", c.config.Device)
	}

	if c.config.Width > 0 && c.config.Height > 0 {
		dev.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
		dev.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	}
	dev.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.dev = dev
	return nil
}

func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return nil
	}
	dev := c.dev
	c.dev = nil
	return dev.Close()
}

func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return nil, ErrCameraNotOpen
	}

	frame := gocv.NewMat()
	if !c.dev.Read(&frame) || frame.Empty() {
		frame.Close()
		return nil, ErrFrameRead
	}
	if c.config.Mirror {
		gocv.Flip(frame, &frame, 1)
	}
	return &frame, nil
}

// SetFPS changes the capture rate. Non-positive values are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.dev != nil {
		c.dev.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev != nil
}

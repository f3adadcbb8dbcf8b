package capture

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oneoblomov/HandPC/internal/detector"
)

// Source produces one landmark frame per call to Next, pacing the camera
// between the active and idle rates by hand presence.
type Source struct {
	config   Config
	camera   Camera
	detector detector.Detector
	motion   *MotionDetector

	active   bool
	lastHand time.Time

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// NewSource creates a Source reading camera and detecting with det.
func NewSource(config Config, camera Camera, det detector.Detector) *Source {
	s := &Source{
		config:   config,
		camera:   camera,
		detector: det,
		now:      time.Now,
		wait:     sleep,
	}
	if config.MotionThreshold > 0 {
		s.motion = NewMotionDetector(config.MotionThreshold)
	}
	return s
}

// Open opens the camera at the idle rate.
func (s *Source) Open() error {
	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("open camera %d: %w", s.config.Device, err)
	}
	s.camera.SetFPS(s.config.IdleFPS)
	s.active = false
	return nil
}

// Close releases the camera, the motion detector and the detector.
func (s *Source) Close() error {
	if s.motion != nil {
		s.motion.Close()
	}
	err := s.camera.Close()
	if s.detector != nil {
		if derr := s.detector.Close(); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

// Active reports whether the source runs at the active rate.
func (s *Source) Active() bool {
	return s.active
}

// Next waits one frame interval, reads a frame and returns the hands in it.
// An idle source with a motion detector skips detection until the scene
// moves. The returned error is ctx.Err() once ctx is done.
func (s *Source) Next(ctx context.Context) ([]detector.HandLandmarks, error) {
	if err := s.wait(ctx, s.interval()); err != nil {
		return nil, err
	}

	frame, err := s.camera.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	now := s.now()
	if !s.active && s.motion != nil {
		if moved, _ := s.motion.Detect(frame); !moved {
			return nil, nil
		}
	}

	hands, err := s.detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect hands: %w", err)
	}

	switch {
	case len(hands) > 0:
		s.lastHand = now
		if !s.active {
			s.setActive(true)
		}
	case s.active && now.Sub(s.lastHand) > s.config.IdleTimeout:
		s.setActive(false)
	}

	return hands, nil
}

func (s *Source) interval() time.Duration {
	fps := s.config.IdleFPS
	if s.active {
		fps = s.config.ActiveFPS
	}
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}

func (s *Source) setActive(active bool) {
	s.active = active
	if active {
		s.camera.SetFPS(s.config.ActiveFPS)
		log.Println("Switched to active mode")
		return
	}
	s.camera.SetFPS(s.config.IdleFPS)
	if s.motion != nil {
		s.motion.Reset()
	}
	log.Println("Switched to idle mode")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

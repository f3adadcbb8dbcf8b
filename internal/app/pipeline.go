package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oneoblomov/HandPC/internal/detector"
	"github.com/oneoblomov/HandPC/internal/gesture"
)

// FrameSource yields the hands seen in each camera frame.
type FrameSource interface {
	Next(ctx context.Context) ([]detector.HandLandmarks, error)
}

// Run processes frames from src until ctx is cancelled. Source and
// landmark errors are logged and the frame skipped. The stop signal is
// checked between frames only.
func (a *App) Run(ctx context.Context, src FrameSource) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	a.running = true
	a.mu.Unlock()

	log.Printf("Detection pipeline started (session %s)", a.session)
	defer func() {
		a.mu.Lock()
		a.running = false
		a.gate.ReleaseDrag()
		a.mu.Unlock()
		log.Println("Detection pipeline stopped")
	}()

	for ctx.Err() == nil {
		hands, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("Error reading frame: %v", err)
			a.mu.Lock()
			a.perf.fail()
			a.mu.Unlock()
			continue
		}

		if _, err := a.ProcessHands(hands, a.now()); err != nil {
			log.Printf("Skipping frame: %v", err)
		}
	}
	return nil
}

// ProcessHands runs one frame: the first hand drives the recognizer, its
// event goes through the action gate, and the cursor follows while pinched.
// An empty frame means the hand left the view.
//
// The time spent in the recognizer and gate counts towards the reported
// processing time; listeners run after it is measured.
func (a *App) ProcessHands(hands []detector.HandLandmarks, now time.Time) (gesture.Event, error) {
	a.mu.Lock()
	start := a.now()
	ev, notify, err := a.process(hands, now)
	if err != nil {
		a.perf.fail()
	}
	a.perf.add(now, a.now().Sub(start))
	var listeners []func(gesture.Event)
	if notify {
		listeners = append(listeners, a.listeners...)
	}
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
	return ev, err
}

func (a *App) process(hands []detector.HandLandmarks, now time.Time) (gesture.Event, bool, error) {
	a.frames++

	if len(hands) == 0 {
		if a.handVisible {
			a.handVisible = false
			a.recognizer.HandLost()
			if a.gate.ReleaseDrag() {
				log.Println("Hand lost during drag, button released")
			}
		}
		return gesture.Event{}, false, nil
	}
	a.handVisible = true

	wasCalibrated := a.recognizer.Profile().Calibrated
	ev, err := a.recognizer.Process(&hands[0], now)
	if err != nil {
		return ev, false, fmt.Errorf("frame %d: %w", a.frames, err)
	}
	if p := a.recognizer.Profile(); p.Calibrated && !wasCalibrated {
		a.saveProfile(p)
	}

	if ev.HasAction() {
		a.gestures++
		a.gate.Submit(ev, ev.Cursor, now)
	}
	if ev.Action != gesture.ActionDragMove {
		a.gate.MoveCursor(ev.Cursor, ev.PinchActive)
	}

	a.lastEvent = &ev
	return ev, ev.HasAction() || ev.Kind == gesture.EventCalibration, nil
}

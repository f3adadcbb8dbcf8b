package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/browser"
	"golang.org/x/sync/errgroup"

	"github.com/oneoblomov/HandPC/internal/action"
	"github.com/oneoblomov/HandPC/internal/app"
	"github.com/oneoblomov/HandPC/internal/capture"
	"github.com/oneoblomov/HandPC/internal/config"
	"github.com/oneoblomov/HandPC/internal/detector"
	"github.com/oneoblomov/HandPC/internal/gesture"
	"github.com/oneoblomov/HandPC/internal/server"
	"github.com/oneoblomov/HandPC/internal/store"
	"github.com/oneoblomov/HandPC/internal/tray"
)

type flags struct {
	config     string
	addr       string
	camera     int
	noTray     bool
	tutorial   bool
	noSafeMode bool
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", config.DefaultPath(), "Path to the TOML config file")
	flag.StringVar(&f.addr, "addr", "", "HTTP listen address (overrides config)")
	flag.IntVar(&f.camera, "camera", -1, "Camera device index (overrides config)")
	flag.BoolVar(&f.noTray, "no-tray", false, "Run without the system tray icon")
	flag.BoolVar(&f.tutorial, "tutorial", false, "Recognize gestures without moving the mouse or pressing keys")
	flag.BoolVar(&f.noSafeMode, "no-safe-mode", false, "Disable the action rate limiter")
	flag.Parse()

	fmt.Println("HandPC - Hand Gesture PC Control")

	if err := run(f); err != nil {
		log.Fatalf("HandPC failed: %v", err)
	}
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	inj := action.NewRobotInjector(action.NewLauncher(cfg.Apps))
	if w, h := inj.ScreenSize(); w > 0 && h > 0 {
		cfg.Gesture.ScreenWidth, cfg.Gesture.ScreenHeight = w, h
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log.Printf("Screen %dx%d, safe mode %v, tutorial %v",
		cfg.Gesture.ScreenWidth, cfg.Gesture.ScreenHeight, cfg.Action.SafeMode, cfg.Action.DryRun)

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	a := app.New(app.Config{
		Gesture:   cfg.Gesture,
		Action:    cfg.Action,
		ActionLog: st.ActionLog(),
		Profiles:  st.Profiles(),
	}, inj)
	if err := a.RestoreProfile(); err != nil {
		log.Printf("Calibrating from scratch: %v", err)
	}
	if err := a.LoadControls(st.Settings()); err != nil {
		log.Printf("Ignoring saved controls: %v", err)
	}
	if cfg.Debug {
		a.OnEvent(func(ev gesture.Event) {
			log.Printf("event %s/%s confidence %.2f", ev.Kind, ev.Action, ev.Confidence)
		})
	}

	det, err := detector.NewMediaPipeDetector(cfg.Detector)
	if err != nil {
		return fmt.Errorf("start detector: %w", err)
	}
	src := capture.NewSource(cfg.Camera, capture.NewCamera(cfg.Camera), det)
	if err := src.Open(); err != nil {
		det.Close()
		return err
	}
	defer src.Close()

	webDir := findWebDir(cfg.DataDir)
	if webDir != "" {
		log.Printf("Serving static files from: %s", webDir)
	}
	srv := server.New(server.Config{StaticDir: webDir, Store: st, App: a})
	a.OnEvent(srv.PublishEvent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx, src) })
	g.Go(func() error { return srv.Run(gctx, cfg.Addr) })

	if cfg.Tray {
		t := tray.New(a, a.IsEnabled(), cfg.Action.SafeMode)
		t.OnQuit(stop)
		t.OnOpenUI(func() { openBrowser("http://" + cfg.Addr) })
		a.OnEvent(func(ev gesture.Event) {
			if ev.HasAction() {
				t.SetLastAction(ev.Action.String())
			}
		})
		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		t.Run()
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadConfig layers the config file, HANDPC_ environment variables and
// command line flags, in that order.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.ApplyEnv(cfg, nil); err != nil {
		return nil, err
	}

	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.camera >= 0 {
		cfg.Camera.Device = f.camera
	}
	if f.noTray {
		cfg.Tray = false
	}
	if f.tutorial {
		cfg.Action.DryRun = true
	}
	if f.noSafeMode {
		cfg.Action.SafeMode = false
	}
	return cfg, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) {
	if err := browser.OpenURL(url); err != nil {
		log.Printf("Open %s in a browser: %v", url, err)
	}
}

package action

import (
	"fmt"
	"log"
	"os/exec"
	"sort"
)

// DefaultApps maps app names a gesture may request to the command started
// for them.
func DefaultApps() map[string]string {
	return map[string]string{
		"firefox":          "firefox",
		"code":             "code",
		"nautilus":         "nautilus",
		"gnome-terminal":   "gnome-terminal",
		"gnome-calculator": "gnome-calculator",
	}
}

// Launcher starts desktop applications from an allowlist.
type Launcher struct {
	commands map[string]string
	start    func(cmd *exec.Cmd) error
}

// NewLauncher creates a Launcher for the given name to command map.
func NewLauncher(commands map[string]string) *Launcher {
	c := make(map[string]string, len(commands))
	for name, cmd := range commands {
		c[name] = cmd
	}
	return &Launcher{commands: c, start: startDetached}
}

// Apps returns the launchable app names in sorted order.
func (l *Launcher) Apps() []string {
	names := make([]string, 0, len(l.commands))
	for name := range l.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Launch starts the command registered for app without waiting for it.
func (l *Launcher) Launch(app string) error {
	command, ok := l.commands[app]
	if !ok || command == "" {
		return fmt.Errorf("%w: app %q is not allowed", ErrUnsupported, app)
	}

	path, err := exec.LookPath(command)
	if err != nil {
		return fmt.Errorf("find %s: %w", command, err)
	}

	cmd := exec.Command(path)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("start %s: %w", command, err)
	}
	log.Printf("Launched %s", app)
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child so it does not linger as a zombie.
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

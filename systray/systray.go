package systray

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

// Options configures the tray.
type Options struct {
	// DashboardURL is opened by "Open Dashboard"; empty hides the item.
	DashboardURL string
	// OnToggle receives the new enabled state after a menu click.
	OnToggle func(enabled bool)
}

// Tray manages the system tray icon and menu
type Tray struct {
	opts Options
	quit chan struct{}

	mu      sync.Mutex
	ready   bool
	enabled bool
	hotkey  string
	warning string
	toggle  *systray.MenuItem
}

// New creates a tray showing the agent as enabled.
func New(opts Options) *Tray {
	return &Tray{
		opts:    opts,
		quit:    make(chan struct{}),
		enabled: true,
	}
}

// Run starts the system tray. It blocks until Stop or Quit and must be
// called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Stop stops the system tray
func (t *Tray) Stop() {
	systray.Quit()
}

// Quit returns a channel that is closed when the user clicks Quit
func (t *Tray) Quit() <-chan struct{} {
	return t.quit
}

// SetEnabled reflects the agent's enabled flag in the menu.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	t.refreshLocked()
}

// SetStatus updates the hotkey shown in the tooltip. A non-empty
// warning replaces it, e.g. when registration failed.
func (t *Tray) SetStatus(hotkey, warning string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hotkey = hotkey
	t.warning = warning
	t.refreshLocked()
}

func (t *Tray) onReady() {
	systray.SetIcon(icon())
	systray.SetTitle("layoutfix")

	toggle := systray.AddMenuItemCheckbox("Enabled", "Convert the selection when the hotkey is pressed", true)
	var dashboard *systray.MenuItem
	if t.opts.DashboardURL != "" {
		dashboard = systray.AddMenuItem("Open Dashboard", "Open the layoutfix web dashboard")
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit layoutfix")

	t.mu.Lock()
	t.toggle = toggle
	t.ready = true
	t.refreshLocked()
	t.mu.Unlock()

	var dashboardCh chan struct{}
	if dashboard != nil {
		dashboardCh = dashboard.ClickedCh
	}

	go func() {
		for {
			select {
			case <-toggle.ClickedCh:
				t.mu.Lock()
				t.enabled = !t.enabled
				enabled := t.enabled
				t.refreshLocked()
				t.mu.Unlock()
				slog.Info("Toggled from system tray", "enabled", enabled)
				if t.opts.OnToggle != nil {
					t.opts.OnToggle(enabled)
				}
			case <-dashboardCh:
				openBrowser(t.opts.DashboardURL)
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				close(t.quit)
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	slog.Info("System tray exited")
}

func (t *Tray) refreshLocked() {
	if !t.ready {
		return
	}
	if t.enabled {
		t.toggle.Check()
	} else {
		t.toggle.Uncheck()
	}
	systray.SetTooltip(Tooltip(t.hotkey, t.enabled, t.warning))
}

// Tooltip renders the tray tooltip.
func Tooltip(hotkey string, enabled bool, warning string) string {
	switch {
	case warning != "":
		return "layoutfix - " + warning
	case !enabled:
		return "layoutfix - disabled"
	case hotkey == "":
		return "layoutfix"
	}
	return fmt.Sprintf("layoutfix - press %s to convert", hotkey)
}

func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	}
	return nil, fmt.Errorf("unsupported platform for opening browser: %s", goos)
}

// openBrowser opens url in the default browser
func openBrowser(url string) {
	slog.Info("Opening web UI", "url", url)

	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		slog.Error("Failed to open web UI", "error", err)
		return
	}
	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open web UI", "error", err)
		return
	}
	go cmd.Wait()
}

//go:build windows

package native

import (
	"log/slog"
	"sync"

	"golang.org/x/sys/windows"

	"markestedt/layoutfix/platform"
)

var user32 = windows.NewLazySystemDLL("user32.dll")

// windowsBackend implements platform.Services with a message-only window
// for the hotkey, SendInput for chords and the Win32 clipboard API.
type windowsBackend struct {
	log *slog.Logger

	mu      sync.Mutex
	session *session
	tracker platform.SessionTracker
}

// New returns the backend for the host OS.
func New() (platform.Services, error) {
	return &windowsBackend{log: slog.Default().With("component", "hotkey")}, nil
}

// SessionState implements platform.StateReporter.
func (b *windowsBackend) SessionState() platform.SessionState {
	return b.tracker.SessionState()
}

func (b *windowsBackend) SessionBinding() platform.Binding {
	return b.tracker.Binding()
}

func (b *windowsBackend) Close() error {
	return b.UnregisterHotkey()
}

//go:build linux && cgo

package native

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"

	"markestedt/layoutfix/platform"
)

// uinputWarmup is how long a fresh uinput device needs before the
// desktop picks up its events.
const uinputWarmup = 2 * time.Second

// linuxBackend implements platform.Services on X11.
type linuxBackend struct {
	log *slog.Logger

	mu      sync.Mutex
	session *linuxSession
	tracker platform.SessionTracker

	kbMu      sync.Mutex
	kb        keybd_event.KeyBonding
	kbCreated time.Time
}

// New returns the backend for the host OS.
func New() (platform.Services, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	return &linuxBackend{
		log:       slog.Default().With("component", "hotkey"),
		kb:        kb,
		kbCreated: time.Now(),
	}, nil
}

// SessionState implements platform.StateReporter.
func (b *linuxBackend) SessionState() platform.SessionState {
	return b.tracker.SessionState()
}

func (b *linuxBackend) SessionBinding() platform.Binding {
	return b.tracker.Binding()
}

func (b *linuxBackend) Close() error {
	return b.UnregisterHotkey()
}

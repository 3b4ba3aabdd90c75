//go:build linux && cgo

package native

import (
	"context"
	"time"

	"github.com/micmonay/keybd_event"

	"markestedt/layoutfix/platform"
)

type chordKeys struct {
	ctrl  bool
	super bool
	key   int
}

func (b *linuxBackend) simulate(ctx context.Context, action string, settle time.Duration, c chordKeys) error {
	if wait := uinputWarmup - time.Since(b.kbCreated); wait > 0 {
		if err := platform.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	b.kbMu.Lock()
	b.kb.Clear()
	b.kb.HasCTRL(c.ctrl)
	b.kb.HasSuper(c.super)
	b.kb.SetKeys(c.key)
	err := b.kb.Launching()
	b.kbMu.Unlock()

	if err != nil {
		return &platform.SimulationError{Action: action, Err: err}
	}
	return platform.Sleep(ctx, settle)
}

func (b *linuxBackend) SimulateCopy(ctx context.Context) error {
	return b.simulate(ctx, "copy", platform.CopySettle, chordKeys{ctrl: true, key: keybd_event.VK_C})
}

func (b *linuxBackend) SimulatePaste(ctx context.Context) error {
	return b.simulate(ctx, "paste", platform.PasteSettle, chordKeys{ctrl: true, key: keybd_event.VK_V})
}

func (b *linuxBackend) SimulateSelectAll(ctx context.Context) error {
	return b.simulate(ctx, "select_all", platform.SelectAllSettle, chordKeys{ctrl: true, key: keybd_event.VK_A})
}

// SimulateLanguageSwitch sends Super+Space, the GNOME and KDE input
// source toggle.
func (b *linuxBackend) SimulateLanguageSwitch(ctx context.Context) error {
	return b.simulate(ctx, "language_switch", platform.LanguageSwitchSettle, chordKeys{super: true, key: keybd_event.VK_SPACE})
}

// WaitForModifiersReleased waits for the hotkey's own key-up. X11 offers
// no global modifier query without an extra connection, so the release
// of the bound key stands in for the chord.
func (b *linuxBackend) WaitForModifiersReleased(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for b.hotkeyHeld() && time.Now().Before(deadline) {
		if err := platform.Sleep(ctx, platform.ModifierPollInterval); err != nil {
			return err
		}
	}
	return nil
}

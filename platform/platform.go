// Package platform defines the OS capabilities the conversion pipeline
// depends on: global hotkey delivery, synthetic input, modifier polling
// and plain-text clipboard access. Backends live in platform/native.
package platform

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Settle delays applied after each synthesized chord. They cover the
// foreground application's own event processing, not a guarantee.
const (
	CopySettle           = 100 * time.Millisecond
	PasteSettle          = 300 * time.Millisecond
	SelectAllSettle      = 50 * time.Millisecond
	LanguageSwitchSettle = 50 * time.Millisecond
)

const (
	ModifierPollInterval = 10 * time.Millisecond
	ClipboardAttempts    = 10
	ClipboardBackoff     = 10 * time.Millisecond
	RegistrationTimeout  = 5 * time.Second
	TeardownTimeout      = 3 * time.Second
)

// Modifiers is a bitmask of hotkey modifier keys. Values match the
// Win32 RegisterHotKey flags.
type Modifiers uint32

const (
	ModAlt   Modifiers = 1
	ModCtrl  Modifiers = 2
	ModShift Modifiers = 4
	ModWin   Modifiers = 8
)

// Has reports whether all bits of m2 are set in m.
func (m Modifiers) Has(m2 Modifiers) bool {
	return m&m2 == m2
}

func (m Modifiers) String() string {
	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	if m.Has(ModWin) {
		parts = append(parts, "Win")
	}
	return strings.Join(parts, "+")
}

// Binding is a global hotkey: a non-empty modifier set plus one key.
// A registered binding is never changed in place; callers unregister
// and register again.
type Binding struct {
	Modifiers Modifiers
	Key       Key
}

// Validate rejects bindings a backend cannot register.
func (b Binding) Validate() error {
	if b.Modifiers == 0 {
		return fmt.Errorf("hotkey %s has no modifiers", b)
	}
	if b.Modifiers&^(ModAlt|ModCtrl|ModShift|ModWin) != 0 {
		return fmt.Errorf("hotkey has unknown modifier bits 0x%X", uint32(b.Modifiers))
	}
	if b.Key == KeyNone {
		return fmt.Errorf("hotkey %s has no key", b)
	}
	return nil
}

func (b Binding) String() string {
	mods := b.Modifiers.String()
	if mods == "" {
		return b.Key.String()
	}
	return mods + "+" + b.Key.String()
}

// Text is a clipboard payload. Valid is false when the clipboard holds
// no text at all, which is different from holding an empty string.
type Text struct {
	Value string
	Valid bool
}

// Absent is the zero Text.
func Absent() Text { return Text{} }

// Present wraps s as clipboard text.
func Present(s string) Text { return Text{Value: s, Valid: true} }

// Empty reports whether t is absent or holds the empty string.
func (t Text) Empty() bool {
	return !t.Valid || t.Value == ""
}

// Hotkey registers a single global hotkey at a time.
type Hotkey interface {
	// RegisterHotkey starts listening for binding. onTriggered runs on an
	// unspecified goroutine each time the OS reports the combination.
	// Registering again implicitly unregisters the previous binding.
	RegisterHotkey(binding Binding, onTriggered func()) error
	// UnregisterHotkey releases the listener and its OS resources. It is a
	// no-op when nothing is registered and may be called from onTriggered.
	UnregisterHotkey() error
}

// Input synthesizes OS keyboard shortcuts. Each Simulate call returns
// after the chord has been queued and its settle delay has elapsed.
type Input interface {
	SimulateCopy(ctx context.Context) error
	SimulatePaste(ctx context.Context) error
	SimulateSelectAll(ctx context.Context) error
	SimulateLanguageSwitch(ctx context.Context) error
	// WaitForModifiersReleased blocks until no modifier key is held or
	// timeout elapses. Reaching the timeout is not an error.
	WaitForModifiersReleased(ctx context.Context, timeout time.Duration) error
}

// Clipboard reads and writes the OS plain-text clipboard.
type Clipboard interface {
	// ClipboardText returns Absent with a nil error when the clipboard
	// holds no text, and Absent with ErrClipboardBusy when it could not be
	// opened after retries.
	ClipboardText() (Text, error)
	SetClipboardText(text string) error
	ClearClipboard() error
}

// Services is the full capability set of one OS backend.
type Services interface {
	Hotkey
	Input
	Clipboard
	Close() error
}

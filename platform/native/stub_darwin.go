//go:build darwin

package native

import (
	"context"
	"fmt"
	"time"

	"markestedt/layoutfix/platform"
)

// darwinBackend is a placeholder until the CGEvent and NSPasteboard
// bindings exist. Every operation fails with ErrNotImplemented.
type darwinBackend struct{}

// New returns the backend for the host OS.
func New() (platform.Services, error) {
	return darwinBackend{}, nil
}

func notImplemented(op string) error {
	return fmt.Errorf("macOS %s: %w", op, platform.ErrNotImplemented)
}

func (darwinBackend) RegisterHotkey(binding platform.Binding, _ func()) error {
	return &platform.RegistrationError{Binding: binding, Err: notImplemented("hotkey registration")}
}

// UnregisterHotkey is a no-op: nothing can have been registered.
func (darwinBackend) UnregisterHotkey() error { return nil }

func (darwinBackend) SimulateCopy(context.Context) error {
	return &platform.SimulationError{Action: "copy", Err: notImplemented("Cmd+C")}
}

func (darwinBackend) SimulatePaste(context.Context) error {
	return &platform.SimulationError{Action: "paste", Err: notImplemented("Cmd+V")}
}

func (darwinBackend) SimulateSelectAll(context.Context) error {
	return &platform.SimulationError{Action: "select_all", Err: notImplemented("Cmd+A")}
}

func (darwinBackend) SimulateLanguageSwitch(context.Context) error {
	return &platform.SimulationError{Action: "language_switch", Err: notImplemented("input source switch")}
}

func (darwinBackend) WaitForModifiersReleased(context.Context, time.Duration) error {
	return notImplemented("modifier polling")
}

func (darwinBackend) ClipboardText() (platform.Text, error) {
	return platform.Absent(), notImplemented("clipboard read")
}

func (darwinBackend) SetClipboardText(string) error {
	return notImplemented("clipboard write")
}

func (darwinBackend) ClearClipboard() error {
	return notImplemented("clipboard clear")
}

func (darwinBackend) Close() error { return nil }

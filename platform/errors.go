package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented is returned by backends that exist but have not
	// been built out for the host OS yet.
	ErrNotImplemented = errors.New("not implemented on this platform")

	// ErrUnsupportedPlatform means no backend exists for the host OS.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrClipboardBusy means another process held the clipboard for every
	// retry attempt.
	ErrClipboardBusy = errors.New("clipboard is held by another process")

	// ErrRegistrationTimeout means the hotkey listener did not come up
	// within RegistrationTimeout.
	ErrRegistrationTimeout = errors.New("hotkey listener startup timed out")
)

// RegistrationError reports a hotkey the OS refused or a listener that
// never started.
type RegistrationError struct {
	Binding Binding
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register hotkey %s: %v", e.Binding, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// SimulationError reports a chord that could not be queued to the input
// subsystem.
type SimulationError struct {
	Action string
	Err    error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulate %s: %v", e.Action, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }

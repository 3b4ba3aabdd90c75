package orchestrator

import (
	"fmt"

	"markestedt/layoutfix/platform"
)

// Restore puts the clipboard back to original: written back when it
// held text, cleared otherwise. Failures are logged and swallowed.
func (o *Orchestrator) Restore(original platform.Text) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Debug("Clipboard restore panicked", "panic", fmt.Sprint(r))
		}
	}()

	if original.Valid && original.Value != "" {
		if err := o.platform.SetClipboardText(original.Value); err != nil {
			o.log.Debug("Failed to restore clipboard", "error", err)
		}
		return
	}
	if err := o.platform.ClearClipboard(); err != nil {
		o.log.Debug("Failed to clear clipboard", "error", err)
	}
}

//go:build linux && cgo

package native

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"

	"markestedt/layoutfix/platform"
)

// ClipboardText reads the CLIPBOARD selection through xclip, xsel or
// wl-paste. An empty selection is reported as Absent.
func (b *linuxBackend) ClipboardText() (platform.Text, error) {
	if clipboard.Unsupported {
		return platform.Absent(), fmt.Errorf("clipboard: %w", platform.ErrNotImplemented)
	}
	var text string
	err := platform.Retry(platform.ClipboardAttempts, platform.ClipboardBackoff, func() error {
		var err error
		text, err = clipboard.ReadAll()
		if isEmptySelection(err) {
			text = ""
			return nil
		}
		return err
	})
	if err != nil {
		return platform.Absent(), fmt.Errorf("%w: %v", platform.ErrClipboardBusy, err)
	}
	if text == "" {
		return platform.Absent(), nil
	}
	return platform.Present(text), nil
}

func (b *linuxBackend) SetClipboardText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: %w", platform.ErrNotImplemented)
	}
	err := platform.Retry(platform.ClipboardAttempts, platform.ClipboardBackoff, func() error {
		return clipboard.WriteAll(text)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrClipboardBusy, err)
	}
	return nil
}

// ClearClipboard writes an empty selection; X11 has no separate clear.
func (b *linuxBackend) ClearClipboard() error {
	return b.SetClipboardText("")
}

// Messages the paste helpers print when the selection holds no text.
var emptySelectionMessages = []string{
	"not available", // xclip: "Error: target STRING not available"
	"nothing is copied",
	"no selection",
}

// isEmptySelection reports whether err is a paste helper failing because
// there is no text to read rather than because the clipboard is busy.
func isEmptySelection(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg += " " + string(exitErr.Stderr)
	}
	msg = strings.ToLower(msg)
	for _, m := range emptySelectionMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

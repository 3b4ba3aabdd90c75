//go:build windows

package native

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"markestedt/layoutfix/platform"
)

// openClipboard retries OpenClipboard while another process holds it.
// OpenClipboard and CloseClipboard must run on the same OS thread, so
// callers lock the goroutine to its thread first.
func openClipboard() error {
	err := platform.Retry(platform.ClipboardAttempts, platform.ClipboardBackoff, func() error {
		if !win.OpenClipboard(0) {
			return platform.ErrClipboardBusy
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("open clipboard: %w", err)
	}
	return nil
}

// ClipboardText returns the clipboard's Unicode text, or Absent when it
// holds none.
func (b *windowsBackend) ClipboardText() (platform.Text, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := openClipboard(); err != nil {
		return platform.Absent(), err
	}
	defer win.CloseClipboard()

	if !win.IsClipboardFormatAvailable(win.CF_UNICODETEXT) {
		return platform.Absent(), nil
	}
	h := win.HGLOBAL(win.GetClipboardData(win.CF_UNICODETEXT))
	if h == 0 {
		return platform.Absent(), nil
	}

	p := win.GlobalLock(h)
	if p == nil {
		return platform.Absent(), fmt.Errorf("GlobalLock failed: %w", windows.GetLastError())
	}
	defer win.GlobalUnlock(h)

	return platform.Present(windows.UTF16PtrToString((*uint16)(p))), nil
}

// SetClipboardText replaces the clipboard content with text.
func (b *windowsBackend) SetClipboardText(text string) error {
	utf16, err := windows.UTF16FromString(text)
	if err != nil {
		return fmt.Errorf("UTF16 conversion failed: %w", err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := openClipboard(); err != nil {
		return err
	}
	defer win.CloseClipboard()

	if !win.EmptyClipboard() {
		return fmt.Errorf("EmptyClipboard failed: %w", windows.GetLastError())
	}

	n := len(utf16) * 2 // UTF-16 uses 2 bytes per code unit
	h := win.GlobalAlloc(win.GMEM_MOVEABLE, uintptr(n))
	if h == 0 {
		return fmt.Errorf("GlobalAlloc failed: %w", windows.GetLastError())
	}

	p := win.GlobalLock(h)
	if p == nil {
		win.GlobalFree(h)
		return fmt.Errorf("GlobalLock failed: %w", windows.GetLastError())
	}
	copy(unsafe.Slice((*uint16)(p), len(utf16)), utf16)
	win.GlobalUnlock(h)

	// On success the clipboard owns h.
	if win.SetClipboardData(win.CF_UNICODETEXT, win.HANDLE(h)) == 0 {
		win.GlobalFree(h)
		return fmt.Errorf("SetClipboardData failed: %w", windows.GetLastError())
	}
	return nil
}

// ClearClipboard empties the clipboard.
func (b *windowsBackend) ClearClipboard() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := openClipboard(); err != nil {
		return err
	}
	defer win.CloseClipboard()

	if !win.EmptyClipboard() {
		return fmt.Errorf("EmptyClipboard failed: %w", windows.GetLastError())
	}
	return nil
}

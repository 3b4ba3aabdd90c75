//go:build windows

package native

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"markestedt/layoutfix/platform"
)

var (
	procSendInput        = user32.NewProc("SendInput")
	procMapVirtualKeyW   = user32.NewProc("MapVirtualKeyW")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

const (
	inputKeyboard  = 1
	keyeventfKeyup = 0x0002
	mapvkVkToVsc   = 0
)

const (
	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12 // Alt
	vkLwin    = 0x5B
	vkRwin    = 0x5C
	vkA       = 0x41
	vkC       = 0x43
	vkV       = 0x56
)

var modifierKeys = []int{vkShift, vkControl, vkMenu, vkLwin, vkRwin}

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type input struct {
	inputType uint32
	ki        keyboardInput
	padding   [8]byte // Padding to match C struct size
}

// chord presses keys in order and releases them in reverse. Scan codes
// are filled in for applications that ignore virtual-key codes.
func chord(keys ...uint16) []input {
	inputs := make([]input, 0, len(keys)*2)
	scans := make([]uint16, len(keys))
	for i, vk := range keys {
		sc, _, _ := procMapVirtualKeyW.Call(uintptr(vk), mapvkVkToVsc)
		scans[i] = uint16(sc)
		inputs = append(inputs, input{
			inputType: inputKeyboard,
			ki:        keyboardInput{wVk: vk, wScan: scans[i]},
		})
	}
	for i := len(keys) - 1; i >= 0; i-- {
		inputs = append(inputs, input{
			inputType: inputKeyboard,
			ki:        keyboardInput{wVk: keys[i], wScan: scans[i], dwFlags: keyeventfKeyup},
		})
	}
	return inputs
}

func sendChord(keys ...uint16) error {
	inputs := chord(keys...)
	// Send all inputs at once so no other input interleaves.
	ret, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(ret) != len(inputs) {
		return fmt.Errorf("SendInput queued %d of %d events: %w", ret, len(inputs), err)
	}
	return nil
}

func (b *windowsBackend) simulate(ctx context.Context, action string, settle time.Duration, keys ...uint16) error {
	if err := sendChord(keys...); err != nil {
		return &platform.SimulationError{Action: action, Err: err}
	}
	return platform.Sleep(ctx, settle)
}

func (b *windowsBackend) SimulateCopy(ctx context.Context) error {
	return b.simulate(ctx, "copy", platform.CopySettle, vkControl, vkC)
}

func (b *windowsBackend) SimulatePaste(ctx context.Context) error {
	return b.simulate(ctx, "paste", platform.PasteSettle, vkControl, vkV)
}

func (b *windowsBackend) SimulateSelectAll(ctx context.Context) error {
	return b.simulate(ctx, "select_all", platform.SelectAllSettle, vkControl, vkA)
}

// SimulateLanguageSwitch sends Alt+Shift, the default input language
// toggle.
func (b *windowsBackend) SimulateLanguageSwitch(ctx context.Context) error {
	return b.simulate(ctx, "language_switch", platform.LanguageSwitchSettle, vkMenu, vkShift)
}

func modifierHeld() bool {
	for _, vk := range modifierKeys {
		r, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
		if r&0x8000 != 0 {
			return true
		}
	}
	return false
}

// WaitForModifiersReleased polls until no modifier is held or timeout
// elapses. Only cancellation is reported.
func (b *windowsBackend) WaitForModifiersReleased(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for modifierHeld() && time.Now().Before(deadline) {
		if err := platform.Sleep(ctx, platform.ModifierPollInterval); err != nil {
			return err
		}
	}
	return nil
}

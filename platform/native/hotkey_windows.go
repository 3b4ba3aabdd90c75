//go:build windows

package native

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"markestedt/layoutfix/platform"
)

var (
	procRegisterHotKey   = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey = user32.NewProc("UnregisterHotKey")
)

const (
	hotkeyID    = 1
	modNoRepeat = 0x4000

	// HWND_MESSAGE, (HWND)-3.
	hwndMessage = win.HWND(^uintptr(2))
)

var (
	className  = syscall.StringToUTF16Ptr("LayoutFixHotkeyWindow")
	windowName = syscall.StringToUTF16Ptr("LayoutFixHotkey")
)

// The window class and its procedure are process-wide: NewCallback
// slots are never released, so they are created once.
var (
	classOnce sync.Once
	classErr  error

	sessionsMu sync.Mutex
	sessions   = map[win.HWND]*session{}
)

const (
	statePending int32 = iota
	stateReady
	stateAbandoned
)

// session is one registration: a window, its hotkey and the locked OS
// thread pumping its messages.
type session struct {
	binding     platform.Binding
	onTriggered func()

	hwnd  win.HWND
	state atomic.Int32
	ready chan error
	done  chan struct{}
}

func registerClass() error {
	classOnce.Do(func() {
		var wc win.WNDCLASSEX
		wc.CbSize = uint32(unsafe.Sizeof(wc))
		wc.LpfnWndProc = syscall.NewCallback(wndProc)
		wc.HInstance = win.GetModuleHandle(nil)
		wc.LpszClassName = className
		if win.RegisterClassEx(&wc) == 0 {
			classErr = fmt.Errorf("RegisterClassEx failed: %w", windows.GetLastError())
		}
	})
	return classErr
}

func wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_HOTKEY:
		if wParam != hotkeyID {
			return 0
		}
		sessionsMu.Lock()
		s := sessions[hwnd]
		sessionsMu.Unlock()
		if s != nil {
			// Never run user code on the pump thread.
			go s.onTriggered()
		}
		return 0
	case win.WM_CLOSE:
		procUnregisterHotKey.Call(uintptr(hwnd), hotkeyID)
		win.DestroyWindow(hwnd)
		return 0
	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// RegisterHotkey replaces any active registration with binding.
func (b *windowsBackend) RegisterHotkey(binding platform.Binding, onTriggered func()) error {
	if err := binding.Validate(); err != nil {
		return &platform.RegistrationError{Binding: binding, Err: err}
	}
	if onTriggered == nil {
		return &platform.RegistrationError{Binding: binding, Err: errors.New("callback is required")}
	}
	if err := user32.Load(); err != nil {
		return &platform.RegistrationError{Binding: binding, Err: fmt.Errorf("user32.dll is unavailable: %w", err)}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.unregisterLocked()
	b.tracker.Set(platform.Registering, binding)

	s := &session{
		binding:     binding,
		onTriggered: onTriggered,
		ready:       make(chan error, 1),
		done:        make(chan struct{}),
	}
	go b.runLoop(s)

	timer := time.NewTimer(platform.RegistrationTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-s.ready:
	case <-timer.C:
		if s.state.CompareAndSwap(statePending, stateAbandoned) {
			err = platform.ErrRegistrationTimeout
		} else {
			err = <-s.ready
		}
	}
	if err != nil {
		b.tracker.Set(platform.Unregistered, binding)
		return &platform.RegistrationError{Binding: binding, Err: err}
	}

	b.session = s
	b.tracker.Set(platform.Registered, binding)
	b.log.Info("Hotkey registered", "binding", binding.String())
	return nil
}

// UnregisterHotkey closes the session window and waits for its thread.
func (b *windowsBackend) UnregisterHotkey() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unregisterLocked()
	return nil
}

func (b *windowsBackend) unregisterLocked() {
	s := b.session
	if s == nil {
		return
	}
	b.session = nil
	b.tracker.Set(platform.Unregistering, s.binding)
	defer b.tracker.Set(platform.Unregistered, s.binding)

	win.PostMessage(s.hwnd, win.WM_CLOSE, 0, 0)

	timer := time.NewTimer(platform.TeardownTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
		b.log.Info("Hotkey unregistered", "binding", s.binding.String())
	case <-timer.C:
		b.log.Warn("Hotkey listener did not stop in time, thread may leak",
			"binding", s.binding.String(), "timeout", platform.TeardownTimeout)
	}
}

func (b *windowsBackend) runLoop(s *session) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	if err := registerClass(); err != nil {
		s.ready <- err
		return
	}

	hwnd := win.CreateWindowEx(0, className, windowName, 0, 0, 0, 0, 0,
		hwndMessage, 0, win.GetModuleHandle(nil), nil)
	if hwnd == 0 {
		s.ready <- fmt.Errorf("CreateWindowEx failed: %w", windows.GetLastError())
		return
	}
	s.hwnd = hwnd

	sessionsMu.Lock()
	sessions[hwnd] = s
	sessionsMu.Unlock()
	defer func() {
		sessionsMu.Lock()
		delete(sessions, hwnd)
		sessionsMu.Unlock()
	}()

	mods := uintptr(s.binding.Modifiers) | modNoRepeat
	r, _, err := procRegisterHotKey.Call(uintptr(hwnd), hotkeyID, mods, uintptr(s.binding.Key))
	if r == 0 {
		win.DestroyWindow(hwnd)
		s.ready <- fmt.Errorf("RegisterHotKey failed: %w", err)
		return
	}

	if !s.state.CompareAndSwap(statePending, stateReady) {
		// The caller gave up waiting; tear down what we built.
		procUnregisterHotKey.Call(uintptr(hwnd), hotkeyID)
		win.DestroyWindow(hwnd)
		b.log.Warn("Hotkey listener came up after timeout, released", "binding", s.binding.String())
		return
	}
	s.ready <- nil

	var msg win.MSG
	for {
		switch win.GetMessage(&msg, 0, 0, 0) {
		case 0:
			return
		case -1:
			b.log.Warn("GetMessage failed, stopping hotkey listener", "error", windows.GetLastError())
			procUnregisterHotKey.Call(uintptr(hwnd), hotkeyID)
			win.DestroyWindow(hwnd)
			return
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

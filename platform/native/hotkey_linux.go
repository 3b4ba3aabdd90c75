//go:build linux && cgo

package native

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.design/x/hotkey"

	"markestedt/layoutfix/platform"
)

var modifierMap = []struct {
	mod platform.Modifiers
	x11 hotkey.Modifier
}{
	{platform.ModCtrl, hotkey.ModCtrl},
	{platform.ModShift, hotkey.ModShift},
	{platform.ModAlt, hotkey.Mod1},
	{platform.ModWin, hotkey.Mod4},
}

func x11Modifiers(m platform.Modifiers) []hotkey.Modifier {
	var mods []hotkey.Modifier
	for _, e := range modifierMap {
		if m.Has(e.mod) {
			mods = append(mods, e.x11)
		}
	}
	return mods
}

// x11Key maps a virtual-key code to an X11 keysym. Letters, digits and
// F1-F12 are contiguous in both code spaces.
func x11Key(k platform.Key) (hotkey.Key, error) {
	switch {
	case k.IsLetter():
		return hotkey.KeyA + hotkey.Key(k-platform.KeyA), nil
	case k.IsDigit():
		return hotkey.Key0 + hotkey.Key(k-platform.Key0), nil
	case k.IsFunction():
		return hotkey.KeyF1 + hotkey.Key(k-platform.KeyF1), nil
	case k == platform.KeySpace:
		return hotkey.KeySpace, nil
	case k == platform.KeyEnter:
		return hotkey.KeyReturn, nil
	case k == platform.KeyTab:
		return hotkey.KeyTab, nil
	}
	return 0, fmt.Errorf("key %s has no X11 equivalent", k)
}

type linuxSession struct {
	binding platform.Binding
	hk      *hotkey.Hotkey
	held    atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// RegisterHotkey grabs binding on the X11 root window.
func (b *linuxBackend) RegisterHotkey(binding platform.Binding, onTriggered func()) error {
	if err := binding.Validate(); err != nil {
		return &platform.RegistrationError{Binding: binding, Err: err}
	}
	if onTriggered == nil {
		return &platform.RegistrationError{Binding: binding, Err: errors.New("callback is required")}
	}
	key, err := x11Key(binding.Key)
	if err != nil {
		return &platform.RegistrationError{Binding: binding, Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.unregisterLocked()
	b.tracker.Set(platform.Registering, binding)

	hk := hotkey.New(x11Modifiers(binding.Modifiers), key)
	errCh := make(chan error, 1)
	go func() { errCh <- hk.Register() }()

	timer := time.NewTimer(platform.RegistrationTimeout)
	defer timer.Stop()
	select {
	case err = <-errCh:
	case <-timer.C:
		err = platform.ErrRegistrationTimeout
		go func() {
			// Release the grab if it lands after all.
			if <-errCh == nil {
				_ = hk.Unregister()
			}
		}()
	}
	if err != nil {
		b.tracker.Set(platform.Unregistered, binding)
		return &platform.RegistrationError{Binding: binding, Err: err}
	}

	s := &linuxSession{
		binding: binding,
		hk:      hk,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.listen(onTriggered)

	b.session = s
	b.tracker.Set(platform.Registered, binding)
	b.log.Info("Hotkey registered", "binding", binding.String())
	return nil
}

func (s *linuxSession) listen(onTriggered func()) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.hk.Keydown():
			s.held.Store(true)
			go onTriggered()
		case <-s.hk.Keyup():
			s.held.Store(false)
		}
	}
}

// UnregisterHotkey releases the grab and stops the listener.
func (b *linuxBackend) UnregisterHotkey() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unregisterLocked()
}

func (b *linuxBackend) unregisterLocked() error {
	s := b.session
	if s == nil {
		return nil
	}
	b.session = nil
	b.tracker.Set(platform.Unregistering, s.binding)
	defer b.tracker.Set(platform.Unregistered, s.binding)

	close(s.stop)
	err := s.hk.Unregister()

	timer := time.NewTimer(platform.TeardownTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
		b.log.Info("Hotkey unregistered", "binding", s.binding.String())
	case <-timer.C:
		b.log.Warn("Hotkey listener did not stop in time", "binding", s.binding.String())
	}
	if err != nil {
		return fmt.Errorf("unregister hotkey %s: %w", s.binding, err)
	}
	return nil
}

// hotkeyHeld reports whether the bound key is still down.
func (b *linuxBackend) hotkeyHeld() bool {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	return s != nil && s.held.Load()
}

//go:build windows

package native

import (
	"testing"
	"time"

	"github.com/lxn/win"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/layoutfix/platform"
)

// An unusual chord so the tests do not collide with the desktop.
var testBinding = platform.Binding{
	Modifiers: platform.ModCtrl | platform.ModAlt | platform.ModShift,
	Key:       platform.KeyF12,
}

func newRegistered(t *testing.T, onTriggered func()) *windowsBackend {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	b := s.(*windowsBackend)
	t.Cleanup(func() { b.Close() })

	if err := b.RegisterHotkey(testBinding, onTriggered); err != nil {
		t.Skipf("cannot register %s on this desktop: %v", testBinding, err)
	}
	return b
}

func currentSession(b *windowsBackend) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

func TestRegisterTwiceReplacesSession(t *testing.T) {
	b := newRegistered(t, func() {})
	first := currentSession(b)
	require.NotNil(t, first)

	// The same chord again only succeeds if the first session let go of it.
	require.NoError(t, b.RegisterHotkey(testBinding, func() {}))
	assert.Equal(t, platform.Registered, b.SessionState())
	assert.Equal(t, testBinding, b.SessionBinding())

	select {
	case <-first.done:
	default:
		t.Fatal("first listener thread still running")
	}
	assert.NotSame(t, first, currentSession(b))

	require.NoError(t, b.UnregisterHotkey())
	assert.Equal(t, platform.Unregistered, b.SessionState())
	assert.Equal(t, platform.Binding{}, b.SessionBinding())
}

func TestUnregisterFromCallback(t *testing.T) {
	unregistered := make(chan time.Duration, 1)
	var b *windowsBackend
	b = newRegistered(t, func() {
		start := time.Now()
		assert.NoError(t, b.UnregisterHotkey())
		unregistered <- time.Since(start)
	})

	s := currentSession(b)
	require.NotNil(t, s)
	require.NotZero(t, win.PostMessage(s.hwnd, win.WM_HOTKEY, hotkeyID, 0))

	select {
	case took := <-unregistered:
		assert.Less(t, took, platform.TeardownTimeout)
	case <-time.After(platform.RegistrationTimeout):
		t.Fatal("UnregisterHotkey from the callback did not return")
	}
	assert.Equal(t, platform.Unregistered, b.SessionState())
}

func TestTeardownIsBounded(t *testing.T) {
	b := newRegistered(t, func() {})

	start := time.Now()
	require.NoError(t, b.UnregisterHotkey())
	assert.Less(t, time.Since(start), platform.TeardownTimeout+time.Second)
	assert.Equal(t, platform.Unregistered, b.SessionState())

	// Tearing down twice is a no-op.
	require.NoError(t, b.UnregisterHotkey())
}

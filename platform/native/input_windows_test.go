//go:build windows

package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/layoutfix/platform"
)

var (
	_ platform.Services      = (*windowsBackend)(nil)
	_ platform.StateReporter = (*windowsBackend)(nil)
)

func TestChordOrder(t *testing.T) {
	inputs := chord(vkControl, vkV)
	require.Len(t, inputs, 4)

	want := []struct {
		vk uint16
		up bool
	}{
		{vkControl, false},
		{vkV, false},
		{vkV, true},
		{vkControl, true},
	}
	for i, w := range want {
		assert.Equal(t, uint32(inputKeyboard), inputs[i].inputType)
		assert.Equal(t, w.vk, inputs[i].ki.wVk, "event %d", i)
		assert.Equal(t, w.up, inputs[i].ki.dwFlags&keyeventfKeyup != 0, "event %d", i)
	}
}

func TestRegisterRejectsInvalidBinding(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	err = s.RegisterHotkey(platform.Binding{Key: platform.KeySpace}, func() {})
	var regErr *platform.RegistrationError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, platform.Unregistered, s.(platform.StateReporter).SessionState())
}

func TestUnregisterWithoutRegistration(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.NoError(t, s.UnregisterHotkey())
	assert.NoError(t, s.UnregisterHotkey())
}

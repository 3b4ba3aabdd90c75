//go:build darwin

package native

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/layoutfix/platform"
)

func TestDarwinStubFailsEveryOperation(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	ctx := context.Background()
	q, _ := platform.ParseKey("q")

	err = s.RegisterHotkey(platform.Binding{Modifiers: platform.ModCtrl, Key: q}, func() {})
	var regErr *platform.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.ErrorIs(t, err, platform.ErrNotImplemented)

	for name, op := range map[string]func(context.Context) error{
		"copy":            s.SimulateCopy,
		"paste":           s.SimulatePaste,
		"select_all":      s.SimulateSelectAll,
		"language_switch": s.SimulateLanguageSwitch,
	} {
		err := op(ctx)
		var simErr *platform.SimulationError
		require.ErrorAs(t, err, &simErr, name)
		assert.Equal(t, name, simErr.Action)
		assert.ErrorIs(t, err, platform.ErrNotImplemented)
	}

	assert.ErrorIs(t, s.WaitForModifiersReleased(ctx, time.Second), platform.ErrNotImplemented)
	text, err := s.ClipboardText()
	assert.ErrorIs(t, err, platform.ErrNotImplemented)
	assert.False(t, text.Valid)
	assert.ErrorIs(t, s.SetClipboardText("x"), platform.ErrNotImplemented)
	assert.ErrorIs(t, s.ClearClipboard(), platform.ErrNotImplemented)

	assert.NoError(t, s.UnregisterHotkey())
	assert.NoError(t, s.Close())
}

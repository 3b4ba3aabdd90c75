package systray

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTooltip(t *testing.T) {
	assert.Equal(t, "layoutfix - press Ctrl+Q to convert", Tooltip("Ctrl+Q", true, ""))
	assert.Equal(t, "layoutfix - disabled", Tooltip("Ctrl+Q", false, ""))
	assert.Equal(t, "layoutfix - hotkey Ctrl+Q unavailable", Tooltip("Ctrl+Q", true, "hotkey Ctrl+Q unavailable"))
	assert.Equal(t, "layoutfix", Tooltip("", true, ""))
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"windows", "darwin", "linux"} {
		cmd, err := browserCommand(goos, "http://localhost:8923")
		require.NoError(t, err, goos)
		assert.Equal(t, "http://localhost:8923", cmd.Args[len(cmd.Args)-1])
	}

	_, err := browserCommand("plan9", "http://localhost:8923")
	assert.Error(t, err)
}

func TestIconIsWellFormed(t *testing.T) {
	data := icon()

	require.GreaterOrEqual(t, len(data), 22)
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[2:4]), "type is icon")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[4:6]), "one image")

	size := binary.LittleEndian.Uint32(data[14:18])
	offset := binary.LittleEndian.Uint32(data[18:22])
	assert.Equal(t, uint32(22), offset)
	assert.Equal(t, len(data), int(offset+size))
}

func TestStateBeforeReady(t *testing.T) {
	tr := New(Options{})

	// Updates before the tray is running are stored, not applied.
	tr.SetEnabled(false)
	tr.SetStatus("Ctrl+Q", "")
	assert.False(t, tr.enabled)
	assert.Equal(t, "Ctrl+Q", tr.hotkey)
}

//go:build !windows && !darwin && !(linux && cgo)

package native

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"markestedt/layoutfix/platform"
)

func TestNewUnsupported(t *testing.T) {
	s, err := New()
	assert.Nil(t, s)
	assert.ErrorIs(t, err, platform.ErrUnsupportedPlatform)
}

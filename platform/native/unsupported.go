//go:build !windows && !darwin && !(linux && cgo)

package native

import (
	"fmt"
	"runtime"

	"markestedt/layoutfix/platform"
)

// New returns the backend for the host OS.
func New() (platform.Services, error) {
	return nil, fmt.Errorf("%s/%s: %w", runtime.GOOS, runtime.GOARCH, platform.ErrUnsupportedPlatform)
}

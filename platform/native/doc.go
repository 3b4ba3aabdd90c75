// Package native selects the platform.Services implementation for the
// host OS at build time.
//
// Windows is fully supported. Linux is supported under X11 when built
// with cgo. macOS builds a stub whose operations all fail with
// platform.ErrNotImplemented, and every other target gets a New that
// returns platform.ErrUnsupportedPlatform.
package native

// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	goruntime "runtime"
)

// GOOS values compared against runtime.GOOS.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

const (
	// PlatformLinux is any Linux distribution.
	PlatformLinux Platform = "linux"
	// PlatformMacOS is Apple macOS.
	PlatformMacOS Platform = "macos"
	// PlatformWindows is Microsoft Windows.
	PlatformWindows Platform = "windows"
	// PlatformUnix is the Unix family (Linux, macOS and the BSDs). It is the
	// current platform on Unix systems other than Linux and macOS, which
	// therefore only match "unix" entries.
	PlatformUnix Platform = "unix"
)

// ErrInvalidPlatform is the sentinel error wrapped by InvalidPlatformError.
var ErrInvalidPlatform = errors.New("invalid platform")

type (
	// Platform is a platform tag used in platform-keyed command maps and
	// platform restrictions.
	Platform string

	// InvalidPlatformError is returned when a Platform value is not one of the
	// known tags.
	InvalidPlatformError struct {
		Value Platform
	}
)

// Error implements the error interface.
func (e *InvalidPlatformError) Error() string {
	return fmt.Sprintf("invalid platform %q (expected one of: linux, macos, windows, unix)", string(e.Value))
}

// Unwrap returns ErrInvalidPlatform for errors.Is compatibility.
func (e *InvalidPlatformError) Unwrap() error { return ErrInvalidPlatform }

// All returns every known platform tag.
func All() []Platform {
	return []Platform{PlatformLinux, PlatformMacOS, PlatformWindows, PlatformUnix}
}

// IsValid returns whether the Platform is a known tag, and a list of
// validation errors if it is not.
func (p Platform) IsValid() (bool, []error) {
	switch p {
	case PlatformLinux, PlatformMacOS, PlatformWindows, PlatformUnix:
		return true, nil
	default:
		return false, []error{&InvalidPlatformError{Value: p}}
	}
}

// IsUnixFamily reports whether p belongs to the Unix family.
func (p Platform) IsUnixFamily() bool {
	return p == PlatformLinux || p == PlatformMacOS || p == PlatformUnix
}

// Matches reports whether a restriction entry r admits the platform p.
// The "unix" entry admits every Unix-family platform.
func (p Platform) Matches(r Platform) bool {
	if p == r {
		return true
	}
	return r == PlatformUnix && p.IsUnixFamily()
}

// String returns the tag.
func (p Platform) String() string { return string(p) }

// Current returns the platform the process is running on.
func Current() Platform {
	return FromGOOS(goruntime.GOOS)
}

// FromGOOS maps a runtime.GOOS value to a Platform. Every other system
// (the BSDs, illumos, solaris) is reported as unix.
func FromGOOS(goos string) Platform {
	switch goos {
	case Linux, "android":
		return PlatformLinux
	case Darwin:
		return PlatformMacOS
	case Windows:
		return PlatformWindows
	default:
		return PlatformUnix
	}
}

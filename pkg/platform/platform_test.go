// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"testing"
)

func TestFromGOOS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos     string
		expected Platform
	}{
		{"linux", PlatformLinux},
		{"darwin", PlatformMacOS},
		{"windows", PlatformWindows},
		{"android", PlatformLinux},
		{"freebsd", PlatformUnix},
		{"openbsd", PlatformUnix},
		{"netbsd", PlatformUnix},
		{"dragonfly", PlatformUnix},
		{"illumos", PlatformUnix},
		{"solaris", PlatformUnix},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()
			if got := FromGOOS(tt.goos); got != tt.expected {
				t.Errorf("FromGOOS(%q) = %q, want %q", tt.goos, got, tt.expected)
			}
		})
	}
}

func TestPlatform_Matches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		platform    Platform
		restriction Platform
		expected    bool
	}{
		{"exact linux", PlatformLinux, PlatformLinux, true},
		{"unix covers linux", PlatformLinux, PlatformUnix, true},
		{"unix covers macos", PlatformMacOS, PlatformUnix, true},
		{"unix excludes windows", PlatformWindows, PlatformUnix, false},
		{"linux excludes macos", PlatformMacOS, PlatformLinux, false},
		{"bsd matches unix only", PlatformUnix, PlatformUnix, true},
		{"bsd excludes linux", PlatformUnix, PlatformLinux, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.platform.Matches(tt.restriction); got != tt.expected {
				t.Errorf("%q.Matches(%q) = %v, want %v", tt.platform, tt.restriction, got, tt.expected)
			}
		})
	}
}

func TestPlatform_IsValid(t *testing.T) {
	t.Parallel()

	for _, p := range All() {
		if ok, errs := p.IsValid(); !ok {
			t.Errorf("%q should be valid, got %v", p, errs)
		}
	}

	ok, errs := Platform("solaris").IsValid()
	if ok {
		t.Fatal("solaris should be invalid")
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrInvalidPlatform) {
		t.Errorf("expected ErrInvalidPlatform, got %v", errs)
	}
}

// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Doc: {
	name: string & !=""
	count?: int & >0
	tags?: [...string]
}
`

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    map[string]any
		wantErr string
	}{
		{"valid", map[string]any{"name": "x", "count": int64(2)}, ""},
		{"missing required", map[string]any{"count": int64(1)}, "name"},
		{"wrong type", map[string]any{"name": "x", "count": "two"}, "count"},
		{"closed struct", map[string]any{"name": "x", "extra": true}, "extra"},
		{"list element", map[string]any{"name": "x", "tags": []any{"a", int64(1)}}, "tags[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(testSchema, "#Doc", tt.data, "doc.toml")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) || !strings.Contains(err.Error(), "doc.toml") {
				t.Errorf("error %q should mention %q and the file name", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_UnknownDefinition(t *testing.T) {
	t.Parallel()

	err := Validate(testSchema, "#Missing", map[string]any{}, "")
	if err == nil || !strings.Contains(err.Error(), "internal error") {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestFormatError_NonCUE(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "f") != nil {
		t.Error("nil error should stay nil")
	}
	cause := errors.New("boom")
	err := FormatError(cause, "f.toml")
	if !errors.Is(err, cause) {
		t.Errorf("non-CUE error should be wrapped, got %v", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     []string
		expected string
	}{
		{nil, ""},
		{[]string{"commands"}, "commands"},
		{[]string{"commands", "build", "cmd", "0"}, "commands.build.cmd[0]"},
		{[]string{"hooks", "commands", "a", "pre_run"}, "hooks.commands.a.pre_run"},
	}

	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.expected {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.expected)
		}
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize([]byte("abc"), 3, "f"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckFileSize([]byte("abcd"), 3, "f"); err == nil {
		t.Error("expected size error")
	}
}

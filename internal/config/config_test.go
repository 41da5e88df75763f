// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/internal/runtime"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := FilePath(dir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultConfig()
	if cfg.StrictMode != want.StrictMode || cfg.Timeout != want.Timeout || cfg.History != want.History || cfg.UI != want.UI {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, want)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
shell = "virtual"
strict_mode = false
timeout = "90s"
parallel = true
max_parallel = 4

[history]
enabled = false
max_entries = 50

[ui]
color = "never"
verbose = true
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Shell != runtime.ShellVirtual {
		t.Errorf("Shell = %q", cfg.Shell)
	}
	if cfg.StrictMode {
		t.Error("StrictMode = true, want false")
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %s, want 90s", cfg.Timeout)
	}
	if !cfg.Parallel || cfg.MaxParallel != 4 {
		t.Errorf("Parallel = %v, MaxParallel = %d", cfg.Parallel, cfg.MaxParallel)
	}
	if cfg.History.Enabled || cfg.History.MaxEntries != 50 {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.UI.Color != ColorNever || !cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
}

func TestLoad_IntegerTimeoutIsSeconds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "timeout = 45\n")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s", cfg.Timeout)
	}
}

//nolint:paralleltest // uses t.Setenv
func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "shell = \"bash\"\n")

	t.Setenv("CMDRUN_SHELL", "sh")
	t.Setenv("CMDRUN_HISTORY_ENABLED", "false")
	t.Setenv("CMDRUN_TIMEOUT", "2m")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Shell != runtime.ShellSh {
		t.Errorf("Shell = %q, want sh", cfg.Shell)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %s, want 2m", cfg.Timeout)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	other := t.TempDir()
	path := filepath.Join(other, "custom.toml")
	if err := os.WriteFile(path, []byte("max_parallel = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path, ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxParallel != 2 || cfg.Path != path {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		missing bool
		want    string
	}{
		{name: "missing explicit file", missing: true, want: "config file not found"},
		{name: "bad toml", content: "shell = \n", want: "failed to load configuration"},
		{name: "unknown shell", content: "shell = \"fish\"\n", want: "invalid shell"},
		{name: "bad color", content: "[ui]\ncolor = \"rainbow\"\n", want: "invalid color mode"},
		{name: "negative parallel", content: "max_parallel = -1\n", want: "max_parallel must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")
			if !tt.missing {
				writeConfig(t, dir, tt.content)
			}

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path, ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to contain %q", err, tt.want)
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T", err)
			}
			if ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Issue = %d, want ConfigLoadFailedId", ae.Issue)
			}
		})
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestInit_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cmdrun")
	path, err := Init(dir, false)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if path != FilePath(dir) {
		t.Errorf("Init() path = %q", path)
	}

	if _, err := Init(dir, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second Init() error = %v, want ErrConfigExists", err)
	}
	if _, err := Init(dir, true); err != nil {
		t.Errorf("forced Init() error = %v", err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() after Init error = %v", err)
	}
	want := DefaultConfig()
	if cfg.Timeout != want.Timeout || cfg.StrictMode != want.StrictMode || cfg.History != want.History || cfg.UI != want.UI {
		t.Errorf("round trip = %+v, want %+v", cfg, want)
	}
}

func TestConfig_Settings(t *testing.T) {
	t.Parallel()

	user := &Config{Shell: runtime.ShellZsh, StrictMode: false, Parallel: true, Timeout: time.Minute}

	undeclared := user.Settings(cmdfile.DefaultSettings())
	if undeclared.Shell != "zsh" || undeclared.StrictMode || !undeclared.Parallel || undeclared.Timeout != time.Minute {
		t.Errorf("Settings() without declarations = %+v", undeclared)
	}

	project := cmdfile.Settings{
		Shell:      "bash",
		StrictMode: true,
		Timeout:    10 * time.Second,
		Declared:   []string{"shell", "strict_mode", "timeout"},
	}
	got := user.Settings(project)
	if got.Shell != "bash" || !got.StrictMode || got.Timeout != 10*time.Second {
		t.Errorf("declared keys should win, got %+v", got)
	}
	if !got.Parallel {
		t.Error("undeclared parallel should come from the user config")
	}
}

func TestConfig_HistoryPath(t *testing.T) {
	t.Parallel()

	cfg := &Config{Dir: "/etc/cmdrun"}
	if got, _ := cfg.HistoryPath(); got != filepath.Join("/etc/cmdrun", "history.json") {
		t.Errorf("HistoryPath() = %q", got)
	}

	cfg.History.Path = "/var/tmp/h.json"
	if got, _ := cfg.HistoryPath(); got != "/var/tmp/h.json" {
		t.Errorf("HistoryPath() = %q", got)
	}

	cfg.History.Path = "~/h.json"
	got, err := cfg.HistoryPath()
	if err != nil {
		t.Fatalf("HistoryPath() error = %v", err)
	}
	if strings.HasPrefix(got, "~") || !strings.HasSuffix(got, "h.json") {
		t.Errorf("HistoryPath() = %q, want home expanded", got)
	}
}

func TestColorMode_IsValid(t *testing.T) {
	t.Parallel()

	for _, m := range append(ColorModes(), "") {
		if ok, errs := m.IsValid(); !ok {
			t.Errorf("%q.IsValid() = false, %v", m, errs)
		}
	}
	ok, errs := ColorMode("neon").IsValid()
	if ok || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidColorMode) {
		t.Errorf("IsValid() = %v, %v", ok, errs)
	}
}

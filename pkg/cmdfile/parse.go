// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cmdrun/cmdrun/pkg/cueutil"
	"github.com/cmdrun/cmdrun/pkg/platform"

	"github.com/pelletier/go-toml/v2"
)

//go:embed commands_schema.cue
var commandsSchema string

type (
	rawFile struct {
		Config   *rawSettings          `toml:"config"`
		Commands map[string]rawCommand `toml:"commands"`
		Aliases  map[string]string     `toml:"aliases"`
		Hooks    rawHooks              `toml:"hooks"`
	}

	rawSettings struct {
		Shell      string            `toml:"shell"`
		StrictMode *bool             `toml:"strict_mode"`
		Parallel   bool              `toml:"parallel"`
		Timeout    any               `toml:"timeout"`
		WorkingDir string            `toml:"working_dir"`
		Env        map[string]string `toml:"env"`
		EnvFile    []string          `toml:"env_file"`
	}

	rawCommand struct {
		Description    string            `toml:"description"`
		Cmd            any               `toml:"cmd"`
		Env            map[string]string `toml:"env"`
		WorkingDir     string            `toml:"working_dir"`
		Deps           []string          `toml:"deps"`
		Platform       []string          `toml:"platform"`
		Tags           []string          `toml:"tags"`
		Timeout        any               `toml:"timeout"`
		Parallel       bool              `toml:"parallel"`
		Confirm        bool              `toml:"confirm"`
		AllowChaining  bool              `toml:"allow_chaining"`
		AllowSubshells bool              `toml:"allow_subshells"`
		Watch          *rawWatch         `toml:"watch"`
	}

	rawWatch struct {
		Patterns    []string `toml:"patterns"`
		Ignore      []string `toml:"ignore"`
		Debounce    any      `toml:"debounce"`
		ClearScreen bool     `toml:"clear_screen"`
	}

	rawHooks struct {
		PreRun   string                 `toml:"pre_run"`
		PostRun  string                 `toml:"post_run"`
		Commands map[string]rawHookPair `toml:"commands"`
	}

	rawHookPair struct {
		PreRun  string `toml:"pre_run"`
		PostRun string `toml:"post_run"`
	}
)

// Load reads and parses the commands file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands file: %w", err)
	}

	f, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if abs, absErr := filepath.Abs(path); absErr == nil {
		f.Path = abs
	}
	return f, nil
}

// Parse decodes a commands document. filename is used in error messages
// and becomes File.Path.
//
// The document is decoded twice: once into a generic tree that is checked
// against the CUE schema, and once into typed structs. A third pass over
// the TOML syntax tree recovers the declaration order of env tables.
func Parse(data []byte, filename string) (*File, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
		return nil, err
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	if err := cueutil.Validate(commandsSchema, "#CommandsFile", tree, filename); err != nil {
		return nil, err
	}

	var raw rawFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	leaves, err := keyOrder(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return raw.build(filename, leaves)
}

func (r *rawFile) build(filename string, leaves [][]string) (*File, error) {
	f := &File{
		Path:     filename,
		Settings: DefaultSettings(),
		Commands: make(map[CommandID]*Command, len(r.Commands)),
		Aliases:  make(map[string]CommandID, len(r.Aliases)),
		Hooks: Hooks{
			PreRun:   r.Hooks.PreRun,
			PostRun:  r.Hooks.PostRun,
			Commands: make(map[CommandID]CommandHooks, len(r.Hooks.Commands)),
		},
	}

	if s := r.Config; s != nil {
		f.Settings.Shell = s.Shell
		f.Settings.Parallel = s.Parallel
		f.Settings.WorkingDir = s.WorkingDir
		f.Settings.EnvFiles = s.EnvFile
		if s.StrictMode != nil {
			f.Settings.StrictMode = *s.StrictMode
		}
		if s.Timeout != nil {
			d, err := parseDuration("config.timeout", s.Timeout)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filename, err)
			}
			f.Settings.Timeout = d
		}
		f.Settings.Env = orderedEnv(s.Env, childKeys(leaves, "config", "env"))
		f.Settings.Declared = childKeys(leaves, "config")
	}

	var errs []error
	for name, rc := range r.Commands {
		cmd, err := rc.build(CommandID(name), leaves)
		if err != nil {
			errs = append(errs, fmt.Errorf("commands.%s: %w", name, err))
			continue
		}
		f.Commands[cmd.ID] = cmd
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", filename, errors.Join(errs...))
	}

	for alias, target := range r.Aliases {
		f.Aliases[alias] = CommandID(target)
	}
	for id, h := range r.Hooks.Commands {
		f.Hooks.Commands[CommandID(id)] = CommandHooks(h)
	}

	return f, nil
}

func (rc *rawCommand) build(id CommandID, leaves [][]string) (*Command, error) {
	spec, err := buildSpec(rc.Cmd)
	if err != nil {
		return nil, err
	}

	cmd := &Command{
		ID:             id,
		Description:    rc.Description,
		Spec:           spec,
		Env:            orderedEnv(rc.Env, childKeys(leaves, "commands", string(id), "env")),
		WorkingDir:     rc.WorkingDir,
		Tags:           rc.Tags,
		Parallel:       rc.Parallel,
		Confirm:        rc.Confirm,
		AllowChaining:  rc.AllowChaining,
		AllowSubshells: rc.AllowSubshells,
	}
	for _, d := range rc.Deps {
		cmd.Deps = append(cmd.Deps, CommandID(d))
	}
	for _, p := range rc.Platform {
		cmd.Platforms = append(cmd.Platforms, platform.Platform(p))
	}
	if rc.Timeout != nil {
		if cmd.Timeout, err = parseDuration("timeout", rc.Timeout); err != nil {
			return nil, err
		}
	}
	if w := rc.Watch; w != nil {
		cmd.Watch = &WatchConfig{Patterns: w.Patterns, Ignore: w.Ignore, ClearScreen: w.ClearScreen}
		if w.Debounce != nil {
			if cmd.Watch.Debounce, err = parseDuration("watch.debounce", w.Debounce); err != nil {
				return nil, err
			}
		}
	}
	return cmd, nil
}

// buildSpec turns the decoded `cmd` value into its StepSpec form.
func buildSpec(v any) (StepSpec, error) {
	switch cmd := v.(type) {
	case string:
		return SingleStep(cmd), nil
	case []any:
		seq := make(StepSequence, 0, len(cmd))
		for i, item := range cmd {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("cmd[%d]: expected string, got %T", i, item)
			}
			seq = append(seq, s)
		}
		return seq, nil
	case map[string]any:
		ps := make(PlatformSteps, len(cmd))
		for key, item := range cmd {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("cmd.%s: expected string, got %T", key, item)
			}
			ps[platform.Platform(key)] = s
		}
		return ps, nil
	case nil:
		return nil, errors.New("cmd is required")
	default:
		return nil, fmt.Errorf("cmd: unsupported type %T", v)
	}
}

// parseDuration accepts a positive integer number of seconds or a Go
// duration string.
func parseDuration(field string, v any) (time.Duration, error) {
	var d time.Duration
	switch val := v.(type) {
	case int64:
		d = time.Duration(val) * time.Second
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", field, val, err)
		}
		d = parsed
	default:
		return 0, fmt.Errorf("invalid %s: expected seconds or a duration string, got %T", field, v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", field)
	}
	return d, nil
}

// orderedEnv converts a decoded env table into declaration order. Names
// missing from order (which should not happen) follow in sorted order.
func orderedEnv(env map[string]string, order []string) []EnvVar {
	if len(env) == 0 {
		return nil
	}
	vars := make([]EnvVar, 0, len(env))
	seen := make(map[string]bool, len(env))
	for _, name := range order {
		if value, ok := env[name]; ok && !seen[name] {
			vars = append(vars, EnvVar{Name: name, Value: value})
			seen[name] = true
		}
	}
	rest := make([]string, 0)
	for name := range env {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	for _, name := range rest {
		vars = append(vars, EnvVar{Name: name, Value: env[name]})
	}
	return vars
}

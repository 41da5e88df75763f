// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	"path/filepath"
	"slices"

	"github.com/agnivade/levenshtein"
)

const (
	// suggestionDistance is the largest edit distance offered as a suggestion.
	suggestionDistance = 2
	// maxSuggestions caps the number of suggestions in UnknownCommandError.
	maxSuggestions = 5
)

// File is a parsed commands file. It is immutable once returned by Parse.
type File struct {
	// Path is the absolute path of the file when loaded from disk.
	Path string
	// Settings is the [config] table merged over DefaultSettings.
	Settings Settings
	// Commands is keyed by command id.
	Commands map[CommandID]*Command
	// Aliases maps alternative names to command ids.
	Aliases map[string]CommandID
	// Hooks holds global and per-command hooks.
	Hooks Hooks
}

// Dir returns the directory containing the file, the base for relative
// working directories and env files.
func (f *File) Dir() string {
	if f.Path == "" {
		return "."
	}
	return filepath.Dir(f.Path)
}

// IDs returns every command id in sorted order.
func (f *File) IDs() []CommandID {
	ids := make([]CommandID, 0, len(f.Commands))
	for id := range f.Commands {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Resolve looks name up as a command id, then as an alias. Unknown names
// yield an *UnknownCommandError carrying close matches.
func (f *File) Resolve(name string) (*Command, error) {
	if cmd, ok := f.Commands[CommandID(name)]; ok {
		return cmd, nil
	}
	if target, ok := f.Aliases[name]; ok {
		if cmd, ok := f.Commands[target]; ok {
			return cmd, nil
		}
	}
	return nil, &UnknownCommandError{Name: name, Suggestions: f.Suggest(name)}
}

// Suggest returns command ids and aliases within a small edit distance of
// name, closest first.
func (f *File) Suggest(name string) []CommandID {
	type candidate struct {
		id   CommandID
		dist int
	}

	names := f.IDs()
	for alias := range f.Aliases {
		names = append(names, CommandID(alias))
	}

	var found []candidate
	for _, id := range names {
		d := levenshtein.ComputeDistance(name, string(id))
		if d > 0 && d <= suggestionDistance {
			found = append(found, candidate{id, d})
		}
	}
	slices.SortFunc(found, func(a, b candidate) int {
		if a.dist != b.dist {
			return a.dist - b.dist
		}
		if a.id < b.id {
			return -1
		}
		if a.id > b.id {
			return 1
		}
		return 0
	})

	out := make([]CommandID, 0, min(len(found), maxSuggestions))
	for _, c := range found {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, c.id)
	}
	return out
}

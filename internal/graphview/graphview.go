// SPDX-License-Identifier: MPL-2.0

package graphview

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"

	"github.com/cmdrun/cmdrun/internal/dag"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

const (
	// FormatTree draws dependencies below each command with box-drawing
	// connectors.
	FormatTree Format = "tree"
	// FormatDOT emits a Graphviz digraph.
	FormatDOT Format = "dot"
	// FormatMermaid emits a Mermaid `graph TD` flowchart.
	FormatMermaid Format = "mermaid"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid graph format")

type (
	// Format selects the output notation.
	Format string

	// InvalidFormatError is returned for an unknown Format.
	InvalidFormatError struct {
		Value Format
	}
)

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid graph format %q (valid: %s)", e.Value, strings.Join(formatNames(), ", "))
}

func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatTree, FormatDOT, FormatMermaid}
}

func formatNames() []string {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	return names
}

// IsValid returns whether f is a supported format.
func (f Format) IsValid() (bool, []error) {
	if slices.Contains(Formats(), f) {
		return true, nil
	}
	return false, []error{&InvalidFormatError{Value: f}}
}

// Render draws the graph of root and its dependencies, or of every command
// when root is empty. With showGroups the execution groups computed by
// dag.BuildPlan are included; for an empty root each top-level command
// gets its own plan.
func Render(f *cmdfile.File, root cmdfile.CommandID, format Format, showGroups bool) (string, error) {
	if ok, errs := format.IsValid(); !ok {
		return "", errs[0]
	}

	roots, err := selectRoots(f, root)
	if err != nil {
		return "", err
	}
	nodes := closure(f, roots)

	var plans []*dag.ExecutionPlan
	if showGroups {
		for _, r := range roots {
			plan, err := dag.BuildPlan(f.Commands, r)
			if err != nil {
				return "", err
			}
			plans = append(plans, plan)
		}
	}

	switch format {
	case FormatDOT:
		return renderDOT(f, nodes, plans), nil
	case FormatMermaid:
		return renderMermaid(f, nodes, plans), nil
	default:
		return renderTree(f, roots, plans), nil
	}
}

// selectRoots returns root alone, or every command nothing depends on.
// The whole graph is validated so cycles never reach the renderers.
func selectRoots(f *cmdfile.File, root cmdfile.CommandID) ([]cmdfile.CommandID, error) {
	if root != "" {
		if _, err := dag.BuildPlan(f.Commands, root); err != nil {
			return nil, err
		}
		return []cmdfile.CommandID{root}, nil
	}

	if err := dag.ValidateAll(f.Commands); err != nil {
		return nil, err
	}
	depended := make(map[cmdfile.CommandID]bool)
	for _, cmd := range f.Commands {
		for _, dep := range cmd.Deps {
			depended[dep] = true
		}
	}
	var roots []cmdfile.CommandID
	for _, id := range f.IDs() {
		if !depended[id] {
			roots = append(roots, id)
		}
	}
	return roots, nil
}

// closure returns roots and everything they reach, sorted.
func closure(f *cmdfile.File, roots []cmdfile.CommandID) []cmdfile.CommandID {
	seen := make(map[cmdfile.CommandID]bool)
	stack := slices.Clone(roots)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, f.Commands[id].Deps...)
	}

	out := make([]cmdfile.CommandID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func renderTree(f *cmdfile.File, roots []cmdfile.CommandID, plans []*dag.ExecutionPlan) string {
	var b strings.Builder
	for i, r := range roots {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(subtree(f, r).String())
		b.WriteString("\n")
	}

	for _, plan := range plans {
		fmt.Fprintf(&b, "\nExecution groups for %s:\n", plan.Root)
		for i, g := range plan.Groups {
			fmt.Fprintf(&b, "  %d: %s\n", i+1, joinIDs(g, ", "))
		}
	}
	return b.String()
}

// subtree builds the dependency tree below id. Shared dependencies appear
// under every command that needs them.
func subtree(f *cmdfile.File, id cmdfile.CommandID) *tree.Tree {
	t := tree.Root(string(id))
	for _, dep := range f.Commands[id].Deps {
		if len(f.Commands[dep].Deps) == 0 {
			t.Child(string(dep))
			continue
		}
		t.Child(subtree(f, dep))
	}
	return t
}

func renderDOT(f *cmdfile.File, nodes []cmdfile.CommandID, plans []*dag.ExecutionPlan) string {
	var b strings.Builder
	b.WriteString("digraph cmdrun {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for _, id := range nodes {
		if desc := f.Commands[id].Description; desc != "" {
			fmt.Fprintf(&b, "  %q [tooltip=%q];\n", id, desc)
		} else {
			fmt.Fprintf(&b, "  %q;\n", id)
		}
	}
	for _, id := range nodes {
		for _, dep := range f.Commands[id].Deps {
			fmt.Fprintf(&b, "  %q -> %q;\n", dep, id)
		}
	}

	for pi, plan := range plans {
		for gi, g := range plan.Groups {
			fmt.Fprintf(&b, "  subgraph cluster_%d_%d {\n", pi, gi)
			fmt.Fprintf(&b, "    label=%q;\n", fmt.Sprintf("%s group %d", plan.Root, gi+1))
			for _, id := range g {
				fmt.Fprintf(&b, "    %q;\n", id)
			}
			b.WriteString("  }\n")
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func renderMermaid(f *cmdfile.File, nodes []cmdfile.CommandID, plans []*dag.ExecutionPlan) string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, id := range nodes {
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", mermaidID(id), mermaidLabel(string(id)))
	}
	for _, id := range nodes {
		for _, dep := range f.Commands[id].Deps {
			fmt.Fprintf(&b, "  %s --> %s\n", mermaidID(dep), mermaidID(id))
		}
	}

	for pi, plan := range plans {
		for gi, g := range plan.Groups {
			fmt.Fprintf(&b, "  subgraph g%d_%d[\"%s group %d\"]\n", pi, gi, mermaidLabel(string(plan.Root)), gi+1)
			for _, id := range g {
				fmt.Fprintf(&b, "    %s\n", mermaidID(id))
			}
			b.WriteString("  end\n")
		}
	}
	return b.String()
}

// mermaidID maps a command id onto the characters Mermaid accepts in node
// ids. The real id is kept in the node label.
func mermaidID(id cmdfile.CommandID) string {
	var b strings.Builder
	b.WriteString("n_")
	for _, r := range string(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_%x_", r)
		}
	}
	return b.String()
}

func mermaidLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func joinIDs(ids []cmdfile.CommandID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, sep)
}

// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"maps"
	"slices"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

type (
	// ExecutionGroup is a set of commands with no dependency among them whose
	// dependencies all sit in earlier groups. The order inside a group
	// carries no meaning.
	ExecutionGroup []cmdfile.CommandID

	// ExecutionPlan is the ordered list of groups for one root command. It
	// covers exactly the root and everything it reaches through deps.
	ExecutionPlan struct {
		Root   cmdfile.CommandID
		Groups []ExecutionGroup
	}
)

// Len returns the number of commands in the plan.
func (p *ExecutionPlan) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g)
	}
	return n
}

// IDs returns every command of the plan in group order.
func (p *ExecutionPlan) IDs() []cmdfile.CommandID {
	ids := make([]cmdfile.CommandID, 0, p.Len())
	for _, g := range p.Groups {
		ids = append(ids, g...)
	}
	return ids
}

// BuildPlan computes the execution plan for root. It fails with
// *UnknownDependencyError when root or anything it reaches is not in
// commands, and with *CycleError when the reachable subgraph has a cycle.
// It does not modify commands.
func BuildPlan(commands map[cmdfile.CommandID]*cmdfile.Command, root cmdfile.CommandID) (*ExecutionPlan, error) {
	if _, ok := commands[root]; !ok {
		return nil, &UnknownDependencyError{Missing: root}
	}

	closure, err := reach(commands, root)
	if err != nil {
		return nil, err
	}

	g := New()
	for _, id := range closure {
		g.AddNode(string(id))
		for _, dep := range commands[id].Deps {
			g.AddEdge(string(dep), string(id))
		}
	}

	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	plan := &ExecutionPlan{Root: root, Groups: make([]ExecutionGroup, len(levels))}
	for i, level := range levels {
		group := make(ExecutionGroup, len(level))
		for j, id := range level {
			group[j] = cmdfile.CommandID(id)
		}
		plan.Groups[i] = group
	}
	return plan, nil
}

// reach walks deps depth-first from root. It returns the visited ids in
// post-order, or the first unknown dependency or cycle it meets.
func reach(commands map[cmdfile.CommandID]*cmdfile.Command, root cmdfile.CommandID) ([]cmdfile.CommandID, error) {
	var (
		order   []cmdfile.CommandID
		done    = make(map[cmdfile.CommandID]bool)
		onStack = make(map[cmdfile.CommandID]bool)
		stack   []cmdfile.CommandID
	)

	var visit func(id cmdfile.CommandID) error
	visit = func(id cmdfile.CommandID) error {
		if done[id] {
			return nil
		}
		if onStack[id] {
			start := slices.Index(stack, id)
			path := make([]string, 0, len(stack)-start+1)
			for _, s := range stack[start:] {
				path = append(path, string(s))
			}
			return &CycleError{Path: append(path, string(id))}
		}

		onStack[id] = true
		stack = append(stack, id)

		for _, dep := range commands[id].Deps {
			if _, ok := commands[dep]; !ok {
				return &UnknownDependencyError{From: id, Missing: dep}
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		onStack[id] = false
		done[id] = true
		order = append(order, id)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

// ValidateAll checks every command of a file at once: all deps exist and
// the whole dependency graph is acyclic. It is what `cmdrun validate` runs;
// BuildPlan only looks at one root's closure.
func ValidateAll(commands map[cmdfile.CommandID]*cmdfile.Command) error {
	ids := make([]cmdfile.CommandID, 0, len(commands))
	for id := range commands {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if _, err := reach(commands, id); err != nil {
			return err
		}
	}
	return nil
}

// Order returns every command of a file in one dependency-respecting
// order: a command comes after all of its deps, and ties are broken by
// name. It fails like ValidateAll.
func Order(commands map[cmdfile.CommandID]*cmdfile.Command) ([]cmdfile.CommandID, error) {
	if err := ValidateAll(commands); err != nil {
		return nil, err
	}

	g := New()
	for _, id := range slices.Sorted(maps.Keys(commands)) {
		g.AddNode(string(id))
		for _, dep := range commands[id].Deps {
			g.AddEdge(string(dep), string(id))
		}
	}

	names, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	order := make([]cmdfile.CommandID, len(names))
	for i, name := range names {
		order[i] = cmdfile.CommandID(name)
	}
	return order, nil
}

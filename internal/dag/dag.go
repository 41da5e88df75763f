// SPDX-License-Identifier: MPL-2.0

// Package dag orders commands by their dependencies.
//
// Graph is a small string-keyed directed graph with Kahn leveling. BuildPlan
// restricts the command set to what a root command reaches through deps,
// reports unknown dependencies and cycles, and groups the rest into
// execution levels.
package dag

import (
	"slices"
)

// Graph is a directed graph. An edge from A to B means A must complete
// before B starts.
type Graph struct {
	// adjacency maps each node to the nodes that depend on it.
	adjacency map[string][]string
	// nodes tracks insertion order.
	nodes   []string
	nodeSet map[string]bool
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds from -> to, implicitly adding both nodes. Duplicate edges
// are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Levels groups nodes with Kahn's algorithm: level 0 holds nodes without
// incoming edges, level k nodes whose predecessors all sit in levels
// 0..k-1. Nodes within a level are sorted. A graph containing a cycle
// returns *CycleError listing the nodes left unresolved.
func (g *Graph) Levels() ([][]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		for _, next := range g.adjacency[node] {
			inDegree[next]++
		}
	}

	var current []string
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			current = append(current, node)
		}
	}

	var (
		levels [][]string
		placed int
	)
	for len(current) > 0 {
		slices.Sort(current)
		levels = append(levels, current)
		placed += len(current)

		var next []string
		for _, node := range current {
			for _, succ := range g.adjacency[node] {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		current = next
	}

	if placed != len(g.nodes) {
		var stuck []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				stuck = append(stuck, node)
			}
		}
		return nil, &CycleError{Path: stuck}
	}
	return levels, nil
}

// TopologicalSort flattens Levels into a single order.
func (g *Graph) TopologicalSort() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	var order []string
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

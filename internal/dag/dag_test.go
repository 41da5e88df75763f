// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestLevels_EmptyGraph(t *testing.T) {
	t.Parallel()

	levels, err := New().Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if levels != nil {
		t.Errorf("expected nil, got %v", levels)
	}
}

func TestLevels_Diamond(t *testing.T) {
	t.Parallel()

	g := New()
	// A -> B, A -> C, B -> D, C -> D
	g.AddEdge("A", "C")
	g.AddEdge("A", "B")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"A"}, {"B", "C"}, {"D"}}
	if !slices.EqualFunc(levels, want, slices.Equal) {
		t.Errorf("expected %v, got %v", want, levels)
	}
}

func TestLevels_DisconnectedNodesShareLevelZero(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("z")
	g.AddNode("a")
	g.AddEdge("a", "b")

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(levels[0], []string{"a", "z"}) {
		t.Errorf("expected level 0 [a z], got %v", levels[0])
	}
}

func TestLevels_DuplicateEdgeIgnored(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "B")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", order)
	}
	if g.Len() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.Len())
	}
}

func TestLevels_Cycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddEdge("root", "A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.Levels()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !errors.Is(err, ErrCycleDetected) {
		t.Error("CycleError should wrap ErrCycleDetected")
	}
	if !slices.Equal(cycleErr.Path, []string{"A", "B"}) {
		t.Errorf("expected unresolved [A B], got %v", cycleErr.Path)
	}
}

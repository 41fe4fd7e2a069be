package dag

import (
	"container/heap"
	"fmt"
)

// Graph is a directed acyclic graph over the vertices [0, n).
// An edge from -> to means to depends on from.
type Graph struct {
	deps       [][]int
	dependents [][]int
	edges      map[[2]int]struct{}
}

// New creates a graph with n vertices and no edges.
func New(n int) *Graph {
	return &Graph{
		deps:       make([][]int, n),
		dependents: make([][]int, n),
		edges:      make(map[[2]int]struct{}),
	}
}

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.deps) }

// AddEdge creates a directed edge from the `from` vertex to the `to` vertex,
// meaning `to` depends on `from`. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to int) error {
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %d -> %d", from, to)
	}
	if from < 0 || from >= len(g.deps) {
		return fmt.Errorf("source vertex not found: %d", from)
	}
	if to < 0 || to >= len(g.deps) {
		return fmt.Errorf("destination vertex not found: %d", to)
	}

	key := [2]int{from, to}
	if _, ok := g.edges[key]; ok {
		return nil
	}
	g.edges[key] = struct{}{}
	g.deps[to] = append(g.deps[to], from)
	g.dependents[from] = append(g.dependents[from], to)

	return nil
}

// HasEdge reports whether a direct edge from -> to exists.
func (g *Graph) HasEdge(from, to int) bool {
	_, ok := g.edges[[2]int{from, to}]
	return ok
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dependencies returns the vertices v directly depends on.
func (g *Graph) Dependencies(v int) []int { return g.deps[v] }

// Dependents returns the vertices that directly depend on v.
func (g *Graph) Dependents(v int) []int { return g.dependents[v] }

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// naming the first vertex found on a cycle.
func (g *Graph) DetectCycles() error {
	// Classic depth-first search with three sets:
	// permanent vertices are fully visited, temporary ones are on the stack.
	permanent := make([]bool, len(g.deps))
	temporary := make([]bool, len(g.deps))

	var visit func(v int) error
	visit = func(v int) error {
		if permanent[v] {
			return nil
		}
		if temporary[v] {
			return fmt.Errorf("cycle detected involving vertex %d", v)
		}

		temporary[v] = true
		for _, d := range g.dependents[v] {
			if err := visit(d); err != nil {
				return err
			}
		}
		temporary[v] = false
		permanent[v] = true

		return nil
	}

	for v := range g.deps {
		if !permanent[v] {
			if err := visit(v); err != nil {
				return err
			}
		}
	}

	return nil
}

// TopoSort returns a linear extension of the graph. Among vertices whose
// dependencies are satisfied, the lowest index is emitted first, so a graph
// with no edges sorts to 0, 1, ..., n-1.
func (g *Graph) TopoSort() ([]int, error) {
	indegree := make([]int, len(g.deps))
	for v, deps := range g.deps {
		indegree[v] = len(deps)
	}

	ready := &minHeap{}
	for v, n := range indegree {
		if n == 0 {
			*ready = append(*ready, v)
		}
	}
	heap.Init(ready)

	order := make([]int, 0, len(g.deps))
	for ready.Len() > 0 {
		v := heap.Pop(ready).(int)
		order = append(order, v)
		for _, d := range g.dependents[v] {
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(order) != len(g.deps) {
		if err := g.DetectCycles(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("topological sort emitted %d of %d vertices", len(order), len(g.deps))
	}

	return order, nil
}

// Verify checks that order contains every vertex once and that every edge
// points forward in it.
func (g *Graph) Verify(order []int) error {
	if len(order) != len(g.deps) {
		return fmt.Errorf("order has %d vertices, graph has %d", len(order), len(g.deps))
	}

	pos := make([]int, len(g.deps))
	for i := range pos {
		pos[i] = -1
	}
	for i, v := range order {
		if v < 0 || v >= len(g.deps) {
			return fmt.Errorf("order names unknown vertex %d", v)
		}
		if pos[v] >= 0 {
			return fmt.Errorf("order repeats vertex %d", v)
		}
		pos[v] = i
	}

	for e := range g.edges {
		if pos[e[0]] > pos[e[1]] {
			return fmt.Errorf("vertex %d scheduled before its dependency %d", e[1], e[0])
		}
	}

	return nil
}

// Ancestors returns every vertex v transitively depends on, in ascending order.
func (g *Graph) Ancestors(v int) []int {
	seen := make([]bool, len(g.deps))
	stack := append([]int(nil), g.deps[v]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.deps[n]...)
	}

	var out []int
	for i, ok := range seen {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// DescendantCounts returns, for every vertex, how many vertices transitively
// depend on it.
func (g *Graph) DescendantCounts() []int {
	counts := make([]int, len(g.deps))
	seen := make([]bool, len(g.deps))
	for v := range g.deps {
		clear(seen)
		stack := append([]int(nil), g.dependents[v]...)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[n] {
				continue
			}
			seen[n] = true
			counts[v]++
			stack = append(stack, g.dependents[n]...)
		}
	}
	return counts
}

type minHeap []int

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

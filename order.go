package rendergraph

import "github.com/gogpu/rendergraph/internal/dag"

// reorder is the latency-hiding schedule: list scheduling that always runs,
// among the passes whose dependencies are done, the one the most other
// passes transitively wait on. Program order breaks ties, so a graph with
// no dependencies keeps its declared order.
func reorder(d *dag.Graph) []int {
	n := d.Len()
	weight := d.DescendantCounts()
	pending := make([]int, n)
	for v := 0; v < n; v++ {
		pending[v] = len(d.Dependencies(v))
	}

	var ready []int
	for v := 0; v < n; v++ {
		if pending[v] == 0 {
			ready = append(ready, v)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		best := 0
		for i, v := range ready {
			b := ready[best]
			if weight[v] > weight[b] || (weight[v] == weight[b] && v < b) {
				best = i
			}
		}
		v := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, v)

		for _, w := range d.Dependents(v) {
			pending[w]--
			if pending[w] == 0 {
				ready = append(ready, w)
			}
		}
	}
	return order
}

package rendergraph

import (
	"fmt"
	"strings"

	"github.com/gogpu/rendergraph/driver"
)

// Schedule is the planned execution of a resolved graph.
type Schedule struct {
	Batches []Batch
}

// Batch is one unit of recording: several graphic passes merged into one
// native render pass, or exactly one other pass.
type Batch struct {
	Kind     PassKind
	Passes   []string // labels in subpass order
	Barriers []Barrier
	Recorded bool
}

// Barrier is a transition a batch needs before it runs.
type Barrier struct {
	Node   Node
	Before driver.AccessSet
	After  driver.AccessSet
}

// Schedule returns the batches not yet submitted with the barriers each
// would need if recorded now. Already recorded batches are listed without
// barriers. It does not change any state.
func (r *Resolver) Schedule() Schedule {
	state := r.snapshot()
	var s Schedule
	for _, b := range r.batches {
		sb := Batch{Kind: b.kind, Recorded: b.recorded}
		for _, p := range b.passes {
			sb.Passes = append(sb.Passes, p.label)
		}
		if !b.recorded {
			for _, br := range r.g.synchronize(state, b) {
				bd := r.g.bindings[br.index]
				sb.Barriers = append(sb.Barriers, Barrier{
					Node:   Node{graph: r.g.id, index: br.index, kind: bd.kind},
					Before: br.before,
					After:  br.after,
				})
			}
		}
		s.Batches = append(s.Batches, sb)
	}
	return s
}

// Barriers returns the total number of barriers in s.
func (s Schedule) Barriers() int {
	n := 0
	for _, b := range s.Batches {
		n += len(b.Barriers)
	}
	return n
}

func (s Schedule) String() string {
	var sb strings.Builder
	for i, b := range s.Batches {
		fmt.Fprintf(&sb, "batch %d (%s", i, b.Kind)
		if b.Recorded {
			sb.WriteString(", recorded")
		}
		fmt.Fprintf(&sb, "): %s\n", strings.Join(b.Passes, " + "))
		for _, br := range b.Barriers {
			fmt.Fprintf(&sb, "  barrier %s: %s -> %s\n", br.Node, br.Before, br.After)
		}
	}
	return sb.String()
}

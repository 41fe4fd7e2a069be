package rendergraph

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/internal/dag"
)

// Resolver turns a finished graph into recorded, synchronized GPU work.
// Record passes early with RecordNodeDependencies, RecordNode and
// RecordUnscheduledPasses, then Submit whatever remains. A Resolver is not
// safe for concurrent use.
type Resolver struct {
	g       *Graph
	deps    *dag.Graph
	order   []int
	batches []*batch
	batchOf []int // pass index -> batch position

	dev       *driver.Device
	state     []driver.AccessSet // tracked per binding once loaded
	initial   []driver.AccessSet
	loaded    bool
	touched   []bool
	encoded   []encoded
	groups    []hal.BindGroup
	staging   []*driver.Buffer
	submitted bool
}

type encoded struct {
	enc hal.CommandEncoder
	cmd hal.CommandBuffer
}

// Resolve finalizes any open pass, validates every pass and plans the
// schedule: dependency order, latency-hiding reorder and graphic pass
// merging. The graph cannot be changed afterwards.
func (g *Graph) Resolve() *Resolver {
	g.checkOpen("Resolve")
	g.flush()
	g.resolved = true

	for _, p := range g.passes {
		g.validate(p)
	}

	deps := dependencies(g)
	order, err := deps.TopoSort()
	if err != nil {
		fail("Resolve", "", ErrDependencyOrder, "%v", err)
	}
	if g.opts.reorder && len(order) >= 3 {
		order = reorder(deps)
		if err := deps.Verify(order); err != nil {
			fail("Resolve", "", ErrDependencyOrder, "%v", err)
		}
	}

	r := &Resolver{g: g, deps: deps, order: order}
	r.batches = plan(g, order)
	r.batchOf = make([]int, len(g.passes))
	for i, b := range r.batches {
		for _, p := range b.passes {
			r.batchOf[p.index] = i
		}
	}

	Logger().Debug("rendergraph: resolved",
		"graph", g.opts.label, "passes", len(g.passes), "batches", len(r.batches),
		"edges", deps.EdgeCount())
	return r
}

// dependencies builds the pass DAG: an edge A -> B for every resource B
// accesses after A where at least one of the two accesses writes.
func dependencies(g *Graph) *dag.Graph {
	d := dag.New(len(g.passes))
	type history struct {
		writer  int
		readers []int
	}
	h := make([]history, len(g.bindings))
	for i := range h {
		h[i].writer = -1
	}
	edge := func(from, to int) {
		if err := d.AddEdge(from, to); err != nil {
			panic(err)
		}
	}

	for i, p := range g.passes {
		for _, u := range p.uses {
			if u.set.Empty() {
				continue
			}
			hs := &h[u.index]
			if hs.writer >= 0 {
				edge(hs.writer, i)
			}
			if !u.set.HasWrite() {
				hs.readers = append(hs.readers, i)
				continue
			}
			for _, r := range hs.readers {
				edge(r, i)
			}
			hs.writer, hs.readers = i, nil
		}
	}
	return d
}

// validate checks the attachment configuration of graphic passes.
func (g *Graph) validate(p *pass) {
	if p.kind != PassGraphic {
		return
	}
	if !p.hasAttachments() {
		fail("Resolve", p.label, ErrAttachmentSlot, "graphic pass without attachments")
	}
	var first *driver.Image
	check := func(a *attachment, what string) {
		img := g.bindings[a.node.index].image
		if first == nil {
			first = img
			return
		}
		f, i := first.Info(), img.Info()
		if f.Width != i.Width || f.Height != i.Height || f.SampleCount != i.SampleCount {
			fail("Resolve", p.label, ErrAttachmentMismatch, "%s %dx%dx%d, want %dx%dx%d",
				what, i.Width, i.Height, i.SampleCount, f.Width, f.Height, f.SampleCount)
		}
	}
	for slot, a := range p.colors {
		if a == nil {
			fail("Resolve", p.label, ErrAttachmentSlot, "color slot %d missing", slot)
		}
		if g.bindings[a.node.index].image.Info().Format.IsDepthStencil() {
			fail("Resolve", p.label, ErrAttachmentSlot, "color slot %d has a depth format", slot)
		}
		check(a, "color attachment")
	}
	if p.depth != nil {
		if !g.bindings[p.depth.node.index].image.Info().Format.IsDepthStencil() {
			fail("Resolve", p.label, ErrAttachmentSlot, "depth attachment has a color format")
		}
		check(p.depth, "depth attachment")
	}
	for slot, a := range p.colors {
		if a.resolve == nil {
			continue
		}
		src, dst := g.bindings[a.node.index].image.Info(), g.bindings[a.resolve.index].image.Info()
		if src.Width != dst.Width || src.Height != dst.Height || dst.SampleCount != 1 {
			fail("Resolve", p.label, ErrAttachmentMismatch, "resolve target of slot %d", slot)
		}
	}
}

// extent returns the shared attachment size and sample count of a
// validated graphic pass.
func (g *Graph) extent(p *pass) (w, h, samples uint32) {
	a := p.depth
	if len(p.colors) > 0 {
		a = p.colors[0]
	}
	info := g.bindings[a.node.index].image.Info()
	return info.Width, info.Height, info.SampleCount
}

// Order returns the labels of all passes in schedule order.
func (r *Resolver) Order() []string {
	out := make([]string, len(r.order))
	for i, p := range r.order {
		out[i] = r.g.passes[p].label
	}
	return out
}

package rendergraph

import (
	"sync/atomic"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/pool"
)

var graphIDs atomic.Uint64

// tracked is the state every driver resource exposes.
type tracked interface {
	Access() driver.AccessSet
	SetAccess(driver.AccessSet) driver.AccessSet
	ClaimOwner(id uint64) bool
	ReleaseOwner(id uint64) bool
}

// leaseRef is the part of a pool.Lease the graph needs.
type leaseRef interface {
	SetFence(index uint64)
	Release()
}

// binding is one row of the binding table.
type binding struct {
	kind    NodeKind
	res     tracked
	buffer  *driver.Buffer
	image   *driver.Image
	accel   *driver.AccelerationStructure
	lease   leaseRef
	unbound bool
}

// Graph records passes over bound resources. A graph is built on one
// goroutine, resolved once with Resolve and then discarded.
type Graph struct {
	id       uint64
	opts     options
	bindings []*binding
	passes   []*pass
	open     *PassBuilder
	resolved bool
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Graph{id: graphIDs.Add(1), opts: o}
}

// ID returns the graph's process-unique id.
func (g *Graph) ID() uint64 { return g.id }

// Label returns the graph label.
func (g *Graph) Label() string { return g.opts.label }

// Len returns the number of finalized passes.
func (g *Graph) Len() int { return len(g.passes) }

func (g *Graph) bind(op string, b *binding) Node {
	g.checkOpen(op)
	if !b.res.ClaimOwner(g.id) {
		fail(op, "", ErrAlreadyBound, "owner graph %d", ownerOf(b.res))
	}
	n := Node{graph: g.id, index: len(g.bindings), kind: b.kind}
	g.bindings = append(g.bindings, b)
	return n
}

func ownerOf(res tracked) uint64 {
	if o, ok := res.(interface{ Owner() uint64 }); ok {
		return o.Owner()
	}
	return 0
}

// BindBuffer moves buf into the graph.
func (g *Graph) BindBuffer(buf *driver.Buffer) BufferNode {
	return BufferNode{g.bind("BindBuffer", &binding{kind: BufferKind, res: buf, buffer: buf})}
}

// BindImage moves img into the graph.
func (g *Graph) BindImage(img *driver.Image) ImageNode {
	return ImageNode{g.bind("BindImage", &binding{kind: ImageKind, res: img, image: img})}
}

// BindAccelerationStructure moves as into the graph.
func (g *Graph) BindAccelerationStructure(as *driver.AccelerationStructure) AccelerationStructureNode {
	return AccelerationStructureNode{g.bind("BindAccelerationStructure",
		&binding{kind: AccelerationStructureKind, res: as, accel: as})}
}

// BindBufferLease moves a leased buffer into the graph. The graph takes
// over the caller's reference and releases it once the submission using it
// completes.
func (g *Graph) BindBufferLease(l *pool.Lease[*driver.Buffer]) BufferNode {
	buf := l.Item()
	return BufferNode{g.bind("BindBufferLease", &binding{kind: BufferKind, res: buf, buffer: buf, lease: l})}
}

// BindImageLease moves a leased image into the graph. See BindBufferLease.
func (g *Graph) BindImageLease(l *pool.Lease[*driver.Image]) ImageNode {
	img := l.Item()
	return ImageNode{g.bind("BindImageLease", &binding{kind: ImageKind, res: img, image: img, lease: l})}
}

// BindAccelerationStructureLease moves a leased acceleration structure into
// the graph. See BindBufferLease.
func (g *Graph) BindAccelerationStructureLease(l *pool.Lease[*driver.AccelerationStructure]) AccelerationStructureNode {
	as := l.Item()
	return AccelerationStructureNode{g.bind("BindAccelerationStructureLease",
		&binding{kind: AccelerationStructureKind, res: as, accel: as, lease: l})}
}

// lookup returns the binding for n, panicking when n is foreign, unknown
// or unbound.
func (g *Graph) lookup(op string, n Node) *binding {
	if n.graph != g.id {
		fail(op, "", ErrForeignNode, "%s used with graph %d", n, g.id)
	}
	if n.index < 0 || n.index >= len(g.bindings) || g.bindings[n.index].kind != n.kind {
		fail(op, "", ErrUnknownNode, "%s", n)
	}
	b := g.bindings[n.index]
	if b.unbound {
		fail(op, "", ErrUnknownNode, "%s was unbound", n)
	}
	return b
}

func (g *Graph) unbind(op string, n Node, leased bool) *binding {
	g.checkOpen(op)
	b := g.lookup(op, n)
	if (b.lease != nil) != leased {
		fail(op, "", ErrLeaseMismatch, "%s", n)
	}
	b.unbound = true
	b.res.ReleaseOwner(g.id)
	return b
}

// UnbindBuffer moves the buffer behind n back to the caller. Passes already
// recorded keep using it; n becomes invalid for new declarations.
func (g *Graph) UnbindBuffer(n BufferNode) *driver.Buffer {
	return g.unbind("UnbindBuffer", n.Node, false).buffer
}

// UnbindImage moves the image behind n back to the caller. See UnbindBuffer.
func (g *Graph) UnbindImage(n ImageNode) *driver.Image {
	return g.unbind("UnbindImage", n.Node, false).image
}

// UnbindAccelerationStructure moves the acceleration structure behind n back
// to the caller. See UnbindBuffer.
func (g *Graph) UnbindAccelerationStructure(n AccelerationStructureNode) *driver.AccelerationStructure {
	return g.unbind("UnbindAccelerationStructure", n.Node, false).accel
}

// UnbindBufferLease returns the lease behind n to the caller, who becomes
// responsible for releasing it.
func (g *Graph) UnbindBufferLease(n BufferNode) *pool.Lease[*driver.Buffer] {
	return g.unbind("UnbindBufferLease", n.Node, true).lease.(*pool.Lease[*driver.Buffer])
}

// UnbindImageLease returns the lease behind n to the caller.
func (g *Graph) UnbindImageLease(n ImageNode) *pool.Lease[*driver.Image] {
	return g.unbind("UnbindImageLease", n.Node, true).lease.(*pool.Lease[*driver.Image])
}

// UnbindAccelerationStructureLease returns the lease behind n to the caller.
func (g *Graph) UnbindAccelerationStructureLease(n AccelerationStructureNode) *pool.Lease[*driver.AccelerationStructure] {
	return g.unbind("UnbindAccelerationStructureLease", n.Node, true).lease.(*pool.Lease[*driver.AccelerationStructure])
}

// BufferInfo returns the creation info of the buffer behind n.
func (g *Graph) BufferInfo(n BufferNode) driver.BufferInfo {
	return g.lookup("BufferInfo", n.Node).buffer.Info()
}

// ImageInfo returns the creation info of the image behind n.
func (g *Graph) ImageInfo(n ImageNode) driver.ImageInfo {
	return g.lookup("ImageInfo", n.Node).image.Info()
}

// AccelerationStructureInfo returns the creation info of the acceleration
// structure behind n.
func (g *Graph) AccelerationStructureInfo(n AccelerationStructureNode) driver.AccelerationStructureInfo {
	return g.lookup("AccelerationStructureInfo", n.Node).accel.Info()
}

// checkOpen panics once the graph has been resolved.
func (g *Graph) checkOpen(op string) {
	if g.resolved {
		fail(op, "", ErrGraphResolved, "graph %d", g.id)
	}
}

// flush finalizes a builder the caller abandoned without Submit.
func (g *Graph) flush() {
	if g.open != nil {
		g.open.Submit()
	}
}

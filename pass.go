package rendergraph

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/pipeline"
)

// maxColorAttachments is the wgpu limit on color attachments per render pass.
const maxColorAttachments = 8

// PassKind is the shape of work a pass records.
type PassKind uint8

// Pass kinds. A pass takes the kind of its pipeline; without one it is a
// graphic pass when it has attachments and a command pass otherwise.
const (
	PassCommand PassKind = iota
	PassGraphic
	PassCompute
	PassRayTrace
)

func (k PassKind) String() string {
	switch k {
	case PassCommand:
		return "command"
	case PassGraphic:
		return "graphic"
	case PassCompute:
		return "compute"
	case PassRayTrace:
		return "ray-trace"
	default:
		return fmt.Sprintf("PassKind(%d)", uint8(k))
	}
}

// Intent is a coarse access declaration, turned into concrete access types
// when the pass is finalized.
type Intent uint8

// Access intents.
const (
	IntentRead Intent = iota + 1
	IntentWrite
	IntentReadWrite
)

func (i Intent) String() string {
	switch i {
	case IntentRead:
		return "read"
	case IntentWrite:
		return "write"
	case IntentReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("Intent(%d)", uint8(i))
	}
}

type role uint8

const (
	roleAccess role = iota
	roleDescriptor
	roleColor
	roleDepth
	roleResolve
)

// decl is one access declaration as the caller made it.
type decl struct {
	node     Node
	intent   Intent
	explicit driver.AccessType
	role     role
	slot     pipeline.Binding // roleDescriptor only
}

type attachment struct {
	node         Node
	load         gputypes.LoadOp
	store        gputypes.StoreOp
	clearColor   gputypes.Color
	clearDepth   float32
	clearStencil uint32
	resolve      *Node
}

// use is the concrete access set one pass performs on one binding.
type use struct {
	index int
	set   driver.AccessSet
}

type pass struct {
	index       int
	label       string
	kind        PassKind
	pipe        pipeline.Pipeline
	decls       []decl
	colors      []*attachment
	depth       *attachment
	descriptors map[pipeline.Descriptor]Node
	callbacks   []func(*Recorder)
	uses        []use
	useIndex    map[int]int
}

// set returns the accesses the pass performs on binding i.
func (p *pass) set(i int) driver.AccessSet {
	if k, ok := p.useIndex[i]; ok {
		return p.uses[k].set
	}
	return 0
}

func (p *pass) hasAttachments() bool { return len(p.colors) > 0 || p.depth != nil }

// PassBuilder declares one pass. Obtain one from Graph.BeginPass and finish
// it with Submit. A builder abandoned without Submit is submitted by the
// next BeginPass, transfer helper or Resolve on the same graph.
type PassBuilder struct {
	g    *Graph
	p    *pass
	done bool
}

// BeginPass starts declaring a pass.
func (g *Graph) BeginPass(label string) *PassBuilder {
	g.checkOpen("BeginPass")
	g.flush()
	b := &PassBuilder{g: g, p: &pass{label: label, descriptors: make(map[pipeline.Descriptor]Node)}}
	g.open = b
	return b
}

func (b *PassBuilder) check(op string) {
	b.g.checkOpen(op)
	if b.done {
		fail(op, b.p.label, ErrPassSubmitted, "")
	}
}

func (b *PassBuilder) add(op string, d decl) {
	b.g.lookup(op, d.node)
	b.p.decls = append(b.p.decls, d)
}

// Access declares an explicit access type on n.
func (b *PassBuilder) Access(n AnyNode, a driver.AccessType) *PassBuilder {
	b.check("Access")
	if !a.Valid() {
		fail("Access", b.p.label, ErrUndeclaredAccess, "invalid access %s", a)
	}
	intent := IntentRead
	if a.IsWrite() {
		intent = IntentWrite
	}
	b.add("Access", decl{node: n.node(), intent: intent, explicit: a})
	return b
}

// Read declares that the pass reads n.
func (b *PassBuilder) Read(n AnyNode) *PassBuilder {
	b.check("Read")
	b.add("Read", decl{node: n.node(), intent: IntentRead})
	return b
}

// Write declares that the pass writes n.
func (b *PassBuilder) Write(n AnyNode) *PassBuilder {
	b.check("Write")
	b.add("Write", decl{node: n.node(), intent: IntentWrite})
	return b
}

// ReadWrite declares that the pass reads and writes n.
func (b *PassBuilder) ReadWrite(n AnyNode) *PassBuilder {
	b.check("ReadWrite")
	b.add("ReadWrite", decl{node: n.node(), intent: IntentReadWrite})
	return b
}

// AttachColor binds n as the color attachment at slot. Slots must end up
// contiguous from zero.
func (b *PassBuilder) AttachColor(slot int, n ImageNode, load gputypes.LoadOp, store gputypes.StoreOp) *PassBuilder {
	b.check("AttachColor")
	if slot < 0 || slot >= maxColorAttachments {
		fail("AttachColor", b.p.label, ErrAttachmentSlot, "slot %d out of range", slot)
	}
	b.checkAttachable("AttachColor")
	for len(b.p.colors) <= slot {
		b.p.colors = append(b.p.colors, nil)
	}
	if prev := b.p.colors[slot]; prev != nil && prev.node != n.Node {
		fail("AttachColor", b.p.label, ErrAttachmentSlot, "slot %d already holds %s", slot, prev.node)
	}
	intent := IntentWrite
	if load == gputypes.LoadOpLoad {
		intent = IntentReadWrite
	}
	b.add("AttachColor", decl{node: n.Node, intent: intent, role: roleColor})
	b.p.colors[slot] = &attachment{node: n.Node, load: load, store: store}
	return b
}

// ClearColor sets the clear value of the color attachment at slot.
func (b *PassBuilder) ClearColor(slot int, c gputypes.Color) *PassBuilder {
	b.check("ClearColor")
	b.color("ClearColor", slot).clearColor = c
	return b
}

// AttachDepthStencil binds n as the depth-stencil attachment. Loading
// without storing makes the attachment read-only.
func (b *PassBuilder) AttachDepthStencil(n ImageNode, load gputypes.LoadOp, store gputypes.StoreOp) *PassBuilder {
	b.check("AttachDepthStencil")
	b.checkAttachable("AttachDepthStencil")
	if b.p.depth != nil && b.p.depth.node != n.Node {
		fail("AttachDepthStencil", b.p.label, ErrAttachmentSlot, "depth already holds %s", b.p.depth.node)
	}
	intent := IntentWrite
	if load == gputypes.LoadOpLoad && store == gputypes.StoreOpDiscard {
		intent = IntentRead
	}
	b.add("AttachDepthStencil", decl{node: n.Node, intent: intent, role: roleDepth})
	b.p.depth = &attachment{node: n.Node, load: load, store: store, clearDepth: 1}
	return b
}

// ClearDepthStencil sets the clear values of the depth-stencil attachment.
func (b *PassBuilder) ClearDepthStencil(depth float32, stencil uint32) *PassBuilder {
	b.check("ClearDepthStencil")
	if b.p.depth == nil {
		fail("ClearDepthStencil", b.p.label, ErrAttachmentSlot, "no depth attachment")
	}
	b.p.depth.clearDepth, b.p.depth.clearStencil = depth, stencil
	return b
}

// ResolveColor resolves the multisampled color attachment src at slot into
// dst at the end of the pass.
func (b *PassBuilder) ResolveColor(slot int, src, dst ImageNode) *PassBuilder {
	b.check("ResolveColor")
	a := b.color("ResolveColor", slot)
	if a.node != src.Node {
		fail("ResolveColor", b.p.label, ErrAttachmentSlot, "slot %d holds %s, not %s", slot, a.node, src)
	}
	b.add("ResolveColor", decl{node: dst.Node, intent: IntentWrite, role: roleResolve})
	a.resolve = &dst.Node
	return b
}

func (b *PassBuilder) color(op string, slot int) *attachment {
	if slot < 0 || slot >= len(b.p.colors) || b.p.colors[slot] == nil {
		fail(op, b.p.label, ErrAttachmentSlot, "slot %d is not attached", slot)
	}
	return b.p.colors[slot]
}

func (b *PassBuilder) checkAttachable(op string) {
	if b.p.pipe != nil && b.p.pipe.Kind() != pipeline.KindGraphic {
		fail(op, b.p.label, ErrPassKind, "attachments on a %s pass", b.p.pipe.Kind())
	}
}

// BindPipeline fixes the pass's pipeline and with it the pass kind. A
// graphic pass is merged with its neighbours only while the pipeline's
// color and depth formats match the attachments of the merged render pass.
func (b *PassBuilder) BindPipeline(p pipeline.Pipeline) *PassBuilder {
	b.check("BindPipeline")
	if b.p.pipe != nil && b.p.pipe != p {
		fail("BindPipeline", b.p.label, ErrPassKind, "pipeline %q already bound", b.p.pipe.Label())
	}
	if b.p.hasAttachments() && p.Kind() != pipeline.KindGraphic {
		fail("BindPipeline", b.p.label, ErrPassKind, "%s pipeline on a pass with attachments", p.Kind())
	}
	b.p.pipe = p
	return b
}

// ReadDescriptor binds n to descriptor slot d for reading. The slot must
// exist in the bound pipeline's layout and accept n's resource kind.
func (b *PassBuilder) ReadDescriptor(d pipeline.Descriptor, n AnyNode) *PassBuilder {
	b.check("ReadDescriptor")
	b.descriptor("ReadDescriptor", d, n.node(), IntentRead)
	return b
}

// WriteDescriptor binds n to a writable descriptor slot d.
func (b *PassBuilder) WriteDescriptor(d pipeline.Descriptor, n AnyNode) *PassBuilder {
	b.check("WriteDescriptor")
	b.descriptor("WriteDescriptor", d, n.node(), IntentReadWrite)
	return b
}

func (b *PassBuilder) descriptor(op string, d pipeline.Descriptor, n Node, intent Intent) {
	if b.p.pipe == nil {
		fail(op, b.p.label, ErrNoPipeline, "bind a pipeline before descriptors")
	}
	bind, ok := b.p.pipe.Layout().Lookup(d)
	if !ok {
		fail(op, b.p.label, ErrDescriptorSlot, "%s not in layout of %q", d, b.p.pipe.Label())
	}
	switch {
	case bind.Kind.IsBuffer() && n.kind == BufferKind,
		bind.Kind.IsImage() && n.kind == ImageKind,
		bind.Kind == pipeline.BindingAccelerationStructure && n.kind == AccelerationStructureKind:
	default:
		fail(op, b.p.label, ErrDescriptorSlot, "%s is %s, got %s node", d, bind.Kind, n.kind)
	}
	if intent != IntentRead && !bind.Kind.Writable() {
		fail(op, b.p.label, ErrDescriptorSlot, "%s (%s) is read-only", d, bind.Kind)
	}
	if prev, ok := b.p.descriptors[d]; ok && prev != n {
		fail(op, b.p.label, ErrDescriptorSlot, "%s already holds %s", d, prev)
	}
	b.add(op, decl{node: n, intent: intent, role: roleDescriptor, slot: bind})
	b.p.descriptors[d] = n
}

// Execute appends a recording callback. Callbacks of one pass run in order
// as one contiguous unit of GPU work.
func (b *PassBuilder) Execute(fn func(r *Recorder)) *PassBuilder {
	b.check("Execute")
	b.p.callbacks = append(b.p.callbacks, fn)
	return b
}

// Submit finalizes the pass and appends it to the graph. Calling Submit
// again has no effect.
func (b *PassBuilder) Submit() {
	if b.done {
		return
	}
	b.g.checkOpen("Submit")
	b.done = true
	if b.g.open == b {
		b.g.open = nil
	}
	p := b.p
	p.index = len(b.g.passes)
	p.kind = passKind(p)
	p.useIndex = make(map[int]int)
	for _, d := range p.decls {
		bd := b.g.bindings[d.node.index]
		set := concretize(p.kind, d, bd)
		if k, ok := p.useIndex[d.node.index]; ok {
			p.uses[k].set |= set
			continue
		}
		p.useIndex[d.node.index] = len(p.uses)
		p.uses = append(p.uses, use{index: d.node.index, set: set})
	}
	b.g.passes = append(b.g.passes, p)
}

func passKind(p *pass) PassKind {
	if p.pipe != nil {
		switch p.pipe.Kind() {
		case pipeline.KindCompute:
			return PassCompute
		case pipeline.KindRayTrace:
			return PassRayTrace
		default:
			return PassGraphic
		}
	}
	if p.hasAttachments() {
		return PassGraphic
	}
	return PassCommand
}

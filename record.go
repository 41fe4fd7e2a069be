package rendergraph

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/pipeline"
)

// attach checks dev against the device of earlier recordings and loads
// the tracked state of every binding on first use.
func (r *Resolver) attach(dev *driver.Device) error {
	if r.submitted {
		return ErrSubmitted
	}
	if dev == nil {
		return driver.ErrNilDevice
	}
	if r.dev != nil && r.dev != dev {
		return ErrDeviceMismatch
	}
	r.dev = dev
	if !r.loaded {
		r.state = r.snapshot()
		r.initial = slices.Clone(r.state)
		r.touched = make([]bool, len(r.g.bindings))
		r.loaded = true
	}
	return nil
}

// snapshot copies the tracked state, reading it from the resources when
// nothing has been recorded yet.
func (r *Resolver) snapshot() []driver.AccessSet {
	if r.loaded {
		return slices.Clone(r.state)
	}
	out := make([]driver.AccessSet, len(r.g.bindings))
	for i, b := range r.g.bindings {
		out[i] = b.res.Access()
	}
	return out
}

// node validates n for the partial recording entry points. Unbound nodes
// are accepted: their passes still have to run.
func (r *Resolver) node(op string, n AnyNode) Node {
	nd := n.node()
	if nd.graph != r.g.id {
		fail(op, "", ErrForeignNode, "%s used with graph %d", nd, r.g.id)
	}
	if nd.index < 0 || nd.index >= len(r.g.bindings) || r.g.bindings[nd.index].kind != nd.kind {
		fail(op, "", ErrUnknownNode, "%s", nd)
	}
	return nd
}

// accessors returns the passes touching binding i, in schedule order.
func (r *Resolver) accessors(i int) []int {
	var out []int
	for _, pi := range r.order {
		if _, ok := r.g.passes[pi].useIndex[i]; ok {
			out = append(out, pi)
		}
	}
	return out
}

// RecordNodeDependencies records every unrecorded pass the first pass
// accessing n depends on, so n is ready for that pass. Batches are recorded
// whole; the batch holding the first accessor itself is not recorded. It
// does nothing when no pass accesses n.
func (r *Resolver) RecordNodeDependencies(dev *driver.Device, n AnyNode) error {
	nd := r.node("RecordNodeDependencies", n)
	users := r.accessors(nd.index)
	if len(users) == 0 {
		return r.attach(dev)
	}
	first := users[0]
	target := r.batchOf[first]

	need := make([]bool, len(r.batches))
	stack := r.deps.Dependencies(first)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := r.batchOf[v]
		if b >= target || need[b] || r.batches[b].recorded {
			continue
		}
		need[b] = true
		for _, p := range r.batches[b].passes {
			stack = append(stack, r.deps.Dependencies(p.index)...)
		}
	}

	var positions []int
	for i, ok := range need {
		if ok {
			positions = append(positions, i)
		}
	}
	return r.record(dev, positions)
}

// RecordNode records every unrecorded pass scheduled up to and including
// the last pass accessing n, leaving n in its final state for the graph.
func (r *Resolver) RecordNode(dev *driver.Device, n AnyNode) error {
	nd := r.node("RecordNode", n)
	users := r.accessors(nd.index)
	if len(users) == 0 {
		return r.attach(dev)
	}
	last := r.batchOf[users[len(users)-1]]
	var positions []int
	for i := 0; i <= last; i++ {
		if !r.batches[i].recorded {
			positions = append(positions, i)
		}
	}
	return r.record(dev, positions)
}

// RecordUnscheduledPasses records every pass not recorded yet.
func (r *Resolver) RecordUnscheduledPasses(dev *driver.Device) error {
	var positions []int
	for i, b := range r.batches {
		if !b.recorded {
			positions = append(positions, i)
		}
	}
	return r.record(dev, positions)
}

// record encodes the batches at positions, in order, into one command
// buffer. On error or panic nothing is kept: the encoder is discarded, the
// tracked state and resources created by the call are rolled back, and a
// panic continues to the caller.
func (r *Resolver) record(dev *driver.Device, positions []int) error {
	if err := r.attach(dev); err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}

	enc, err := dev.HAL().CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: r.g.opts.label})
	if err != nil {
		return fmt.Errorf("rendergraph: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(r.g.opts.label); err != nil {
		enc.Destroy()
		return fmt.Errorf("rendergraph: begin encoding: %w", err)
	}

	saved := slices.Clone(r.state)
	groups, staging := len(r.groups), len(r.staging)
	done := false
	defer func() {
		if done {
			return
		}
		enc.DiscardEncoding()
		enc.Destroy()
		copy(r.state, saved)
		r.release(groups, staging)
		Logger().Debug("rendergraph: recording rolled back", "graph", r.g.opts.label, "batches", len(positions))
	}()

	barriers := 0
	for _, pos := range positions {
		b := r.batches[pos]
		br := r.g.synchronize(r.state, b)
		barriers += len(br)
		r.g.emit(enc, br)
		if err := r.recordBatch(enc, b); err != nil {
			return err
		}
	}
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("rendergraph: end encoding: %w", err)
	}
	done = true

	r.encoded = append(r.encoded, encoded{enc: enc, cmd: cmd})
	for _, pos := range positions {
		b := r.batches[pos]
		b.recorded = true
		for _, u := range b.uses {
			r.touched[u.index] = true
		}
	}
	for i, t := range r.touched {
		if t {
			r.g.bindings[i].res.SetAccess(r.state[i])
		}
	}
	Logger().Debug("rendergraph: recorded",
		"graph", r.g.opts.label, "batches", len(positions), "barriers", barriers)
	return nil
}

// release destroys bind groups and staging buffers created after the
// given counts.
func (r *Resolver) release(groups, staging int) {
	for _, bg := range r.groups[groups:] {
		r.dev.HAL().DestroyBindGroup(bg)
	}
	for _, buf := range r.staging[staging:] {
		buf.Destroy()
	}
	r.groups = r.groups[:groups]
	r.staging = r.staging[:staging]
}

func (r *Resolver) recordBatch(enc hal.CommandEncoder, b *batch) error {
	switch b.kind {
	case PassGraphic:
		return r.recordRender(enc, b)
	case PassCompute:
		return r.recordCompute(enc, b.passes[0])
	default:
		p := b.passes[0]
		return r.run(&Recorder{res: r, p: p, enc: enc})
	}
}

// run invokes the pass callbacks and returns the first failure reported.
func (r *Resolver) run(rec *Recorder) error {
	for _, fn := range rec.p.callbacks {
		fn(rec)
		if rec.err != nil {
			return rec.err
		}
	}
	return nil
}

func (r *Resolver) recordRender(enc hal.CommandEncoder, b *batch) error {
	var colors []hal.RenderPassColorAttachment
	native := make(map[int]int)
	var depth *hal.RenderPassDepthStencilAttachment
	slots := make([][]int, len(b.passes))

	for pi, p := range b.passes {
		m := make([]int, len(p.colors))
		for slot, a := range p.colors {
			k, ok := native[a.node.index]
			if !ok {
				k = len(colors)
				native[a.node.index] = k
				colors = append(colors, hal.RenderPassColorAttachment{
					View:       r.g.bindings[a.node.index].image.View(),
					LoadOp:     a.load,
					StoreOp:    a.store,
					ClearValue: a.clearColor,
				})
			} else {
				colors[k].StoreOp = a.store
			}
			if a.resolve != nil {
				colors[k].ResolveTarget = r.g.bindings[a.resolve.index].image.View()
			}
			m[slot] = k
		}
		slots[pi] = m

		if a := p.depth; a != nil {
			img := r.g.bindings[a.node.index].image
			stencil := img.Info().Format.HasStencil()
			if depth == nil {
				depth = &hal.RenderPassDepthStencilAttachment{
					View:              img.View(),
					DepthLoadOp:       a.load,
					DepthStoreOp:      a.store,
					DepthClearValue:   a.clearDepth,
					StencilClearValue: a.clearStencil,
				}
				if stencil {
					depth.StencilLoadOp = a.load
					depth.StencilStoreOp = a.store
				}
			} else {
				depth.DepthStoreOp = a.store
				if stencil {
					depth.StencilStoreOp = a.store
				}
			}
		}
	}

	label := b.passes[0].label
	if len(b.passes) > 1 {
		label = fmt.Sprintf("%s+%d", label, len(b.passes)-1)
	}
	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:                  label,
		ColorAttachments:       colors,
		DepthStencilAttachment: depth,
	})
	for pi, p := range b.passes {
		if gp, ok := p.pipe.(interface{ HAL() hal.RenderPipeline }); ok {
			rp.SetPipeline(gp.HAL())
		}
		groups, err := r.bindGroups(p)
		if err != nil {
			rp.End()
			return err
		}
		for i, bg := range groups {
			if bg != nil {
				rp.SetBindGroup(uint32(i), bg, nil)
			}
		}
		if err := r.run(&Recorder{res: r, p: p, render: rp, colorIndex: slots[pi]}); err != nil {
			rp.End()
			return err
		}
	}
	rp.End()
	return nil
}

func (r *Resolver) recordCompute(enc hal.CommandEncoder, p *pass) error {
	cp := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: p.label})
	defer cp.End()
	if c, ok := p.pipe.(interface{ HAL() hal.ComputePipeline }); ok {
		cp.SetPipeline(c.HAL())
	}
	groups, err := r.bindGroups(p)
	if err != nil {
		return err
	}
	for i, bg := range groups {
		if bg != nil {
			cp.SetBindGroup(uint32(i), bg, nil)
		}
	}
	return r.run(&Recorder{res: r, p: p, compute: cp})
}

// bindGroups creates the bind groups of p's pipeline from its descriptor
// nodes. A group is left nil unless every slot is covered, either by a
// descriptor node or by an immutable sampler.
func (r *Resolver) bindGroups(p *pass) ([]hal.BindGroup, error) {
	if p.pipe == nil || len(p.descriptors) == 0 {
		return nil, nil
	}
	layouts := p.pipe.BindGroupLayouts()
	out := make([]hal.BindGroup, len(layouts))
	for g := range layouts {
		entries, missing := r.entries(p, uint32(g))
		if missing != "" {
			Logger().Debug("rendergraph: bind group skipped", "pass", p.label, "group", g, "missing", missing)
			continue
		}
		bg, err := r.dev.HAL().CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s/%d", p.label, g),
			Layout:  layouts[g],
			Entries: entries,
		})
		if err != nil {
			return nil, fmt.Errorf("rendergraph: pass %q: create bind group %d: %w", p.label, g, err)
		}
		r.groups = append(r.groups, bg)
		out[g] = bg
	}
	return out, nil
}

// entries builds the bind group entries of one group, or names the first
// descriptor left uncovered.
func (r *Resolver) entries(p *pass, group uint32) ([]gputypes.BindGroupEntry, string) {
	var out []gputypes.BindGroupEntry
	for _, bind := range p.pipe.Layout().Group(group) {
		if bind.Kind == pipeline.BindingSampler {
			s, ok := p.pipe.Sampler(bind.Descriptor)
			if !ok {
				return nil, bind.Descriptor.String()
			}
			out = append(out, gputypes.BindGroupEntry{
				Binding:  bind.Binding,
				Resource: gputypes.SamplerBinding{Sampler: s.NativeHandle()},
			})
			continue
		}
		n, ok := p.descriptors[bind.Descriptor]
		if !ok {
			return nil, bind.Descriptor.String()
		}
		bd := r.g.bindings[n.index]
		var res gputypes.BindingResource
		switch n.kind {
		case BufferKind:
			res = gputypes.BufferBinding{Buffer: bd.buffer.HAL().NativeHandle(), Size: bd.buffer.Info().Size}
		case ImageKind:
			res = gputypes.TextureViewBinding{TextureView: bd.image.View().NativeHandle()}
		case AccelerationStructureKind:
			res = gputypes.BufferBinding{Buffer: bd.accel.HAL().NativeHandle(), Size: bd.accel.Info().Size}
		}
		out = append(out, gputypes.BindGroupEntry{Binding: bind.Binding, Resource: res})
	}
	return out, ""
}

package rendergraph

import (
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/pipeline"
)

// batch is a run of passes recorded as one unit: a merged run of graphic
// passes sharing one native render pass, or a single other pass.
type batch struct {
	kind     PassKind
	passes   []*pass
	uses     []use
	useIndex map[int]int
	recorded bool
}

func newBatch(p *pass) *batch {
	b := &batch{kind: p.kind, useIndex: make(map[int]int)}
	b.add(p)
	return b
}

func (b *batch) add(p *pass) {
	b.passes = append(b.passes, p)
	for _, u := range p.uses {
		if k, ok := b.useIndex[u.index]; ok {
			b.uses[k].set |= u.set
			continue
		}
		b.useIndex[u.index] = len(b.uses)
		b.uses = append(b.uses, u)
	}
}

func (b *batch) set(i int) driver.AccessSet {
	if k, ok := b.useIndex[i]; ok {
		return b.uses[k].set
	}
	return 0
}

// plan folds the ordered passes into batches.
func plan(g *Graph, order []int) []*batch {
	var out []*batch
	for _, pi := range order {
		p := g.passes[pi]
		if g.opts.merge && len(out) > 0 {
			last := out[len(out)-1]
			if last.kind == PassGraphic && p.kind == PassGraphic {
				reason := g.mergeBlocker(last, p)
				if reason == "" {
					Logger().Debug("rendergraph: merged pass", "pass", p.label, "into", last.passes[0].label)
					last.add(p)
					continue
				}
				Logger().Debug("rendergraph: merge blocked", "pass", p.label, "reason", reason)
			}
		}
		out = append(out, newBatch(p))
	}
	return out
}

// mergeBlocker returns why p cannot join the graphic batch b as a further
// subpass, or "" if it can.
func (g *Graph) mergeBlocker(b *batch, p *pass) string {
	w, h, s := g.extent(b.passes[0])
	pw, ph, ps := g.extent(p)
	if w != pw || h != ph || s != ps {
		return "extent or sample count differs"
	}

	colors := make(map[int]bool)
	var depth *attachment
	resolves := make(map[int]bool)
	for _, q := range b.passes {
		for _, a := range q.colors {
			colors[a.node.index] = true
			if a.resolve != nil {
				resolves[a.resolve.index] = true
			}
		}
		if q.depth != nil {
			depth = q.depth
		}
	}

	// A native render pass clears only on begin.
	for _, a := range p.attachments() {
		if a.load == gputypes.LoadOpClear && !b.set(a.node.index).Empty() {
			return "clears an image used by an earlier subpass"
		}
	}

	added := 0
	for _, a := range p.colors {
		if depth != nil && depth.node == a.node {
			return "image used as color and depth attachment"
		}
		if resolves[a.node.index] {
			return "attachment is a resolve target"
		}
		if !colors[a.node.index] {
			added++
		}
		if a.resolve != nil && b.set(a.resolve.index) != 0 {
			return "resolve target used by an earlier subpass"
		}
	}
	if len(colors)+added > maxColorAttachments {
		return "too many color attachments"
	}
	if p.depth != nil {
		if colors[p.depth.node.index] {
			return "image used as color and depth attachment"
		}
		if depth != nil && depth.node != p.depth.node {
			return "different depth attachments"
		}
	}

	for _, u := range p.uses {
		prev := b.set(u.index)
		if prev.Empty() || u.set.Empty() {
			continue
		}
		if !prev.HasWrite() && !u.set.HasWrite() {
			if g.bindings[u.index].kind == ImageKind && prev.Layout() != u.set.Layout() {
				return "layout change between subpasses"
			}
			continue
		}
		if prev&^subpassLocal != 0 || u.set&^subpassLocal != 0 {
			return "dependency is not subpass-local"
		}
	}

	passes := append(slices.Clip(b.passes), p)
	colorFormats, depthFormat := g.targets(passes)
	for _, q := range passes {
		gp, ok := q.pipe.(*pipeline.Graphic)
		if !ok {
			continue
		}
		info := gp.Info()
		if !slices.Equal(info.ColorFormats, colorFormats) || info.DepthFormat != depthFormat {
			return "pipeline targets differ from the merged attachments"
		}
	}
	return ""
}

// targets returns the attachment formats of one render pass holding the
// given passes: colors in native attachment order, then the depth format.
func (g *Graph) targets(passes []*pass) ([]gputypes.TextureFormat, gputypes.TextureFormat) {
	var colors []gputypes.TextureFormat
	seen := make(map[int]bool)
	var depth gputypes.TextureFormat
	for _, p := range passes {
		for _, a := range p.colors {
			if !seen[a.node.index] {
				seen[a.node.index] = true
				colors = append(colors, g.bindings[a.node.index].image.Info().Format)
			}
		}
		if p.depth != nil {
			depth = g.bindings[p.depth.node.index].image.Info().Format
		}
	}
	return colors, depth
}

// attachments returns the pass's color and depth attachments.
func (p *pass) attachments() []*attachment {
	out := make([]*attachment, 0, len(p.colors)+1)
	out = append(out, p.colors...)
	if p.depth != nil {
		out = append(out, p.depth)
	}
	return out
}

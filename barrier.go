package rendergraph

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
)

// barrier is one synthesized transition of a binding.
type barrier struct {
	index  int
	before driver.AccessSet
	after  driver.AccessSet
}

// transition compares the tracked accesses of a resource with the accesses
// a batch needs. It returns the state after the batch and whether a
// barrier must precede it.
//
// Reads whose stages and access mask are covered by the tracked reads need
// nothing. Other reads that agree on the image layout take a barrier
// widening the tracked state to the union, so the last write becomes
// visible to the new stages. A write on either side, or a layout change,
// always takes a barrier to next.
// Images seen for the first time are transitioned out of the undefined
// layout; buffers seen for the first time need nothing.
func transition(prev, next driver.AccessSet, image bool) (driver.AccessSet, bool) {
	switch {
	case next.Empty():
		return prev, false
	case prev.Empty():
		return next, image
	case prev.HasWrite() || next.HasWrite():
		return next, true
	case image && prev.Layout() != next.Layout():
		return next, true
	case covers(prev, next):
		return prev | next, false
	default:
		return prev | next, true
	}
}

// covers reports whether a barrier made for prev already synchronizes the
// stages and accesses of next.
func covers(prev, next driver.AccessSet) bool {
	return next.Stage()&^prev.Stage() == 0 && next.Mask()&^prev.Mask() == 0
}

// synchronize advances state over batch b and returns the barriers that
// must precede it, in first-use order.
func (g *Graph) synchronize(state []driver.AccessSet, b *batch) []barrier {
	var out []barrier
	for _, u := range b.uses {
		prev := state[u.index]
		next, needed := transition(prev, u.set, g.bindings[u.index].kind == ImageKind)
		if needed {
			out = append(out, barrier{index: u.index, before: prev, after: next})
		}
		state[u.index] = next
	}
	return out
}

// emit records the native form of barriers into enc.
func (g *Graph) emit(enc hal.CommandEncoder, barriers []barrier) {
	var textures []hal.TextureBarrier
	var buffers []hal.BufferBarrier
	for _, br := range barriers {
		bd := g.bindings[br.index]
		switch bd.kind {
		case ImageKind:
			textures = append(textures, hal.TextureBarrier{
				Texture: bd.image.HAL(),
				Range:   bd.image.Range(),
				Usage: hal.TextureUsageTransition{
					OldUsage: br.before.TextureUsage(),
					NewUsage: br.after.TextureUsage(),
				},
			})
		case BufferKind:
			buffers = append(buffers, bufferBarrier(bd.buffer.HAL(), br))
		case AccelerationStructureKind:
			buffers = append(buffers, bufferBarrier(bd.accel.HAL(), br))
		}
	}
	if len(buffers) > 0 {
		enc.TransitionBuffers(buffers)
	}
	if len(textures) > 0 {
		enc.TransitionTextures(textures)
	}
}

func bufferBarrier(buf hal.Buffer, br barrier) hal.BufferBarrier {
	return hal.BufferBarrier{
		Buffer: buf,
		Usage: hal.BufferUsageTransition{
			OldUsage: br.before.BufferUsage(),
			NewUsage: br.after.BufferUsage(),
		},
	}
}

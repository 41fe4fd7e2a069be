package rendergraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/pipeline"
)

// Recorder is handed to pass callbacks while the pass is recorded. It
// resolves nodes to resources and issues commands, and panics with
// ErrUndeclaredAccess when a callback touches a node its pass did not
// declare. A Recorder is only valid during the callback.
type Recorder struct {
	res        *Resolver
	p          *pass
	enc        hal.CommandEncoder
	render     hal.RenderPassEncoder
	compute    hal.ComputePassEncoder
	colorIndex []int
	err        error
}

// Pass returns the label of the pass being recorded.
func (r *Recorder) Pass() string { return r.p.label }

// Kind returns the kind of the pass being recorded.
func (r *Recorder) Kind() PassKind { return r.p.kind }

// Device returns the device being recorded for.
func (r *Recorder) Device() *driver.Device { return r.res.dev }

// Fail records err as the pass's failure. Recording stops after the
// callback returns and the error is returned by the record call.
func (r *Recorder) Fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *Recorder) binding(op string, n Node) *binding {
	if n.graph != r.res.g.id {
		fail(op, r.p.label, ErrForeignNode, "%s", n)
	}
	if _, ok := r.p.useIndex[n.index]; !ok {
		fail(op, r.p.label, ErrUndeclaredAccess, "%s", n)
	}
	return r.res.g.bindings[n.index]
}

// Buffer returns the buffer behind n.
func (r *Recorder) Buffer(n BufferNode) *driver.Buffer {
	return r.binding("Buffer", n.Node).buffer
}

// Image returns the image behind n.
func (r *Recorder) Image(n ImageNode) *driver.Image {
	return r.binding("Image", n.Node).image
}

// AccelerationStructure returns the acceleration structure behind n.
func (r *Recorder) AccelerationStructure(n AccelerationStructureNode) *driver.AccelerationStructure {
	return r.binding("AccelerationStructure", n.Node).accel
}

// Encoder returns the command encoder of command and ray-trace passes.
func (r *Recorder) Encoder() hal.CommandEncoder {
	if r.enc == nil {
		fail("Encoder", r.p.label, ErrPassKind, "%s pass records into a pass encoder", r.p.kind)
	}
	return r.enc
}

// RenderPass returns the native render pass of graphic passes, for state
// not tied to a node such as viewports and scissors.
func (r *Recorder) RenderPass() hal.RenderPassEncoder {
	if r.render == nil {
		fail("RenderPass", r.p.label, ErrPassKind, "%s pass", r.p.kind)
	}
	return r.render
}

// ComputePass returns the native compute pass of compute passes.
func (r *Recorder) ComputePass() hal.ComputePassEncoder {
	if r.compute == nil {
		fail("ComputePass", r.p.label, ErrPassKind, "%s pass", r.p.kind)
	}
	return r.compute
}

// ColorIndex returns the native attachment index of the pass's color slot.
// Merged passes share one render pass, so slot and index can differ, and a
// pipeline set by the callback must target every attachment of that render
// pass, not only the ones the pass declared. Passes with a bound graphic
// pipeline are merged only when its targets match.
func (r *Recorder) ColorIndex(slot int) int {
	if slot < 0 || slot >= len(r.colorIndex) {
		fail("ColorIndex", r.p.label, ErrAttachmentSlot, "slot %d", slot)
	}
	return r.colorIndex[slot]
}

// SetVertexBuffer binds n as the vertex buffer at slot.
func (r *Recorder) SetVertexBuffer(slot uint32, n BufferNode, offset uint64) {
	buf := r.binding("SetVertexBuffer", n.Node).buffer
	r.RenderPass().SetVertexBuffer(slot, buf.HAL(), offset)
}

// SetIndexBuffer binds n as the index buffer.
func (r *Recorder) SetIndexBuffer(n BufferNode, format gputypes.IndexFormat, offset uint64) {
	buf := r.binding("SetIndexBuffer", n.Node).buffer
	r.RenderPass().SetIndexBuffer(buf.HAL(), format, offset)
}

// Draw draws primitives.
func (r *Recorder) Draw(vertices, instances, firstVertex, firstInstance uint32) {
	r.RenderPass().Draw(vertices, instances, firstVertex, firstInstance)
}

// DrawIndexed draws indexed primitives.
func (r *Recorder) DrawIndexed(indices, instances, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	r.RenderPass().DrawIndexed(indices, instances, firstIndex, baseVertex, firstInstance)
}

// DrawIndirect draws with arguments read from n.
func (r *Recorder) DrawIndirect(n BufferNode, offset uint64) {
	buf := r.binding("DrawIndirect", n.Node).buffer
	r.RenderPass().DrawIndirect(buf.HAL(), offset)
}

// DrawIndexedIndirect draws indexed primitives with arguments read from n.
func (r *Recorder) DrawIndexedIndirect(n BufferNode, offset uint64) {
	buf := r.binding("DrawIndexedIndirect", n.Node).buffer
	r.RenderPass().DrawIndexedIndirect(buf.HAL(), offset)
}

// Dispatch dispatches workgroups.
func (r *Recorder) Dispatch(x, y, z uint32) {
	r.ComputePass().Dispatch(x, y, z)
}

// DispatchThreads dispatches enough workgroups of the bound compute
// pipeline to cover x*y*z invocations.
func (r *Recorder) DispatchThreads(x, y, z uint32) {
	c, ok := r.p.pipe.(*pipeline.Compute)
	if !ok {
		fail("DispatchThreads", r.p.label, ErrNoPipeline, "no compute pipeline")
	}
	wg := c.Workgroup()
	r.Dispatch(groups(x, wg[0]), groups(y, wg[1]), groups(z, wg[2]))
}

func groups(n, size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	return (n + size - 1) / size
}

// DispatchIndirect dispatches with arguments read from n.
func (r *Recorder) DispatchIndirect(n BufferNode, offset uint64) {
	buf := r.binding("DispatchIndirect", n.Node).buffer
	r.ComputePass().DispatchIndirect(buf.HAL(), offset)
}

// ClearBuffer zeroes size bytes of n from offset.
func (r *Recorder) ClearBuffer(n BufferNode, offset, size uint64) {
	buf := r.binding("ClearBuffer", n.Node).buffer
	r.Encoder().ClearBuffer(buf.HAL(), offset, size)
}

// CopyBuffer copies regions of src into dst. With no regions the common
// prefix of both buffers is copied.
func (r *Recorder) CopyBuffer(src, dst BufferNode, regions ...hal.BufferCopy) {
	s := r.binding("CopyBuffer", src.Node).buffer
	d := r.binding("CopyBuffer", dst.Node).buffer
	if len(regions) == 0 {
		regions = []hal.BufferCopy{{Size: min(s.Info().Size, d.Info().Size)}}
	}
	r.Encoder().CopyBufferToBuffer(s.HAL(), d.HAL(), regions)
}

// CopyBufferToImage copies buffer data into the base level of dst. Regions
// name the image by node, so their TextureBase.Texture is filled in.
func (r *Recorder) CopyBufferToImage(src BufferNode, dst ImageNode, regions ...hal.BufferTextureCopy) {
	s := r.binding("CopyBufferToImage", src.Node).buffer
	d := r.binding("CopyBufferToImage", dst.Node).image
	r.Encoder().CopyBufferToTexture(s.HAL(), d.HAL(), imageRegions(d, regions))
}

// CopyImageToBuffer copies image data of src into dst.
func (r *Recorder) CopyImageToBuffer(src ImageNode, dst BufferNode, regions ...hal.BufferTextureCopy) {
	s := r.binding("CopyImageToBuffer", src.Node).image
	d := r.binding("CopyImageToBuffer", dst.Node).buffer
	r.Encoder().CopyTextureToBuffer(s.HAL(), d.HAL(), imageRegions(s, regions))
}

// CopyImage copies regions of src into dst. With no regions the base level
// extent common to both images is copied.
func (r *Recorder) CopyImage(src, dst ImageNode, regions ...hal.TextureCopy) {
	s := r.binding("CopyImage", src.Node).image
	d := r.binding("CopyImage", dst.Node).image
	if len(regions) == 0 {
		se, de := s.Info().Extent(), d.Info().Extent()
		regions = []hal.TextureCopy{{
			SrcBase: hal.ImageCopyTexture{Aspect: gputypes.TextureAspectAll},
			DstBase: hal.ImageCopyTexture{Aspect: gputypes.TextureAspectAll},
			Size: hal.Extent3D{
				Width:              min(se.Width, de.Width),
				Height:             min(se.Height, de.Height),
				DepthOrArrayLayers: min(se.DepthOrArrayLayers, de.DepthOrArrayLayers),
			},
		}}
	}
	for i := range regions {
		regions[i].SrcBase.Texture = s.HAL()
		regions[i].DstBase.Texture = d.HAL()
	}
	r.Encoder().CopyTextureToTexture(s.HAL(), d.HAL(), regions)
}

func imageRegions(img *driver.Image, regions []hal.BufferTextureCopy) []hal.BufferTextureCopy {
	if len(regions) == 0 {
		regions = []hal.BufferTextureCopy{{
			TextureBase: hal.ImageCopyTexture{Aspect: gputypes.TextureAspectAll},
			Size:        img.Info().Extent(),
		}}
	}
	for i := range regions {
		regions[i].TextureBase.Texture = img.HAL()
	}
	return regions
}

// UpdateBuffer writes data into n at offset through a staging buffer that
// lives until the submission completes.
func (r *Recorder) UpdateBuffer(n BufferNode, offset uint64, data []byte) error {
	dst := r.binding("UpdateBuffer", n.Node).buffer
	enc := r.Encoder()
	if len(data) == 0 {
		return nil
	}
	staging, err := driver.NewBuffer(r.res.dev, driver.BufferInfo{
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		err = fmt.Errorf("rendergraph: pass %q: staging buffer: %w", r.p.label, err)
		r.Fail(err)
		return err
	}
	r.res.staging = append(r.res.staging, staging)
	if err := r.res.dev.Queue().WriteBuffer(staging.HAL(), 0, data); err != nil {
		err = fmt.Errorf("rendergraph: pass %q: write staging buffer: %w", r.p.label, err)
		r.Fail(err)
		return err
	}
	enc.CopyBufferToBuffer(staging.HAL(), dst.HAL(), []hal.BufferCopy{{DstOffset: offset, Size: uint64(len(data))}})
	return nil
}

package rendergraph

import (
	"encoding/binary"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
)

// ClearColorImage adds a pass clearing n to c.
func (g *Graph) ClearColorImage(n ImageNode, c gputypes.Color) {
	g.BeginPass("clear color").
		AttachColor(0, n, gputypes.LoadOpClear, gputypes.StoreOpStore).
		ClearColor(0, c).
		Submit()
}

// ClearDepthStencilImage adds a pass clearing the depth-stencil image n.
func (g *Graph) ClearDepthStencilImage(n ImageNode, depth float32, stencil uint32) {
	g.BeginPass("clear depth-stencil").
		AttachDepthStencil(n, gputypes.LoadOpClear, gputypes.StoreOpStore).
		ClearDepthStencil(depth, stencil).
		Submit()
}

// CopyBuffer adds a pass copying regions of src into dst, or their common
// prefix when no region is given.
func (g *Graph) CopyBuffer(src, dst BufferNode, regions ...hal.BufferCopy) {
	g.BeginPass("copy buffer").
		Access(src, driver.AccessTransferRead).
		Access(dst, driver.AccessTransferWrite).
		Execute(func(r *Recorder) { r.CopyBuffer(src, dst, regions...) }).
		Submit()
}

// CopyBufferToImage adds a pass uploading tightly packed rows of
// bytesPerRow bytes from src into the base level of dst.
func (g *Graph) CopyBufferToImage(src BufferNode, dst ImageNode, bytesPerRow uint32) {
	info := g.ImageInfo(dst)
	region := hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: info.Height},
		TextureBase:  hal.ImageCopyTexture{Aspect: gputypes.TextureAspectAll},
		Size:         info.Extent(),
	}
	g.BeginPass("copy buffer to image").
		Access(src, driver.AccessTransferRead).
		Access(dst, driver.AccessTransferWrite).
		Execute(func(r *Recorder) { r.CopyBufferToImage(src, dst, region) }).
		Submit()
}

// CopyImageToBuffer adds a pass reading the base level of src back into
// dst as rows of bytesPerRow bytes.
func (g *Graph) CopyImageToBuffer(src ImageNode, dst BufferNode, bytesPerRow uint32) {
	info := g.ImageInfo(src)
	region := hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: info.Height},
		TextureBase:  hal.ImageCopyTexture{Aspect: gputypes.TextureAspectAll},
		Size:         info.Extent(),
	}
	g.BeginPass("copy image to buffer").
		Access(src, driver.AccessTransferRead).
		Access(dst, driver.AccessTransferWrite).
		Execute(func(r *Recorder) { r.CopyImageToBuffer(src, dst, region) }).
		Submit()
}

// CopyImage adds a pass copying regions of src into dst, or their common
// base level extent when no region is given.
func (g *Graph) CopyImage(src, dst ImageNode, regions ...hal.TextureCopy) {
	g.BeginPass("copy image").
		Access(src, driver.AccessTransferRead).
		Access(dst, driver.AccessTransferWrite).
		Execute(func(r *Recorder) { r.CopyImage(src, dst, regions...) }).
		Submit()
}

// FillBuffer adds a pass filling size bytes of n from offset with the
// repeated 32-bit value. Zero fills clear the buffer in place; other values
// go through a staging upload.
func (g *Graph) FillBuffer(n BufferNode, offset, size uint64, value uint32) {
	if value == 0 {
		g.BeginPass("fill buffer").
			Access(n, driver.AccessTransferWrite).
			Execute(func(r *Recorder) { r.ClearBuffer(n, offset, size) }).
			Submit()
		return
	}
	data := make([]byte, size&^3)
	for i := 0; i+4 <= len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], value)
	}
	g.UpdateBuffer(n, offset, data)
}

// UpdateBuffer adds a pass writing data into n at offset. data is copied,
// so the caller may reuse it.
func (g *Graph) UpdateBuffer(n BufferNode, offset uint64, data []byte) {
	data = append([]byte(nil), data...)
	g.BeginPass("update buffer").
		Access(n, driver.AccessTransferWrite).
		Execute(func(r *Recorder) { _ = r.UpdateBuffer(n, offset, data) }).
		Submit()
}

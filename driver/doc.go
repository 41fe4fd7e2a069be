// Package driver wraps the native GPU layer (github.com/gogpu/wgpu/hal) with
// the resource types a render graph schedules: buffers, images and
// acceleration structures.
//
// Each resource carries its creation info and a mutable current access, the
// [AccessSet] the GPU last performed on it: a single write, or the union of
// reads since the last write. The render graph reads that access when it
// plans barriers and writes it back after recording, so a resource moving
// from one graph to the next keeps its synchronization state.
//
// # Access types
//
// [AccessType] is a closed catalogue of GPU accesses. Every access implies a
// pipeline [Stage] set, a memory [Mask] and an image [Layout]:
//
//	AccessTransferWrite        -> StageTransfer,              MaskTransferWrite,        LayoutTransferDst
//	AccessFragmentShaderReadSampledImage
//	                           -> StageFragmentShader,        MaskShaderRead,           LayoutShaderReadOnly
//	AccessColorAttachmentWrite -> StageColorAttachmentOutput, MaskColorAttachmentWrite, LayoutColorAttachment
//
// wgpu tracks usages rather than layouts, so [AccessType.TextureUsage] and
// [AccessType.BufferUsage] give the usage a native barrier transitions to.
//
// # Devices
//
// A [Device] pairs a hal.Device with its hal.Queue. Create one with [New]
// from handles you already own, [Open] to pick the best registered backend,
// or [FromProvider] to share a device with a gpucontext host.
//
//	dev, err := driver.Open()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Destroy()
//
//	img, err := driver.NewImage(dev, driver.ImageInfo{
//	    Width: 512, Height: 512, Format: gputypes.TextureFormatRGBA8Unorm,
//	    Usage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
//	})
package driver

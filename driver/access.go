package driver

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Stage is a bitmask of pipeline stages that perform an access.
type Stage uint32

// Pipeline stages.
const (
	StageTopOfPipe Stage = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottomOfPipe
	StageHost
	StageRayTracingShader
	StageAccelerationStructureBuild
	StageAllCommands

	StageNone Stage = 0
)

// Mask is a bitmask of memory access kinds.
type Mask uint32

// Memory access kinds.
const (
	MaskIndirectCommandRead Mask = 1 << iota
	MaskIndexRead
	MaskVertexAttributeRead
	MaskUniformRead
	MaskInputAttachmentRead
	MaskShaderRead
	MaskShaderWrite
	MaskColorAttachmentRead
	MaskColorAttachmentWrite
	MaskDepthStencilAttachmentRead
	MaskDepthStencilAttachmentWrite
	MaskTransferRead
	MaskTransferWrite
	MaskHostRead
	MaskHostWrite
	MaskMemoryRead
	MaskMemoryWrite
	MaskAccelerationStructureRead
	MaskAccelerationStructureWrite

	MaskNone Mask = 0
)

// Layout is the memory arrangement an image must be in for an access.
// Buffers ignore it.
type Layout uint8

// Image layouts.
const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutDepthStencilReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPreinitialized
	LayoutPresentSrc
)

var layoutNames = [...]string{
	LayoutUndefined:              "Undefined",
	LayoutGeneral:                "General",
	LayoutColorAttachment:        "ColorAttachment",
	LayoutDepthStencilAttachment: "DepthStencilAttachment",
	LayoutDepthStencilReadOnly:   "DepthStencilReadOnly",
	LayoutShaderReadOnly:         "ShaderReadOnly",
	LayoutTransferSrc:            "TransferSrc",
	LayoutTransferDst:            "TransferDst",
	LayoutPreinitialized:         "Preinitialized",
	LayoutPresentSrc:             "PresentSrc",
}

// String returns the layout name.
func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return fmt.Sprintf("Layout(%d)", uint8(l))
}

// AccessType names one way a resource is used by the GPU. Each access type
// implies a pipeline stage set, an access mask and, for images, a layout.
type AccessType uint8

// Read accesses.
const (
	AccessNothing AccessType = iota
	AccessIndirectBuffer
	AccessIndexBuffer
	AccessVertexBuffer
	AccessVertexShaderReadUniformBuffer
	AccessVertexShaderReadSampledImage
	AccessVertexShaderReadOther
	AccessFragmentShaderReadUniformBuffer
	AccessFragmentShaderReadSampledImage
	AccessFragmentShaderReadColorInputAttachment
	AccessFragmentShaderReadDepthStencilInputAttachment
	AccessFragmentShaderReadOther
	AccessColorAttachmentRead
	AccessDepthStencilAttachmentRead
	AccessComputeShaderReadUniformBuffer
	AccessComputeShaderReadSampledImage
	AccessComputeShaderReadOther
	AccessAnyShaderReadUniformBuffer
	AccessAnyShaderReadSampledImage
	AccessAnyShaderReadOther
	AccessTransferRead
	AccessHostRead
	AccessPresent
	AccessRayTracingShaderReadUniformBuffer
	AccessRayTracingShaderReadSampledImage
	AccessRayTracingShaderReadOther
	AccessRayTracingShaderReadAccelerationStructure
	AccessAccelerationStructureBuildRead

	accessReadEnd
)

// Write accesses.
const (
	AccessVertexShaderWrite AccessType = iota + accessReadEnd
	AccessFragmentShaderWrite
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentWrite
	AccessComputeShaderWrite
	AccessAnyShaderWrite
	AccessTransferWrite
	AccessHostPreinitialized
	AccessHostWrite
	AccessAccelerationStructureBuildWrite
	AccessColorAttachmentReadWrite
	AccessGeneral

	accessEnd
)

type accessInfo struct {
	name   string
	stage  Stage
	mask   Mask
	layout Layout
}

var accessTable = [accessEnd]accessInfo{
	AccessNothing:                                       {"Nothing", StageNone, MaskNone, LayoutUndefined},
	AccessIndirectBuffer:                                {"IndirectBuffer", StageDrawIndirect, MaskIndirectCommandRead, LayoutUndefined},
	AccessIndexBuffer:                                   {"IndexBuffer", StageVertexInput, MaskIndexRead, LayoutUndefined},
	AccessVertexBuffer:                                  {"VertexBuffer", StageVertexInput, MaskVertexAttributeRead, LayoutUndefined},
	AccessVertexShaderReadUniformBuffer:                 {"VertexShaderReadUniformBuffer", StageVertexShader, MaskUniformRead, LayoutUndefined},
	AccessVertexShaderReadSampledImage:                  {"VertexShaderReadSampledImage", StageVertexShader, MaskShaderRead, LayoutShaderReadOnly},
	AccessVertexShaderReadOther:                         {"VertexShaderReadOther", StageVertexShader, MaskShaderRead, LayoutGeneral},
	AccessFragmentShaderReadUniformBuffer:               {"FragmentShaderReadUniformBuffer", StageFragmentShader, MaskUniformRead, LayoutUndefined},
	AccessFragmentShaderReadSampledImage:                {"FragmentShaderReadSampledImage", StageFragmentShader, MaskShaderRead, LayoutShaderReadOnly},
	AccessFragmentShaderReadColorInputAttachment:        {"FragmentShaderReadColorInputAttachment", StageFragmentShader, MaskInputAttachmentRead, LayoutShaderReadOnly},
	AccessFragmentShaderReadDepthStencilInputAttachment: {"FragmentShaderReadDepthStencilInputAttachment", StageFragmentShader, MaskInputAttachmentRead, LayoutDepthStencilReadOnly},
	AccessFragmentShaderReadOther:                       {"FragmentShaderReadOther", StageFragmentShader, MaskShaderRead, LayoutGeneral},
	AccessColorAttachmentRead:                           {"ColorAttachmentRead", StageColorAttachmentOutput, MaskColorAttachmentRead, LayoutColorAttachment},
	AccessDepthStencilAttachmentRead:                    {"DepthStencilAttachmentRead", StageEarlyFragmentTests | StageLateFragmentTests, MaskDepthStencilAttachmentRead, LayoutDepthStencilReadOnly},
	AccessComputeShaderReadUniformBuffer:                {"ComputeShaderReadUniformBuffer", StageComputeShader, MaskUniformRead, LayoutUndefined},
	AccessComputeShaderReadSampledImage:                 {"ComputeShaderReadSampledImage", StageComputeShader, MaskShaderRead, LayoutShaderReadOnly},
	AccessComputeShaderReadOther:                        {"ComputeShaderReadOther", StageComputeShader, MaskShaderRead, LayoutGeneral},
	AccessAnyShaderReadUniformBuffer:                    {"AnyShaderReadUniformBuffer", StageAllCommands, MaskUniformRead, LayoutUndefined},
	AccessAnyShaderReadSampledImage:                     {"AnyShaderReadSampledImage", StageAllCommands, MaskShaderRead, LayoutShaderReadOnly},
	AccessAnyShaderReadOther:                            {"AnyShaderReadOther", StageAllCommands, MaskShaderRead, LayoutGeneral},
	AccessTransferRead:                                  {"TransferRead", StageTransfer, MaskTransferRead, LayoutTransferSrc},
	AccessHostRead:                                      {"HostRead", StageHost, MaskHostRead, LayoutGeneral},
	AccessPresent:                                       {"Present", StageNone, MaskNone, LayoutPresentSrc},
	AccessRayTracingShaderReadUniformBuffer:             {"RayTracingShaderReadUniformBuffer", StageRayTracingShader, MaskUniformRead, LayoutUndefined},
	AccessRayTracingShaderReadSampledImage:              {"RayTracingShaderReadSampledImage", StageRayTracingShader, MaskShaderRead, LayoutShaderReadOnly},
	AccessRayTracingShaderReadOther:                     {"RayTracingShaderReadOther", StageRayTracingShader, MaskShaderRead, LayoutGeneral},
	AccessRayTracingShaderReadAccelerationStructure:     {"RayTracingShaderReadAccelerationStructure", StageRayTracingShader, MaskAccelerationStructureRead, LayoutUndefined},
	AccessAccelerationStructureBuildRead:                {"AccelerationStructureBuildRead", StageAccelerationStructureBuild, MaskAccelerationStructureRead, LayoutUndefined},

	AccessVertexShaderWrite:               {"VertexShaderWrite", StageVertexShader, MaskShaderWrite, LayoutGeneral},
	AccessFragmentShaderWrite:             {"FragmentShaderWrite", StageFragmentShader, MaskShaderWrite, LayoutGeneral},
	AccessColorAttachmentWrite:            {"ColorAttachmentWrite", StageColorAttachmentOutput, MaskColorAttachmentWrite, LayoutColorAttachment},
	AccessDepthStencilAttachmentWrite:     {"DepthStencilAttachmentWrite", StageEarlyFragmentTests | StageLateFragmentTests, MaskDepthStencilAttachmentWrite, LayoutDepthStencilAttachment},
	AccessComputeShaderWrite:              {"ComputeShaderWrite", StageComputeShader, MaskShaderWrite, LayoutGeneral},
	AccessAnyShaderWrite:                  {"AnyShaderWrite", StageAllCommands, MaskShaderWrite, LayoutGeneral},
	AccessTransferWrite:                   {"TransferWrite", StageTransfer, MaskTransferWrite, LayoutTransferDst},
	AccessHostPreinitialized:              {"HostPreinitialized", StageHost, MaskHostWrite, LayoutPreinitialized},
	AccessHostWrite:                       {"HostWrite", StageHost, MaskHostWrite, LayoutGeneral},
	AccessAccelerationStructureBuildWrite: {"AccelerationStructureBuildWrite", StageAccelerationStructureBuild, MaskAccelerationStructureWrite, LayoutUndefined},
	AccessColorAttachmentReadWrite:        {"ColorAttachmentReadWrite", StageColorAttachmentOutput, MaskColorAttachmentRead | MaskColorAttachmentWrite, LayoutColorAttachment},
	AccessGeneral:                         {"General", StageAllCommands, MaskMemoryRead | MaskMemoryWrite, LayoutGeneral},
}

// Valid reports whether a is a known access type.
func (a AccessType) Valid() bool { return a < accessEnd }

// IsWrite reports whether the access modifies the resource.
func (a AccessType) IsWrite() bool { return a >= accessReadEnd && a < accessEnd }

// IsRead reports whether the access only reads the resource.
// AccessNothing is neither a read nor a write.
func (a AccessType) IsRead() bool { return a > AccessNothing && a < accessReadEnd }

// Stage returns the pipeline stages performing the access.
func (a AccessType) Stage() Stage { return a.info().stage }

// Mask returns the memory access kinds of the access.
func (a AccessType) Mask() Mask { return a.info().mask }

// Layout returns the image layout the access requires.
func (a AccessType) Layout() Layout { return a.info().layout }

// String returns the access name.
func (a AccessType) String() string {
	if !a.Valid() {
		return fmt.Sprintf("AccessType(%d)", uint8(a))
	}
	return accessTable[a].name
}

func (a AccessType) info() accessInfo {
	if !a.Valid() {
		panic(fmt.Sprintf("driver: invalid access type %d", uint8(a)))
	}
	return accessTable[a]
}

// TextureUsage maps the access to the wgpu texture usage used for native
// barriers. Accesses with no texture meaning map to TextureUsageNone.
func (a AccessType) TextureUsage() gputypes.TextureUsage {
	switch a {
	case AccessColorAttachmentRead, AccessColorAttachmentWrite, AccessColorAttachmentReadWrite,
		AccessDepthStencilAttachmentRead, AccessDepthStencilAttachmentWrite, AccessPresent:
		return gputypes.TextureUsageRenderAttachment
	case AccessVertexShaderReadSampledImage, AccessFragmentShaderReadSampledImage,
		AccessComputeShaderReadSampledImage, AccessAnyShaderReadSampledImage,
		AccessRayTracingShaderReadSampledImage,
		AccessFragmentShaderReadColorInputAttachment, AccessFragmentShaderReadDepthStencilInputAttachment:
		return gputypes.TextureUsageTextureBinding
	case AccessVertexShaderReadOther, AccessFragmentShaderReadOther, AccessComputeShaderReadOther,
		AccessAnyShaderReadOther, AccessRayTracingShaderReadOther,
		AccessVertexShaderWrite, AccessFragmentShaderWrite, AccessComputeShaderWrite, AccessAnyShaderWrite:
		return gputypes.TextureUsageStorageBinding
	case AccessTransferRead:
		return gputypes.TextureUsageCopySrc
	case AccessTransferWrite:
		return gputypes.TextureUsageCopyDst
	case AccessGeneral:
		return gputypes.TextureUsageStorageBinding | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	default:
		return gputypes.TextureUsageNone
	}
}

// BufferUsage maps the access to the wgpu buffer usage used for native
// barriers. Accesses with no buffer meaning map to BufferUsageNone.
func (a AccessType) BufferUsage() gputypes.BufferUsage {
	switch a {
	case AccessIndirectBuffer:
		return gputypes.BufferUsageIndirect
	case AccessIndexBuffer:
		return gputypes.BufferUsageIndex
	case AccessVertexBuffer:
		return gputypes.BufferUsageVertex
	case AccessVertexShaderReadUniformBuffer, AccessFragmentShaderReadUniformBuffer,
		AccessComputeShaderReadUniformBuffer, AccessAnyShaderReadUniformBuffer,
		AccessRayTracingShaderReadUniformBuffer:
		return gputypes.BufferUsageUniform
	case AccessTransferRead:
		return gputypes.BufferUsageCopySrc
	case AccessTransferWrite:
		return gputypes.BufferUsageCopyDst
	case AccessHostRead:
		return gputypes.BufferUsageMapRead
	case AccessHostWrite, AccessHostPreinitialized:
		return gputypes.BufferUsageMapWrite
	case AccessNothing, AccessPresent, AccessColorAttachmentRead, AccessColorAttachmentWrite,
		AccessColorAttachmentReadWrite, AccessDepthStencilAttachmentRead, AccessDepthStencilAttachmentWrite:
		return gputypes.BufferUsageNone
	case AccessGeneral:
		return gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageStorage
	}
}

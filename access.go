package rendergraph

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/pipeline"
)

// shaderClass groups shader accesses that map to one access type per
// pipeline kind.
type shaderClass uint8

const (
	classUniform shaderClass = iota
	classSampled
	classOther
	classWrite
	classAccel
)

// subpassLocal holds the accesses whose dependencies a render pass resolves
// between its own subpasses.
var subpassLocal = driver.Of(
	driver.AccessColorAttachmentRead,
	driver.AccessColorAttachmentWrite,
	driver.AccessColorAttachmentReadWrite,
	driver.AccessDepthStencilAttachmentRead,
	driver.AccessDepthStencilAttachmentWrite,
	driver.AccessFragmentShaderReadColorInputAttachment,
	driver.AccessFragmentShaderReadDepthStencilInputAttachment,
)

// graphicBufferRead covers every way a draw may read a buffer.
var graphicBufferRead = driver.Of(
	driver.AccessIndirectBuffer,
	driver.AccessIndexBuffer,
	driver.AccessVertexBuffer,
	driver.AccessAnyShaderReadOther,
)

// concretize turns a declaration into the access types it implies for a
// pass of the given kind.
func concretize(kind PassKind, d decl, b *binding) driver.AccessSet {
	if d.explicit != driver.AccessNothing {
		return driver.Of(d.explicit)
	}
	switch d.role {
	case roleColor:
		if d.intent == IntentReadWrite {
			return driver.Of(driver.AccessColorAttachmentReadWrite)
		}
		return driver.Of(driver.AccessColorAttachmentWrite)
	case roleDepth:
		if d.intent == IntentRead {
			return driver.Of(driver.AccessDepthStencilAttachmentRead)
		}
		return driver.Of(driver.AccessDepthStencilAttachmentWrite)
	case roleResolve:
		return driver.Of(driver.AccessColorAttachmentWrite)
	case roleDescriptor:
		return descriptorAccess(kind, d)
	}

	if kind == PassCommand {
		return transferAccess(d.intent, b.kind)
	}
	if kind == PassGraphic && b.kind == ImageKind && d.intent != IntentRead {
		if b.image.Info().Format.IsDepthStencil() {
			return driver.Of(driver.AccessDepthStencilAttachmentWrite)
		}
		if d.intent == IntentReadWrite {
			return driver.Of(driver.AccessColorAttachmentReadWrite)
		}
		return driver.Of(driver.AccessColorAttachmentWrite)
	}
	if kind == PassGraphic && b.kind == BufferKind && d.intent == IntentRead {
		return graphicBufferRead
	}

	read := classOther
	switch b.kind {
	case ImageKind:
		read = classSampled
	case AccelerationStructureKind:
		read = classAccel
	}
	var stages gputypes.ShaderStages
	switch d.intent {
	case IntentRead:
		return driver.Of(shaderAccess(kind, stages, read))
	case IntentWrite:
		return driver.Of(shaderAccess(kind, stages, classWrite))
	default:
		return driver.Of(shaderAccess(kind, stages, classOther), shaderAccess(kind, stages, classWrite))
	}
}

func transferAccess(intent Intent, kind NodeKind) driver.AccessSet {
	read, write := driver.AccessTransferRead, driver.AccessTransferWrite
	if kind == AccelerationStructureKind {
		read, write = driver.AccessAccelerationStructureBuildRead, driver.AccessAccelerationStructureBuildWrite
	}
	switch intent {
	case IntentRead:
		return driver.Of(read)
	case IntentWrite:
		return driver.Of(write)
	default:
		return driver.Of(read, write)
	}
}

func descriptorAccess(kind PassKind, d decl) driver.AccessSet {
	stages := d.slot.Stages
	switch d.slot.Kind {
	case pipeline.BindingUniformBuffer:
		return driver.Of(shaderAccess(kind, stages, classUniform))
	case pipeline.BindingSampledImage, pipeline.BindingDepthImage:
		return driver.Of(shaderAccess(kind, stages, classSampled))
	case pipeline.BindingAccelerationStructure:
		return driver.Of(shaderAccess(kind, stages, classAccel))
	}
	if d.intent == IntentRead {
		return driver.Of(shaderAccess(kind, stages, classOther))
	}
	return driver.Of(shaderAccess(kind, stages, classOther), shaderAccess(kind, stages, classWrite))
}

// shaderAccess picks the access type for a shader access of class c by the
// given stages. Graphic accesses narrow to the vertex or fragment stage when
// only one of them is visible.
func shaderAccess(kind PassKind, stages gputypes.ShaderStages, c shaderClass) driver.AccessType {
	switch kind {
	case PassCompute:
		return [...]driver.AccessType{
			classUniform: driver.AccessComputeShaderReadUniformBuffer,
			classSampled: driver.AccessComputeShaderReadSampledImage,
			classOther:   driver.AccessComputeShaderReadOther,
			classWrite:   driver.AccessComputeShaderWrite,
			classAccel:   driver.AccessComputeShaderReadOther,
		}[c]
	case PassRayTrace:
		return [...]driver.AccessType{
			classUniform: driver.AccessRayTracingShaderReadUniformBuffer,
			classSampled: driver.AccessRayTracingShaderReadSampledImage,
			classOther:   driver.AccessRayTracingShaderReadOther,
			classWrite:   driver.AccessAnyShaderWrite,
			classAccel:   driver.AccessRayTracingShaderReadAccelerationStructure,
		}[c]
	}

	vertex := stages&gputypes.ShaderStageVertex != 0
	fragment := stages&gputypes.ShaderStageFragment != 0
	switch {
	case kind == PassGraphic && vertex && !fragment:
		return [...]driver.AccessType{
			classUniform: driver.AccessVertexShaderReadUniformBuffer,
			classSampled: driver.AccessVertexShaderReadSampledImage,
			classOther:   driver.AccessVertexShaderReadOther,
			classWrite:   driver.AccessVertexShaderWrite,
			classAccel:   driver.AccessVertexShaderReadOther,
		}[c]
	case kind == PassGraphic && fragment && !vertex:
		return [...]driver.AccessType{
			classUniform: driver.AccessFragmentShaderReadUniformBuffer,
			classSampled: driver.AccessFragmentShaderReadSampledImage,
			classOther:   driver.AccessFragmentShaderReadOther,
			classWrite:   driver.AccessFragmentShaderWrite,
			classAccel:   driver.AccessFragmentShaderReadOther,
		}[c]
	case kind == PassGraphic && c == classSampled && stages == 0:
		return driver.AccessFragmentShaderReadSampledImage
	}
	return [...]driver.AccessType{
		classUniform: driver.AccessAnyShaderReadUniformBuffer,
		classSampled: driver.AccessAnyShaderReadSampledImage,
		classOther:   driver.AccessAnyShaderReadOther,
		classWrite:   driver.AccessAnyShaderWrite,
		classAccel:   driver.AccessAnyShaderReadOther,
	}[c]
}

package pipeline

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
)

// GraphicInfo describes a graphic pipeline.
type GraphicInfo struct {
	Label           string
	Source          string // WGSL holding both stages
	VertexEntry     string // defaults to "vs_main"
	FragmentEntry   string // defaults to "fs_main"; a module without it is depth-only
	ColorFormats    []gputypes.TextureFormat
	DepthFormat     gputypes.TextureFormat
	DepthWrite      bool
	SampleCount     uint32
	Topology        gputypes.PrimitiveTopology
	VertexBuffers   []gputypes.VertexBufferLayout
	Samplers        map[Descriptor]hal.Sampler
	DepthCompare    gputypes.CompareFunction
	CullMode        gputypes.CullMode
	FrontFace       gputypes.FrontFace
	AlphaToCoverage bool
}

// Graphic is a render pipeline with its reflected layout.
type Graphic struct {
	*native
	info   GraphicInfo
	refl   *Reflection
	stages gputypes.ShaderStages
	pipe   hal.RenderPipeline
}

// NewGraphic reflects the shader and creates the native pipeline on dev.
func NewGraphic(dev *driver.Device, info GraphicInfo) (*Graphic, error) {
	if info.VertexEntry == "" {
		info.VertexEntry = "vs_main"
	}
	if info.FragmentEntry == "" {
		info.FragmentEntry = "fs_main"
	}
	if info.SampleCount == 0 {
		info.SampleCount = 1
	}

	refl, err := Reflect(info.Source)
	if err != nil {
		return nil, err
	}
	if ep, ok := refl.EntryPoint(info.VertexEntry); !ok || ep.Stage != gputypes.ShaderStageVertex {
		return nil, fmt.Errorf("%w: vertex %q", ErrMissingEntryPoint, info.VertexEntry)
	}
	stages := gputypes.ShaderStageVertex
	fragment := false
	if ep, ok := refl.EntryPoint(info.FragmentEntry); ok && ep.Stage == gputypes.ShaderStageFragment {
		stages |= gputypes.ShaderStageFragment
		fragment = true
	}

	n, err := newNative(dev, info.Label, info.Source, refl.Layout, info.Samplers)
	if err != nil {
		return nil, fmt.Errorf("pipeline: graphic %q: %w", info.Label, err)
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  info.Label,
		Layout: n.layout,
		Vertex: hal.VertexState{
			Module:     n.module,
			EntryPoint: info.VertexEntry,
			Buffers:    info.VertexBuffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  info.Topology,
			FrontFace: info.FrontFace,
			CullMode:  info.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count:                  info.SampleCount,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: info.AlphaToCoverage,
		},
	}
	if fragment {
		targets := make([]gputypes.ColorTargetState, len(info.ColorFormats))
		for i, f := range info.ColorFormats {
			targets[i] = gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskAll}
		}
		desc.Fragment = &hal.FragmentState{
			Module:     n.module,
			EntryPoint: info.FragmentEntry,
			Targets:    targets,
		}
	}
	if info.DepthFormat != gputypes.TextureFormatUndefined {
		compare := info.DepthCompare
		if compare == 0 {
			compare = gputypes.CompareFunctionLess
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            info.DepthFormat,
			DepthWriteEnabled: info.DepthWrite,
			DepthCompare:      compare,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0xFF,
		}
	}

	pipe, err := dev.HAL().CreateRenderPipeline(desc)
	if err != nil {
		n.destroy()
		return nil, fmt.Errorf("pipeline: create render pipeline %q: %w", info.Label, err)
	}

	return &Graphic{native: n, info: info, refl: refl, stages: stages, pipe: pipe}, nil
}

func (g *Graphic) Kind() Kind                              { return KindGraphic }
func (g *Graphic) Label() string                           { return g.info.Label }
func (g *Graphic) Layout() *Layout                         { return g.refl.Layout }
func (g *Graphic) Stages() gputypes.ShaderStages           { return g.stages }
func (g *Graphic) BindGroupLayouts() []hal.BindGroupLayout { return g.groups }
func (g *Graphic) Sampler(d Descriptor) (hal.Sampler, bool) {
	return g.sampler(d)
}

// Info returns the creation info with defaults filled in.
func (g *Graphic) Info() GraphicInfo { return g.info }

// HAL returns the native pipeline.
func (g *Graphic) HAL() hal.RenderPipeline { return g.pipe }

// Destroy releases the native objects.
func (g *Graphic) Destroy() {
	if g.pipe != nil {
		g.dev.HAL().DestroyRenderPipeline(g.pipe)
		g.pipe = nil
	}
	g.destroy()
}

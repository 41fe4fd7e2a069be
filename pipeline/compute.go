package pipeline

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
)

// ComputeInfo describes a compute pipeline.
type ComputeInfo struct {
	Label      string
	Source     string // WGSL
	EntryPoint string // defaults to "main"

	// Samplers are immutable samplers bound automatically at their slot.
	Samplers map[Descriptor]hal.Sampler
}

// Compute is a compute pipeline with its reflected layout.
type Compute struct {
	*native
	info      ComputeInfo
	refl      *Reflection
	workgroup [3]uint32
	pipe      hal.ComputePipeline
}

// NewCompute reflects the shader and creates the native pipeline on dev.
func NewCompute(dev *driver.Device, info ComputeInfo) (*Compute, error) {
	if info.EntryPoint == "" {
		info.EntryPoint = "main"
	}
	refl, err := Reflect(info.Source)
	if err != nil {
		return nil, err
	}
	ep, ok := refl.EntryPoint(info.EntryPoint)
	if !ok || ep.Stage != gputypes.ShaderStageCompute {
		return nil, fmt.Errorf("%w: compute %q", ErrMissingEntryPoint, info.EntryPoint)
	}

	n, err := newNative(dev, info.Label, info.Source, refl.Layout, info.Samplers)
	if err != nil {
		return nil, fmt.Errorf("pipeline: compute %q: %w", info.Label, err)
	}
	pipe, err := dev.HAL().CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  info.Label,
		Layout: n.layout,
		Compute: hal.ComputeState{
			Module:     n.module,
			EntryPoint: info.EntryPoint,
		},
	})
	if err != nil {
		n.destroy()
		return nil, fmt.Errorf("pipeline: create compute pipeline %q: %w", info.Label, err)
	}

	return &Compute{native: n, info: info, refl: refl, workgroup: ep.Workgroup, pipe: pipe}, nil
}

func (c *Compute) Kind() Kind                              { return KindCompute }
func (c *Compute) Label() string                           { return c.info.Label }
func (c *Compute) Layout() *Layout                         { return c.refl.Layout }
func (c *Compute) Stages() gputypes.ShaderStages           { return gputypes.ShaderStageCompute }
func (c *Compute) BindGroupLayouts() []hal.BindGroupLayout { return c.groups }
func (c *Compute) Sampler(d Descriptor) (hal.Sampler, bool) {
	return c.sampler(d)
}

// HAL returns the native pipeline.
func (c *Compute) HAL() hal.ComputePipeline { return c.pipe }

// Workgroup returns the workgroup size declared by the entry point.
func (c *Compute) Workgroup() [3]uint32 { return c.workgroup }

// Destroy releases the native objects.
func (c *Compute) Destroy() {
	if c.pipe != nil {
		c.dev.HAL().DestroyComputePipeline(c.pipe)
		c.pipe = nil
	}
	c.destroy()
}

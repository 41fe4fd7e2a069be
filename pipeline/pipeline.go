package pipeline

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
)

// Pipeline errors.
var (
	// ErrMissingEntryPoint is returned when the requested entry point is not
	// declared by the shader.
	ErrMissingEntryPoint = errors.New("pipeline: entry point not found")

	// ErrNoLayout is returned when a ray-trace pipeline has neither shader
	// source nor an explicit layout.
	ErrNoLayout = errors.New("pipeline: no descriptor layout")
)

// Kind is the pipeline variant. It decides which recording API a pass gets
// and how its accesses are concretized.
type Kind uint8

// Pipeline kinds.
const (
	KindCompute Kind = iota
	KindGraphic
	KindRayTrace
)

func (k Kind) String() string {
	switch k {
	case KindCompute:
		return "compute"
	case KindGraphic:
		return "graphic"
	case KindRayTrace:
		return "ray-trace"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Pipeline is implemented by *Compute, *Graphic and *RayTrace.
type Pipeline interface {
	Kind() Kind
	Label() string
	Layout() *Layout
	Stages() gputypes.ShaderStages

	// BindGroupLayouts returns the native layout of each bind group,
	// indexed by group. Ray-trace pipelines return nil.
	BindGroupLayouts() []hal.BindGroupLayout

	// Sampler returns the immutable sampler bound at d, if any.
	Sampler(d Descriptor) (hal.Sampler, bool)
}

// native holds the hal objects every shader pipeline owns.
type native struct {
	dev      *driver.Device
	module   hal.ShaderModule
	groups   []hal.BindGroupLayout
	layout   hal.PipelineLayout
	samplers map[Descriptor]hal.Sampler
}

func newNative(dev *driver.Device, label, source string, layout *Layout, samplers map[Descriptor]hal.Sampler) (*native, error) {
	n := &native{dev: dev, samplers: samplers}
	d := dev.HAL()

	module, err := d.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	n.module = module

	for g := 0; g < layout.GroupCount(); g++ {
		bgl, err := d.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d", label, g),
			Entries: layout.Entries(uint32(g)),
		})
		if err != nil {
			n.destroy()
			return nil, fmt.Errorf("create bind group layout %d: %w", g, err)
		}
		n.groups = append(n.groups, bgl)
	}

	pl, err := d.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_layout",
		BindGroupLayouts: n.groups,
	})
	if err != nil {
		n.destroy()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	n.layout = pl

	return n, nil
}

func (n *native) destroy() {
	d := n.dev.HAL()
	if n.layout != nil {
		d.DestroyPipelineLayout(n.layout)
		n.layout = nil
	}
	for _, g := range n.groups {
		d.DestroyBindGroupLayout(g)
	}
	n.groups = nil
	if n.module != nil {
		d.DestroyShaderModule(n.module)
		n.module = nil
	}
}

func (n *native) sampler(d Descriptor) (hal.Sampler, bool) {
	s, ok := n.samplers[d]
	return s, ok
}

package pipeline

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RayTraceInfo describes a ray-trace pipeline. Either Source (reflected like
// any other shader) or Layout must be set.
type RayTraceInfo struct {
	Label  string
	Source string
	Layout *Layout
}

// RayTrace is a ray-trace pipeline. The native layer exposes no ray-tracing
// pipeline object, so RayTrace carries only the descriptor layout the graph
// validates against. Passes bound to it record trace commands through the
// raw command encoder.
type RayTrace struct {
	info   RayTraceInfo
	layout *Layout
}

// NewRayTrace builds a ray-trace pipeline description.
func NewRayTrace(info RayTraceInfo) (*RayTrace, error) {
	layout := info.Layout
	if info.Source != "" {
		refl, err := Reflect(info.Source)
		if err != nil {
			return nil, err
		}
		layout = refl.Layout
	}
	if layout == nil {
		return nil, ErrNoLayout
	}
	return &RayTrace{info: info, layout: layout}, nil
}

func (r *RayTrace) Kind() Kind                              { return KindRayTrace }
func (r *RayTrace) Label() string                           { return r.info.Label }
func (r *RayTrace) Layout() *Layout                         { return r.layout }
func (r *RayTrace) BindGroupLayouts() []hal.BindGroupLayout { return nil }
func (r *RayTrace) Sampler(Descriptor) (hal.Sampler, bool)  { return nil, false }

// Stages returns ShaderStageNone: wgpu has no ray-tracing stage flags.
func (r *RayTrace) Stages() gputypes.ShaderStages { return gputypes.ShaderStageNone }

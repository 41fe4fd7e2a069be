package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrDuplicateBinding is returned when two bindings share a descriptor.
var ErrDuplicateBinding = errors.New("pipeline: duplicate descriptor binding")

// Descriptor addresses one binding slot: a bind group and a binding index
// within it.
type Descriptor struct {
	Group   uint32
	Binding uint32
}

// String returns "group/binding".
func (d Descriptor) String() string { return fmt.Sprintf("%d/%d", d.Group, d.Binding) }

// BindingKind is the kind of resource a descriptor slot accepts.
type BindingKind uint8

// Binding kinds.
const (
	BindingUniformBuffer BindingKind = iota
	BindingStorageBuffer
	BindingReadOnlyStorageBuffer
	BindingSampledImage
	BindingDepthImage
	BindingStorageImage
	BindingReadOnlyStorageImage
	BindingSampler
	BindingAccelerationStructure
)

var bindingKindNames = [...]string{
	BindingUniformBuffer:         "UniformBuffer",
	BindingStorageBuffer:         "StorageBuffer",
	BindingReadOnlyStorageBuffer: "ReadOnlyStorageBuffer",
	BindingSampledImage:          "SampledImage",
	BindingDepthImage:            "DepthImage",
	BindingStorageImage:          "StorageImage",
	BindingReadOnlyStorageImage:  "ReadOnlyStorageImage",
	BindingSampler:               "Sampler",
	BindingAccelerationStructure: "AccelerationStructure",
}

func (k BindingKind) String() string {
	if int(k) < len(bindingKindNames) {
		return bindingKindNames[k]
	}
	return fmt.Sprintf("BindingKind(%d)", uint8(k))
}

// IsBuffer reports whether the slot takes a buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingUniformBuffer || k == BindingStorageBuffer || k == BindingReadOnlyStorageBuffer
}

// IsImage reports whether the slot takes an image view.
func (k BindingKind) IsImage() bool {
	return k == BindingSampledImage || k == BindingDepthImage ||
		k == BindingStorageImage || k == BindingReadOnlyStorageImage
}

// Writable reports whether shaders may write through the slot.
func (k BindingKind) Writable() bool {
	return k == BindingStorageBuffer || k == BindingStorageImage
}

// Binding is one reflected descriptor slot.
type Binding struct {
	Descriptor
	Name   string
	Kind   BindingKind
	Stages gputypes.ShaderStages

	// Image properties, meaningful when Kind.IsImage.
	ViewDimension gputypes.TextureViewDimension
	Multisampled  bool
	Format        gputypes.TextureFormat
}

// Layout is the set of descriptor slots a pipeline declares, sorted by
// group then binding.
type Layout struct {
	bindings []Binding
	index    map[Descriptor]int
}

// NewLayout builds a layout from explicit bindings.
func NewLayout(bindings ...Binding) (*Layout, error) {
	l := &Layout{
		bindings: slices.Clone(bindings),
		index:    make(map[Descriptor]int, len(bindings)),
	}
	slices.SortFunc(l.bindings, func(a, b Binding) int {
		if a.Group != b.Group {
			return int(a.Group) - int(b.Group)
		}
		return int(a.Binding) - int(b.Binding)
	})
	for i, b := range l.bindings {
		if _, ok := l.index[b.Descriptor]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBinding, b.Descriptor)
		}
		l.index[b.Descriptor] = i
	}
	return l, nil
}

// Lookup returns the binding at d.
func (l *Layout) Lookup(d Descriptor) (Binding, bool) {
	i, ok := l.index[d]
	if !ok {
		return Binding{}, false
	}
	return l.bindings[i], true
}

// Bindings returns every slot in group/binding order.
func (l *Layout) Bindings() []Binding { return l.bindings }

// GroupCount returns one past the highest group index used, or zero.
func (l *Layout) GroupCount() int {
	if len(l.bindings) == 0 {
		return 0
	}
	return int(l.bindings[len(l.bindings)-1].Group) + 1
}

// Group returns the bindings of one bind group.
func (l *Layout) Group(group uint32) []Binding {
	var out []Binding
	for _, b := range l.bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

// Entries returns the native bind group layout entries of one group.
func (l *Layout) Entries(group uint32) []gputypes.BindGroupLayoutEntry {
	bindings := l.Group(group)
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		e := gputypes.BindGroupLayoutEntry{Binding: b.Binding, Visibility: b.Stages}
		switch b.Kind {
		case BindingUniformBuffer:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		case BindingStorageBuffer, BindingAccelerationStructure:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		case BindingReadOnlyStorageBuffer:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
		case BindingSampledImage, BindingDepthImage:
			sample := gputypes.TextureSampleTypeFloat
			if b.Kind == BindingDepthImage {
				sample = gputypes.TextureSampleTypeDepth
			}
			e.Texture = &gputypes.TextureBindingLayout{
				SampleType:    sample,
				ViewDimension: b.ViewDimension,
				Multisampled:  b.Multisampled,
			}
		case BindingStorageImage, BindingReadOnlyStorageImage:
			access := gputypes.StorageTextureAccessReadWrite
			if b.Kind == BindingReadOnlyStorageImage {
				access = gputypes.StorageTextureAccessReadOnly
			}
			e.StorageTexture = &gputypes.StorageTextureBindingLayout{
				Access:        access,
				Format:        b.Format,
				ViewDimension: b.ViewDimension,
			}
		case BindingSampler:
			e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		}
		entries = append(entries, e)
	}
	return entries
}

// EntryPoint is a reflected shader entry point.
type EntryPoint struct {
	Name      string
	Stage     gputypes.ShaderStage
	Workgroup [3]uint32
}

// Reflection is the result of reflecting a WGSL module.
type Reflection struct {
	Layout      *Layout
	EntryPoints []EntryPoint
}

// Stages returns the union of the entry point stages.
func (r *Reflection) Stages() gputypes.ShaderStages {
	var s gputypes.ShaderStages
	for _, ep := range r.EntryPoints {
		s |= ep.Stage
	}
	return s
}

// EntryPoint finds an entry point by name.
func (r *Reflection) EntryPoint(name string) (EntryPoint, bool) {
	for _, ep := range r.EntryPoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Reflect parses WGSL source and derives its descriptor layout and entry
// points. Every binding is visible to every stage the module declares.
func Reflect(source string) (*Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse shader: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("pipeline: lower shader: %w", err)
	}

	refl := &Reflection{}
	for _, ep := range module.EntryPoints {
		refl.EntryPoints = append(refl.EntryPoints, EntryPoint{
			Name:      ep.Name,
			Stage:     shaderStage(ep.Stage),
			Workgroup: ep.Workgroup,
		})
	}
	stages := refl.Stages()

	var bindings []Binding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		b, ok := reflectBinding(module, gv)
		if !ok {
			continue
		}
		b.Stages = stages
		bindings = append(bindings, b)
	}

	refl.Layout, err = NewLayout(bindings...)
	if err != nil {
		return nil, err
	}
	return refl, nil
}

func shaderStage(s ir.ShaderStage) gputypes.ShaderStage {
	switch s {
	case ir.StageVertex:
		return gputypes.ShaderStageVertex
	case ir.StageFragment:
		return gputypes.ShaderStageFragment
	case ir.StageCompute:
		return gputypes.ShaderStageCompute
	default:
		return gputypes.ShaderStageNone
	}
}

func reflectBinding(module *ir.Module, gv ir.GlobalVariable) (Binding, bool) {
	b := Binding{
		Descriptor: Descriptor{Group: gv.Binding.Group, Binding: gv.Binding.Binding},
		Name:       gv.Name,
	}

	switch gv.Space {
	case ir.SpaceUniform:
		b.Kind = BindingUniformBuffer
		return b, true
	case ir.SpaceStorage:
		b.Kind = BindingStorageBuffer
		if gv.Access == ir.StorageRead {
			b.Kind = BindingReadOnlyStorageBuffer
		}
		return b, true
	case ir.SpaceHandle:
	default:
		return b, false
	}

	inner := typeInner(module, gv.Type)
	if arr, ok := inner.(ir.BindingArrayType); ok {
		inner = typeInner(module, arr.Base)
	}

	switch t := inner.(type) {
	case ir.SamplerType:
		b.Kind = BindingSampler
	case ir.AccelerationStructureType:
		b.Kind = BindingAccelerationStructure
	case ir.ImageType:
		b.ViewDimension = viewDimension(t)
		b.Multisampled = t.Multisampled
		switch t.Class {
		case ir.ImageClassDepth:
			b.Kind = BindingDepthImage
		case ir.ImageClassStorage:
			b.Kind = BindingStorageImage
			if t.StorageAccess == ir.StorageAccessRead {
				b.Kind = BindingReadOnlyStorageImage
			}
			b.Format = storageFormat(t.StorageFormat)
		default:
			b.Kind = BindingSampledImage
		}
	default:
		return b, false
	}
	return b, true
}

func typeInner(module *ir.Module, h ir.TypeHandle) ir.TypeInner {
	if int(h) >= len(module.Types) {
		return nil
	}
	return module.Types[h].Inner
}

func viewDimension(t ir.ImageType) gputypes.TextureViewDimension {
	switch t.Dim {
	case ir.Dim1D:
		return gputypes.TextureViewDimension1D
	case ir.Dim3D:
		return gputypes.TextureViewDimension3D
	case ir.DimCube:
		if t.Arrayed {
			return gputypes.TextureViewDimensionCubeArray
		}
		return gputypes.TextureViewDimensionCube
	}
	if t.Arrayed {
		return gputypes.TextureViewDimension2DArray
	}
	return gputypes.TextureViewDimension2D
}

func storageFormat(f ir.StorageFormat) gputypes.TextureFormat {
	switch f {
	case ir.StorageFormatRgba8Unorm:
		return gputypes.TextureFormatRGBA8Unorm
	case ir.StorageFormatRgba8Snorm:
		return gputypes.TextureFormatRGBA8Snorm
	case ir.StorageFormatRgba8Uint:
		return gputypes.TextureFormatRGBA8Uint
	case ir.StorageFormatBgra8Unorm:
		return gputypes.TextureFormatBGRA8Unorm
	case ir.StorageFormatR32Float:
		return gputypes.TextureFormatR32Float
	case ir.StorageFormatR32Uint:
		return gputypes.TextureFormatR32Uint
	case ir.StorageFormatRg32Float:
		return gputypes.TextureFormatRG32Float
	case ir.StorageFormatRgba16Float:
		return gputypes.TextureFormatRGBA16Float
	case ir.StorageFormatRgba32Float:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatUndefined
	}
}

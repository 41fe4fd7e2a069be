// Package framefile loads declarative frame descriptions: the resources a
// frame binds and the passes it declares over them. Frames are written in
// HCL or YAML and turned into a rendergraph.Graph by Build.
package framefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gputypes"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidFrame is wrapped by every validation error.
var ErrInvalidFrame = errors.New("framefile: invalid frame")

// Pass operations. Passes with an op other than OpDeclare are declared
// through the graph's transfer helpers and carry the helpers' labels.
const (
	OpDeclare = ""      // plain access declarations and attachments
	OpClear   = "clear" // clear every written resource
	OpFill    = "fill"  // fill written buffers with Value
	OpCopy    = "copy"  // copy the single read resource into the single written one
)

// Frame is a decoded frame description.
type Frame struct {
	Label   string    `hcl:"label,optional" yaml:"label"`
	Width   uint32    `hcl:"width,optional" yaml:"width"`
	Height  uint32    `hcl:"height,optional" yaml:"height"`
	Reorder *bool     `hcl:"reorder,optional" yaml:"reorder"`
	Merge   *bool     `hcl:"merge,optional" yaml:"merge"`
	Buffers []*Buffer `hcl:"buffer,block" yaml:"buffers"`
	Images  []*Image  `hcl:"image,block" yaml:"images"`
	Passes  []*Pass   `hcl:"pass,block" yaml:"passes"`
}

// Buffer declares a buffer resource.
type Buffer struct {
	Name   string `hcl:"name,label" yaml:"name"`
	Size   uint64 `hcl:"size" yaml:"size"`
	Leased bool   `hcl:"leased,optional" yaml:"leased"`
}

// Image declares a 2D image resource. Width and Height default to the
// frame's size.
type Image struct {
	Name    string `hcl:"name,label" yaml:"name"`
	Format  string `hcl:"format" yaml:"format"`
	Width   uint32 `hcl:"width,optional" yaml:"width"`
	Height  uint32 `hcl:"height,optional" yaml:"height"`
	Samples uint32 `hcl:"samples,optional" yaml:"samples"`
	Leased  bool   `hcl:"leased,optional" yaml:"leased"`
}

// Pass declares one pass.
type Pass struct {
	Name   string   `hcl:"name,label" yaml:"name"`
	Op     string   `hcl:"op,optional" yaml:"op"`
	Reads  []string `hcl:"reads,optional" yaml:"reads"`
	Writes []string `hcl:"writes,optional" yaml:"writes"`
	Color  []string `hcl:"color,optional" yaml:"color"`
	Depth  string   `hcl:"depth,optional" yaml:"depth"`
	Load   string   `hcl:"load,optional" yaml:"load"`
	Store  string   `hcl:"store,optional" yaml:"store"`
	Value  float64  `hcl:"value,optional" yaml:"value"`
}

// Load reads and validates the frame at path. The extension picks the
// format: .hcl, .yaml or .yml. width and height are the default frame size
// and, in HCL, the values of the width and height variables.
func Load(path string, width, height uint32) (*Frame, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("framefile: read %s: %w", path, err)
	}
	return Parse(path, src, width, height)
}

// Parse decodes and validates src. name is used for diagnostics and to pick
// the format by extension.
func Parse(name string, src []byte, width, height uint32) (*Frame, error) {
	var (
		f   *Frame
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".hcl":
		f, err = parseHCL(name, src, width, height)
	case ".yaml", ".yml":
		f, err = parseYAML(name, src)
	default:
		return nil, fmt.Errorf("framefile: %s: unsupported extension %q", name, ext)
	}
	if err != nil {
		return nil, err
	}
	f.normalize(name, width, height)
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// normalize fills defaults and puts names into NFC so that references match
// declarations however the editor composed them.
func (f *Frame) normalize(name string, width, height uint32) {
	if f.Label == "" {
		f.Label = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if f.Width == 0 {
		f.Width = width
	}
	if f.Height == 0 {
		f.Height = height
	}
	for _, b := range f.Buffers {
		b.Name = norm.NFC.String(b.Name)
	}
	for _, img := range f.Images {
		img.Name = norm.NFC.String(img.Name)
		if img.Width == 0 {
			img.Width = f.Width
		}
		if img.Height == 0 {
			img.Height = f.Height
		}
		if img.Samples == 0 {
			img.Samples = 1
		}
		img.Format = strings.ToLower(img.Format)
	}
	for _, p := range f.Passes {
		p.Name = norm.NFC.String(p.Name)
		p.Depth = norm.NFC.String(p.Depth)
		for _, names := range [][]string{p.Reads, p.Writes, p.Color} {
			for i, n := range names {
				names[i] = norm.NFC.String(n)
			}
		}
		p.Op = strings.ToLower(p.Op)
		p.Load = strings.ToLower(p.Load)
		p.Store = strings.ToLower(p.Store)
	}
}

func (f *Frame) validate() error {
	kinds := make(map[string]string)
	declare := func(name, kind string) error {
		if name == "" {
			return fmt.Errorf("%w: unnamed %s", ErrInvalidFrame, kind)
		}
		if prev, ok := kinds[name]; ok {
			return fmt.Errorf("%w: %s %q already declared as %s", ErrInvalidFrame, kind, name, prev)
		}
		kinds[name] = kind
		return nil
	}
	for _, b := range f.Buffers {
		if err := declare(b.Name, "buffer"); err != nil {
			return err
		}
		if b.Size == 0 {
			return fmt.Errorf("%w: buffer %q has zero size", ErrInvalidFrame, b.Name)
		}
	}
	for _, img := range f.Images {
		if err := declare(img.Name, "image"); err != nil {
			return err
		}
		if _, ok := formats[img.Format]; !ok {
			return fmt.Errorf("%w: image %q has unknown format %q", ErrInvalidFrame, img.Name, img.Format)
		}
		if img.Width == 0 || img.Height == 0 {
			return fmt.Errorf("%w: image %q has zero extent", ErrInvalidFrame, img.Name)
		}
	}

	images := make(map[string]*Image, len(f.Images))
	for _, img := range f.Images {
		images[img.Name] = img
	}
	seen := make(map[string]bool)
	for _, p := range f.Passes {
		if p.Name == "" {
			return fmt.Errorf("%w: unnamed pass", ErrInvalidFrame)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: pass %q declared twice", ErrInvalidFrame, p.Name)
		}
		seen[p.Name] = true
		if err := p.validate(kinds); err != nil {
			return err
		}
		if err := p.validateAttachments(images); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pass) validate(kinds map[string]string) error {
	ref := func(name, want string) error {
		kind, ok := kinds[name]
		if !ok {
			return fmt.Errorf("%w: pass %q uses unknown resource %q", ErrInvalidFrame, p.Name, name)
		}
		if want != "" && kind != want {
			return fmt.Errorf("%w: pass %q needs %s %q, got %s", ErrInvalidFrame, p.Name, want, name, kind)
		}
		return nil
	}
	for _, names := range [][]string{p.Reads, p.Writes} {
		for _, n := range names {
			if err := ref(n, ""); err != nil {
				return err
			}
		}
	}
	for _, n := range p.Color {
		if err := ref(n, "image"); err != nil {
			return err
		}
	}
	if p.Depth != "" {
		if err := ref(p.Depth, "image"); err != nil {
			return err
		}
	}
	if _, ok := loadOps[p.Load]; !ok {
		return fmt.Errorf("%w: pass %q has unknown load op %q", ErrInvalidFrame, p.Name, p.Load)
	}
	if _, ok := storeOps[p.Store]; !ok {
		return fmt.Errorf("%w: pass %q has unknown store op %q", ErrInvalidFrame, p.Name, p.Store)
	}

	attached := len(p.Color) > 0 || p.Depth != ""
	switch p.Op {
	case OpDeclare:
	case OpClear:
		if attached || len(p.Writes) == 0 {
			return fmt.Errorf("%w: clear pass %q needs writes and no attachments", ErrInvalidFrame, p.Name)
		}
	case OpFill:
		if attached || len(p.Writes) == 0 {
			return fmt.Errorf("%w: fill pass %q needs writes and no attachments", ErrInvalidFrame, p.Name)
		}
		for _, n := range p.Writes {
			if err := ref(n, "buffer"); err != nil {
				return err
			}
		}
	case OpCopy:
		if attached || len(p.Reads) != 1 || len(p.Writes) != 1 {
			return fmt.Errorf("%w: copy pass %q needs one read and one write", ErrInvalidFrame, p.Name)
		}
		if p.Reads[0] == p.Writes[0] {
			return fmt.Errorf("%w: copy pass %q copies %q onto itself", ErrInvalidFrame, p.Name, p.Reads[0])
		}
	default:
		return fmt.Errorf("%w: pass %q has unknown op %q", ErrInvalidFrame, p.Name, p.Op)
	}
	return nil
}

// validateAttachments checks that attachments share one extent and sample
// count and that color and depth slots hold matching formats.
func (p *Pass) validateAttachments(images map[string]*Image) error {
	var first *Image
	check := func(img *Image, depth bool) error {
		if formats[img.Format].format.IsDepthStencil() != depth {
			return fmt.Errorf("%w: pass %q attaches %q (%s) in the wrong slot", ErrInvalidFrame, p.Name, img.Name, img.Format)
		}
		if first == nil {
			first = img
			return nil
		}
		if img.Width != first.Width || img.Height != first.Height || img.Samples != first.Samples {
			return fmt.Errorf("%w: pass %q attaches %q (%dx%dx%d) next to %q (%dx%dx%d)", ErrInvalidFrame, p.Name,
				img.Name, img.Width, img.Height, img.Samples, first.Name, first.Width, first.Height, first.Samples)
		}
		return nil
	}
	for i, name := range p.Color {
		for _, prev := range p.Color[:i] {
			if prev == name {
				return fmt.Errorf("%w: pass %q attaches %q twice", ErrInvalidFrame, p.Name, name)
			}
		}
		if err := check(images[name], false); err != nil {
			return err
		}
	}
	if p.Depth != "" {
		return check(images[p.Depth], true)
	}
	return nil
}

// format is a texture format the frame syntax can name.
type format struct {
	format        gputypes.TextureFormat
	bytesPerPixel uint32
}

var formats = map[string]format{
	"r32float":             {gputypes.TextureFormatR32Float, 4},
	"rgba8unorm":           {gputypes.TextureFormatRGBA8Unorm, 4},
	"bgra8unorm":           {gputypes.TextureFormatBGRA8Unorm, 4},
	"rgba16float":          {gputypes.TextureFormatRGBA16Float, 8},
	"rgba32float":          {gputypes.TextureFormatRGBA32Float, 16},
	"depth32float":         {gputypes.TextureFormatDepth32Float, 4},
	"depth24plus-stencil8": {gputypes.TextureFormatDepth24PlusStencil8, 4},
}

var loadOps = map[string]gputypes.LoadOp{
	"":      gputypes.LoadOpClear,
	"clear": gputypes.LoadOpClear,
	"load":  gputypes.LoadOpLoad,
}

var storeOps = map[string]gputypes.StoreOp{
	"":        gputypes.StoreOpStore,
	"store":   gputypes.StoreOpStore,
	"discard": gputypes.StoreOpDiscard,
}

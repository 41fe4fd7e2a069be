package framefile

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph"
	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/pool"
)

const (
	bufferUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageUniform |
		gputypes.BufferUsageVertex | gputypes.BufferUsageIndex |
		gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	imageUsage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
		gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
)

// Built is a graph built from a frame together with the resources it owns.
type Built struct {
	Graph *rendergraph.Graph
	Nodes map[string]rendergraph.AnyNode

	owned []interface{ Destroy() }
}

// Destroy frees the resources Build created outside the pool. Call it once
// the submission of Graph has been released.
func (b *Built) Destroy() {
	for _, r := range b.owned {
		r.Destroy()
	}
	b.owned = nil
}

// Build creates the frame's resources on dev and declares its passes on a
// new graph. Resources marked leased come from p; with a nil p every
// resource is created directly and freed by Built.Destroy.
func (f *Frame) Build(dev *driver.Device, p pool.Pool) (*Built, error) {
	opts := []rendergraph.Option{rendergraph.WithLabel(f.Label)}
	if f.Reorder != nil {
		opts = append(opts, rendergraph.WithReorder(*f.Reorder))
	}
	if f.Merge != nil {
		opts = append(opts, rendergraph.WithMerge(*f.Merge))
	}
	b := &Built{Graph: rendergraph.New(opts...), Nodes: make(map[string]rendergraph.AnyNode)}

	for _, spec := range f.Buffers {
		n, err := b.buffer(dev, p, spec)
		if err != nil {
			b.Destroy()
			return nil, err
		}
		b.Nodes[spec.Name] = n
	}
	for _, spec := range f.Images {
		n, err := b.image(dev, p, spec)
		if err != nil {
			b.Destroy()
			return nil, err
		}
		b.Nodes[spec.Name] = n
	}
	for _, spec := range f.Passes {
		b.pass(spec)
	}
	return b, nil
}

func (b *Built) buffer(dev *driver.Device, p pool.Pool, spec *Buffer) (rendergraph.BufferNode, error) {
	info := driver.BufferInfo{Size: spec.Size, Usage: bufferUsage}
	if spec.Leased && p != nil {
		l, err := p.LeaseBuffer(info)
		if err != nil {
			return rendergraph.BufferNode{}, fmt.Errorf("framefile: buffer %q: %w", spec.Name, err)
		}
		return b.Graph.BindBufferLease(l), nil
	}
	buf, err := driver.NewBuffer(dev, info)
	if err != nil {
		return rendergraph.BufferNode{}, fmt.Errorf("framefile: buffer %q: %w", spec.Name, err)
	}
	b.owned = append(b.owned, buf)
	return b.Graph.BindBuffer(buf), nil
}

func (b *Built) image(dev *driver.Device, p pool.Pool, spec *Image) (rendergraph.ImageNode, error) {
	info := driver.ImageInfo{
		Width:       spec.Width,
		Height:      spec.Height,
		Format:      formats[spec.Format].format,
		SampleCount: spec.Samples,
		Usage:       imageUsage,
	}
	if spec.Leased && p != nil {
		l, err := p.LeaseImage(info)
		if err != nil {
			return rendergraph.ImageNode{}, fmt.Errorf("framefile: image %q: %w", spec.Name, err)
		}
		return b.Graph.BindImageLease(l), nil
	}
	img, err := driver.NewImage(dev, info)
	if err != nil {
		return rendergraph.ImageNode{}, fmt.Errorf("framefile: image %q: %w", spec.Name, err)
	}
	b.owned = append(b.owned, img)
	return b.Graph.BindImage(img), nil
}

func (b *Built) pass(spec *Pass) {
	g := b.Graph
	switch spec.Op {
	case OpClear:
		for _, name := range spec.Writes {
			switch n := b.Nodes[name].(type) {
			case rendergraph.ImageNode:
				if g.ImageInfo(n).Format.IsDepthStencil() {
					g.ClearDepthStencilImage(n, float32(spec.Value), 0)
				} else {
					v := spec.Value
					g.ClearColorImage(n, gputypes.Color{R: v, G: v, B: v, A: 1})
				}
			case rendergraph.BufferNode:
				g.FillBuffer(n, 0, g.BufferInfo(n).Size, fillWord(spec.Value))
			}
		}
		return
	case OpFill:
		for _, name := range spec.Writes {
			n := b.Nodes[name].(rendergraph.BufferNode)
			g.FillBuffer(n, 0, g.BufferInfo(n).Size, fillWord(spec.Value))
		}
		return
	case OpCopy:
		b.copy(b.Nodes[spec.Reads[0]], b.Nodes[spec.Writes[0]])
		return
	}

	pb := g.BeginPass(spec.Name)
	for _, name := range spec.Reads {
		pb.Read(b.Nodes[name])
	}
	for _, name := range spec.Writes {
		pb.Write(b.Nodes[name])
	}
	load, store := loadOps[spec.Load], storeOps[spec.Store]
	for slot, name := range spec.Color {
		pb.AttachColor(slot, b.Nodes[name].(rendergraph.ImageNode), load, store)
		if load == gputypes.LoadOpClear {
			v := spec.Value
			pb.ClearColor(slot, gputypes.Color{R: v, G: v, B: v, A: 1})
		}
	}
	if spec.Depth != "" {
		pb.AttachDepthStencil(b.Nodes[spec.Depth].(rendergraph.ImageNode), load, store)
	}
	pb.Submit()
}

func (b *Built) copy(src, dst rendergraph.AnyNode) {
	g := b.Graph
	switch s := src.(type) {
	case rendergraph.BufferNode:
		switch d := dst.(type) {
		case rendergraph.BufferNode:
			g.CopyBuffer(s, d)
		case rendergraph.ImageNode:
			g.CopyBufferToImage(s, d, rowPitch(g.ImageInfo(d)))
		}
	case rendergraph.ImageNode:
		switch d := dst.(type) {
		case rendergraph.BufferNode:
			g.CopyImageToBuffer(s, d, rowPitch(g.ImageInfo(s)))
		case rendergraph.ImageNode:
			g.CopyImage(s, d)
		}
	}
}

func rowPitch(info driver.ImageInfo) uint32 {
	for _, f := range formats {
		if f.format == info.Format {
			return info.Width * f.bytesPerPixel
		}
	}
	return info.Width * 4
}

// fillWord clamps v to a 32-bit fill pattern.
func fillWord(v float64) uint32 {
	switch {
	case v <= 0:
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

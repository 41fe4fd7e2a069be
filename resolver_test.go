package rendergraph

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/pipeline"
)

const copyWGSL = `
@group(0) @binding(0) var<storage, read> src: array<f32>;
@group(0) @binding(1) var<storage, read_write> dst: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    dst[id.x] = src[id.x];
}
`

var (
	srcSlot = pipeline.Descriptor{Group: 0, Binding: 0}
	dstSlot = pipeline.Descriptor{Group: 0, Binding: 1}
)

const flatWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(i & 1u), f32(i >> 1u), 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 1.0, 1.0);
}
`

// newFlatPipeline returns a graphic pipeline drawing into one RGBA8 color
// target without depth.
func newFlatPipeline(t *testing.T, dev *driver.Device) *pipeline.Graphic {
	t.Helper()
	p, err := pipeline.NewGraphic(dev, pipeline.GraphicInfo{
		Label:        "flat",
		Source:       flatWGSL,
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
	})
	if err != nil {
		t.Fatalf("NewGraphic() error = %v", err)
	}
	t.Cleanup(p.Destroy)
	return p
}

func newCopyPipeline(t *testing.T, dev *driver.Device) *pipeline.Compute {
	t.Helper()
	c, err := pipeline.NewCompute(dev, pipeline.ComputeInfo{Label: "copy", Source: copyWGSL})
	if err != nil {
		t.Fatalf("NewCompute() error = %v", err)
	}
	t.Cleanup(c.Destroy)
	return c
}

func TestScenarioWriteThenRead(t *testing.T) {
	dev, _ := newTestDevice(t)
	g := New()
	img := g.BindImage(newColor(t, dev))

	g.BeginPass("a").Write(img).Submit()
	g.BeginPass("b").BindPipeline(newCopyPipeline(t, dev)).Read(img).Submit()

	s := g.Resolve().Schedule()
	if len(s.Batches) != 2 {
		t.Fatalf("len(Batches) = %d, want 2\n%s", len(s.Batches), s)
	}
	between := s.Batches[1].Barriers
	if len(between) != 1 {
		t.Fatalf("barriers before b = %d, want 1\n%s", len(between), s)
	}
	br := between[0]
	if br.Node != img.Node {
		t.Errorf("barrier node = %s, want %s", br.Node, img)
	}
	if br.Before != driver.Of(driver.AccessTransferWrite) {
		t.Errorf("barrier Before = %s, want TransferWrite", br.Before)
	}
	if br.After != driver.Of(driver.AccessComputeShaderReadSampledImage) {
		t.Errorf("barrier After = %s, want ComputeShaderReadSampledImage", br.After)
	}
}

func TestReadAfterReadBarriers(t *testing.T) {
	dev, _ := newTestDevice(t)
	tests := []struct {
		name  string
		last  func(g *Graph, pipe *pipeline.Compute, b BufferNode)
		want  int
		after driver.AccessSet
	}{
		{
			name: "transfer read after compute read",
			last: func(g *Graph, _ *pipeline.Compute, b BufferNode) {
				g.BeginPass("r2").Read(b).Submit()
			},
			want:  1,
			after: driver.Of(driver.AccessComputeShaderReadOther, driver.AccessTransferRead),
		},
		{
			name: "same compute read",
			last: func(g *Graph, pipe *pipeline.Compute, b BufferNode) {
				g.BeginPass("r2").BindPipeline(pipe).ReadDescriptor(srcSlot, b).Submit()
			},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipe := newCopyPipeline(t, dev)
			g := New(WithReorder(false))
			b := g.BindBuffer(newTestBuffer(t, dev, 256))
			g.BeginPass("w").Write(b).Submit()
			g.BeginPass("r1").BindPipeline(pipe).ReadDescriptor(srcSlot, b).Submit()
			tt.last(g, pipe, b)

			r := g.Resolve()
			s := r.Schedule()
			if len(s.Batches) != 3 {
				t.Fatalf("len(Batches) = %d, want 3\n%s", len(s.Batches), s)
			}
			if got := s.Batches[1].Barriers; len(got) != 1 || got[0].After != driver.Of(driver.AccessComputeShaderReadOther) {
				t.Errorf("barriers before r1 = %v, want one to ComputeShaderReadOther", got)
			}
			got := s.Batches[2].Barriers
			if len(got) != tt.want {
				t.Fatalf("barriers before r2 = %d, want %d\n%s", len(got), tt.want, s)
			}
			if tt.want > 0 && got[0].After != tt.after {
				t.Errorf("barrier After = %s, want %s", got[0].After, tt.after)
			}
			r.Discard()
		})
	}
}

func TestClearAfterDiscardStartsNewRenderPass(t *testing.T) {
	dev, gpu := newTestDevice(t)
	g := New()
	c := g.BindImage(newColor(t, dev))
	blue := gputypes.Color{B: 1, A: 1}
	g.BeginPass("a").AttachColor(0, c, gputypes.LoadOpLoad, gputypes.StoreOpDiscard).Submit()
	g.BeginPass("b").AttachColor(0, c, gputypes.LoadOpClear, gputypes.StoreOpStore).ClearColor(0, blue).Submit()

	sub, err := g.Resolve().Submit(dev)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	defer sub.Release()
	if len(gpu.renderPasses) != 2 {
		t.Fatalf("native render passes = %d, want 2", len(gpu.renderPasses))
	}
	got := gpu.renderPasses[1].ColorAttachments[0]
	if got.LoadOp != gputypes.LoadOpClear || got.ClearValue != blue {
		t.Errorf("second render pass load = %v clear = %v, want Clear %v", got.LoadOp, got.ClearValue, blue)
	}
}

func TestScenarioMergedColorPasses(t *testing.T) {
	dev, gpu := newTestDevice(t)
	g := New()
	depth := g.BindImage(newTestImage(t, dev, 512, 512, gputypes.TextureFormatDepth32Float, 1))
	c0 := g.BindImage(newTestImage(t, dev, 512, 512, gputypes.TextureFormatRGBA8Unorm, 1))
	c1 := g.BindImage(newTestImage(t, dev, 512, 512, gputypes.TextureFormatRGBA8Unorm, 1))

	draws := 0
	g.BeginPass("first").
		AttachColor(0, c0, gputypes.LoadOpClear, gputypes.StoreOpStore).
		AttachDepthStencil(depth, gputypes.LoadOpClear, gputypes.StoreOpStore).
		Execute(func(r *Recorder) {
			if got := r.ColorIndex(0); got != 0 {
				t.Errorf("first ColorIndex(0) = %d, want 0", got)
			}
			draws++
		}).
		Submit()
	g.BeginPass("second").
		AttachColor(0, c1, gputypes.LoadOpClear, gputypes.StoreOpStore).
		AttachDepthStencil(depth, gputypes.LoadOpLoad, gputypes.StoreOpStore).
		Execute(func(r *Recorder) {
			if got := r.ColorIndex(0); got != 1 {
				t.Errorf("second ColorIndex(0) = %d, want 1", got)
			}
			draws++
		}).
		Submit()

	r := g.Resolve()
	s := r.Schedule()
	if len(s.Batches) != 1 {
		t.Fatalf("len(Batches) = %d, want 1\n%s", len(s.Batches), s)
	}
	if got := s.Batches[0].Passes; !slices.Equal(got, []string{"first", "second"}) {
		t.Errorf("Passes = %v, want [first second]", got)
	}

	sub, err := r.Submit(dev)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	defer sub.Release()
	if draws != 2 {
		t.Errorf("callbacks run = %d, want 2", draws)
	}
	if len(gpu.renderPasses) != 1 {
		t.Fatalf("native render passes = %d, want 1", len(gpu.renderPasses))
	}
	if len(gpu.textures) != 3 {
		t.Errorf("texture barriers = %d, want 3 first-use transitions", len(gpu.textures))
	}
	rp := gpu.renderPasses[0]
	if len(rp.ColorAttachments) != 2 {
		t.Errorf("color attachments = %d, want 2", len(rp.ColorAttachments))
	}
	if rp.DepthStencilAttachment == nil || rp.DepthStencilAttachment.DepthLoadOp != gputypes.LoadOpClear {
		t.Errorf("depth attachment = %+v, want cleared on load", rp.DepthStencilAttachment)
	}
}

func TestScenarioIndependentCompute(t *testing.T) {
	dev, _ := newTestDevice(t)
	pipe := newCopyPipeline(t, dev)
	g := New()
	for _, label := range []string{"x", "y", "z"} {
		src := g.BindBuffer(newTestBuffer(t, dev, 256))
		dst := g.BindBuffer(newTestBuffer(t, dev, 256))
		g.BeginPass(label).
			BindPipeline(pipe).
			ReadDescriptor(srcSlot, src).
			WriteDescriptor(dstSlot, dst).
			Submit()
	}

	r := g.Resolve()
	if got := r.Order(); !slices.Equal(got, []string{"x", "y", "z"}) {
		t.Errorf("Order() = %v, want [x y z]", got)
	}
	s := r.Schedule()
	if len(s.Batches) != 3 {
		t.Fatalf("len(Batches) = %d, want 3", len(s.Batches))
	}
	if got := s.Barriers(); got != 0 {
		t.Errorf("Barriers() = %d, want 0\n%s", got, s)
	}
}

func TestScenarioUndeclaredRead(t *testing.T) {
	dev, gpu := newTestDevice(t)
	g := New()
	declared := g.BindBuffer(newTestBuffer(t, dev, 64))
	hidden := newTestBuffer(t, dev, 64)
	n := g.BindBuffer(hidden)

	g.BeginPass("ok").Write(declared).Submit()
	g.BeginPass("bad").
		Write(declared).
		Execute(func(r *Recorder) { r.Buffer(n) }).
		Submit()

	r := g.Resolve()
	mustPanic(t, ErrUndeclaredAccess, func() { _, _ = r.Submit(dev) })

	if len(gpu.queue.submitted) != 0 {
		t.Errorf("submitted %d times, want 0", len(gpu.queue.submitted))
	}
	if gpu.discarded != 1 {
		t.Errorf("discarded encoders = %d, want 1", gpu.discarded)
	}
	if got := g.bindings[declared.index].res.Access(); !got.Empty() {
		t.Errorf("declared buffer access = %s after failed recording, want Nothing", got)
	}
}

func TestReorderFrontLoadsChains(t *testing.T) {
	dev, _ := newTestDevice(t)
	g := New()
	a := g.BindBuffer(newTestBuffer(t, dev, 64))
	b := g.BindBuffer(newTestBuffer(t, dev, 64))

	g.BeginPass("lone").Write(a).Submit()
	g.BeginPass("head").Write(b).Submit()
	g.BeginPass("mid").ReadWrite(b).Submit()
	g.BeginPass("tail").Read(b).Submit()

	tests := []struct {
		reorder bool
		want    []string
	}{
		{false, []string{"lone", "head", "mid", "tail"}},
		{true, []string{"head", "mid", "lone", "tail"}},
	}
	for _, tt := range tests {
		g2 := rebuild(t, dev, tt.reorder, g)
		if got := g2.Resolve().Order(); !slices.Equal(got, tt.want) {
			t.Errorf("reorder=%v: Order() = %v, want %v", tt.reorder, got, tt.want)
		}
	}
}

// rebuild copies the pass declarations of src into a fresh graph over new
// buffers, so one shape can be resolved under different options.
func rebuild(t *testing.T, dev *driver.Device, reorder bool, src *Graph) *Graph {
	t.Helper()
	g := New(WithReorder(reorder))
	nodes := make([]BufferNode, len(src.bindings))
	for i := range src.bindings {
		nodes[i] = g.BindBuffer(newTestBuffer(t, dev, 64))
	}
	for _, p := range src.passes {
		b := g.BeginPass(p.label)
		for _, d := range p.decls {
			switch d.intent {
			case IntentRead:
				b.Read(nodes[d.node.index])
			case IntentWrite:
				b.Write(nodes[d.node.index])
			default:
				b.ReadWrite(nodes[d.node.index])
			}
		}
		b.Submit()
	}
	return g
}

// randomGraph declares passes with random intents over a few buffers and
// images, mixing command and graphic passes.
func randomGraph(t *testing.T, dev *driver.Device, rng *rand.Rand, opts ...Option) *Graph {
	t.Helper()
	g := New(opts...)
	var nodes []AnyNode
	for range 3 {
		nodes = append(nodes, g.BindBuffer(newTestBuffer(t, dev, 64)))
	}
	var colors []ImageNode
	for range 3 {
		n := g.BindImage(newColor(t, dev))
		colors = append(colors, n)
		nodes = append(nodes, n)
	}
	depth := g.BindImage(newDepth(t, dev))

	for i := range 12 {
		b := g.BeginPass(string(rune('a' + i)))
		if rng.IntN(3) == 0 {
			c := colors[rng.IntN(len(colors))]
			load := gputypes.LoadOpClear
			if rng.IntN(2) == 0 {
				load = gputypes.LoadOpLoad
			}
			b.AttachColor(0, c, load, gputypes.StoreOpStore)
			if rng.IntN(2) == 0 {
				b.AttachDepthStencil(depth, gputypes.LoadOpLoad, gputypes.StoreOpStore)
			}
		}
		for range 1 + rng.IntN(3) {
			n := nodes[rng.IntN(len(nodes))]
			switch rng.IntN(3) {
			case 0:
				b.Read(n)
			case 1:
				b.Write(n)
			default:
				b.ReadWrite(n)
			}
		}
		b.Submit()
	}
	return g
}

func TestPropertyTopologicalSoundness(t *testing.T) {
	dev, _ := newTestDevice(t)
	for seed := range uint64(50) {
		rng := rand.New(rand.NewPCG(seed, 7))
		g := randomGraph(t, dev, rng)
		r := g.Resolve()

		pos := make([]int, len(g.passes))
		for i, p := range r.order {
			pos[p] = i
		}
		for j, pj := range g.passes {
			for i := range j {
				if conflicts(g.passes[i], pj) && pos[i] > pos[j] {
					t.Fatalf("seed %d: %s scheduled before conflicting earlier %s: %v",
						seed, pj.label, g.passes[i].label, r.Order())
				}
			}
		}
		last := -1
		for _, b := range r.batches {
			for _, p := range b.passes {
				if pos[p.index] <= last {
					t.Fatalf("seed %d: batches out of schedule order", seed)
				}
				last = pos[p.index]
			}
		}
	}
}

func conflicts(a, b *pass) bool {
	for _, u := range a.uses {
		v := b.set(u.index)
		if !v.Empty() && (u.set.HasWrite() || v.HasWrite()) {
			return true
		}
	}
	return false
}

func TestPropertyBarrierMinimality(t *testing.T) {
	dev, _ := newTestDevice(t)
	for seed := range uint64(50) {
		rng := rand.New(rand.NewPCG(seed, 11))
		g := randomGraph(t, dev, rng)
		r := g.Resolve()
		s := r.Schedule()

		// visible holds what the last barrier of each binding synchronized.
		visible := make([]driver.AccessSet, len(g.bindings))
		for bi, b := range r.batches {
			got := make(map[int]Barrier)
			for _, br := range s.Batches[bi].Barriers {
				if _, dup := got[br.Node.index]; dup {
					t.Fatalf("seed %d batch %d: two barriers for node %d", seed, bi, br.Node.index)
				}
				got[br.Node.index] = br
			}
			for _, u := range b.uses {
				prev, next := visible[u.index], u.set
				image := g.bindings[u.index].kind == ImageKind
				var want bool
				if prev.Empty() {
					want = image
				} else {
					want = prev.HasWrite() || next.HasWrite() ||
						next.Stage()&^prev.Stage() != 0 || next.Mask()&^prev.Mask() != 0 ||
						(image && prev.Layout() != next.Layout())
				}
				br, ok := got[u.index]
				if ok != want {
					t.Fatalf("seed %d batch %d node %d: barrier = %v, want %v (%s -> %s)",
						seed, bi, u.index, ok, want, prev, next)
				}
				if !ok {
					visible[u.index] = prev | next
					continue
				}
				if br.Before != prev {
					t.Fatalf("seed %d batch %d node %d: barrier Before = %s, want %s", seed, bi, u.index, br.Before, prev)
				}
				if next.Stage()&^br.After.Stage() != 0 || next.Mask()&^br.After.Mask() != 0 {
					t.Fatalf("seed %d batch %d node %d: barrier After = %s does not cover %s", seed, bi, u.index, br.After, next)
				}
				if image && br.After.Layout() != next.Layout() {
					t.Fatalf("seed %d batch %d node %d: barrier layout = %s, want %s", seed, bi, u.index, br.After.Layout(), next.Layout())
				}
				visible[u.index] = br.After
			}
		}
	}
}

func TestPropertyMergeKeepsAccessOrder(t *testing.T) {
	dev, _ := newTestDevice(t)
	for seed := range uint64(50) {
		r := randomGraph(t, dev, rand.New(rand.NewPCG(seed, 13))).Resolve()
		g := r.g

		// seq is the position each pass is recorded at.
		seq := make([]int, len(g.passes))
		batchOf := make([]int, len(g.passes))
		n := 0
		for bi, b := range r.batches {
			for _, p := range b.passes {
				seq[p.index] = n
				batchOf[p.index] = bi
				n++
			}
		}
		if n != len(g.passes) {
			t.Fatalf("seed %d: batches record %d passes, want %d", seed, n, len(g.passes))
		}

		for i := range g.bindings {
			var touching []*pass
			for _, p := range g.passes {
				if !p.set(i).Empty() {
					touching = append(touching, p)
				}
			}
			for k, pj := range touching {
				for _, pi := range touching[:k] {
					a, b := pi.set(i), pj.set(i)
					if !a.HasWrite() && !b.HasWrite() {
						continue
					}
					if seq[pi.index] > seq[pj.index] {
						t.Fatalf("seed %d node %d: %s recorded before earlier %s", seed, i, pj.label, pi.label)
					}
					if batchOf[pi.index] == batchOf[pj.index] && (a&^subpassLocal != 0 || b&^subpassLocal != 0) {
						t.Fatalf("seed %d node %d: %s and %s merged over %s -> %s", seed, i, pi.label, pj.label, a, b)
					}
				}
			}
		}

		for _, b := range r.batches {
			for _, p := range b.passes[1:] {
				w0, h0, s0 := g.extent(b.passes[0])
				w, h, s := g.extent(p)
				if w != w0 || h != h0 || s != s0 {
					t.Fatalf("seed %d: merged passes differ in extent", seed)
				}
			}
		}
	}
}

func TestPropertyIdempotentDeclaration(t *testing.T) {
	dev, _ := newTestDevice(t)
	build := func(twice bool) Schedule {
		g := New()
		a := g.BindBuffer(newTestBuffer(t, dev, 64))
		img := g.BindImage(newColor(t, dev))
		b := g.BeginPass("w").Write(img).Write(a)
		if twice {
			b.Write(img).Write(a)
		}
		b.Submit()
		b = g.BeginPass("r").Read(img).Read(a)
		if twice {
			b.Read(img).Read(a)
		}
		b.Submit()
		return g.Resolve().Schedule()
	}
	once, twice := shape(build(false)), shape(build(true))
	if !slices.Equal(once, twice) {
		t.Errorf("schedule with repeated declarations = %v, want %v", twice, once)
	}
}

// shape renders a schedule without graph ids so schedules of different
// graphs compare equal.
func shape(s Schedule) []string {
	var out []string
	for _, b := range s.Batches {
		out = append(out, strings.Join(b.Passes, "+"))
		for _, br := range b.Barriers {
			out = append(out, fmt.Sprintf("%d:%s->%s", br.Node.Index(), br.Before, br.After))
		}
	}
	return out
}

func TestPropertyNodeIsolation(t *testing.T) {
	dev, _ := newTestDevice(t)
	x, y := New(), New()
	n := x.BindBuffer(newTestBuffer(t, dev, 64))
	y.BindBuffer(newTestBuffer(t, dev, 64))

	tests := []struct {
		name string
		fn   func()
	}{
		{"Read", func() { y.BeginPass("p").Read(n) }},
		{"Write", func() { y.BeginPass("p").Write(n) }},
		{"BufferInfo", func() { y.BufferInfo(n) }},
		{"UnbindBuffer", func() { y.UnbindBuffer(n) }},
		{"RecordNode", func() { _ = New().Resolve().RecordNode(dev, n) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustPanic(t, ErrForeignNode, tt.fn)
		})
	}
}

func TestMergeBlockers(t *testing.T) {
	dev, _ := newTestDevice(t)
	tests := []struct {
		name  string
		build func(g *Graph)
		want  int
	}{
		{
			name: "different extent",
			build: func(g *Graph) {
				g.BeginPass("a").AttachColor(0, g.BindImage(newColor(t, dev)), gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
				small := g.BindImage(newTestImage(t, dev, 32, 32, gputypes.TextureFormatRGBA8Unorm, 1))
				g.BeginPass("b").AttachColor(0, small, gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
			},
			want: 2,
		},
		{
			name: "clear after store",
			build: func(g *Graph) {
				c := g.BindImage(newColor(t, dev))
				g.BeginPass("a").AttachColor(0, c, gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
				g.BeginPass("b").AttachColor(0, c, gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
			},
			want: 2,
		},
		{
			name: "sampled after attachment write",
			build: func(g *Graph) {
				c := g.BindImage(newColor(t, dev))
				g.BeginPass("a").AttachColor(0, c, gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
				g.BeginPass("b").AttachColor(0, g.BindImage(newColor(t, dev)), gputypes.LoadOpClear, gputypes.StoreOpStore).Read(c).Submit()
			},
			want: 2,
		},
		{
			name: "different depth",
			build: func(g *Graph) {
				g.BeginPass("a").AttachDepthStencil(g.BindImage(newDepth(t, dev)), gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
				g.BeginPass("b").AttachDepthStencil(g.BindImage(newDepth(t, dev)), gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
			},
			want: 2,
		},
		{
			name: "clear after discard",
			build: func(g *Graph) {
				c := g.BindImage(newColor(t, dev))
				g.BeginPass("a").AttachColor(0, c, gputypes.LoadOpLoad, gputypes.StoreOpDiscard).Submit()
				g.BeginPass("b").AttachColor(0, c, gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
			},
			want: 2,
		},
		{
			name: "pipeline targets differ",
			build: func(g *Graph) {
				pipe := newFlatPipeline(t, dev)
				g.BeginPass("a").BindPipeline(pipe).AttachColor(0, g.BindImage(newColor(t, dev)), gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
				g.BeginPass("b").BindPipeline(pipe).AttachColor(0, g.BindImage(newColor(t, dev)), gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
			},
			want: 2,
		},
		{
			name: "pipeline targets match",
			build: func(g *Graph) {
				pipe := newFlatPipeline(t, dev)
				c := g.BindImage(newColor(t, dev))
				g.BeginPass("a").BindPipeline(pipe).AttachColor(0, c, gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
				g.BeginPass("b").BindPipeline(pipe).AttachColor(0, c, gputypes.LoadOpLoad, gputypes.StoreOpStore).Submit()
			},
			want: 1,
		},
		{
			name: "load after store",
			build: func(g *Graph) {
				c := g.BindImage(newColor(t, dev))
				g.BeginPass("a").AttachColor(0, c, gputypes.LoadOpClear, gputypes.StoreOpStore).Submit()
				g.BeginPass("b").AttachColor(0, c, gputypes.LoadOpLoad, gputypes.StoreOpStore).Submit()
			},
			want: 1,
		},
		{
			name: "resolve target reused",
			build: func(g *Graph) {
				msaa := g.BindImage(newTestImage(t, dev, 64, 64, gputypes.TextureFormatRGBA8Unorm, 4))
				out := g.BindImage(newColor(t, dev))
				g.BeginPass("a").AttachColor(0, msaa, gputypes.LoadOpClear, gputypes.StoreOpDiscard).ResolveColor(0, msaa, out).Submit()
				msaa2 := g.BindImage(newTestImage(t, dev, 64, 64, gputypes.TextureFormatRGBA8Unorm, 4))
				g.BeginPass("b").AttachColor(0, msaa2, gputypes.LoadOpClear, gputypes.StoreOpDiscard).ResolveColor(0, msaa2, out).Submit()
			},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			tt.build(g)
			if got := len(g.Resolve().Schedule().Batches); got != tt.want {
				t.Errorf("len(Batches) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	sampled := driver.Of(driver.AccessFragmentShaderReadSampledImage)
	computeSampled := driver.Of(driver.AccessComputeShaderReadSampledImage)
	storage := driver.Of(driver.AccessComputeShaderReadOther)
	write := driver.Of(driver.AccessTransferWrite)

	tests := []struct {
		name        string
		prev, next  driver.AccessSet
		image       bool
		want        driver.AccessSet
		wantBarrier bool
	}{
		{"first image use", 0, sampled, true, sampled, true},
		{"first buffer use", 0, write, false, write, false},
		{"unused", write, 0, true, write, false},
		{"read read same layout", sampled, computeSampled, true, sampled | computeSampled, true},
		{"covered read", sampled | computeSampled, computeSampled, true, sampled | computeSampled, false},
		{"same read", storage, storage, false, storage, false},
		{"read read layout change", sampled, storage, true, storage, true},
		{"buffer reads ignore layout", sampled, storage, false, sampled | storage, true},
		{"write after read", sampled, write, true, write, true},
		{"read after write", write, sampled, true, sampled, true},
		{"write after write", write, write, false, write, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, barrier := transition(tt.prev, tt.next, tt.image)
			if got != tt.want || barrier != tt.wantBarrier {
				t.Errorf("transition() = %s, %v, want %s, %v", got, barrier, tt.want, tt.wantBarrier)
			}
		})
	}
}

package rendergraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rendergraph/driver"
)

// testGPU is a noop device and queue that log what gets recorded and can
// be told to fail.
type testGPU struct {
	device *traceDevice
	queue  *traceQueue

	ops          []string
	textures     []hal.TextureBarrier
	buffers      []hal.BufferBarrier
	renderPasses []hal.RenderPassDescriptor
	discarded    int
	destroyed    int
	groups       int
	groupsFreed  int
}

type traceDevice struct {
	noop.Device
	gpu        *testGPU
	encoderErr error
}

func (d *traceDevice) CreateCommandEncoder(*hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	if d.encoderErr != nil {
		return nil, d.encoderErr
	}
	return &traceEncoder{gpu: d.gpu}, nil
}

func (d *traceDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.gpu.groups++
	d.gpu.log("bind group %s (%d entries)", desc.Label, len(desc.Entries))
	return d.Device.CreateBindGroup(desc)
}

func (d *traceDevice) DestroyBindGroup(hal.BindGroup) { d.gpu.groupsFreed++ }

type traceQueue struct {
	noop.Queue
	submitErr error
	submitted [][]hal.CommandBuffer
}

func (q *traceQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	if q.submitErr != nil {
		return 0, q.submitErr
	}
	q.submitted = append(q.submitted, cmds)
	return q.Queue.Submit(cmds)
}

type traceEncoder struct {
	noop.CommandEncoder
	gpu *testGPU
}

func (e *traceEncoder) BeginEncoding(label string) error {
	e.gpu.log("begin %s", label)
	return nil
}

func (e *traceEncoder) EndEncoding() (hal.CommandBuffer, error) {
	e.gpu.log("end")
	return e.CommandEncoder.EndEncoding()
}

func (e *traceEncoder) DiscardEncoding() { e.gpu.discarded++ }
func (e *traceEncoder) Destroy()         { e.gpu.destroyed++ }

func (e *traceEncoder) TransitionBuffers(b []hal.BufferBarrier) {
	e.gpu.buffers = append(e.gpu.buffers, b...)
	e.gpu.log("buffer barriers %d", len(b))
}

func (e *traceEncoder) TransitionTextures(b []hal.TextureBarrier) {
	e.gpu.textures = append(e.gpu.textures, b...)
	e.gpu.log("texture barriers %d", len(b))
}

func (e *traceEncoder) ClearBuffer(_ hal.Buffer, offset, size uint64) {
	e.gpu.log("clear buffer %d+%d", offset, size)
}

func (e *traceEncoder) CopyBufferToBuffer(_, _ hal.Buffer, regions []hal.BufferCopy) {
	e.gpu.log("copy buffer %d", len(regions))
}

func (e *traceEncoder) CopyBufferToTexture(_ hal.Buffer, _ hal.Texture, regions []hal.BufferTextureCopy) {
	e.gpu.log("copy buffer to image %dx%d", regions[0].Size.Width, regions[0].Size.Height)
}

func (e *traceEncoder) CopyTextureToBuffer(_ hal.Texture, _ hal.Buffer, regions []hal.BufferTextureCopy) {
	e.gpu.log("copy image to buffer %dx%d", regions[0].Size.Width, regions[0].Size.Height)
}

func (e *traceEncoder) CopyTextureToTexture(_, _ hal.Texture, regions []hal.TextureCopy) {
	e.gpu.log("copy image %dx%d", regions[0].Size.Width, regions[0].Size.Height)
}

func (e *traceEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.gpu.renderPasses = append(e.gpu.renderPasses, *desc)
	e.gpu.log("render pass %s", desc.Label)
	return &traceRenderPass{gpu: e.gpu}
}

func (e *traceEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	e.gpu.log("compute pass %s", desc.Label)
	return &traceComputePass{gpu: e.gpu}
}

type traceRenderPass struct {
	noop.RenderPassEncoder
	gpu *testGPU
}

func (p *traceRenderPass) End()                           { p.gpu.log("end pass") }
func (p *traceRenderPass) SetPipeline(hal.RenderPipeline) { p.gpu.log("set pipeline") }
func (p *traceRenderPass) SetBindGroup(i uint32, _ hal.BindGroup, _ []uint32) {
	p.gpu.log("set bind group %d", i)
}
func (p *traceRenderPass) Draw(v, i, _, _ uint32) { p.gpu.log("draw %d %d", v, i) }

type traceComputePass struct {
	noop.ComputePassEncoder
	gpu *testGPU
}

func (p *traceComputePass) End()                            { p.gpu.log("end pass") }
func (p *traceComputePass) SetPipeline(hal.ComputePipeline) { p.gpu.log("set pipeline") }
func (p *traceComputePass) SetBindGroup(i uint32, _ hal.BindGroup, _ []uint32) {
	p.gpu.log("set bind group %d", i)
}
func (p *traceComputePass) Dispatch(x, y, z uint32) { p.gpu.log("dispatch %d %d %d", x, y, z) }

func (g *testGPU) log(format string, args ...any) {
	g.ops = append(g.ops, fmt.Sprintf(format, args...))
}

// count returns how many logged operations equal op.
func (g *testGPU) count(op string) int {
	n := 0
	for _, o := range g.ops {
		if o == op {
			n++
		}
	}
	return n
}

func newTestDevice(t *testing.T) (*driver.Device, *testGPU) {
	t.Helper()
	gpu := &testGPU{}
	gpu.device = &traceDevice{gpu: gpu}
	gpu.queue = &traceQueue{}
	dev, err := driver.New(gpu.device, gpu.queue)
	if err != nil {
		t.Fatalf("driver.New() error = %v", err)
	}
	return dev, gpu
}

func newTestBuffer(t *testing.T, dev *driver.Device, size uint64) *driver.Buffer {
	t.Helper()
	buf, err := driver.NewBuffer(dev, driver.BufferInfo{
		Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageUniform | gputypes.BufferUsageVertex |
			gputypes.BufferUsageIndex | gputypes.BufferUsageIndirect |
			gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	return buf
}

func newTestImage(t *testing.T, dev *driver.Device, w, h uint32, format gputypes.TextureFormat, samples uint32) *driver.Image {
	t.Helper()
	img, err := driver.NewImage(dev, driver.ImageInfo{
		Width:       w,
		Height:      h,
		Format:      format,
		SampleCount: samples,
		Usage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("NewImage() error = %v", err)
	}
	return img
}

func newColor(t *testing.T, dev *driver.Device) *driver.Image {
	return newTestImage(t, dev, 64, 64, gputypes.TextureFormatRGBA8Unorm, 1)
}

func newDepth(t *testing.T, dev *driver.Device) *driver.Image {
	return newTestImage(t, dev, 64, 64, gputypes.TextureFormatDepth32Float, 1)
}

// mustPanic runs fn and returns the *ProgrammingError it panics with,
// failing the test if it does not panic with want.
func mustPanic(t *testing.T, want error, fn func()) (pe *ProgrammingError) {
	t.Helper()
	defer func() {
		t.Helper()
		v := recover()
		if v == nil {
			t.Fatalf("no panic, want %v", want)
		}
		err, ok := v.(error)
		if !ok || !errors.As(err, &pe) || !errors.Is(err, want) {
			t.Fatalf("panic = %v, want %v", v, want)
		}
	}()
	fn()
	return nil
}

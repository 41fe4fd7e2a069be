package timeline

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rendergraph"
	"github.com/gogpu/rendergraph/driver"
)

func schedule(t *testing.T) rendergraph.Schedule {
	t.Helper()
	dev, err := driver.New(&noop.Device{}, &noop.Queue{})
	if err != nil {
		t.Fatal(err)
	}
	img, err := driver.NewImage(dev, driver.ImageInfo{
		Width:  16,
		Height: 16,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(img.Destroy)

	g := rendergraph.New()
	n := g.BindImage(img)
	g.BeginPass("upload").Write(n).Submit()
	g.BeginPass("draw").AttachColor(0, n, gputypes.LoadOpLoad, gputypes.StoreOpStore).Submit()
	r := g.Resolve()
	s := r.Schedule()
	r.Discard()
	return s
}

func TestRender(t *testing.T) {
	s := schedule(t)
	img, err := Render(s)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := image.Rect(0, 0, Width, 2*margin+len(s.Batches)*rowHeight)
	if img.Bounds() != want {
		t.Errorf("Bounds() = %v, want %v", img.Bounds(), want)
	}
	if got := img.RGBAAt(0, 0); got != background {
		t.Errorf("corner = %v, want background %v", got, background)
	}
	row := img.RGBAAt(Width-margin-1, margin+rowHeight+rowHeight/2)
	if row != kindColors[rendergraph.PassGraphic] {
		t.Errorf("second row = %v, want graphic color", row)
	}
	// the graphic pass waits on the upload
	tick := img.RGBAAt(margin+tickArea-tickGap-1, margin+rowHeight+rowHeight/2)
	if tick != barrierInk {
		t.Errorf("barrier tick = %v, want %v", tick, barrierInk)
	}
}

func TestRenderEmpty(t *testing.T) {
	img, err := Render(rendergraph.Schedule{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if h := img.Bounds().Dy(); h != 2*margin+rowHeight {
		t.Errorf("height = %d, want %d", h, 2*margin+rowHeight)
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, schedule(t)); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if img.Bounds().Dx() != Width {
		t.Errorf("width = %d, want %d", img.Bounds().Dx(), Width)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		b    rendergraph.Batch
		want string
	}{
		{rendergraph.Batch{Kind: rendergraph.PassCompute, Passes: []string{"cull"}}, "0 compute: cull"},
		{rendergraph.Batch{Kind: rendergraph.PassGraphic, Passes: []string{"a", "b"},
			Barriers: make([]rendergraph.Barrier, 2)}, "0 graphic: a + b (2 barriers)"},
	}
	for _, tt := range tests {
		if got := label(0, tt.b); got != tt.want {
			t.Errorf("label() = %q, want %q", got, tt.want)
		}
	}
}

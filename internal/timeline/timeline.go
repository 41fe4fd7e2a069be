// Package timeline draws a resolved schedule as a PNG: one row per batch,
// colored by pass kind, with the batch's passes as the row label and one
// tick per barrier the batch waits on.
package timeline

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/rendergraph"
)

// Layout constants, in pixels.
const (
	Width     = 720
	rowHeight = 24
	margin    = 8
	tickWidth = 3
	tickGap   = 2
	tickArea  = 64
	fontSize  = 12
)

var (
	background = color.RGBA{0x1e, 0x1e, 0x24, 0xff}
	barrierInk = color.RGBA{0xe0, 0x4b, 0x4b, 0xff}
	labelInk   = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	recorded   = color.RGBA{0x50, 0x50, 0x58, 0xff}

	kindColors = map[rendergraph.PassKind]color.RGBA{
		rendergraph.PassCommand:  {0x6c, 0x75, 0x7d, 0xff},
		rendergraph.PassGraphic:  {0x2f, 0x6f, 0xd6, 0xff},
		rendergraph.PassCompute:  {0xd6, 0x8a, 0x2f, 0xff},
		rendergraph.PassRayTrace: {0x8e, 0x4f, 0xc9, 0xff},
	}
)

// Render draws s. Batches already recorded are drawn greyed out.
func Render(s rendergraph.Schedule) (*image.RGBA, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("timeline: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("timeline: create face: %w", err)
	}
	defer func() {
		_ = face.Close()
	}()

	rows := max(len(s.Batches), 1)
	img := image.NewRGBA(image.Rect(0, 0, Width, 2*margin+rows*rowHeight))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, xdraw.Src)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelInk), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for i, b := range s.Batches {
		top := margin + i*rowHeight
		fill(img, image.Rect(margin+tickArea, top+1, Width-margin, top+rowHeight-1), rowColor(b))

		for k := range min(len(b.Barriers), tickArea/(tickWidth+tickGap)) {
			x := margin + tickArea - (k+1)*(tickWidth+tickGap)
			fill(img, image.Rect(x, top+4, x+tickWidth, top+rowHeight-4), barrierInk)
		}

		d.Dot = fixed.P(margin+tickArea+6, top+(rowHeight+ascent)/2-1)
		d.DrawString(label(i, b))
	}
	return img, nil
}

// WritePNG renders s and encodes it to w.
func WritePNG(w io.Writer, s rendergraph.Schedule) error {
	img, err := Render(s)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("timeline: encode: %w", err)
	}
	return nil
}

func rowColor(b rendergraph.Batch) color.RGBA {
	if b.Recorded {
		return recorded
	}
	if c, ok := kindColors[b.Kind]; ok {
		return c
	}
	return recorded
}

func label(i int, b rendergraph.Batch) string {
	s := fmt.Sprintf("%d %s: %s", i, b.Kind, strings.Join(b.Passes, " + "))
	if n := len(b.Barriers); n > 0 {
		s += fmt.Sprintf(" (%d barriers)", n)
	}
	return s
}

func fill(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	xdraw.Draw(dst, r, image.NewUniform(c), image.Point{}, xdraw.Src)
}

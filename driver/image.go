package driver

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrInvalidImageExtent is returned when creating an image with a zero extent.
var ErrInvalidImageExtent = errors.New("driver: invalid image extent")

// ImageInfo describes an image. Zero MipLevels, SampleCount, DepthOrLayers
// and Dimension default to 1, 1, 1 and 2D. ImageInfo is comparable so pools
// can key on it.
type ImageInfo struct {
	Width         uint32
	Height        uint32
	DepthOrLayers uint32
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
	MipLevels     uint32
	SampleCount   uint32
	Dimension     gputypes.TextureDimension
}

// Normalized returns the info with defaults filled in.
func (i ImageInfo) Normalized() ImageInfo {
	if i.DepthOrLayers == 0 {
		i.DepthOrLayers = 1
	}
	if i.MipLevels == 0 {
		i.MipLevels = 1
	}
	if i.SampleCount == 0 {
		i.SampleCount = 1
	}
	if i.Dimension == gputypes.TextureDimensionUndefined {
		i.Dimension = gputypes.TextureDimension2D
	}
	return i
}

// Extent returns the size of the base mip level.
func (i ImageInfo) Extent() hal.Extent3D {
	n := i.Normalized()
	return hal.Extent3D{Width: n.Width, Height: n.Height, DepthOrArrayLayers: n.DepthOrLayers}
}

// Compatible reports whether an image created with i can stand in for one
// requested with want: identical shape and format, with every requested usage.
func (i ImageInfo) Compatible(want ImageInfo) bool {
	a, b := i.Normalized(), want.Normalized()
	usage := a.Usage&b.Usage == b.Usage
	a.Usage, b.Usage = 0, 0
	return usage && a == b
}

// Image is a GPU texture with a default full view and tracked access.
type Image struct {
	state
	info ImageInfo
	tex  hal.Texture
	view hal.TextureView
	dev  *Device
}

// NewImage creates an image and its default view on dev.
func NewImage(dev *Device, info ImageInfo) (*Image, error) {
	info = info.Normalized()
	if info.Width == 0 || info.Height == 0 {
		return nil, ErrInvalidImageExtent
	}

	tex, err := dev.hal.CreateTexture(&hal.TextureDescriptor{
		Label:         "rendergraph_image",
		Size:          info.Extent(),
		MipLevelCount: info.MipLevels,
		SampleCount:   info.SampleCount,
		Dimension:     info.Dimension,
		Format:        info.Format,
		Usage:         info.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("driver: create image %dx%d %s: %w", info.Width, info.Height, info.Format, err)
	}

	view, err := dev.hal.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "rendergraph_image_view",
		Format:          info.Format,
		Dimension:       viewDimension(info),
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   info.MipLevels,
		ArrayLayerCount: arrayLayers(info),
	})
	if err != nil {
		dev.hal.DestroyTexture(tex)
		return nil, fmt.Errorf("driver: create image view: %w", err)
	}

	slogger().Debug("driver: image created",
		"width", info.Width, "height", info.Height, "format", info.Format.String())
	return &Image{info: info, tex: tex, view: view, dev: dev}, nil
}

func viewDimension(info ImageInfo) gputypes.TextureViewDimension {
	switch info.Dimension {
	case gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	}
	if info.DepthOrLayers > 1 {
		return gputypes.TextureViewDimension2DArray
	}
	return gputypes.TextureViewDimension2D
}

func arrayLayers(info ImageInfo) uint32 {
	if info.Dimension == gputypes.TextureDimension3D {
		return 1
	}
	return info.DepthOrLayers
}

// Info returns the creation info with defaults filled in.
func (i *Image) Info() ImageInfo { return i.info }

// HAL returns the native texture.
func (i *Image) HAL() hal.Texture { return i.tex }

// View returns the default view covering every mip level and layer.
func (i *Image) View() hal.TextureView { return i.view }

// Range returns the full subresource range, the range barriers cover.
func (i *Image) Range() hal.TextureRange {
	return hal.TextureRange{
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   i.info.MipLevels,
		ArrayLayerCount: arrayLayers(i.info),
	}
}

// Destroy releases the native view and texture.
func (i *Image) Destroy() {
	if i.view != nil {
		i.dev.hal.DestroyTextureView(i.view)
		i.view = nil
	}
	if i.tex != nil {
		i.dev.hal.DestroyTexture(i.tex)
		i.tex = nil
	}
}

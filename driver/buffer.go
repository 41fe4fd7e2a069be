package driver

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrInvalidBufferSize is returned when creating a zero-sized buffer.
var ErrInvalidBufferSize = errors.New("driver: invalid buffer size")

// BufferInfo describes a buffer. It is comparable so pools can key on it.
type BufferInfo struct {
	Size  uint64
	Usage gputypes.BufferUsage
}

// Compatible reports whether a buffer created with b can stand in for one
// requested with want: at least as large, with every requested usage.
func (b BufferInfo) Compatible(want BufferInfo) bool {
	return b.Size >= want.Size && b.Usage&want.Usage == want.Usage
}

// Buffer is a GPU buffer with tracked access.
type Buffer struct {
	state
	info BufferInfo
	buf  hal.Buffer
	dev  *Device
}

// NewBuffer creates a buffer on dev.
func NewBuffer(dev *Device, info BufferInfo) (*Buffer, error) {
	if info.Size == 0 {
		return nil, ErrInvalidBufferSize
	}
	buf, err := dev.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: "rendergraph_buffer",
		Size:  info.Size,
		Usage: info.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("driver: create buffer (%d bytes): %w", info.Size, err)
	}
	slogger().Debug("driver: buffer created", "size", info.Size, "usage", uint64(info.Usage))
	return &Buffer{info: info, buf: buf, dev: dev}, nil
}

// Info returns the creation info.
func (b *Buffer) Info() BufferInfo { return b.info }

// HAL returns the native buffer.
func (b *Buffer) HAL() hal.Buffer { return b.buf }

// Destroy releases the native buffer.
func (b *Buffer) Destroy() {
	if b.buf != nil {
		b.dev.hal.DestroyBuffer(b.buf)
		b.buf = nil
	}
}

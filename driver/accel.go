package driver

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// AccelerationStructureKind selects the level of a ray-tracing acceleration
// structure.
type AccelerationStructureKind uint8

// Acceleration structure levels.
const (
	BottomLevel AccelerationStructureKind = iota
	TopLevel
)

// String returns the level name.
func (k AccelerationStructureKind) String() string {
	if k == TopLevel {
		return "TopLevel"
	}
	return "BottomLevel"
}

// AccelerationStructureInfo describes an acceleration structure.
type AccelerationStructureInfo struct {
	Kind AccelerationStructureKind
	Size uint64
}

// AccelerationStructure is an opaque ray-tracing structure. wgpu's hal has no
// native acceleration structure object, so the structure is backed by a
// storage buffer and synchronized like one.
type AccelerationStructure struct {
	state
	info AccelerationStructureInfo
	buf  hal.Buffer
	dev  *Device
}

// NewAccelerationStructure allocates the backing storage on dev.
func NewAccelerationStructure(dev *Device, info AccelerationStructureInfo) (*AccelerationStructure, error) {
	if info.Size == 0 {
		return nil, ErrInvalidBufferSize
	}
	buf, err := dev.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: "rendergraph_accel_" + info.Kind.String(),
		Size:  info.Size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("driver: create acceleration structure storage: %w", err)
	}
	return &AccelerationStructure{info: info, buf: buf, dev: dev}, nil
}

// Info returns the creation info.
func (a *AccelerationStructure) Info() AccelerationStructureInfo { return a.info }

// HAL returns the backing buffer.
func (a *AccelerationStructure) HAL() hal.Buffer { return a.buf }

// Destroy releases the backing buffer.
func (a *AccelerationStructure) Destroy() {
	if a.buf != nil {
		a.dev.hal.DestroyBuffer(a.buf)
		a.buf = nil
	}
}

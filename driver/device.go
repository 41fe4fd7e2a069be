package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device errors.
var (
	// ErrNilDevice is returned when a device or queue handle is nil.
	ErrNilDevice = errors.New("driver: device is nil")

	// ErrNoBackend is returned by Open when no hal backend is registered.
	ErrNoBackend = errors.New("driver: no hal backend registered")

	// ErrNoAdapter is returned by Open when the backend exposes no adapter.
	ErrNoAdapter = errors.New("driver: backend exposes no adapter")

	// ErrProviderNotHAL is returned by FromProvider when the provider does
	// not expose hal handles.
	ErrProviderNotHAL = errors.New("driver: provider does not expose HAL types")
)

// backendPriority orders hal backends from most to least preferred.
var backendPriority = []string{
	gputypes.BackendVulkan.String(),
	gputypes.BackendMetal.String(),
	gputypes.BackendDX12.String(),
	gputypes.BackendGL.String(),
	gputypes.BackendEmpty.String(),
}

// Device is a logical GPU device paired with the queue work is submitted to.
//
// Device is safe for concurrent use to the extent the underlying hal device
// and queue are.
type Device struct {
	hal   hal.Device
	queue hal.Queue
	name  string
}

// New wraps hal handles the caller already owns.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &Device{hal: device, queue: queue}, nil
}

// Open creates a device on the highest priority registered hal backend.
// Backends register themselves when their package is imported, for example
// github.com/gogpu/wgpu/hal/noop.
func Open() (*Device, error) {
	registry := gpucontext.NewRegistry[hal.Backend](gpucontext.WithPriority(backendPriority...))
	for _, variant := range hal.AvailableBackends() {
		backend, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		registry.Register(variant.String(), func() hal.Backend { return backend })
	}
	if registry.Count() == 0 {
		return nil, ErrNoBackend
	}

	name := registry.BestName()
	backend := registry.Best()
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("driver: create %s instance: %w", name, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, name)
	}

	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("driver: open %s adapter: %w", name, err)
	}

	slogger().Info("driver: device opened", "backend", name, "adapter", adapters[0].Info.Name)
	return &Device{hal: open.Device, queue: open.Queue, name: name}, nil
}

// FromProvider adapts a gpucontext.DeviceProvider whose concrete type also
// exposes hal handles through HalDevice and HalQueue.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNotHAL)
	}
	return &Device{hal: device, queue: queue, name: provider.AdapterInfo().Name}, nil
}

// HAL returns the native device.
func (d *Device) HAL() hal.Device { return d.hal }

// Queue returns the native queue.
func (d *Device) Queue() hal.Queue { return d.queue }

// Name returns the backend or adapter name, if known.
func (d *Device) Name() string { return d.name }

// Submit submits command buffers and returns the submission index that
// Completed and Wait accept.
func (d *Device) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	index, err := d.queue.Submit(cmds)
	if err != nil {
		return 0, fmt.Errorf("driver: submit %d command buffers: %w", len(cmds), err)
	}
	return index, nil
}

// Completed reports whether the submission with the given index finished.
// Index zero is always complete.
func (d *Device) Completed(index uint64) bool {
	return index == 0 || d.queue.PollCompleted() >= index
}

// Wait blocks until the submission with the given index finished or ctx is done.
func (d *Device) Wait(ctx context.Context, index uint64) error {
	delay := 50 * time.Microsecond
	start := time.Now()
	warned := false
	for !d.Completed(index) {
		if !warned && time.Since(start) > time.Second {
			slogger().Warn("driver: slow GPU wait", "submission", index)
			warned = true
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("driver: wait for submission %d: %w", index, ctx.Err())
		case <-time.After(delay):
		}
		if delay < 10*time.Millisecond {
			delay *= 2
		}
	}
	return nil
}

// Destroy waits for the device to go idle and destroys it.
func (d *Device) Destroy() {
	if err := d.hal.WaitIdle(); err != nil {
		slogger().Warn("driver: wait idle failed", "err", err)
	}
	d.hal.Destroy()
}

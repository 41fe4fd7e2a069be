package pool

import "github.com/gogpu/rendergraph/driver"

// LazyPool reuses any idle resource compatible with a request. It trades
// memory for fewer allocations when request sizes vary from frame to frame.
type LazyPool struct {
	dev     *driver.Device
	opts    options
	stats   counters
	buffers shelf[*driver.Buffer]
	images  shelf[*driver.Image]
	accels  shelf[*driver.AccelerationStructure]
}

var _ Pool = (*LazyPool)(nil)

// NewLazyPool creates a pool allocating on dev.
func NewLazyPool(dev *driver.Device, opts ...Option) *LazyPool {
	return &LazyPool{dev: dev, opts: applyOptions(opts)}
}

// LeaseBuffer leases a buffer at least info.Size bytes long with at least
// info.Usage.
func (p *LazyPool) LeaseBuffer(info driver.BufferInfo) (*Lease[*driver.Buffer], error) {
	return lazyLease(p, &p.buffers, func(b *driver.Buffer) bool {
		return b.Info().Compatible(info)
	}, func() (*driver.Buffer, error) {
		return driver.NewBuffer(p.dev, info)
	})
}

// LeaseImage leases an image of info's shape and format with at least
// info.Usage.
func (p *LazyPool) LeaseImage(info driver.ImageInfo) (*Lease[*driver.Image], error) {
	return lazyLease(p, &p.images, func(i *driver.Image) bool {
		return i.Info().Compatible(info)
	}, func() (*driver.Image, error) {
		return driver.NewImage(p.dev, info)
	})
}

// LeaseAccelerationStructure leases an acceleration structure of info's kind
// at least info.Size bytes large.
func (p *LazyPool) LeaseAccelerationStructure(info driver.AccelerationStructureInfo) (*Lease[*driver.AccelerationStructure], error) {
	return lazyLease(p, &p.accels, func(a *driver.AccelerationStructure) bool {
		have := a.Info()
		return have.Kind == info.Kind && have.Size >= info.Size
	}, func() (*driver.AccelerationStructure, error) {
		return driver.NewAccelerationStructure(p.dev, info)
	})
}

func lazyLease[T destroyer](p *LazyPool, s *shelf[T], match func(T) bool, create func() (T, error)) (*Lease[T], error) {
	item, ok := s.take(p.dev, &p.stats, p.opts.fenceWait && s.len() >= p.opts.capacity, match)
	if ok {
		p.stats.reused.Add(1)
	} else {
		var err error
		if item, err = create(); err != nil {
			return nil, err
		}
		p.stats.created.Add(1)
	}
	return newLease(item, func(item T, fence uint64) {
		s.put(p.dev, &p.stats, p.opts.capacity, item, fence)
	}), nil
}

// Stats returns the pool counters.
func (p *LazyPool) Stats() Stats { return p.stats.snapshot() }

// Idle returns the number of idle resources.
func (p *LazyPool) Idle() int {
	return p.buffers.len() + p.images.len() + p.accels.len()
}

// Destroy retires every idle resource. Leases still out are destroyed when
// they are released.
func (p *LazyPool) Destroy() {
	p.buffers.close(p.dev, &p.stats)
	p.images.close(p.dev, &p.stats)
	p.accels.close(p.dev, &p.stats)
}

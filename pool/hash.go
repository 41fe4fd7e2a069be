package pool

import (
	"github.com/gogpu/rendergraph/driver"
	"github.com/gogpu/rendergraph/internal/cache"
)

// HashPool reuses resources whose creation info matches a request exactly.
type HashPool struct {
	dev     *driver.Device
	opts    options
	stats   counters
	buffers *hashKind[driver.BufferInfo, *driver.Buffer]
	images  *hashKind[driver.ImageInfo, *driver.Image]
	accels  *hashKind[driver.AccelerationStructureInfo, *driver.AccelerationStructure]
}

var _ Pool = (*HashPool)(nil)

// NewHashPool creates a pool allocating on dev.
func NewHashPool(dev *driver.Device, opts ...Option) *HashPool {
	p := &HashPool{dev: dev, opts: applyOptions(opts)}
	p.buffers = newHashKind(p, func(info driver.BufferInfo) (*driver.Buffer, error) {
		return driver.NewBuffer(dev, info)
	})
	p.images = newHashKind(p, func(info driver.ImageInfo) (*driver.Image, error) {
		return driver.NewImage(dev, info)
	})
	p.accels = newHashKind(p, func(info driver.AccelerationStructureInfo) (*driver.AccelerationStructure, error) {
		return driver.NewAccelerationStructure(dev, info)
	})
	return p
}

// LeaseBuffer leases a buffer created with exactly info.
func (p *HashPool) LeaseBuffer(info driver.BufferInfo) (*Lease[*driver.Buffer], error) {
	return p.buffers.lease(info)
}

// LeaseImage leases an image created with exactly info, after defaults are
// filled in.
func (p *HashPool) LeaseImage(info driver.ImageInfo) (*Lease[*driver.Image], error) {
	return p.images.lease(info.Normalized())
}

// LeaseAccelerationStructure leases an acceleration structure created with
// exactly info.
func (p *HashPool) LeaseAccelerationStructure(info driver.AccelerationStructureInfo) (*Lease[*driver.AccelerationStructure], error) {
	return p.accels.lease(info)
}

// Stats returns the pool counters.
func (p *HashPool) Stats() Stats { return p.stats.snapshot() }

// Idle returns the number of idle resources across all buckets.
func (p *HashPool) Idle() int {
	return p.buffers.idle() + p.images.idle() + p.accels.idle()
}

// Destroy retires every idle resource. Leases still out are destroyed when
// they are released.
func (p *HashPool) Destroy() {
	p.buffers.buckets.Clear()
	p.images.buckets.Clear()
	p.accels.buckets.Clear()
}

type hashKind[I comparable, T destroyer] struct {
	pool    *HashPool
	buckets *cache.Cache[I, *shelf[T]]
	create  func(I) (T, error)
}

func newHashKind[I comparable, T destroyer](p *HashPool, create func(I) (T, error)) *hashKind[I, T] {
	return &hashKind[I, T]{
		pool: p,
		buckets: cache.New(p.opts.buckets, func(info I, s *shelf[T]) {
			slogger().Debug("pool: bucket evicted", "idle", s.len())
			s.close(p.dev, &p.stats)
		}),
		create: create,
	}
}

func (k *hashKind[I, T]) lease(info I) (*Lease[T], error) {
	p := k.pool
	s, _ := k.buckets.GetOrCreate(info, func() (*shelf[T], error) {
		return &shelf[T]{}, nil
	})

	item, ok := s.take(p.dev, &p.stats, p.opts.fenceWait && s.len() >= p.opts.capacity, func(T) bool { return true })
	if ok {
		p.stats.reused.Add(1)
	} else {
		var err error
		item, err = k.create(info)
		if err != nil {
			return nil, err
		}
		p.stats.created.Add(1)
	}
	return newLease(item, func(item T, fence uint64) {
		s.put(p.dev, &p.stats, p.opts.capacity, item, fence)
	}), nil
}

func (k *hashKind[I, T]) idle() int {
	n := 0
	k.buckets.Each(func(_ I, s *shelf[T]) { n += s.len() })
	return n
}

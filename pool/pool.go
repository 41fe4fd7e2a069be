package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rendergraph/driver"
)

// Pool leases GPU resources.
type Pool interface {
	LeaseBuffer(info driver.BufferInfo) (*Lease[*driver.Buffer], error)
	LeaseImage(info driver.ImageInfo) (*Lease[*driver.Image], error)
	LeaseAccelerationStructure(info driver.AccelerationStructureInfo) (*Lease[*driver.AccelerationStructure], error)
	Stats() Stats
	Destroy()
}

// Stats contains pool counters.
type Stats struct {
	Created   uint64 // resources created on lease miss
	Reused    uint64 // leases served from idle resources
	Destroyed uint64 // resources destroyed by eviction, overflow or Destroy
	Waits     uint64 // leases that blocked on a fence
}

type counters struct {
	created, reused, destroyed, waits atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Created:   c.created.Load(),
		Reused:    c.reused.Load(),
		Destroyed: c.destroyed.Load(),
		Waits:     c.waits.Load(),
	}
}

type destroyer interface {
	Destroy()
}

type idle[T destroyer] struct {
	item  T
	fence uint64
}

// shelf is an ordered list of idle resources, oldest first.
type shelf[T destroyer] struct {
	mu     sync.Mutex
	items  []idle[T]
	closed bool
}

// take removes and returns the first idle resource accepted by match whose
// fence has completed. When wait is set and only in-flight candidates
// exist, it blocks on the oldest one.
func (s *shelf[T]) take(dev *driver.Device, c *counters, wait bool, match func(T) bool) (T, bool) {
	s.mu.Lock()
	busy := -1
	for i, it := range s.items {
		if !match(it.item) {
			continue
		}
		if dev.Completed(it.fence) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.mu.Unlock()
			return it.item, true
		}
		if busy < 0 {
			busy = i
		}
	}
	if !wait || busy < 0 {
		s.mu.Unlock()
		var zero T
		return zero, false
	}
	it := s.items[busy]
	s.items = append(s.items[:busy], s.items[busy+1:]...)
	s.mu.Unlock()

	c.waits.Add(1)
	slogger().Debug("pool: waiting on fence", "submission", it.fence)
	if err := dev.Wait(context.Background(), it.fence); err != nil {
		slogger().Warn("pool: fence wait failed", "err", err)
	}
	return it.item, true
}

// put shelves a returned resource. When the shelf is closed or full, the
// resource (or the oldest idle one) is retired instead.
func (s *shelf[T]) put(dev *driver.Device, c *counters, capacity int, item T, fence uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		retire(dev, c, item, fence)
		return
	}
	s.items = append(s.items, idle[T]{item: item, fence: fence})
	var out []idle[T]
	if over := len(s.items) - capacity; over > 0 {
		out = append(out, s.items[:over]...)
		s.items = append(s.items[:0], s.items[over:]...)
	}
	s.mu.Unlock()

	for _, it := range out {
		retire(dev, c, it.item, it.fence)
	}
}

// close retires every idle resource and retires later returns on arrival.
func (s *shelf[T]) close(dev *driver.Device, c *counters) {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.closed = true
	s.mu.Unlock()

	for _, it := range items {
		retire(dev, c, it.item, it.fence)
	}
}

func (s *shelf[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// retire destroys a resource once the GPU is done with it.
func retire[T destroyer](dev *driver.Device, c *counters, item T, fence uint64) {
	if !dev.Completed(fence) {
		slogger().Warn("pool: destroying in-flight resource, waiting", "submission", fence)
		if err := dev.Wait(context.Background(), fence); err != nil {
			slogger().Warn("pool: fence wait failed", "err", err)
		}
	}
	item.Destroy()
	c.destroyed.Add(1)
}

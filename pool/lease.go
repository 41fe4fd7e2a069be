package pool

import (
	"sync"
	"sync/atomic"
)

// Lease is a reference-counted claim on a pooled resource.
type Lease[T any] struct {
	item  T
	refs  atomic.Int32
	fence atomic.Uint64
	once  sync.Once
	back  func(T, uint64)
}

func newLease[T any](item T, back func(T, uint64)) *Lease[T] {
	l := &Lease[T]{item: item, back: back}
	l.refs.Store(1)
	return l
}

// Item returns the leased resource. It must not be used after the last
// Release.
func (l *Lease[T]) Item() T { return l.item }

// Retain adds a holder and returns l.
func (l *Lease[T]) Retain() *Lease[T] {
	if l.refs.Add(1) <= 1 {
		panic("pool: Retain on a released lease")
	}
	return l
}

// Release drops a holder. The last Release returns the resource to its pool.
func (l *Lease[T]) Release() {
	n := l.refs.Add(-1)
	switch {
	case n == 0:
		l.once.Do(func() { l.back(l.item, l.fence.Load()) })
	case n < 0:
		panic("pool: Release on a released lease")
	}
}

// SetFence records the submission index of GPU work using the resource.
// Indices only move forward.
func (l *Lease[T]) SetFence(index uint64) {
	for {
		cur := l.fence.Load()
		if index <= cur || l.fence.CompareAndSwap(cur, index) {
			return
		}
	}
}

// Fence returns the last recorded submission index, zero if none.
func (l *Lease[T]) Fence() uint64 { return l.fence.Load() }

// Refs returns the number of current holders.
func (l *Lease[T]) Refs() int { return int(l.refs.Load()) }

package driver

import "sync/atomic"

// state is the tracking data shared by every resource kind: the accesses
// last recorded against it and the id of the graph that currently owns it.
type state struct {
	access atomic.Uint64
	owner  atomic.Uint64
}

// Access returns the accesses last recorded for the resource. An empty set
// means the GPU has not used it yet.
func (s *state) Access() AccessSet { return AccessSet(s.access.Load()) }

// SetAccess records the current accesses and returns the previous ones.
func (s *state) SetAccess(a AccessSet) AccessSet {
	return AccessSet(s.access.Swap(uint64(a)))
}

// Owner returns the id of the graph holding the resource, or zero.
func (s *state) Owner() uint64 { return s.owner.Load() }

// ClaimOwner marks the resource as owned by id. It fails if another owner
// already holds it. Id zero is never a valid owner.
func (s *state) ClaimOwner(id uint64) bool {
	return id != 0 && s.owner.CompareAndSwap(0, id)
}

// ReleaseOwner clears the owner if it is still id.
func (s *state) ReleaseOwner(id uint64) bool {
	return id != 0 && s.owner.CompareAndSwap(id, 0)
}

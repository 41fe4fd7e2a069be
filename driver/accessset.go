package driver

import (
	"math/bits"
	"strings"

	"github.com/gogpu/gputypes"
)

// AccessSet is a set of access types. A resource that several reads touch
// without an intervening write holds the union of those reads.
type AccessSet uint64

// Of returns the set holding the given accesses. AccessNothing is ignored.
func Of(accesses ...AccessType) AccessSet {
	var s AccessSet
	for _, a := range accesses {
		s = s.Add(a)
	}
	return s
}

// Add returns s with a added.
func (s AccessSet) Add(a AccessType) AccessSet {
	if a == AccessNothing {
		return s
	}
	a.info() // panics on invalid values
	return s | 1<<a
}

// Has reports whether a is in s.
func (s AccessSet) Has(a AccessType) bool { return a.Valid() && s&(1<<a) != 0 }

// Empty reports whether s holds no access, the state of a resource never
// used by the GPU.
func (s AccessSet) Empty() bool { return s == 0 }

// Len returns the number of accesses in s.
func (s AccessSet) Len() int { return bits.OnesCount64(uint64(s)) }

// Accesses returns the members of s in ascending order.
func (s AccessSet) Accesses() []AccessType {
	out := make([]AccessType, 0, s.Len())
	for v := uint64(s); v != 0; v &= v - 1 {
		out = append(out, AccessType(bits.TrailingZeros64(v)))
	}
	return out
}

// HasWrite reports whether any member writes.
func (s AccessSet) HasWrite() bool { return s>>accessReadEnd != 0 }

// Stage returns the union of the members' stages.
func (s AccessSet) Stage() Stage {
	var st Stage
	for _, a := range s.Accesses() {
		st |= a.Stage()
	}
	return st
}

// Mask returns the union of the members' access masks.
func (s AccessSet) Mask() Mask {
	var m Mask
	for _, a := range s.Accesses() {
		m |= a.Mask()
	}
	return m
}

// Layout returns the image layout satisfying every member: their common
// layout, LayoutGeneral when they disagree, LayoutUndefined for an empty set
// or one with no layout requirement.
func (s AccessSet) Layout() Layout {
	layout := LayoutUndefined
	for _, a := range s.Accesses() {
		l := a.Layout()
		switch {
		case l == LayoutUndefined || l == layout:
		case layout == LayoutUndefined:
			layout = l
		default:
			return LayoutGeneral
		}
	}
	return layout
}

// TextureUsage returns the union of the members' texture usages.
func (s AccessSet) TextureUsage() gputypes.TextureUsage {
	var u gputypes.TextureUsage
	for _, a := range s.Accesses() {
		u |= a.TextureUsage()
	}
	return u
}

// BufferUsage returns the union of the members' buffer usages.
func (s AccessSet) BufferUsage() gputypes.BufferUsage {
	var u gputypes.BufferUsage
	for _, a := range s.Accesses() {
		u |= a.BufferUsage()
	}
	return u
}

// String returns the members joined by '|', or "Nothing".
func (s AccessSet) String() string {
	if s.Empty() {
		return AccessNothing.String()
	}
	var b strings.Builder
	for i, a := range s.Accesses() {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(a.String())
	}
	return b.String()
}

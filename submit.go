package rendergraph

import (
	"context"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendergraph/driver"
)

// Submit records every remaining pass and submits all command buffers of
// the graph to dev's queue in recording order. The returned submission
// keeps the graph's resources until Release.
//
// A failed submit, whether recording or the queue submission failed,
// leaves the resources untouched: their tracked state is restored and they
// are released from the graph. The resolver cannot be submitted again.
func (r *Resolver) Submit(dev *driver.Device) (*PendingSubmission, error) {
	if err := r.RecordUnscheduledPasses(dev); err != nil {
		if !r.submitted {
			r.submitted = true
			r.abandon()
		}
		return nil, err
	}
	r.submitted = true

	cmds := make([]hal.CommandBuffer, len(r.encoded))
	for i, e := range r.encoded {
		cmds[i] = e.cmd
	}
	var index uint64
	if len(cmds) > 0 {
		var err error
		if index, err = dev.Submit(cmds); err != nil {
			r.abandon()
			return nil, err
		}
	}

	for _, b := range r.g.bindings {
		if b.lease != nil {
			b.lease.SetFence(index)
		}
	}
	Logger().Info("rendergraph: submitted",
		"graph", r.g.opts.label, "batches", len(r.batches),
		"command_buffers", len(cmds), "submission", index)

	return &PendingSubmission{
		dev:      dev,
		index:    index,
		graph:    r.g.id,
		bindings: r.g.bindings,
		encoded:  r.encoded,
		groups:   r.groups,
		staging:  r.staging,
	}, nil
}

// Discard drops the resolver without submitting. Recorded command buffers
// are freed, the resources' tracked state is restored and they are
// released from the graph. Discard after Submit does nothing.
func (r *Resolver) Discard() {
	if r.submitted {
		return
	}
	r.submitted = true
	r.abandon()
}

func (r *Resolver) abandon() {
	for i, t := range r.touched {
		if t {
			r.g.bindings[i].res.SetAccess(r.initial[i])
		}
	}
	for _, e := range r.encoded {
		e.enc.ResetAll([]hal.CommandBuffer{e.cmd})
		e.enc.Destroy()
	}
	if r.dev != nil {
		r.release(0, 0)
	}
	r.encoded = nil
	releaseBindings(r.g.id, r.g.bindings)
}

// releaseBindings hands bound resources back: ownership is cleared and
// leases the graph still holds return to their pool.
func releaseBindings(graph uint64, bindings []*binding) {
	for _, b := range bindings {
		if b.unbound {
			continue
		}
		b.res.ReleaseOwner(graph)
		if b.lease != nil {
			b.lease.Release()
		}
	}
}

// PendingSubmission is the in-flight GPU work of a submitted graph. It
// owns the graph's resources until Release, which waits for the GPU first.
type PendingSubmission struct {
	dev      *driver.Device
	index    uint64
	graph    uint64
	bindings []*binding
	encoded  []encoded
	groups   []hal.BindGroup
	staging  []*driver.Buffer
	once     sync.Once
}

// Index returns the queue submission index, zero if nothing was recorded.
func (s *PendingSubmission) Index() uint64 { return s.index }

// Done reports whether the GPU finished the submission.
func (s *PendingSubmission) Done() bool { return s.dev.Completed(s.index) }

// Wait blocks until the GPU finished the submission or ctx is done.
func (s *PendingSubmission) Wait(ctx context.Context) error {
	return s.dev.Wait(ctx, s.index)
}

// Release waits for the submission, frees its command buffers, bind groups
// and staging buffers, and hands the resources back. Leased resources
// return to their pool. Release is idempotent.
func (s *PendingSubmission) Release() {
	s.once.Do(func() {
		if err := s.Wait(context.Background()); err != nil {
			Logger().Warn("rendergraph: wait before release", "submission", s.index, "err", err)
		}
		for _, e := range s.encoded {
			e.enc.ResetAll([]hal.CommandBuffer{e.cmd})
			e.enc.Destroy()
		}
		for _, bg := range s.groups {
			s.dev.HAL().DestroyBindGroup(bg)
		}
		for _, buf := range s.staging {
			buf.Destroy()
		}
		releaseBindings(s.graph, s.bindings)
		s.encoded, s.groups, s.staging = nil, nil, nil
	})
}

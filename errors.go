package rendergraph

import (
	"errors"
	"fmt"
)

// Programming errors. They are reported by panicking with a
// *ProgrammingError that wraps one of these, so callers that recover can
// test the cause with errors.Is.
var (
	ErrForeignNode        = errors.New("rendergraph: node belongs to another graph")
	ErrUnknownNode        = errors.New("rendergraph: node is not bound to this graph")
	ErrAlreadyBound       = errors.New("rendergraph: resource is already bound to a graph")
	ErrGraphResolved      = errors.New("rendergraph: graph has already been resolved")
	ErrUndeclaredAccess   = errors.New("rendergraph: node used without a declared access")
	ErrAttachmentMismatch = errors.New("rendergraph: attachments differ in extent or sample count")
	ErrAttachmentSlot     = errors.New("rendergraph: invalid attachment slot")
	ErrDescriptorSlot     = errors.New("rendergraph: invalid descriptor slot")
	ErrNoPipeline         = errors.New("rendergraph: pass has no pipeline")
	ErrDependencyOrder    = errors.New("rendergraph: schedule violates pass dependencies")
	ErrLeaseMismatch      = errors.New("rendergraph: node leased status does not match")
	ErrPassKind           = errors.New("rendergraph: operation not valid for this pass kind")
	ErrPassSubmitted      = errors.New("rendergraph: pass already submitted")
)

// Runtime errors returned by the resolver.
var (
	// ErrSubmitted is returned when recording or submitting after Submit.
	ErrSubmitted = errors.New("rendergraph: resolver already submitted")

	// ErrDeviceMismatch is returned when a resolver is driven with a device
	// other than the one it first recorded on.
	ErrDeviceMismatch = errors.New("rendergraph: resolver used with a second device")
)

// ProgrammingError describes misuse of the graph API. It is never returned,
// only raised with panic.
type ProgrammingError struct {
	Op   string // API entry point, e.g. "BeginPass"
	Pass string // pass label, if any
	Err  error  // one of the Err* sentinels
	msg  string
}

func (e *ProgrammingError) Error() string {
	s := e.Err.Error()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Pass != "" {
		s += " (pass " + e.Pass + ")"
	}
	if e.msg != "" {
		s += ": " + e.msg
	}
	return s
}

func (e *ProgrammingError) Unwrap() error { return e.Err }

func fail(op, pass string, err error, format string, args ...any) {
	panic(&ProgrammingError{Op: op, Pass: pass, Err: err, msg: fmt.Sprintf(format, args...)})
}

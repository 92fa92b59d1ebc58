package svi

import (
	"fmt"
	"time"
)

// Kind tags an Error with the taxonomy from the spec: validation
// failures never touch the network, transport/protocol failures come
// from the upstream, algorithm failures come from the tournament
// reduction itself.
type Kind int

const (
	_ Kind = iota
	ValidationError
	TransportError
	ProtocolError
	AlgorithmError
)

func (k Kind) String() string {
	switch k {
	case ValidationError:
		return "ValidationError"
	case TransportError:
		return "TransportError"
	case ProtocolError:
		return "ProtocolError"
	case AlgorithmError:
		return "AlgorithmError"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with the taxonomy Kind and the
// operation ("CLIENT.Explore", ...) it occurred in, following
// cc-backend's "PKG/SUBSYS > message" convention.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("SVI/%s > %s: %s", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("SVI/%s > %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func validationErr(op, format string, args ...interface{}) *Error {
	return newErr(ValidationError, op, fmt.Errorf(format, args...))
}

func transportErr(op string, err error) *Error {
	return newErr(TransportError, op, err)
}

func protocolErr(op string, err error) *Error {
	return newErr(ProtocolError, op, err)
}

func algorithmErr(op string, err error) *Error {
	return newErr(AlgorithmError, op, err)
}

// TruncationWarning is the non-fatal condition surfaced alongside a
// successful Container.GetData result when the stitched series'
// global maximum lies in the extension region below the requested
// lower bound and force_truncation was not set. It is not an error:
// GetData still returns data.
type TruncationWarning struct {
	MaxAt time.Time
}

func (w TruncationWarning) Error() string {
	return fmt.Sprintf("global maximum occurs at %s, below the requested lower bound; series was not truncated", w.MaxAt.Format("2006-01-02T15:04"))
}

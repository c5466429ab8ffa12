// Package tagerr defines the error categories shared by the tag tools.
package tagerr

import (
	"errors"
	"fmt"
)

// Error categories. Lower layers wrap one of these with fmt.Errorf("%w: ...").
var (
	ErrTransport = errors.New("transport error")
	ErrFraming   = errors.New("framing error")
	ErrCapacity  = errors.New("capacity error")
	ErrArgument  = errors.New("invalid argument")
	ErrCodec     = errors.New("ndef codec error")
)

// Kind is the category of a failed operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindFraming
	KindCapacity
	KindArgument
	KindCodec
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFraming:
		return "framing"
	case KindCapacity:
		return "capacity"
	case KindArgument:
		return "argument"
	case KindCodec:
		return "codec"
	default:
		return "unknown"
	}
}

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) && te.Kind != KindUnknown {
		return te.Kind
	}
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrFraming):
		return KindFraming
	case errors.Is(err, ErrCapacity):
		return KindCapacity
	case errors.Is(err, ErrArgument):
		return KindArgument
	case errors.Is(err, ErrCodec):
		return KindCodec
	default:
		return KindUnknown
	}
}

// Error is the failure variant returned by tag session operations.
type Error struct {
	Err    error  // Underlying cause
	Op     string // Operation that failed, e.g. "read" or "overwrite"
	Reader string // Reader name, empty when unknown
	Kind   Kind
}

// New wraps err for op on reader, classifying it with KindOf.
func New(op, reader string, err error) *Error {
	return &Error{Err: err, Op: op, Reader: reader, Kind: KindOf(err)}
}

func (e *Error) Error() string {
	if e.Reader != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Reader, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

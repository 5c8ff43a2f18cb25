package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Closed         Code = "closed"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidConfig  Code = "invalid_config"
	IOError        Code = "io_error"
	Timeout        Code = "timeout"
	Unavailable    Code = "unavailable"
	Invariant      Code = "invariant"

	UnknownBus Code = "unknown_bus"
	UnknownPin Code = "unknown_pin"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap returns nil for a nil err, otherwise an *E carrying c and op.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// MapDriverErr maps low-level register transport errors to a Code.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	if c := Of(err); c != Error {
		return c
	}
	return IOError
}

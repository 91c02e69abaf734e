// Package cgrerr defines the CGR engine's error taxonomy (spec.md §7).
// Mutators return a *cgrerr.Error wrapping one of the fixed Codes so
// callers can switch on failure class without parsing strings, the same
// shape the teacher's config package uses for its accumulated validation
// errors, generalized into a reusable type.
package cgrerr

import (
	"errors"
	"fmt"
)

// Code is the top-level failure class spec.md §7 names.
type Code int

const (
	_ Code = iota
	BadArgument
	Overlap
	NotFound
	OutOfMemory
	NoRoute
	ExpiredBundle
	PlanMissing
	Internal
)

func (c Code) String() string {
	switch c {
	case BadArgument:
		return "bad_argument"
	case Overlap:
		return "overlap"
	case NotFound:
		return "not_found"
	case OutOfMemory:
		return "out_of_memory"
	case NoRoute:
		return "no_route"
	case ExpiredBundle:
		return "expired_bundle"
	case PlanMissing:
		return "plan_missing"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error pairs a Code with context and an optional wrapped cause.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf builds an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that wraps an existing cause.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// Is reports whether err carries the given Code, following Unwrap chains.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

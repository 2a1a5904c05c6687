// errors.go - uniform error model shared by the inferior and repl packages

package pdberr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind int

const (
	// IoError wraps a failing kernel call; Cause carries the system errno.
	IoError Kind = iota
	// ChildStartup is a pre-exec failure reported by the forked child.
	ChildStartup
	// InvalidArgument covers caller mistakes: zero pid, empty path, ...
	InvalidArgument
	// NotFound is a register catalog lookup miss.
	NotFound
	// InvalidRegister is an unsupported width/format combination.
	InvalidRegister
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "io error"
	case ChildStartup:
		return "child startup"
	case InvalidArgument:
		return "invalid argument"
	case NotFound:
		return "not found"
	case InvalidRegister:
		return "invalid register"
	default:
		return "unknown"
	}
}

// Error is the single failure value every package in this module returns.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error formatted as "<prefix>: <cause>", mirroring the
// send_errno helper the tracer uses to report failing syscalls.
func Wrap(kind Kind, prefix string, cause error) error {
	return &Error{Kind: kind, Msg: prefix, Cause: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

package ovm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is one of the five embedding-API error codes (spec §6).
type Code int

const (
	codeGeneral        Code = -1
	codeInvalidArg     Code = -2
	codeNotFound       Code = -3
	codeTypeMismatch   Code = -4
	codeNotImplemented Code = -128
)

func (c Code) String() string {
	switch c {
	case codeGeneral:
		return "general failure"
	case codeInvalidArg:
		return "invalid argument"
	case codeNotFound:
		return "not found"
	case codeTypeMismatch:
		return "type mismatch"
	case codeNotImplemented:
		return "not implemented"
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

// Error is the Go error value every embedding API method returns on
// failure (spec §4.J: "Errors are the five codes of §6 ... as a Go
// error type satisfying errors.Is").
type Error struct {
	Code Code
	msg  string
}

func (e *Error) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("ovm: %s: %s", e.Code, e.msg)
	}
	return fmt.Sprintf("ovm: %s", e.Code)
}

// Is lets callers write errors.Is(err, ovm.ErrNotFound) etc: two *Error
// values (or an *Error and a sentinel) are equal for this purpose iff
// their codes match, regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// ErrGeneral, ErrInvalidArg, ErrNotFound, ErrTypeMismatch and
// ErrNotImplemented are the five sentinel errors of spec §6, suitable
// as the target of errors.Is.
var (
	ErrGeneral        = &Error{Code: codeGeneral}
	ErrInvalidArg     = &Error{Code: codeInvalidArg}
	ErrNotFound       = &Error{Code: codeNotFound}
	ErrTypeMismatch   = &Error{Code: codeTypeMismatch}
	ErrNotImplemented = &Error{Code: codeNotImplemented}
)

func newErr(sentinel *Error, msg string) error { return &Error{Code: sentinel.Code, msg: msg} }

// wrapf wraps an unexpected (non-exception, programmer-facing) failure
// with pkg/errors before returning it, per §4.K's rule that this
// boundary — not internal/objmodel or internal/interp — is where
// pkg/errors.Wrap is used.
func wrapf(sentinel *Error, cause error, context string) error {
	return newErr(sentinel, errors.Wrap(cause, context).Error())
}

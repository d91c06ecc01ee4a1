package interp

import (
	"fmt"

	"j5.nz/ovm/internal/value"
)

// Error kinds recognized by the core (spec §7). These aren't a distinct
// Go type — each is realized as an exception whose string payload is
// prefixed with the kind name, since exception payloads are "any
// value" and the core ISA has no separate typed-exception mechanism.
const (
	kindArity   = "ArityError"
	kindType    = "TypeError"
	kindName    = "NameError"
	kindOperand = "OperandError"
	kindNotImpl = "NotImplemented"
)

func (i *Interp) newExc(kind, msg string) value.Value {
	return i.Reg.NewException(i.Reg.NewString(kind + ": " + msg))
}

func (i *Interp) arityError(min, max, got int) value.Value {
	if max < 0 {
		return i.newExc(kindArity, fmt.Sprintf("expected at least %d arguments, got %d", min, got))
	}
	return i.newExc(kindArity, fmt.Sprintf("expected %d-%d arguments, got %d", min, max, got))
}

func (i *Interp) typeError(msg string) value.Value { return i.newExc(kindType, msg) }
func (i *Interp) nameError(msg string) value.Value { return i.newExc(kindName, msg) }
func (i *Interp) operandError(msg string) value.Value {
	return i.newExc(kindOperand, msg)
}
func (i *Interp) notImplemented(msg string) value.Value {
	return i.newExc(kindNotImpl, msg)
}

// asException coerces v into a valid exception object, wrapping it if
// it is not already one (spec §4.H: "validate it is an exception
// object (wrap if not)").
func (i *Interp) asException(v value.Value) value.Value {
	if i.Reg.IsException(v) {
		return v
	}
	return i.Reg.NewException(v)
}

// propagate records the current frame's (function, ip) on exc's
// backtrace, pops the frame and discards its stack contents, and
// returns exc for the caller to keep propagating. Each level of the
// recursive run()/Invoke() chain calls this exactly once per frame it
// owns, which reproduces spec §4.H's "for each frame from current
// outward" unwind loop without a separate flat unwind pass: the
// outermost level is wherever a Go caller (ovm, or the top of Invoke)
// stops re-propagating, standing in for "a frame whose return IP is
// the sentinel null".
func (i *Interp) propagate(exc value.Value) value.Value {
	exc = i.asException(exc)
	i.Reg.ExceptionAppendFrame(exc, i.curFn, i.ip)
	f := i.Stack.CurrentFrame()
	argBase := 0
	if f != nil {
		argBase = f.ArgBase
	}
	i.Stack.PopFrame()
	i.Stack.TruncateTo(argBase)
	return exc
}

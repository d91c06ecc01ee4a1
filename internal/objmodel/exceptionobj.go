package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// BacktraceFrame is one `{function_object, instruction_pointer}` record
// appended during unwinding (spec §4.H).
type BacktraceFrame struct {
	Function value.Value
	IP       int
}

// exceptionMeta holds the plain-int instruction pointers; the function
// object references they pair with are appended as the exception
// cell's own Fields (index 1+), so the GC scans them like any other
// reference while the ips (not heap values) stay in Native.
type exceptionMeta struct {
	ips []int
}

// NewException builds an exception object wrapping an arbitrary data
// payload (spec: "a data payload (any value) and a backtrace").
func (r *Registry) NewException(payload value.Value) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.ExceptionClass, 1)
	r.H.SetField(v, 0, payload)
	r.H.SetNative(v, &exceptionMeta{})
	return v
}

func (r *Registry) IsException(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.ExceptionClass
}

func (r *Registry) ExceptionPayload(v value.Value) value.Value { return r.H.GetField(v, 0) }

// ExceptionAppendFrame records one unwind step (spec §4.H: "append
// (function, ip) to the exception's backtrace").
func (r *Registry) ExceptionAppendFrame(v value.Value, fn value.Value, ip int) {
	m, _ := r.H.Native(v).(*exceptionMeta)
	if m == nil {
		m = &exceptionMeta{}
		r.H.SetNative(v, m)
	}
	r.H.AppendField(v, fn)
	m.ips = append(m.ips, ip)
}

func (r *Registry) ExceptionBacktrace(v value.Value) []BacktraceFrame {
	m, _ := r.H.Native(v).(*exceptionMeta)
	if m == nil {
		return nil
	}
	frames := make([]BacktraceFrame, len(m.ips))
	for i, ip := range m.ips {
		frames[i] = BacktraceFrame{Function: r.H.GetField(v, 1+i), IP: ip}
	}
	return frames
}

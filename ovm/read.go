package ovm

import (
	"fmt"

	"j5.nz/ovm/internal/value"
)

// resolveIndex turns an embedding-API local/argument index into the
// value it names (spec §4.J: every read_* operation takes an `index`
// with load_local's own convention).
func (vm *VM) resolveIndex(index int) (value.Value, error) {
	idx, ok := vm.Stack.LocalIndex(index)
	if !ok {
		return value.Nil, newErr(ErrNotFound, "index out of range")
	}
	return vm.Stack.At(idx), nil
}

// ReadNil validates the value at index is nil (spec §4.J read_nil).
func (vm *VM) ReadNil(index int) error {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return err
	}
	if !vm.Reg.IsNil(v) {
		return newErr(ErrTypeMismatch, "expected nil")
	}
	return nil
}

// ReadBool reads the boolean at index (spec §4.J read_bool).
func (vm *VM) ReadBool(index int) (bool, error) {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return false, err
	}
	if !vm.Reg.IsBool(v) {
		return false, newErr(ErrTypeMismatch, "expected bool")
	}
	return vm.Reg.BoolValue(v), nil
}

// ReadInt reads the integer at index (spec §4.J read_int).
func (vm *VM) ReadInt(index int) (int64, error) {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return 0, err
	}
	if !vm.Reg.IsInt(v) {
		return 0, newErr(ErrTypeMismatch, "expected int")
	}
	return vm.Reg.IntValue(v), nil
}

// ReadFloat reads the float at index (spec §4.J read_float).
func (vm *VM) ReadFloat(index int) (float64, error) {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return 0, err
	}
	if !vm.Reg.IsFloat(v) {
		return 0, newErr(ErrTypeMismatch, "expected float")
	}
	return vm.Reg.FloatValue(v), nil
}

// ReadSymbol reads the symbol name at index (spec §4.J read_symbol).
func (vm *VM) ReadSymbol(index int) (string, error) {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return "", err
	}
	if !vm.Reg.IsSymbol(v) {
		return "", newErr(ErrTypeMismatch, "expected symbol")
	}
	return vm.Reg.SymbolName(v), nil
}

// ReadString reads the string at index (spec §4.J read_string).
func (vm *VM) ReadString(index int) (string, error) {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return "", err
	}
	if !vm.Reg.IsString(v) {
		return "", newErr(ErrTypeMismatch, "expected string")
	}
	return vm.Reg.StringGoString(v), nil
}

// ReadStringTo copies the string at index into buf, truncating to
// len(buf), and returns the number of bytes copied (spec §4.J
// read_string_to).
func (vm *VM) ReadStringTo(index int, buf []byte) (int, error) {
	s, err := vm.ReadString(index)
	if err != nil {
		return 0, err
	}
	n := copy(buf, s)
	return n, nil
}

// ReadArray returns every element of the array at index (spec §4.J
// read_array, generalized from its element-at-a-time C form to a
// single Go slice read).
func (vm *VM) ReadArray(index int) ([]value.Value, error) {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return nil, err
	}
	if !vm.Reg.IsArray(v) {
		return nil, newErr(ErrTypeMismatch, "expected array")
	}
	out := make([]value.Value, vm.Reg.ArrayLen(v))
	for j := range out {
		out[j], _ = vm.Reg.ArrayGet(v, j)
	}
	return out, nil
}

// ReadTuple returns every element of the tuple at index (spec §4.J
// read_tuple).
func (vm *VM) ReadTuple(index int) ([]value.Value, error) {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return nil, err
	}
	if !vm.Reg.IsTuple(v) {
		return nil, newErr(ErrTypeMismatch, "expected tuple")
	}
	out := make([]value.Value, vm.Reg.TupleLen(v))
	for j := range out {
		out[j] = vm.Reg.TupleGet(v, j)
	}
	return out, nil
}

// ReadException returns the payload of the exception at index (spec
// §4.J read_exception).
func (vm *VM) ReadException(index int) (value.Value, error) {
	v, err := vm.resolveIndex(index)
	if err != nil {
		return value.Nil, err
	}
	if !vm.Reg.IsException(v) {
		return value.Nil, newErr(ErrTypeMismatch, "expected exception")
	}
	return vm.Reg.ExceptionPayload(v), nil
}

// ReadArgsFlags mirrors the embedding API's OWIZ_RDARG_* bits.
type ReadArgsFlags uint32

const (
	// ReadArgsIgnoreNil skips the type check for a nil actual argument.
	ReadArgsIgnoreNil ReadArgsFlags = 1 << iota
	// ReadArgsMakeException pushes a synthesized exception (rather than
	// just returning an error) on a format mismatch.
	ReadArgsMakeException
)

// ReadArgs parses the current call's positional arguments against a
// format string (spec §4.J read_args): `x`=bool, `i`=int, `f`=float,
// `y`=symbol, `s`=string, `s*`=string copied into a fixed buffer.
// dests supplies one destination per specifier, in argument order:
// *bool, *int64, *float64, *string, *string for `x`/`i`/`f`/`y`/`s`, or
// a []byte buffer for `s*`.
func (vm *VM) ReadArgs(flags ReadArgsFlags, format string, dests ...interface{}) error {
	argn := 0
	for fi := 0; fi < len(format); fi++ {
		if argn >= len(dests) {
			return newErr(ErrInvalidArg, "read_args: format/dest count mismatch")
		}
		spec := format[fi]
		wide := fi+1 < len(format) && format[fi+1] == '*'
		if wide {
			fi++
		}
		index := -1 - argn
		argn++

		if flags&ReadArgsIgnoreNil != 0 {
			if v, err := vm.resolveIndex(index); err == nil && vm.Reg.IsNil(v) {
				continue
			}
		}
		var err error
		switch {
		case spec == 'x':
			p, ok := dests[argn-1].(*bool)
			if !ok {
				return newErr(ErrInvalidArg, "read_args: expected *bool")
			}
			*p, err = vm.ReadBool(index)
		case spec == 'i':
			p, ok := dests[argn-1].(*int64)
			if !ok {
				return newErr(ErrInvalidArg, "read_args: expected *int64")
			}
			*p, err = vm.ReadInt(index)
		case spec == 'f':
			p, ok := dests[argn-1].(*float64)
			if !ok {
				return newErr(ErrInvalidArg, "read_args: expected *float64")
			}
			*p, err = vm.ReadFloat(index)
		case spec == 'y':
			p, ok := dests[argn-1].(*string)
			if !ok {
				return newErr(ErrInvalidArg, "read_args: expected *string")
			}
			*p, err = vm.ReadSymbol(index)
		case spec == 's' && wide:
			buf, ok := dests[argn-1].([]byte)
			if !ok {
				return newErr(ErrInvalidArg, "read_args: expected []byte for s*")
			}
			_, err = vm.ReadStringTo(index, buf)
		case spec == 's':
			p, ok := dests[argn-1].(*string)
			if !ok {
				return newErr(ErrInvalidArg, "read_args: expected *string")
			}
			*p, err = vm.ReadString(index)
		default:
			return newErr(ErrInvalidArg, fmt.Sprintf("read_args: unknown specifier %q", spec))
		}
		if err != nil {
			if flags&ReadArgsMakeException != 0 {
				vm.Stack.Push(vm.Reg.NewException(vm.Reg.NewString(err.Error())))
			}
			return err
		}
	}
	return nil
}

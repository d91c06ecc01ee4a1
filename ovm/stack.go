package ovm

import "j5.nz/ovm/internal/value"

// PushNil/PushBool/PushInt/PushFloat/PushSymbol/PushString allocate a
// value and push it onto the operand stack (spec §4.J push_* family).

func (vm *VM) PushNil() {
	vm.Stack.Push(vm.Reg.NilValue)
}

func (vm *VM) PushBool(b bool) {
	vm.Stack.Push(vm.Reg.Bool(b))
}

func (vm *VM) PushInt(n int64) {
	vm.Stack.Push(vm.Reg.NewInt(n))
}

func (vm *VM) PushFloat(f float64) {
	vm.Stack.Push(vm.Reg.NewFloat(f))
}

func (vm *VM) PushSymbol(name string) {
	vm.Stack.Push(vm.Syms.Intern(name))
}

func (vm *VM) PushString(s string) {
	vm.Stack.Push(vm.Reg.NewString(s))
}

// MakeArray/MakeTuple/MakeSet pop count items (in push order, so the
// deepest popped item becomes the container's first element) and push
// the constructed container (spec §4.J make_array/tuple/set).

func (vm *VM) MakeArray(count int) error {
	elems, err := vm.popN(count)
	if err != nil {
		return err
	}
	vm.Stack.Push(vm.Reg.NewArray(elems...))
	return nil
}

func (vm *VM) MakeTuple(count int) error {
	elems, err := vm.popN(count)
	if err != nil {
		return err
	}
	vm.Stack.Push(vm.Reg.NewTuple(elems...))
	return nil
}

func (vm *VM) MakeSet(count int) error {
	elems, err := vm.popN(count)
	if err != nil {
		return err
	}
	s := vm.Reg.NewSet()
	for _, e := range elems {
		if _, err := vm.Reg.SetAdd(s, e); err != nil {
			return wrapf(ErrTypeMismatch, err, "make_set")
		}
	}
	vm.Stack.Push(s)
	return nil
}

// MakeMap pops 2*count items (key, value interleaved in push order)
// and pushes the constructed map.
func (vm *VM) MakeMap(count int) error {
	kv, err := vm.popN(count * 2)
	if err != nil {
		return err
	}
	m := vm.Reg.NewMap()
	for j := 0; j < len(kv); j += 2 {
		if err := vm.Reg.MapSet(m, kv[j], kv[j+1]); err != nil {
			return wrapf(ErrTypeMismatch, err, "make_map")
		}
	}
	vm.Stack.Push(m)
	return nil
}

func (vm *VM) popN(n int) ([]value.Value, error) {
	if n < 0 || n > vm.Stack.Depth() {
		return nil, newErr(ErrInvalidArg, "count exceeds stack depth")
	}
	out := make([]value.Value, n)
	for j := n - 1; j >= 0; j-- {
		out[j] = vm.Stack.Pop()
	}
	return out, nil
}

// Dup pushes a copy of the n-th value from the top (n=0 duplicates the
// top itself), spec §4.J's dup(n).
func (vm *VM) Dup(n int) error {
	idx := vm.Stack.SP() - 1 - n
	if idx < 0 || idx >= vm.Stack.SP() {
		return newErr(ErrInvalidArg, "dup index out of range")
	}
	vm.Stack.Push(vm.Stack.At(idx))
	return nil
}

// Swap exchanges the top two stack values (spec §4.J swap()).
func (vm *VM) Swap() error {
	sp := vm.Stack.SP()
	if sp < 2 {
		return newErr(ErrGeneral, "swap: fewer than two values on stack")
	}
	a, b := vm.Stack.At(sp-1), vm.Stack.At(sp-2)
	vm.Stack.SetAt(sp-1, b)
	vm.Stack.SetAt(sp-2, a)
	return nil
}

// Drop pops count values and returns the remaining depth; count==0
// removes nothing and just reports the current depth (spec §4.J
// drop(0)). count greater than the current depth empties the stack
// entirely rather than underflowing, matching the original's "frame
// will be empty" behavior.
func (vm *VM) Drop(count int) int {
	if count > 0 {
		n := count
		if n > vm.Stack.Depth() {
			n = vm.Stack.Depth()
		}
		vm.Stack.TruncateTo(vm.Stack.Depth() - n)
	}
	return vm.Stack.Depth()
}

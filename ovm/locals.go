package ovm

import "j5.nz/ovm/internal/value"

// LoadLocal pushes the i-th local or argument relative to the current
// frame (spec §4.J load_local): negative i indexes arguments counting
// forward from the first declared argument (-1 is the first), positive
// indexes locals above fp, 0 means top-of-stack.
func (vm *VM) LoadLocal(i int) error {
	idx, ok := vm.Stack.LocalIndex(i)
	if !ok {
		return newErr(ErrNotFound, "load_local: index out of range")
	}
	vm.Stack.Push(vm.Stack.At(idx))
	return nil
}

// LoadGlobal pushes the named global, searching the current module
// then the base module (spec §4.J load_global).
func (vm *VM) LoadGlobal(name string) error {
	v, exc := vm.Interp.LookupGlobal(vm.Interp.CurrentModule(), name)
	if exc != value.Nil {
		return newErr(ErrNotFound, "load_global: "+name+" not found")
	}
	vm.Stack.Push(v)
	return nil
}

// LoadAttribute pushes obj.name, where obj is the local/argument at
// index (spec §4.J load_attribute): a module looks up its global
// table, anything else resolves the class attribute/method table.
func (vm *VM) LoadAttribute(index int, name string) error {
	idx, ok := vm.Stack.LocalIndex(index)
	if !ok {
		return newErr(ErrNotFound, "load_attribute: index out of range")
	}
	v, exc := vm.Interp.LoadAttribute(vm.Stack.At(idx), name)
	if exc != value.Nil {
		return newErr(ErrNotFound, "load_attribute: "+name+" not found")
	}
	vm.Stack.Push(v)
	return nil
}

// StoreLocal pops the top of stack into the i-th local or argument
// (spec §4.J store_local).
func (vm *VM) StoreLocal(i int) error {
	idx, ok := vm.Stack.LocalIndex(i)
	if !ok {
		return newErr(ErrNotFound, "store_local: index out of range")
	}
	vm.Stack.SetAt(idx, vm.Stack.Pop())
	return nil
}

// StoreGlobal pops the top of stack into name in the current module
// (spec §4.J store_global), declaring the global if it doesn't already
// exist there.
func (vm *VM) StoreGlobal(name string) error {
	v := vm.Stack.Pop()
	mod := vm.Interp.CurrentModule()
	if _, ok := vm.Reg.ModuleGlobalIndex(mod, name); !ok {
		vm.Reg.ModuleDeclareGlobal(mod, name)
	}
	vm.Reg.ModuleSetGlobal(mod, name, v)
	return nil
}

// StoreAttribute pops the top of stack and assigns it as an attribute
// of the local/argument at index, or a module global if that value is
// a module (spec §4.J store_attribute).
func (vm *VM) StoreAttribute(index int, name string) error {
	idx, ok := vm.Stack.LocalIndex(index)
	if !ok {
		return newErr(ErrNotFound, "store_attribute: index out of range")
	}
	v := vm.Stack.Pop()
	exc := vm.Interp.StoreAttribute(vm.Stack.At(idx), name, v)
	if exc != value.Nil {
		return newErr(ErrNotFound, "store_attribute: "+name+" not found")
	}
	return nil
}

package ovm

import (
	"j5.nz/ovm/internal/modmgr"
	"j5.nz/ovm/internal/value"
)

// InvokeFlags mirrors the embedding API's OWIZ_IVK_* bits (spec §4.J
// invoke).
type InvokeFlags uint32

const (
	// InvokeMethod treats the callable-position value as a method-name
	// symbol, resolved against the first argument's class (the
	// receiver) rather than invoked directly.
	InvokeMethod InvokeFlags = 1 << iota
	// InvokeModule treats the callable-position value as a module.
	// Together with InvokeModuleMain it calls the module's declared
	// `main` global; alone it returns ErrNotImplemented.
	InvokeModule
	_ // bit 2 reserved, unused in this core
	_ // bit 3 reserved, unused in this core
	// InvokeNoReturn discards the return value rather than pushing it.
	InvokeNoReturn
	// InvokeModuleMain is used together with InvokeModule; without it,
	// InvokeModule alone is not implemented by this embedding API since
	// a module's top-level callable is an internal modmgr implementation
	// detail (re-running it is exposed instead through
	// MakeModule's FlagReload).
	InvokeModuleMain
)

// Invoke calls the callable at sp-argc with the argc values above it
// (spec §4.J invoke): the callable, method name, or module is popped
// along with its arguments, and the result is pushed in its place
// unless InvokeNoReturn is set. A thrown exception is pushed regardless
// of InvokeNoReturn and reported as ErrGeneral; the other error returns
// push nothing.
func (vm *VM) Invoke(argc int, flags InvokeFlags) error {
	base := vm.Stack.SP() - argc - 1
	if base < 0 {
		return newErr(ErrInvalidArg, "invoke: argc exceeds stack depth")
	}
	fnSlot := vm.Stack.At(base)
	args := make([]value.Value, argc)
	for k := 0; k < argc; k++ {
		args[k] = vm.Stack.At(base + 1 + k)
	}
	// Truncate before the nested Invoke, same as the Call opcode does
	// (interp.go), so the callable/args region isn't kept doubly alive
	// on the stack for the duration of the call.
	vm.Stack.TruncateTo(base)

	var result, exc value.Value
	switch {
	case flags&InvokeModule != 0:
		if flags&InvokeModuleMain == 0 {
			return newErr(ErrNotImplemented, "invoke: bare module run not implemented, use MakeModule with FlagReload")
		}
		main, ok := vm.Reg.ModuleGetGlobal(fnSlot, "main")
		if !ok {
			return newErr(ErrNotFound, "invoke: module has no `main`")
		}
		result, exc = vm.Interp.Invoke(main, args)

	case flags&InvokeMethod != 0:
		if argc < 1 {
			return newErr(ErrInvalidArg, "invoke: method call needs at least one argument (the receiver)")
		}
		if !vm.Reg.IsSymbol(fnSlot) {
			return newErr(ErrTypeMismatch, "invoke: method call needs a symbol in the callable position")
		}
		method, mexc := vm.Interp.ResolveMethod(args[0], vm.Reg.SymbolName(fnSlot))
		if mexc != value.Nil {
			result, exc = value.Nil, mexc
			break
		}
		result, exc = vm.Interp.Invoke(method, args)

	default:
		result, exc = vm.Interp.Invoke(fnSlot, args)
	}

	if exc != value.Nil {
		vm.Stack.Push(exc)
		return newErr(ErrGeneral, "invoke: exception thrown")
	}
	if flags&InvokeNoReturn == 0 {
		vm.Stack.Push(result)
	}
	return nil
}

// MakeModule loads (or reloads) a module by name through the module
// manager and pushes the result — a module object, or the exception
// thrown while loading it (spec §4.I/§4.J make_module).
func (vm *VM) MakeModule(name string, reload bool) error {
	var flags modmgr.LoadFlags
	if reload {
		flags = modmgr.FlagReload
	}
	mod, exc := vm.Modules.Load(name, flags)
	if exc != value.Nil {
		vm.Stack.Push(exc)
		return newErr(ErrGeneral, "make_module: "+name+" failed to load")
	}
	vm.Stack.Push(mod)
	return nil
}

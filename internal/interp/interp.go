package interp

import (
	"j5.nz/ovm/internal/callstack"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/objmodel"
	"j5.nz/ovm/internal/symtab"
	"j5.nz/ovm/internal/value"
)

// ModuleResolver looks up a module by name for the `LdMod` opcode.
// Wired by the owning package (ovm) rather than imported directly from
// internal/modmgr, since the module manager's source-module path in
// turn needs to run compiled top-level code through this interpreter —
// a direct import either way would cycle.
type ModuleResolver func(name string) (value.Value, bool)

// Interp is the bytecode interpreter's mutable execution context: the
// "register cache" of spec §5 (sp/fp/ip kept authoritative on the VM's
// own stack/frame structures, with ip/curFn/curMod cached here and
// committed implicitly since every allocation path goes through Heap,
// which never reads interpreter-local state directly).
type Interp struct {
	H       *heap.Heap
	Reg     *objmodel.Registry
	Syms    *symtab.Pool
	Stack   *callstack.Stack
	Modules ModuleResolver

	BaseModule value.Value

	curFn  value.Value
	curMod value.Value
	ip     int
}

func New(h *heap.Heap, reg *objmodel.Registry, syms *symtab.Pool, stack *callstack.Stack) *Interp {
	return &Interp{H: h, Reg: reg, Syms: syms, Stack: stack}
}

// VisitRoots is the GC root visitor for this interpreter's live state:
// the operand stack, every executing frame's function object (which may
// otherwise have no reachable reference once its own arguments are
// popped mid-call), the base module, and this struct's own cached
// curFn/curMod — the dispatch loop's hot copies of the innermost
// frame's function and module, which need the same address rewrite a
// compacting full GC applies everywhere else or the next opcode fetch
// in this frame would read through a stale pointer. The owning VM
// registers this with heap.AddGCRoot at Create time.
func (i *Interp) VisitRoots(op heap.VisitOp, visit heap.VisitFunc) {
	rewrite := op == heap.VisitMove
	i.Stack.VisitFields(visit, rewrite)
	i.Stack.VisitFrameFns(visit, rewrite)
	if i.BaseModule != value.Nil {
		nv := visit(i.BaseModule)
		if rewrite {
			i.BaseModule = nv
		}
	}
	// curFn/curMod are the dispatch loop's own cached copies of the
	// innermost frame's function and its module — already reachable
	// through VisitFrameFns above, but a compacting full GC forwards
	// addresses, so these cached copies need the same rewrite or the
	// next opcode fetch in this very frame would dereference a stale
	// pre-compaction address.
	if i.curFn != value.Nil {
		nv := visit(i.curFn)
		if rewrite {
			i.curFn = nv
		}
	}
	if i.curMod != value.Nil {
		nv := visit(i.curMod)
		if rewrite {
			i.curMod = nv
		}
	}
}

// CurrentModule returns the module of whichever function is executing
// right now (falling back to BaseModule when no frame is active),
// letting the embedding API's load_global/store_global operate against
// the right module from inside a native function call.
func (i *Interp) CurrentModule() value.Value {
	if i.curMod != value.Nil {
		return i.curMod
	}
	return i.BaseModule
}

// prepArgs validates args against an arity spec, filling missing
// optional arguments with the nil singleton (spec §4.H).
func (i *Interp) prepArgs(argCount, optionalArgCount int, variadic bool, args []value.Value) ([]value.Value, value.Value) {
	if variadic {
		min := -1 - argCount
		if len(args) < min {
			return nil, i.arityError(min, -1, len(args))
		}
		return args, value.Nil
	}
	min := argCount
	max := argCount + optionalArgCount
	if len(args) < min || len(args) > max {
		return nil, i.arityError(min, max, len(args))
	}
	if len(args) == max {
		return args, value.Nil
	}
	padded := make([]value.Value, max)
	copy(padded, args)
	for j := len(args); j < max; j++ {
		padded[j] = i.Reg.NilValue
	}
	return padded, value.Nil
}

// Invoke calls callable with args, running its bytecode to completion
// (recursively, for nested Call opcodes) and returning either a result
// or an exception — never both, mirroring NativeEntry's own contract.
func (i *Interp) Invoke(callable value.Value, args []value.Value) (value.Value, value.Value) {
	if i.Reg.IsNativeFunction(callable) {
		argc, optc, variadic := i.Reg.NativeFunctionArity(callable)
		prepped, exc := i.prepArgs(argc, optc, variadic, args)
		if exc != value.Nil {
			return value.Nil, exc
		}
		entry := i.Reg.NativeFunctionEntry(callable)
		return entry(i.Reg, prepped)
	}
	if !i.Reg.IsFunction(callable) {
		return value.Nil, i.typeError("value is not callable")
	}
	argc, optc, variadic := i.Reg.FunctionArity(callable)
	prepped, exc := i.prepArgs(argc, optc, variadic, args)
	if exc != value.Nil {
		return value.Nil, exc
	}

	argBase := i.Stack.SP()
	for _, a := range prepped {
		i.Stack.Push(a)
	}

	savedFn, savedIP, savedMod := i.curFn, i.ip, i.curMod
	i.Stack.PushFrame(argBase, callable, false)
	i.curFn = callable
	i.curMod = i.Reg.FunctionModule(callable)
	i.ip = 0

	result, exc := i.run()

	i.curFn, i.ip, i.curMod = savedFn, savedIP, savedMod
	return result, exc
}

func (i *Interp) code() []byte { return i.Reg.FunctionBytecode(i.curFn) }

func (i *Interp) readU8() int {
	b := i.code()[i.ip]
	i.ip++
	return int(b)
}

func (i *Interp) readI8() int { return int(int8(i.readU8())) }

func (i *Interp) readU16() int {
	c := i.code()
	v := int(c[i.ip]) | int(c[i.ip+1])<<8
	i.ip += 2
	return v
}

func (i *Interp) readI16() int { return int(int16(i.readU16())) }

// run executes the current frame's bytecode from i.ip until a Ret
// family opcode retires that exact frame, or an exception propagates
// out of it. It is the recursive heart of the interpreter: a nested
// Call is handled by calling Invoke again, so Go's own call stack
// mirrors the VM's frame list one level per VM call — a deliberate
// simplification of spec §4.H's flat dispatch loop, documented in
// DESIGN.md.
func (i *Interp) run() (value.Value, value.Value) {
	for {
		op := Op(i.readU8())
		switch op {
		case OpNop:

		case OpSwap:
			a := i.Stack.Pop()
			b := i.Stack.Pop()
			i.Stack.Push(a)
			i.Stack.Push(b)
		case OpSwapN:
			n := i.readU8()
			top := i.Stack.SP() - 1
			a, b := i.Stack.At(top), i.Stack.At(top-n)
			i.Stack.SetAt(top, b)
			i.Stack.SetAt(top-n, a)
		case OpDrop:
			i.Stack.Pop()
		case OpDropN:
			n := i.readU8()
			for k := 0; k < n; k++ {
				i.Stack.Pop()
			}
		case OpDup:
			i.Stack.Push(i.Stack.Top())
		case OpDupN:
			n := i.readU8()
			i.Stack.Push(i.Stack.At(i.Stack.SP() - 1 - n))

		case OpLdNil:
			i.Stack.Push(i.Reg.NilValue)
		case OpLdBool:
			i.Stack.Push(i.Reg.Bool(i.readU8() != 0))
		case OpLdInt:
			i.Stack.Push(value.FromSmallInt(int64(i.readI8())))
		case OpLdIntW:
			i.Stack.Push(value.FromSmallInt(int64(i.readI16())))
		case OpLdFlt:
			i.Stack.Push(i.Reg.NewFloat(float64(i.readI8())))
		case OpLdCnst:
			idx := i.readU8()
			v, exc := i.constAt(idx)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(v)
		case OpLdCnstW:
			idx := i.readU16()
			v, exc := i.constAt(idx)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(v)
		case OpLdSym:
			idx := i.readU8()
			v, exc := i.symAt(idx)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(v)
		case OpLdSymW:
			idx := i.readU16()
			v, exc := i.symAt(idx)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(v)

		case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpShl, OpShr, OpAnd, OpOr, OpXor:
			if exc := i.binaryArith(op); exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
		case OpNeg, OpInv, OpNot:
			if exc := i.unaryArith(op); exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}

		case OpIs:
			b := i.Stack.Pop()
			a := i.Stack.Pop()
			i.Stack.Push(i.Reg.Bool(a == b))
		case OpCmp, OpCmpLt, OpCmpLe, OpCmpGt, OpCmpGe, OpCmpEq, OpCmpNe:
			res, exc := i.compare(op)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(res)

		case OpLdArg:
			i.Stack.Push(i.Stack.Local(-1 - i.readU8()))
		case OpStArg:
			i.Stack.SetLocal(-1-i.readU8(), i.Stack.Pop())
		case OpLdLoc:
			i.Stack.Push(i.Stack.Local(i.readU8()))
		case OpLdLocW:
			i.Stack.Push(i.Stack.Local(i.readU16()))
		case OpStLoc:
			i.Stack.SetLocal(i.readU8(), i.Stack.Pop())
		case OpStLocW:
			i.Stack.SetLocal(i.readU16(), i.Stack.Pop())

		case OpLdGlob:
			i.Stack.Push(i.Reg.ModuleGetGlobalByIndex(i.curMod, i.readU8()))
		case OpLdGlobW:
			i.Stack.Push(i.Reg.ModuleGetGlobalByIndex(i.curMod, i.readU16()))
		case OpStGlob:
			i.Reg.ModuleSetGlobalByIndex(i.curMod, i.readU8(), i.Stack.Pop())
		case OpStGlobW:
			i.Reg.ModuleSetGlobalByIndex(i.curMod, i.readU16(), i.Stack.Pop())
		case OpLdGlobY, OpLdGlobYW:
			name, exc := i.symNameOperand(op == OpLdGlobYW)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			v, exc := i.lookupGlobal(name)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(v)
		case OpStGlobY, OpStGlobYW:
			name, exc := i.symNameOperand(op == OpStGlobYW)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			val := i.Stack.Pop()
			if !i.Reg.ModuleSetGlobal(i.curMod, name, val) {
				return value.Nil, i.propagate(i.nameError("undefined global: " + name))
			}

		case OpLdAttrY, OpLdAttrYW:
			name, exc := i.symNameOperand(op == OpLdAttrYW)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			obj := i.Stack.Pop()
			v, exc := i.loadAttribute(obj, name)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(v)
		case OpStAttrY, OpStAttrYW:
			name, exc := i.symNameOperand(op == OpStAttrYW)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			obj := i.Stack.Pop()
			val := i.Stack.Pop()
			if exc := i.storeAttribute(obj, name, val); exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}

		case OpLdElem:
			idx := i.Stack.Pop()
			obj := i.Stack.Pop()
			v, exc := i.loadElement(obj, idx)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(v)
		case OpStElem:
			idx := i.Stack.Pop()
			obj := i.Stack.Pop()
			val := i.Stack.Pop()
			if exc := i.storeElement(obj, idx, val); exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}

		case OpJmp:
			off := i.readI8()
			i.ip += off
		case OpJmpW:
			off := i.readI16()
			i.ip += off
		case OpJmpWhen, OpJmpWhenW, OpJmpUnls, OpJmpUnlsW:
			wide := op == OpJmpWhenW || op == OpJmpUnlsW
			var off int
			if wide {
				off = i.readI16()
			} else {
				off = i.readI8()
			}
			cond := i.Stack.Pop()
			if !i.Reg.IsBool(cond) {
				return value.Nil, i.propagate(i.typeError("branch condition is not a bool"))
			}
			truthy := i.Reg.BoolValue(cond)
			when := op == OpJmpWhen || op == OpJmpWhenW
			if truthy == when {
				i.ip += off
			}

		case OpLdMod:
			idx := i.readU16()
			name, exc := i.symAt(idx)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			if i.Modules == nil {
				return value.Nil, i.propagate(i.nameError("no module resolver configured"))
			}
			mod, ok := i.Modules(i.Reg.SymbolName(name))
			if !ok {
				return value.Nil, i.propagate(i.nameError("module not found: " + i.Reg.SymbolName(name)))
			}
			i.Stack.Push(mod)

		case OpRet:
			rv := i.Stack.Pop()
			f := i.Stack.CurrentFrame()
			argBase := f.ArgBase
			i.Stack.PopFrame()
			i.Stack.TruncateTo(argBase)
			return rv, value.Nil
		case OpRetLoc:
			k := i.readU8()
			var rv value.Value
			if k == RetLocTOS {
				rv = i.Stack.Top()
			} else {
				rv = i.Stack.Local(k)
			}
			f := i.Stack.CurrentFrame()
			argBase := f.ArgBase
			i.Stack.PopFrame()
			i.Stack.TruncateTo(argBase)
			return rv, value.Nil

		case OpCall:
			operand := i.readU8()
			argc := operand & CallArgcMask
			noReturn := operand&CallNoReturnBit != 0
			base := i.Stack.SP() - argc - 1
			callable := i.Stack.At(base)
			args := make([]value.Value, argc)
			for k := 0; k < argc; k++ {
				args[k] = i.Stack.At(base + 1 + k)
			}
			i.Stack.TruncateTo(base)
			result, exc := i.Invoke(callable, args)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			if !noReturn {
				i.Stack.Push(result)
			}

		case OpPrepMethY, OpPrepMethYW:
			name, exc := i.symNameOperand(op == OpPrepMethYW)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			receiver := i.Stack.Pop()
			method, exc := i.resolveMethod(receiver, name)
			if exc != value.Nil {
				return value.Nil, i.propagate(exc)
			}
			i.Stack.Push(method)
			i.Stack.Push(receiver)

		default:
			return value.Nil, i.propagate(i.notImplemented("unknown opcode"))
		}
	}
}

func (i *Interp) symNameOperand(wide bool) (string, value.Value) {
	var idx int
	if wide {
		idx = i.readU16()
	} else {
		idx = i.readU8()
	}
	sym, exc := i.symAt(idx)
	if exc != value.Nil {
		return "", exc
	}
	return i.Reg.SymbolName(sym), value.Nil
}

func (i *Interp) constAt(idx int) (value.Value, value.Value) {
	pool := i.Reg.FunctionConstPool(i.curFn)
	v, ok := i.Reg.ArrayGet(pool, idx)
	if !ok {
		return value.Nil, i.operandError("constant pool index out of range")
	}
	return v, value.Nil
}

func (i *Interp) symAt(idx int) (value.Value, value.Value) {
	pool := i.Reg.FunctionSymPool(i.curFn)
	v, ok := i.Reg.ArrayGet(pool, idx)
	if !ok {
		return value.Nil, i.operandError("symbol pool index out of range")
	}
	return v, value.Nil
}

// lookupGlobal searches the current module, then the base module (spec
// §4.H: "LdGlobY name ... searching the current module then the base
// module").
func (i *Interp) lookupGlobal(name string) (value.Value, value.Value) {
	if v, ok := i.Reg.ModuleGetGlobal(i.curMod, name); ok {
		return v, value.Nil
	}
	if i.BaseModule != value.Nil {
		if v, ok := i.Reg.ModuleGetGlobal(i.BaseModule, name); ok {
			return v, value.Nil
		}
	}
	return value.Nil, i.nameError("undefined global: " + name)
}

// LookupGlobal is the exported form of lookupGlobal, reused by the
// embedding API's LoadGlobal operation (spec §4.J) against an
// explicitly supplied module rather than curMod.
func (i *Interp) LookupGlobal(mod value.Value, name string) (value.Value, value.Value) {
	if v, ok := i.Reg.ModuleGetGlobal(mod, name); ok {
		return v, value.Nil
	}
	if i.BaseModule != value.Nil {
		if v, ok := i.Reg.ModuleGetGlobal(i.BaseModule, name); ok {
			return v, value.Nil
		}
	}
	return value.Nil, i.nameError("undefined global: " + name)
}

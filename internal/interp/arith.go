package interp

import "j5.nz/ovm/internal/value"

// operatorSymbols maps each arithmetic/comparison opcode to the symbolic
// method name it falls back to when an operand isn't a small int (spec
// §4.H: "arithmetic ops take an inline small-int fast path; any other
// operand dispatches the operator's symbolic method name on the left
// operand's class").
var operatorSymbols = map[Op]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpShl: "<<", OpShr: ">>", OpAnd: "&", OpOr: "|", OpXor: "^",
	OpNeg: "neg", OpInv: "~", OpNot: "!",
	OpCmp: "<=>",
}

// binaryArith pops two operands, computes op, and pushes the result —
// or returns a (propagated by the caller) exception.
func (i *Interp) binaryArith(op Op) value.Value {
	b := i.Stack.Pop()
	a := i.Stack.Pop()

	if value.IsSmallInt(a) && value.IsSmallInt(b) {
		av, bv := value.ToSmallInt(a), value.ToSmallInt(b)
		switch op {
		case OpAdd:
			i.Stack.Push(value.FromSmallInt(av + bv))
			return value.Nil
		case OpSub:
			i.Stack.Push(value.FromSmallInt(av - bv))
			return value.Nil
		case OpMul:
			i.Stack.Push(value.FromSmallInt(av * bv))
			return value.Nil
		case OpDiv:
			if bv == 0 {
				return i.operandError("division by zero")
			}
			i.Stack.Push(value.FromSmallInt(av / bv))
			return value.Nil
		case OpRem:
			if bv == 0 {
				return i.operandError("division by zero")
			}
			i.Stack.Push(value.FromSmallInt(av % bv))
			return value.Nil
		case OpShl:
			i.Stack.Push(value.FromSmallInt(av << uint(bv&63)))
			return value.Nil
		case OpShr:
			i.Stack.Push(value.FromSmallInt(av >> uint(bv&63)))
			return value.Nil
		case OpAnd:
			i.Stack.Push(value.FromSmallInt(av & bv))
			return value.Nil
		case OpOr:
			i.Stack.Push(value.FromSmallInt(av | bv))
			return value.Nil
		case OpXor:
			i.Stack.Push(value.FromSmallInt(av ^ bv))
			return value.Nil
		}
	}

	result, exc := i.dispatchOperator(a, b, operatorSymbols[op])
	if exc != value.Nil {
		return exc
	}
	i.Stack.Push(result)
	return value.Nil
}

func (i *Interp) unaryArith(op Op) value.Value {
	a := i.Stack.Pop()

	if value.IsSmallInt(a) {
		av := value.ToSmallInt(a)
		switch op {
		case OpNeg:
			i.Stack.Push(value.FromSmallInt(-av))
			return value.Nil
		case OpInv:
			i.Stack.Push(value.FromSmallInt(^av))
			return value.Nil
		case OpNot:
			i.Stack.Push(i.Reg.Bool(av == 0))
			return value.Nil
		}
	}
	if i.Reg.IsBool(a) && op == OpNot {
		i.Stack.Push(i.Reg.Bool(!i.Reg.BoolValue(a)))
		return value.Nil
	}

	method, exc := i.resolveMethod(a, operatorSymbols[op])
	if exc != value.Nil {
		return exc
	}
	result, exc := i.Invoke(method, []value.Value{a})
	if exc != value.Nil {
		return exc
	}
	i.Stack.Push(result)
	return value.Nil
}

// compare implements Cmp and the six relational ops. Cmp and the four
// ordering ops (Lt/Le/Gt/Ge) reduce to a `<=>` dispatch and a sign check
// (spec §4.H); CmpEq/CmpNe use the registry's Eq function instead. Is is
// handled directly in run, not here.
func (i *Interp) compare(op Op) (value.Value, value.Value) {
	b := i.Stack.Pop()
	a := i.Stack.Pop()

	if op == OpCmpEq || op == OpCmpNe {
		eq := i.Reg.Eq(i.Reg, a, b)
		if op == OpCmpNe {
			eq = !eq
		}
		return i.Reg.Bool(eq), value.Nil
	}

	sign, exc := i.threeWayCompare(a, b)
	if exc != value.Nil {
		return value.Nil, exc
	}
	switch op {
	case OpCmp:
		return value.FromSmallInt(int64(sign)), value.Nil
	case OpCmpLt:
		return i.Reg.Bool(sign < 0), value.Nil
	case OpCmpLe:
		return i.Reg.Bool(sign <= 0), value.Nil
	case OpCmpGt:
		return i.Reg.Bool(sign > 0), value.Nil
	case OpCmpGe:
		return i.Reg.Bool(sign >= 0), value.Nil
	}
	return value.Nil, i.notImplemented("unreachable comparison opcode")
}

func (i *Interp) threeWayCompare(a, b value.Value) (int, value.Value) {
	if value.IsSmallInt(a) && value.IsSmallInt(b) {
		av, bv := value.ToSmallInt(a), value.ToSmallInt(b)
		switch {
		case av < bv:
			return -1, value.Nil
		case av > bv:
			return 1, value.Nil
		default:
			return 0, value.Nil
		}
	}
	result, exc := i.dispatchOperator(a, b, "<=>")
	if exc != value.Nil {
		return 0, exc
	}
	if !value.IsSmallInt(result) {
		return 0, i.typeError("`<=>` must return an integer sign")
	}
	return int(value.ToSmallInt(result)), value.Nil
}

// dispatchOperator resolves symbol on a's class and invokes it with b.
func (i *Interp) dispatchOperator(a, b value.Value, symbol string) (value.Value, value.Value) {
	method, exc := i.resolveMethod(a, symbol)
	if exc != value.Nil {
		return value.Nil, exc
	}
	return i.Invoke(method, []value.Value{a, b})
}

// resolveMethod looks up name as a method on v's class, following
// spec §4.H's `__find_meth__` fallback when the attribute/method table
// lookup misses.
func (i *Interp) resolveMethod(v value.Value, name string) (value.Value, value.Value) {
	cls := i.H.ClassOf(v)
	idx, isMethod, found := i.Reg.Classes.Resolve(cls, name)
	if found && isMethod {
		return i.Reg.Classes.Method(cls, idx), value.Nil
	}
	if findMeth, _, ok := i.Reg.Classes.Resolve(cls, "__find_meth__"); ok {
		fallback := i.Reg.Classes.Method(cls, findMeth)
		return i.Invoke(fallback, []value.Value{v, i.Reg.NewString(name)})
	}
	return value.Nil, i.nameError("no method `" + name + "` on " + i.Reg.Classes.Name(cls))
}

// loadAttribute handles both module-global and class-attribute reads
// (spec §4.H LdAttrY: "a module looks up its global table; anything
// else resolves the class attribute-slot table, falling back to
// `__find_attr__`").
func (i *Interp) loadAttribute(obj value.Value, name string) (value.Value, value.Value) {
	if i.Reg.IsModule(obj) {
		if v, ok := i.Reg.ModuleGetGlobal(obj, name); ok {
			return v, value.Nil
		}
		return value.Nil, i.nameError("module has no global: " + name)
	}
	cls := i.H.ClassOf(obj)
	idx, isMethod, found := i.Reg.Classes.Resolve(cls, name)
	if found && !isMethod {
		return i.H.GetField(obj, idx), value.Nil
	}
	if found && isMethod {
		return i.Reg.Classes.Method(cls, idx), value.Nil
	}
	if findAttr, _, ok := i.Reg.Classes.Resolve(cls, "__find_attr__"); ok {
		fallback := i.Reg.Classes.Method(cls, findAttr)
		return i.Invoke(fallback, []value.Value{obj, i.Reg.NewString(name)})
	}
	return value.Nil, i.nameError("no attribute `" + name + "` on " + i.Reg.Classes.Name(cls))
}

func (i *Interp) storeAttribute(obj value.Value, name string, val value.Value) value.Value {
	if i.Reg.IsModule(obj) {
		if i.Reg.ModuleSetGlobal(obj, name, val) {
			return value.Nil
		}
		return i.nameError("module has no global: " + name)
	}
	cls := i.H.ClassOf(obj)
	idx, isMethod, found := i.Reg.Classes.Resolve(cls, name)
	if !found || isMethod {
		return i.nameError("no attribute `" + name + "` on " + i.Reg.Classes.Name(cls))
	}
	i.H.SetField(obj, idx, val)
	return value.Nil
}

// loadElement/storeElement dispatch LdElem/StElem by container type
// (spec §4.H): arrays and tuples index by small int, maps by arbitrary
// hashable key; anything else falls back to `__getitem__`/`__setitem__`.
func (i *Interp) loadElement(obj, idx value.Value) (value.Value, value.Value) {
	switch {
	case i.Reg.IsArray(obj):
		if !value.IsSmallInt(idx) {
			return value.Nil, i.typeError("array index must be an int")
		}
		v, ok := i.Reg.ArrayGet(obj, int(value.ToSmallInt(idx)))
		if !ok {
			return value.Nil, i.operandError("array index out of range")
		}
		return v, value.Nil
	case i.Reg.IsTuple(obj):
		if !value.IsSmallInt(idx) {
			return value.Nil, i.typeError("tuple index must be an int")
		}
		n := int(value.ToSmallInt(idx))
		if n < 0 || n >= i.Reg.TupleLen(obj) {
			return value.Nil, i.operandError("tuple index out of range")
		}
		return i.Reg.TupleGet(obj, n), value.Nil
	case i.Reg.IsMap(obj):
		v, ok := i.Reg.MapGet(obj, idx)
		if !ok {
			return value.Nil, i.nameError("key not found")
		}
		return v, value.Nil
	}
	method, exc := i.resolveMethod(obj, "__getitem__")
	if exc != value.Nil {
		return value.Nil, exc
	}
	return i.Invoke(method, []value.Value{obj, idx})
}

func (i *Interp) storeElement(obj, idx, val value.Value) value.Value {
	switch {
	case i.Reg.IsArray(obj):
		if !value.IsSmallInt(idx) {
			return i.typeError("array index must be an int")
		}
		if !i.Reg.ArraySet(obj, int(value.ToSmallInt(idx)), val) {
			return i.operandError("array index out of range")
		}
		return value.Nil
	case i.Reg.IsMap(obj):
		if err := i.Reg.MapSet(obj, idx, val); err != nil {
			return i.typeError(err.Error())
		}
		return value.Nil
	}
	method, exc := i.resolveMethod(obj, "__setitem__")
	if exc != value.Nil {
		return exc
	}
	_, exc = i.Invoke(method, []value.Value{obj, idx, val})
	return exc
}

// LoadAttribute/StoreAttribute/LoadElement/StoreElement/ResolveMethod
// are exported wrappers around the LdAttrY/StAttrY/LdElem/StElem/
// PrepMethY opcode handlers' own dispatch logic, reused as-is by the
// embedding API (spec §4.J) so it never reimplements class/module
// attribute resolution.
func (i *Interp) LoadAttribute(obj value.Value, name string) (value.Value, value.Value) {
	return i.loadAttribute(obj, name)
}

func (i *Interp) StoreAttribute(obj value.Value, name string, val value.Value) value.Value {
	return i.storeAttribute(obj, name, val)
}

func (i *Interp) LoadElement(obj, idx value.Value) (value.Value, value.Value) {
	return i.loadElement(obj, idx)
}

func (i *Interp) StoreElement(obj, idx, val value.Value) value.Value {
	return i.storeElement(obj, idx, val)
}

func (i *Interp) ResolveMethod(v value.Value, name string) (value.Value, value.Value) {
	return i.resolveMethod(v, name)
}

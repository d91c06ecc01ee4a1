// Package modmgr implements the module manager (SPEC_FULL.md §4.I): a
// name→module cache plus native-module definitions and a compiled-
// source load path. It is the second half of the `LdMod` opcode's
// contract — internal/interp calls into it through a narrow function
// value rather than importing it directly, since a compiled source
// module's top-level code may itself need to run through
// internal/interp.Invoke, which would otherwise cycle.
package modmgr

import (
	"github.com/pkg/errors"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/objmodel"
	"j5.nz/ovm/internal/value"
)

// LoadFlags mirrors the embedding API's make_module flags (spec §4.J).
type LoadFlags uint32

const (
	// FlagReload forces a cached module to be reloaded.
	FlagReload LoadFlags = 1 << iota
)

// NativeModuleDef is a compiled-in module: a name and the set of
// exported functions/values installed as its globals at load time.
type NativeModuleDef struct {
	Name    string
	Globals map[string]value.Value
}

// CompiledUnit is the opaque shape a compiler would hand the manager
// for a source module: a single top-level callable. The manager always
// registers it in the resulting module's global table under
// anonymousSymbol (spec §4.I step 3: "a module containing the compiled
// top-level function under the anonymous symbol"). The compiler itself is out of scope for this
// core; embedders construct CompiledUnit values directly or via their
// own front end.
type CompiledUnit struct {
	TopLevel value.Value // a Function or NativeFunction object
}

// SourceLoader resolves name to a CompiledUnit by searching the
// embedder's configured module paths and compiling what it finds.
// Returns ok=false (no error) when name simply isn't found there, vs.
// a non-nil error for a genuine compile/read failure.
type SourceLoader func(name string) (CompiledUnit, bool, error)

// Invoker runs a module's top-level callable to populate its globals,
// mirroring internal/interp.Interp.Invoke's (result, exception)
// contract. Injected rather than imported to break the modmgr↔interp
// cycle described in the package doc.
type Invoker func(callable value.Value, args []value.Value) (value.Value, value.Value)

// Manager is the VM's module cache.
type Manager struct {
	Reg *objmodel.Registry

	cache  map[string]value.Value
	native map[string]NativeModuleDef

	Source SourceLoader
	Invoke Invoker
}

func New(reg *objmodel.Registry) *Manager {
	m := &Manager{
		Reg:    reg,
		cache:  map[string]value.Value{},
		native: map[string]NativeModuleDef{},
	}
	reg.H.AddGCRoot(m, m.VisitRoots)
	return m
}

// VisitRoots exposes every cached module to a GC root visitor, so a
// module stays alive between Load calls even when the embedder holds
// no direct reference to it.
func (m *Manager) VisitRoots(op heap.VisitOp, visit heap.VisitFunc) {
	rewrite := op == heap.VisitMove
	for name, v := range m.cache {
		nv := visit(v)
		if rewrite {
			m.cache[name] = nv
		}
	}
}

// RegisterNative installs a compiled-in module definition, available to
// Load under def.Name regardless of search path configuration.
func (m *Manager) RegisterNative(def NativeModuleDef) error {
	if _, exists := m.native[def.Name]; exists {
		return errors.Errorf("modmgr: native module %q already registered", def.Name)
	}
	m.native[def.Name] = def
	return nil
}

// Resolve adapts Load to internal/interp.ModuleResolver's shape (name
// -> (value, ok)), swallowing load failures as a plain miss — LdMod's
// own exception path (spec §4.H) is expected to re-raise via the
// interpreter's own error-kind constructors, not modmgr's.
func (m *Manager) Resolve(name string) (value.Value, bool) {
	mod, exc := m.Load(name, 0)
	if exc != value.Nil {
		return value.Nil, false
	}
	return mod, true
}

// Load implements the four-step algorithm of spec §4.I. It returns
// either a module object or an exception — never both — matching every
// other VM-visible operation's (value, exception) contract.
func (m *Manager) Load(name string, flags LoadFlags) (value.Value, value.Value) {
	if cached, ok := m.cache[name]; ok && flags&FlagReload == 0 {
		return cached, value.Nil
	}

	if def, ok := m.native[name]; ok {
		mod := m.buildNativeModule(def)
		m.cache[name] = mod
		return mod, value.Nil
	}

	if m.Source != nil {
		unit, found, err := m.Source(name)
		if err != nil {
			return value.Nil, m.Reg.NewException(m.Reg.NewString("module load failed: " + errors.Wrap(err, "modmgr").Error()))
		}
		if found {
			mod, exc := m.buildSourceModule(name, unit)
			if exc != value.Nil {
				return value.Nil, exc
			}
			m.cache[name] = mod
			return mod, value.Nil
		}
	}

	return value.Nil, m.Reg.NewException(m.Reg.NewString("module not found: " + name))
}

func (m *Manager) buildNativeModule(def NativeModuleDef) value.Value {
	mod := m.Reg.NewModule(def.Name, true)
	for name, v := range def.Globals {
		idx := m.Reg.ModuleDeclareGlobal(mod, name)
		m.Reg.ModuleSetGlobalByIndex(mod, idx, v)
	}
	return mod
}

// buildSourceModule creates the module, registers its top-level
// function under the anonymous symbol global, then runs it (populating
// whatever further globals its body declares) before handing the
// finished module back.
func (m *Manager) buildSourceModule(name string, unit CompiledUnit) (value.Value, value.Value) {
	mod := m.Reg.NewModule(name, true)
	idx := m.Reg.ModuleDeclareGlobal(mod, anonymousSymbol)
	m.Reg.ModuleSetGlobalByIndex(mod, idx, unit.TopLevel)

	if m.Invoke == nil {
		return value.Nil, m.Reg.NewException(m.Reg.NewString("modmgr: no invoker configured to run module top-level"))
	}
	_, exc := m.Invoke(unit.TopLevel, []value.Value{mod})
	if exc != value.Nil {
		return value.Nil, exc
	}
	return mod, value.Nil
}

// anonymousSymbol is the name a compiled unit's top-level function is
// registered under, matching the embedding API's own convention for
// unnamed top-level entries (spec §4.I: "under the anonymous symbol").
const anonymousSymbol = ""

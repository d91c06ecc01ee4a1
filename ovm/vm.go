// Package ovm is the embedding API (SPEC_FULL.md §4.J): the stable
// surface a host program uses to create a VM, push/make/load/store/read
// values on its operand stack, and invoke callables.
package ovm

import (
	"github.com/google/uuid"
	"j5.nz/ovm/internal/callstack"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/interp"
	"j5.nz/ovm/internal/modmgr"
	"j5.nz/ovm/internal/objmodel"
	"j5.nz/ovm/internal/symtab"
	"j5.nz/ovm/internal/value"
)

// VM is one embeddable interpreter instance (spec §4.J, §4.K).
type VM struct {
	ID uuid.UUID

	H       *heap.Heap
	Reg     *objmodel.Registry
	Syms    *symtab.Pool
	Stack   *callstack.Stack
	Interp  *interp.Interp
	Modules *modmgr.Manager

	base value.Value

	cfg config
}

type config struct {
	stackSize   int
	defaultPath []string
	verbose     string
}

// Option configures a VM at Create time.
type Option func(*config)

// WithStackSize overrides the operand stack's initial capacity (the
// sysctl STACKSIZE tag, spec §6).
func WithStackSize(n int) Option {
	return func(c *config) { c.stackSize = n }
}

// WithDefaultPath sets the module search path (sysctl DEFAULTPATH).
func WithDefaultPath(paths []string) Option {
	return func(c *config) { c.defaultPath = paths }
}

// Create returns a fresh VM with its symbol pool, class table bootstrap
// and base module already built (spec §6: "create() returns a fresh VM
// with symbol pool, class table bootstrap, base module").
func Create(opts ...Option) *VM {
	cfg := config{stackSize: callstack.MinSize}
	for _, o := range opts {
		o(&cfg)
	}

	h := heap.New()
	reg := objmodel.NewRegistry(h)
	syms := reg.NewSymbolPool()
	stack := callstack.New(cfg.stackSize)
	it := interp.New(h, reg, syms, stack)
	mods := modmgr.New(reg) // registers itself as a GC root

	base := reg.NewModule("__base__", true)
	it.BaseModule = base
	it.Modules = mods.Resolve
	mods.Invoke = it.Invoke

	h.AddGCRoot(reg, reg.VisitRoots)
	h.AddGCRoot(it, it.VisitRoots)

	return &VM{
		ID:      uuid.New(),
		H:       h,
		Reg:     reg,
		Syms:    syms,
		Stack:   stack,
		Interp:  it,
		Modules: mods,
		base:    base,
		cfg:     cfg,
	}
}

// Destroy tears the VM down: every reachable object's finalizer runs
// before the underlying heap chunks are freed (spec §6). Dropping every
// registered root first, then running one final FullGC, makes the
// entire heap unreachable so the sweep pass finalizes it all — rather
// than waiting for whatever the embedder happens to still reference.
// The heap's memory itself is reclaimed by Go's allocator once the VM
// value is dropped; only the finalizer side effect needs to happen
// deterministically here.
func (vm *VM) Destroy() {
	vm.H.RemoveGCRoot(vm.Reg)
	vm.H.RemoveGCRoot(vm.Interp)
	vm.H.RemoveGCRoot(vm.Modules)
	vm.H.FullGC(nil)
}

// BaseModule returns the VM's base module (the fallback search target
// for LdGlobY, spec §4.H).
func (vm *VM) BaseModule() value.Value { return vm.base }

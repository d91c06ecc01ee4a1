package heap

import (
	"math/bits"

	"j5.nz/ovm/internal/value"
)

// space identifies which of the three GC spaces an address belongs to.
// Addresses are opaque handles (not real process pointers): the top two
// bits of the machine word pick the space, the remainder is a per-space
// slot index into that space's backing slice. This mirrors the
// teacher's own approach of addressing objects as integer offsets into
// a flat simulated memory (std/compiler/backend_vm.go's vm.memory
// []byte plus uint64 "addresses") while staying within safe Go: no
// unsafe.Pointer<->uintptr round-tripping is needed because every
// address is resolved back to a *cell through the owning space's slice,
// never cast directly to a Go pointer.
type space uint8

const (
	spaceNew space = iota
	spaceOld
	spaceBig
)

const (
	spaceShift = bits.UintSize - 2
	spaceMask  = uintptr(3) << spaceShift
	slotMask   = ^spaceMask
)

// Slot indices are packed starting at bit 1, never bit 0: bit 0 is the
// small-int tag (value package), so every address this package hands
// out must keep it clear regardless of the slot's parity. The slot is
// stored as slot+1 so that no address, not even new space's slot 0,
// equals value.Nil (zero).
func makeAddr(s space, slot int) value.Value {
	return value.FromPointer((uintptr(s) << spaceShift) | ((uintptr(slot+1) << 1) & slotMask))
}

func splitAddr(v value.Value) (space, int) {
	a := value.ToPointer(v)
	return space(a >> spaceShift), int((a&slotMask)>>1) - 1
}

package cache

import (
	"unsafe"

	"bptree/blocks"
)

const (
	// alignment matches the architecture's natural word size, so block data
	// following the per-slot bookkeeping header stays aligned.
	alignment = 8

	// headerSize is the size, in bytes, of the in-memory bookkeeping header
	// prefixed to every cached slot. It never touches disk.
	headerSize = (int64(unsafe.Sizeof(slotHeader{})-1)/alignment + 1) * alignment
)

// slotState records what a cache slot currently holds.
type slotState byte

// Enum of possible slot states.
const (
	slotFree slotState = iota
	slotClean
	slotDirty
)

// slotHeader is the bookkeeping prefix of a cached slot, identifying which
// block address currently occupies the slot and whether it has pending
// writes.
type slotHeader struct {
	Address blocks.BlockAddress
	State   slotState
}

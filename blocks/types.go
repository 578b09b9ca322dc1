package blocks

// BlockAddress is the address (index) of a block in the backing store. The
// zero value doubles as the null terminator of the free-list chain and as
// "no child" in an otherwise-empty interior node.
type BlockAddress uint64

// NullAddress is the free-list chain terminator and the superblock's own
// address.
const NullAddress BlockAddress = 0

// NodeType is the tag stored in every block's header identifying what the
// remaining bytes of the block mean.
type NodeType byte

// Node types. There is always exactly one SUPERBLOCK and, at any moment,
// exactly one ROOT.
const (
	SuperblockType NodeType = iota
	RootType
	InteriorType
	LeafType
	UnallocatedType
)

// String renders the node type for diagnostics and Display output.
func (t NodeType) String() string {
	switch t {
	case SuperblockType:
		return "SUPERBLOCK"
	case RootType:
		return "ROOT"
	case InteriorType:
		return "INTERIOR"
	case LeafType:
		return "LEAF"
	case UnallocatedType:
		return "UNALLOCATED"
	default:
		return "UNKNOWN"
	}
}

// Header is the fixed-size prefix replicated, byte-identically, at the
// front of every block, the superblock included. RootNode is only
// meaningful in the superblock. FreeList is the free-list head in the
// superblock and the next free block in an UNALLOCATED block. NumKeys is
// the number of keys stored in that block; the superblock's stays zero.
type Header struct {
	NodeType  NodeType
	KeySize   uint32
	ValueSize uint32
	BlockSize uint32
	RootNode  BlockAddress
	FreeList  BlockAddress
	NumKeys   uint32
}

// Package node implements the codec for one tree node: encoding and
// decoding a block buffer into typed accessors over its header, keys,
// values, and child pointers. It never touches a cache or a store; it
// only ever sees a block-sized []byte handed to it by the caller.
package node

import (
	"unsafe"

	"github.com/outofforest/photon"

	"bptree/blocks"
)

// pointerSize is the on-disk width of a child pointer (a BlockAddress).
const pointerSize = 8

// slotUnit is the design constant from which maxNumKeys is derived: the
// codec reserves 16 bytes of block space per key+pointer pair regardless
// of the tree's actual KeySize/ValueSize.
const slotUnit = 16

// headerSize is the fixed byte size of blocks.Header, computed once.
const headerSize = int(unsafe.Sizeof(blocks.Header{}))

// Node is a typed view over a block-sized buffer. The buffer is owned by
// the caller (normally cache.Cache); Node never copies it.
type Node struct {
	buf    []byte
	header photon.Union[*blocks.Header]
}

// Wrap interprets an existing block buffer as a node, decoding its
// header in place. The buffer must be exactly header.BlockSize long once
// the header has been read, which callers satisfy by always handing the
// codec a store.Store-sized block.
func Wrap(buf []byte) *Node {
	return &Node{
		buf:    buf,
		header: photon.NewFromBytes[blocks.Header](buf),
	}
}

// New formats buf as a fresh node of the given type and geometry,
// zeroing the slot region and validating that both the leaf and the
// interior layouts fit inside BlockSize (a block may later be reused as
// either shape, so both must fit).
func New(buf []byte, nodeType blocks.NodeType, keySize, valueSize, blockSize uint32) (*Node, error) {
	if err := ValidateFootprint(keySize, valueSize, blockSize); err != nil {
		return nil, err
	}

	n := Wrap(buf)
	n.header.V.NodeType = nodeType
	n.header.V.KeySize = keySize
	n.header.V.ValueSize = valueSize
	n.header.V.BlockSize = blockSize
	n.header.V.RootNode = blocks.NullAddress
	n.header.V.FreeList = blocks.NullAddress
	n.header.V.NumKeys = 0

	for i := HeaderSize(); i < int(blockSize); i++ {
		buf[i] = 0
	}

	return n, nil
}

// HeaderSize returns the byte size of the header every block starts with.
func HeaderSize() int {
	return headerSize
}

// MaxNumKeys returns floor((blockSize - headerSize) / 16), the fixed slot
// budget spec.md's derived constants mandate, independent of the node's
// actual KeySize/ValueSize.
func MaxNumKeys(blockSize uint32) int {
	return (int(blockSize) - HeaderSize()) / slotUnit
}

// SoftLimit returns floor(2*maxNumKeys/3), the per-node key count above
// which Split-Promote must run between top-level operations.
func SoftLimit(blockSize uint32) int {
	return 2 * MaxNumKeys(blockSize) / 3
}

// ValidateFootprint reports an error if either the leaf or the interior
// slot layout for the given geometry would overflow blockSize.
func ValidateFootprint(keySize, valueSize, blockSize uint32) error {
	maxKeys := MaxNumKeys(blockSize)
	if maxKeys <= 0 {
		return errInsanef("block size %d leaves no room for any key with header size %d", blockSize, HeaderSize())
	}

	leafFootprint := HeaderSize() + maxKeys*int(keySize) + maxKeys*int(valueSize)
	if leafFootprint > int(blockSize) {
		return errInsanef("leaf layout needs %d bytes but block size is %d (keysize=%d valuesize=%d)",
			leafFootprint, blockSize, keySize, valueSize)
	}

	interiorFootprint := HeaderSize() + maxKeys*int(keySize) + (maxKeys+1)*pointerSize
	if interiorFootprint > int(blockSize) {
		return errInsanef("interior layout needs %d bytes but block size is %d (keysize=%d)",
			interiorFootprint, blockSize, keySize)
	}

	return nil
}

// NodeType returns the node's header tag.
func (n *Node) NodeType() blocks.NodeType { return n.header.V.NodeType }

// SetNodeType overwrites the header tag, used when a freed block is
// re-tagged UNALLOCATED.
func (n *Node) SetNodeType(t blocks.NodeType) { n.header.V.NodeType = t }

// KeySize returns the configured key width in bytes.
func (n *Node) KeySize() uint32 { return n.header.V.KeySize }

// ValueSize returns the configured value width in bytes.
func (n *Node) ValueSize() uint32 { return n.header.V.ValueSize }

// BlockSize returns the configured block width in bytes.
func (n *Node) BlockSize() uint32 { return n.header.V.BlockSize }

// NumKeys returns the number of keys currently occupying the node.
func (n *Node) NumKeys() int { return int(n.header.V.NumKeys) }

// SetNumKeys overwrites the occupied key count.
func (n *Node) SetNumKeys(k int) { n.header.V.NumKeys = uint32(k) }

// RootNode returns the header's copy of the tree-wide root address. Only
// the superblock's copy is authoritative.
func (n *Node) RootNode() blocks.BlockAddress { return n.header.V.RootNode }

// SetRootNode overwrites the header's root address field.
func (n *Node) SetRootNode(a blocks.BlockAddress) { n.header.V.RootNode = a }

// FreeList returns the header's free-list pointer: the tree-wide head
// when this is the superblock, or the next free block when this node's
// type is UNALLOCATED.
func (n *Node) FreeList() blocks.BlockAddress { return n.header.V.FreeList }

// SetFreeList overwrites the header's free-list field.
func (n *Node) SetFreeList(a blocks.BlockAddress) { n.header.V.FreeList = a }

// MaxNumKeys returns this node's slot budget, derived from its own
// BlockSize.
func (n *Node) MaxNumKeys() int { return MaxNumKeys(n.header.V.BlockSize) }

// SoftLimit returns this node's soft key-count limit.
func (n *Node) SoftLimit() int { return SoftLimit(n.header.V.BlockSize) }

// Bytes returns the raw backing buffer, for callers (the cache) that need
// to hand it back to the store.
func (n *Node) Bytes() []byte { return n.buf }

func errInsanef(format string, args ...interface{}) error {
	return blocks.Insanef(format, args...)
}

package node

import (
	"encoding/binary"

	"bptree/blocks"
)

// keysOffset is where the key array begins, immediately after the header.
func (n *Node) keysOffset() int {
	return HeaderSize()
}

// valuesOffset is where the value array begins in a LEAF node, immediately
// after the reserved key capacity.
func (n *Node) valuesOffset() int {
	return n.keysOffset() + n.MaxNumKeys()*int(n.KeySize())
}

// pointersOffset is where the child pointer array begins in an
// INTERIOR/ROOT node, immediately after the reserved key capacity.
func (n *Node) pointersOffset() int {
	return n.keysOffset() + n.MaxNumKeys()*int(n.KeySize())
}

// GetKey returns the i'th key. Valid for every node type; i must be less
// than NumKeys.
func (n *Node) GetKey(i int) ([]byte, error) {
	if i < 0 || i >= n.NumKeys() {
		return nil, blocks.ErrOutOfBounds
	}
	off := n.keysOffset() + i*int(n.KeySize())
	return n.buf[off : off+int(n.KeySize())], nil
}

// SetKey overwrites the i'th key slot. i must be less than MaxNumKeys;
// callers grow NumKeys separately.
func (n *Node) SetKey(i int, key []byte) error {
	if i < 0 || i >= n.MaxNumKeys() {
		return blocks.ErrOutOfBounds
	}
	if len(key) != int(n.KeySize()) {
		return blocks.Insanef("key length %d does not match configured key size %d", len(key), n.KeySize())
	}
	off := n.keysOffset() + i*int(n.KeySize())
	copy(n.buf[off:off+int(n.KeySize())], key)
	return nil
}

// GetVal returns the i'th value. Only valid on LEAF nodes; i must be less
// than NumKeys.
func (n *Node) GetVal(i int) ([]byte, error) {
	if n.NodeType() != blocks.LeafType {
		return nil, blocks.ErrWrongNodeType
	}
	if i < 0 || i >= n.NumKeys() {
		return nil, blocks.ErrOutOfBounds
	}
	off := n.valuesOffset() + i*int(n.ValueSize())
	return n.buf[off : off+int(n.ValueSize())], nil
}

// SetVal overwrites the i'th value slot. Only valid on LEAF nodes; i must
// be less than MaxNumKeys.
func (n *Node) SetVal(i int, val []byte) error {
	if n.NodeType() != blocks.LeafType {
		return blocks.ErrWrongNodeType
	}
	if i < 0 || i >= n.MaxNumKeys() {
		return blocks.ErrOutOfBounds
	}
	if len(val) != int(n.ValueSize()) {
		return blocks.Insanef("value length %d does not match configured value size %d", len(val), n.ValueSize())
	}
	off := n.valuesOffset() + i*int(n.ValueSize())
	copy(n.buf[off:off+int(n.ValueSize())], val)
	return nil
}

// GetPtr returns the i'th child pointer. Only valid on INTERIOR/ROOT
// nodes; i must be at most NumKeys (inclusive, per spec.md §4.1).
func (n *Node) GetPtr(i int) (blocks.BlockAddress, error) {
	if n.NodeType() != blocks.InteriorType && n.NodeType() != blocks.RootType {
		return 0, blocks.ErrWrongNodeType
	}
	if i < 0 || i > n.NumKeys() {
		return 0, blocks.ErrOutOfBounds
	}
	off := n.pointersOffset() + i*pointerSize
	return blocks.BlockAddress(binary.BigEndian.Uint64(n.buf[off : off+pointerSize])), nil
}

// SetPtr overwrites the i'th child pointer slot. Only valid on
// INTERIOR/ROOT nodes; i must be at most MaxNumKeys (inclusive).
func (n *Node) SetPtr(i int, addr blocks.BlockAddress) error {
	if n.NodeType() != blocks.InteriorType && n.NodeType() != blocks.RootType {
		return blocks.ErrWrongNodeType
	}
	if i < 0 || i > n.MaxNumKeys() {
		return blocks.ErrOutOfBounds
	}
	off := n.pointersOffset() + i*pointerSize
	binary.BigEndian.PutUint64(n.buf[off:off+pointerSize], uint64(addr))
	return nil
}

// Package bptree is the public facade over the disk-resident B+-tree
// index: a thin Index type tying together cache, node, freelist,
// traversal, mutator, sanity, and display.
package bptree

import (
	"io"

	"github.com/pkg/errors"

	"bptree/blocks"
	"bptree/cache"
	"bptree/display"
	"bptree/freelist"
	"bptree/mutator"
	"bptree/node"
	"bptree/sanity"
	"bptree/store"
)

// Index is a handle onto one tree. unique is accepted at construction
// and never consulted again, exactly as the original source's
// unique_flag — this facade does not silently "fix" that open question.
type Index struct {
	keySize   uint32
	valueSize uint32
	store     *store.Store
	cache     *cache.Cache
	unique    bool

	superblock *node.Node
}

// New constructs an in-memory handle over store. The tree is not usable
// until Attach is called.
func New(keySize, valueSize uint32, st *store.Store, cacheSize int64, unique bool) (*Index, error) {
	if err := node.ValidateFootprint(keySize, valueSize, uint32(st.BlockSize())); err != nil {
		return nil, err
	}
	c, err := cache.New(st, cacheSize)
	if err != nil {
		return nil, err
	}
	return &Index{
		keySize:   keySize,
		valueSize: valueSize,
		store:     st,
		cache:     c,
		unique:    unique,
	}, nil
}

// Attach reads or creates the superblock at initBlock, which must be
// blocks.NullAddress (block 0), per spec.md §6.1. If create is true, it
// formats a fresh superblock, a root with no keys, and threads every
// other block in the store into the free list.
func (ix *Index) Attach(initBlock blocks.BlockAddress, create bool) error {
	if initBlock != blocks.NullAddress {
		return errors.New("initBlock must be 0")
	}

	if create {
		if err := ix.create(); err != nil {
			return err
		}
	}

	buf, err := ix.cache.Fetch(freelist.SuperblockAddress)
	if err != nil {
		return err
	}
	sb := node.Wrap(buf)
	if sb.NodeType() != blocks.SuperblockType {
		return blocks.Insanef("block 0 has type %s, not SUPERBLOCK", sb.NodeType())
	}
	ix.superblock = sb
	return nil
}

// create implements spec.md §3.4: superblock at 0, root at 1, every
// remaining block threaded into the free list in descending order so
// the head ends up pointing at the lowest-numbered free block.
func (ix *Index) create() error {
	numBlocks := ix.store.NumBlocks()
	if numBlocks < 2 {
		return errors.New("store needs at least 2 blocks (superblock and root)")
	}

	sbBuf, err := ix.cache.Stage(freelist.SuperblockAddress)
	if err != nil {
		return err
	}
	blockSize := uint32(ix.store.BlockSize())
	sb, err := node.New(sbBuf, blocks.SuperblockType, ix.keySize, ix.valueSize, blockSize)
	if err != nil {
		return err
	}

	const rootAddr blocks.BlockAddress = 1
	rootBuf, err := ix.cache.Stage(rootAddr)
	if err != nil {
		return err
	}
	if _, err := node.New(rootBuf, blocks.RootType, ix.keySize, ix.valueSize, blockSize); err != nil {
		return err
	}
	if err := ix.cache.MarkDirty(rootAddr); err != nil {
		return err
	}

	var prev blocks.BlockAddress = blocks.NullAddress
	for a := blocks.BlockAddress(numBlocks - 1); a >= 2; a-- {
		buf, err := ix.cache.Stage(a)
		if err != nil {
			return err
		}
		n, err := node.New(buf, blocks.UnallocatedType, ix.keySize, ix.valueSize, blockSize)
		if err != nil {
			return err
		}
		n.SetFreeList(prev)
		if err := ix.cache.MarkDirty(a); err != nil {
			return err
		}
		prev = a
	}

	sb.SetRootNode(rootAddr)
	if numBlocks > 2 {
		sb.SetFreeList(2)
	} else {
		sb.SetFreeList(blocks.NullAddress)
	}
	return ix.cache.MarkDirty(freelist.SuperblockAddress)
}

// Detach flushes the superblock (and every other dirty block, since the
// cache commits in bulk) back to the store.
func (ix *Index) Detach() error {
	return ix.cache.Commit()
}

// Lookup returns the value stored for key, or blocks.ErrNonexistent.
func (ix *Index) Lookup(key []byte) ([]byte, error) {
	return mutator.Lookup(ix.cache, ix.superblock.RootNode(), key)
}

// Update overwrites the value stored for key, or fails with
// blocks.ErrNonexistent.
func (ix *Index) Update(key, value []byte) error {
	return mutator.Update(ix.cache, ix.superblock.RootNode(), key, value)
}

// Insert adds a new (key, value) record, failing with
// blocks.ErrAlreadyExists if key is already present.
func (ix *Index) Insert(key, value []byte) error {
	return mutator.Insert(ix.cache, ix.superblock, key, value)
}

// Delete is out of scope for this core; it always fails.
func (ix *Index) Delete(key []byte) error {
	return blocks.ErrUnimplemented
}

// Display writes a dump of the tree to w in the given mode.
func (ix *Index) Display(w io.Writer, mode display.Mode) error {
	return display.Dump(w, ix.cache, ix.superblock.RootNode(), mode)
}

// SanityCheck verifies every structural invariant from spec.md §3.3,
// returning blocks.ErrInsane on the first violation found.
func (ix *Index) SanityCheck() error {
	return sanity.Check(ix.cache, ix.superblock)
}

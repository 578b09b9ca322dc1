// Package mutator implements the tree's write path: Lookup, Update, and
// Insert-with-split. It coordinates traversal, node, freelist, and the
// cache — the facade in the root package is a thin wrapper over this.
package mutator

import (
	"bytes"

	"bptree/blocks"
	"bptree/cache"
	"bptree/freelist"
	"bptree/node"
	"bptree/traversal"
)

// Lookup returns the value stored for key, or blocks.ErrNonexistent.
func Lookup(c *cache.Cache, root blocks.BlockAddress, key []byte) ([]byte, error) {
	return traversal.LookupOrUpdate(c, root, key, traversal.LookupOp, nil)
}

// Update overwrites the value stored for key, or fails with
// blocks.ErrNonexistent. It never creates a record.
func Update(c *cache.Cache, root blocks.BlockAddress, key, value []byte) error {
	_, err := traversal.LookupOrUpdate(c, root, key, traversal.UpdateOp, value)
	return err
}

// Insert adds a new (key, value) record, failing with
// blocks.ErrAlreadyExists if key is already present. superblock is the
// node.Node view over the superblock block (address 0); its RootNode
// field is read to find the current root and rewritten if a root split
// happens.
func Insert(c *cache.Cache, superblock *node.Node, key, value []byte) error {
	root := superblock.RootNode()

	if _, err := Lookup(c, root, key); err == nil {
		return blocks.ErrAlreadyExists
	} else if err != blocks.ErrNonexistent {
		return err
	}

	rootBuf, err := c.Fetch(root)
	if err != nil {
		return err
	}
	rootNode := node.Wrap(rootBuf)

	if rootNode.NumKeys() == 0 && rootNode.NodeType() == blocks.RootType {
		return insertFirstRecord(c, superblock, rootNode, key, value)
	}

	path, err := traversal.LookupLeaf(c, root, key)
	if err != nil {
		return err
	}
	leafAddr := path[len(path)-1]
	ancestors := path[:len(path)-1]

	leafBuf, err := c.Fetch(leafAddr)
	if err != nil {
		return err
	}
	leaf := node.Wrap(leafBuf)

	if err := insertIntoLeaf(leaf, key, value); err != nil {
		return err
	}
	if err := c.MarkDirty(leafAddr); err != nil {
		return err
	}

	if leaf.NumKeys() > leaf.SoftLimit() {
		return splitPromote(c, superblock, leafAddr, ancestors)
	}
	return nil
}

// insertFirstRecord implements spec.md §4.4.3 step 2: the tree has never
// held a record, so the root (numkeys = 0) grows its first two leaf
// children directly rather than going through Split-Promote.
func insertFirstRecord(c *cache.Cache, superblock, rootNode *node.Node, key, value []byte) error {
	rootAddr := superblock.RootNode()

	leftAddr, err := allocateNode(c, superblock, blocks.LeafType, rootNode)
	if err != nil {
		return err
	}
	leftBuf, err := c.Fetch(leftAddr)
	if err != nil {
		return err
	}
	left := node.Wrap(leftBuf)
	left.SetNumKeys(1)
	if err := left.SetKey(0, key); err != nil {
		return err
	}
	if err := left.SetVal(0, value); err != nil {
		return err
	}
	if err := c.MarkDirty(leftAddr); err != nil {
		return err
	}

	rightAddr, err := allocateNode(c, superblock, blocks.LeafType, rootNode)
	if err != nil {
		return err
	}
	if err := c.MarkDirty(rightAddr); err != nil {
		return err
	}

	// Re-fetch rather than keep writing through the rootNode handed in:
	// the two allocations above may have evicted its cache slot.
	rootBuf, err := c.Fetch(rootAddr)
	if err != nil {
		return err
	}
	root := node.Wrap(rootBuf)
	root.SetNumKeys(1)
	if err := root.SetKey(0, key); err != nil {
		return err
	}
	if err := root.SetPtr(0, leftAddr); err != nil {
		return err
	}
	if err := root.SetPtr(1, rightAddr); err != nil {
		return err
	}
	return c.MarkDirty(rootAddr)
}

// allocateNode pops a free block and formats it with the same key/value/
// block geometry as like, the node this allocation is serving. The
// geometry is read out of like before the block is popped: both
// freelist.Allocate and c.Stage can evict cache slots, and like's buffer
// must not be touched afterward if it happens to be the slot reused.
func allocateNode(c *cache.Cache, superblock *node.Node, nodeType blocks.NodeType, like *node.Node) (blocks.BlockAddress, error) {
	keySize, valueSize, blockSize := like.KeySize(), like.ValueSize(), like.BlockSize()

	addr, err := freelist.Allocate(c, superblock)
	if err != nil {
		return 0, err
	}
	buf, err := c.Stage(addr)
	if err != nil {
		return 0, err
	}
	if _, err := node.New(buf, nodeType, keySize, valueSize, blockSize); err != nil {
		return 0, err
	}
	return addr, nil
}

// insertIntoLeaf finds the insertion offset (first slot whose key is
// greater than the new key) and shifts subsequent pairs right by one, per
// spec.md §4.4.3 step 3.
func insertIntoLeaf(leaf *node.Node, key, value []byte) error {
	n := leaf.NumKeys()
	if n >= leaf.MaxNumKeys() {
		return blocks.ErrNoSpace
	}

	at := n
	for i := 0; i < n; i++ {
		ki, err := leaf.GetKey(i)
		if err != nil {
			return err
		}
		if bytes.Compare(ki, key) > 0 {
			at = i
			break
		}
	}

	for i := n; i > at; i-- {
		prevKey, err := leaf.GetKey(i - 1)
		if err != nil {
			return err
		}
		prevVal, err := leaf.GetVal(i - 1)
		if err != nil {
			return err
		}
		if err := leaf.SetKey(i, prevKey); err != nil {
			return err
		}
		if err := leaf.SetVal(i, prevVal); err != nil {
			return err
		}
	}

	if err := leaf.SetKey(at, key); err != nil {
		return err
	}
	if err := leaf.SetVal(at, value); err != nil {
		return err
	}
	leaf.SetNumKeys(n + 1)
	return nil
}

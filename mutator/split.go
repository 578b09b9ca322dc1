package mutator

import (
	"bytes"

	"bptree/blocks"
	"bptree/cache"
	"bptree/freelist"
	"bptree/node"
)

// splitPromote implements spec.md §4.4.4: splits the over-full node at
// nodeAddr into two fresh blocks, promotes a separator key into the
// parent (or builds a new root if nodeAddr had none), and recurses if
// the parent in turn grows past its soft limit. ancestors is the
// root-first path above nodeAddr, with nodeAddr itself already popped
// off (so an empty slice means nodeAddr is the current root).
func splitPromote(c *cache.Cache, superblock *node.Node, nodeAddr blocks.BlockAddress, ancestors []blocks.BlockAddress) error {
	buf, err := c.Fetch(nodeAddr)
	if err != nil {
		return err
	}
	n := node.Wrap(buf)
	numKeys := n.NumKeys()
	mid := (numKeys + 1) / 2

	isLeaf := n.NodeType() == blocks.LeafType
	childType := n.NodeType()
	if childType == blocks.RootType {
		childType = blocks.InteriorType
	}

	// Copy everything out of n's buffer before allocating new blocks:
	// allocation can evict other cache slots, and n's buffer must not be
	// read afterward if that happens to be the slot reused.
	keys := make([][]byte, numKeys)
	for i := 0; i < numKeys; i++ {
		k, err := n.GetKey(i)
		if err != nil {
			return err
		}
		keys[i] = append([]byte(nil), k...)
	}

	var vals [][]byte
	var ptrs []blocks.BlockAddress
	if isLeaf {
		vals = make([][]byte, numKeys)
		for i := 0; i < numKeys; i++ {
			v, err := n.GetVal(i)
			if err != nil {
				return err
			}
			vals[i] = append([]byte(nil), v...)
		}
	} else {
		ptrs = make([]blocks.BlockAddress, numKeys+1)
		for i := 0; i <= numKeys; i++ {
			p, err := n.GetPtr(i)
			if err != nil {
				return err
			}
			ptrs[i] = p
		}
	}

	splitKey := append([]byte(nil), keys[mid-1]...)

	leftAddr, err := allocateNode(c, superblock, childType, n)
	if err != nil {
		return err
	}
	rightAddr, err := allocateNode(c, superblock, childType, n)
	if err != nil {
		return err
	}

	leftBuf, err := c.Fetch(leftAddr)
	if err != nil {
		return err
	}
	left := node.Wrap(leftBuf)
	rightBuf, err := c.Fetch(rightAddr)
	if err != nil {
		return err
	}
	right := node.Wrap(rightBuf)

	if isLeaf {
		for i := 0; i < mid; i++ {
			if err := left.SetKey(i, keys[i]); err != nil {
				return err
			}
			if err := left.SetVal(i, vals[i]); err != nil {
				return err
			}
		}
		left.SetNumKeys(mid)

		for i := mid; i < numKeys; i++ {
			if err := right.SetKey(i-mid, keys[i]); err != nil {
				return err
			}
			if err := right.SetVal(i-mid, vals[i]); err != nil {
				return err
			}
		}
		right.SetNumKeys(numKeys - mid)
	} else {
		// Standard interior split: the promoted key is removed from
		// both children (it carries no record of its own, unlike a
		// leaf key), so the left side keeps mid-1 keys and mid
		// pointers, the right side keeps the rest.
		for i := 0; i < mid-1; i++ {
			if err := left.SetKey(i, keys[i]); err != nil {
				return err
			}
		}
		for i := 0; i < mid; i++ {
			if err := left.SetPtr(i, ptrs[i]); err != nil {
				return err
			}
		}
		left.SetNumKeys(mid - 1)

		for i := mid; i < numKeys; i++ {
			if err := right.SetKey(i-mid, keys[i]); err != nil {
				return err
			}
		}
		for i := mid; i <= numKeys; i++ {
			if err := right.SetPtr(i-mid, ptrs[i]); err != nil {
				return err
			}
		}
		right.SetNumKeys(numKeys - mid)
	}

	if err := c.MarkDirty(leftAddr); err != nil {
		return err
	}
	if err := c.MarkDirty(rightAddr); err != nil {
		return err
	}

	if len(ancestors) == 0 {
		return promoteNewRoot(c, superblock, nodeAddr, n, splitKey, leftAddr, rightAddr)
	}

	parentAddr := ancestors[len(ancestors)-1]
	remainingAncestors := ancestors[:len(ancestors)-1]

	parentBuf, err := c.Fetch(parentAddr)
	if err != nil {
		return err
	}
	parent := node.Wrap(parentBuf)

	if err := insertSeparator(parent, splitKey, leftAddr, rightAddr); err != nil {
		return err
	}
	if err := c.MarkDirty(parentAddr); err != nil {
		return err
	}

	if err := freelist.Deallocate(c, superblock, nodeAddr); err != nil {
		return err
	}

	// Re-fetch rather than trust parent's buffer: Deallocate just ran
	// more cache operations that may have evicted its slot.
	parentBuf, err = c.Fetch(parentAddr)
	if err != nil {
		return err
	}
	parent = node.Wrap(parentBuf)
	if parent.NumKeys() > parent.SoftLimit() {
		return splitPromote(c, superblock, parentAddr, remainingAncestors)
	}
	return nil
}

// promoteNewRoot handles spec.md §4.4.4 step 6: nodeAddr was the root, so
// a fresh ROOT block is allocated above the two new children and the
// superblock is retargeted at it.
func promoteNewRoot(
	c *cache.Cache,
	superblock *node.Node,
	oldRootAddr blocks.BlockAddress,
	oldRoot *node.Node,
	splitKey []byte,
	leftAddr, rightAddr blocks.BlockAddress,
) error {
	newRootAddr, err := allocateNode(c, superblock, blocks.RootType, oldRoot)
	if err != nil {
		return err
	}
	newRootBuf, err := c.Fetch(newRootAddr)
	if err != nil {
		return err
	}
	newRoot := node.Wrap(newRootBuf)
	newRoot.SetNumKeys(1)
	if err := newRoot.SetKey(0, splitKey); err != nil {
		return err
	}
	if err := newRoot.SetPtr(0, leftAddr); err != nil {
		return err
	}
	if err := newRoot.SetPtr(1, rightAddr); err != nil {
		return err
	}
	if err := c.MarkDirty(newRootAddr); err != nil {
		return err
	}

	superblock.SetRootNode(newRootAddr)
	if err := c.MarkDirty(freelist.SuperblockAddress); err != nil {
		return err
	}

	return freelist.Deallocate(c, superblock, oldRootAddr)
}

// insertSeparator implements spec.md §4.4.4 step 7: locates the first
// parent key greater than splitKey, shifts keys and pointers right to
// make room, and writes splitKey/left/right into the opened slot. left
// replaces the pointer that used to reference the node that was just
// split; right is inserted immediately after it.
func insertSeparator(parent *node.Node, splitKey []byte, left, right blocks.BlockAddress) error {
	n := parent.NumKeys()
	if n >= parent.MaxNumKeys() {
		return blocks.ErrNoSpace
	}

	j := n
	for i := 0; i < n; i++ {
		kj, err := parent.GetKey(i)
		if err != nil {
			return err
		}
		if bytes.Compare(splitKey, kj) < 0 {
			j = i
			break
		}
	}

	for i := n; i > j; i-- {
		k, err := parent.GetKey(i - 1)
		if err != nil {
			return err
		}
		if err := parent.SetKey(i, k); err != nil {
			return err
		}
	}
	for i := n + 1; i > j+1; i-- {
		p, err := parent.GetPtr(i - 1)
		if err != nil {
			return err
		}
		if err := parent.SetPtr(i, p); err != nil {
			return err
		}
	}

	if err := parent.SetKey(j, splitKey); err != nil {
		return err
	}
	if err := parent.SetPtr(j, left); err != nil {
		return err
	}
	if err := parent.SetPtr(j+1, right); err != nil {
		return err
	}
	parent.SetNumKeys(n + 1)
	return nil
}

// Package sanity implements a read-only depth-first walk that verifies
// the tree's structural invariants, grounded on
// original_source/btree.cc's SanityHelper. Unlike that function, which
// only prints warnings to stderr and keeps walking, every violation here
// is reported as blocks.ErrInsane: a caller that gets nil back has a
// provably well-formed tree.
package sanity

import (
	"bytes"

	"bptree/blocks"
	"bptree/cache"
	"bptree/node"
)

// Check walks the tree rooted at superblock.RootNode() and verifies, at
// every node: keys are sorted non-decreasingly; numkeys does not exceed
// the soft limit; interior children are reachable and separator-correct;
// leaves hold present keys/values; and every leaf sits at the same
// depth. It also walks the free list and requires it to be acyclic and
// terminate at blocks.NullAddress.
func Check(c *cache.Cache, superblock *node.Node) error {
	rootAddr := superblock.RootNode()
	rootBuf, err := c.Fetch(rootAddr)
	if err != nil {
		return err
	}
	root := node.Wrap(rootBuf)
	if root.NodeType() != blocks.RootType {
		return blocks.Insanef("block %d is the rootnode target but has type %s", rootAddr, root.NodeType())
	}

	// A freshly created tree has a root with no keys and, per spec.md
	// §4.4.3, no children at all until the first record is inserted.
	// Walking into a child pointer here would read an unallocated slot,
	// not a violation.
	if root.NumKeys() > 0 {
		leafDepth := -1
		if _, err := checkSubtree(c, rootAddr, nil, nil, 0, &leafDepth); err != nil {
			return err
		}
	}

	return checkFreeList(c, superblock)
}

// checkSubtree validates the node at addr and everything beneath it.
// lowerBound/upperBound constrain every key in the subtree: every key
// must be > lowerBound (if non-nil) and <= upperBound (if non-nil),
// matching the separator semantics from the routing rule (keys equal to
// a separator route left, so upperBound is inclusive).
func checkSubtree(c *cache.Cache, addr blocks.BlockAddress, lowerBound, upperBound []byte, depth int, leafDepth *int) ([]byte, error) {
	buf, err := c.Fetch(addr)
	if err != nil {
		return nil, err
	}
	n := node.Wrap(buf)

	switch n.NodeType() {
	case blocks.RootType, blocks.InteriorType:
		return checkInterior(c, addr, n, lowerBound, upperBound, depth, leafDepth)
	case blocks.LeafType:
		return checkLeaf(n, lowerBound, upperBound, depth, leafDepth)
	default:
		return nil, blocks.Insanef("block %d has unexpected node type %s in a live subtree", addr, n.NodeType())
	}
}

func checkInterior(c *cache.Cache, addr blocks.BlockAddress, n *node.Node, lowerBound, upperBound []byte, depth int, leafDepth *int) ([]byte, error) {
	numKeys := n.NumKeys()
	if numKeys > n.SoftLimit() {
		return nil, blocks.Insanef("block %d has %d keys, exceeding the soft limit %d", addr, numKeys, n.SoftLimit())
	}

	keys := make([][]byte, numKeys)
	for i := 0; i < numKeys; i++ {
		k, err := n.GetKey(i)
		if err != nil {
			return nil, err
		}
		keys[i] = append([]byte(nil), k...)
		if i > 0 && bytes.Compare(keys[i-1], keys[i]) > 0 {
			return nil, blocks.Insanef("block %d keys not sorted at index %d", addr, i)
		}
	}

	ptrs := make([]blocks.BlockAddress, numKeys+1)
	for i := 0; i <= numKeys; i++ {
		p, err := n.GetPtr(i)
		if err != nil {
			return nil, err
		}
		if p == blocks.NullAddress {
			return nil, blocks.Insanef("block %d child pointer %d is unallocated", addr, i)
		}
		ptrs[i] = p
	}

	var lastMax []byte
	for i, child := range ptrs {
		childLower := lowerBound
		if i > 0 {
			childLower = keys[i-1]
		}
		childUpper := upperBound
		if i < numKeys {
			childUpper = keys[i]
		}

		childMax, err := checkSubtree(c, child, childLower, childUpper, depth+1, leafDepth)
		if err != nil {
			return nil, err
		}
		lastMax = childMax
	}

	return lastMax, nil
}

func checkLeaf(n *node.Node, lowerBound, upperBound []byte, depth int, leafDepth *int) ([]byte, error) {
	if *leafDepth == -1 {
		*leafDepth = depth
	} else if *leafDepth != depth {
		return nil, blocks.Insanef("leaf depth %d does not match established leaf depth %d", depth, *leafDepth)
	}

	numKeys := n.NumKeys()
	if numKeys > n.SoftLimit() {
		return nil, blocks.Insanef("leaf has %d keys, exceeding the soft limit %d", numKeys, n.SoftLimit())
	}
	var prevKey, lastKey []byte
	for i := 0; i < numKeys; i++ {
		k, err := n.GetKey(i)
		if err != nil {
			return nil, err
		}
		if _, err := n.GetVal(i); err != nil {
			return nil, err
		}
		if i > 0 && bytes.Compare(prevKey, k) > 0 {
			return nil, blocks.Insanef("leaf keys not sorted at index %d", i)
		}
		if lowerBound != nil && bytes.Compare(k, lowerBound) <= 0 {
			return nil, blocks.Insanef("leaf key at index %d is not greater than its lower separator bound", i)
		}
		if upperBound != nil && bytes.Compare(k, upperBound) > 0 {
			return nil, blocks.Insanef("leaf key at index %d exceeds its upper separator bound", i)
		}
		prevKey = k
		lastKey = k
	}

	return lastKey, nil
}

// checkFreeList walks the free-list chain from the superblock, rejecting
// a cycle or a non-UNALLOCATED block in the chain.
func checkFreeList(c *cache.Cache, superblock *node.Node) error {
	visited := map[blocks.BlockAddress]struct{}{}
	addr := superblock.FreeList()

	for addr != blocks.NullAddress {
		if _, seen := visited[addr]; seen {
			return blocks.Insanef("free list cycles back to block %d", addr)
		}
		visited[addr] = struct{}{}

		buf, err := c.Fetch(addr)
		if err != nil {
			return err
		}
		n := node.Wrap(buf)
		if n.NodeType() != blocks.UnallocatedType {
			return blocks.Insanef("free list block %d has type %s, not UNALLOCATED", addr, n.NodeType())
		}
		addr = n.FreeList()
	}

	return nil
}

// Package traversal implements the two descent flavors over the tree:
// a descend-only walk used by Lookup/Update, and a path-recording walk
// used by Insert to find the leaf to mutate and the ancestors to
// consult if it needs to split. Both are iterative loops rather than
// recursion, so stack depth does not grow with the tree's height;
// LookupLeaf records the visited addresses in an explicit path vector.
package traversal

import (
	"bytes"

	"bptree/blocks"
	"bptree/cache"
	"bptree/node"
)

// Op selects what LookupOrUpdate does once it reaches the matching leaf
// slot.
type Op int

// The two descend-only operations.
const (
	LookupOp Op = iota
	UpdateOp
)

// LookupOrUpdate descends from root to the leaf that would hold key. In
// LookupOp mode it returns the stored value. In UpdateOp mode it
// overwrites the value in place with newValue, marks the leaf dirty, and
// returns nil. Either mode fails with blocks.ErrNonexistent if key is
// not present.
func LookupOrUpdate(c *cache.Cache, root blocks.BlockAddress, key []byte, op Op, newValue []byte) ([]byte, error) {
	current := root

	for {
		buf, err := c.Fetch(current)
		if err != nil {
			return nil, err
		}
		n := node.Wrap(buf)

		switch n.NodeType() {
		case blocks.InteriorType, blocks.RootType:
			next, err := descendInterior(n, key)
			if err != nil {
				return nil, err
			}
			current = next

		case blocks.LeafType:
			i, found, err := findInLeaf(n, key)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, blocks.ErrNonexistent
			}

			if op == LookupOp {
				v, err := n.GetVal(i)
				if err != nil {
					return nil, err
				}
				out := make([]byte, len(v))
				copy(out, v)
				return out, nil
			}

			if err := n.SetVal(i, newValue); err != nil {
				return nil, err
			}
			if err := c.MarkDirty(current); err != nil {
				return nil, err
			}
			return nil, nil

		default:
			return nil, blocks.Insanef("unexpected node type %s at block %d during descent", n.NodeType(), current)
		}
	}
}

// LookupLeaf descends from root to the leaf that would hold key,
// recording every visited block address (root first, leaf last) for the
// caller to consume, typically to run Split-Promote after an insert.
func LookupLeaf(c *cache.Cache, root blocks.BlockAddress, key []byte) ([]blocks.BlockAddress, error) {
	path := []blocks.BlockAddress{root}
	current := root

	for {
		buf, err := c.Fetch(current)
		if err != nil {
			return nil, err
		}
		n := node.Wrap(buf)

		switch n.NodeType() {
		case blocks.InteriorType, blocks.RootType:
			next, err := descendInterior(n, key)
			if err != nil {
				return nil, err
			}
			current = next
			path = append(path, current)

		case blocks.LeafType:
			return path, nil

		default:
			return nil, blocks.Insanef("unexpected node type %s at block %d during descent", n.NodeType(), current)
		}
	}
}

// descendInterior applies the routing rule from spec.md §4.3: descend
// through P_j where j is the smallest index with key <= K_j, or through
// P_numkeys if no key qualifies. Keys equal to a separator descend left,
// where a leaf split leaves the promoted separator as the last key of the
// left half; it is not copied into the right subtree.
func descendInterior(n *node.Node, key []byte) (blocks.BlockAddress, error) {
	numKeys := n.NumKeys()
	if numKeys == 0 {
		return 0, blocks.ErrNonexistent
	}

	for j := 0; j < numKeys; j++ {
		kj, err := n.GetKey(j)
		if err != nil {
			return 0, err
		}
		if bytes.Compare(key, kj) <= 0 {
			return n.GetPtr(j)
		}
	}
	return n.GetPtr(numKeys)
}

// findInLeaf linearly scans a leaf's keys for an exact match.
func findInLeaf(n *node.Node, key []byte) (int, bool, error) {
	for i := 0; i < n.NumKeys(); i++ {
		ki, err := n.GetKey(i)
		if err != nil {
			return 0, false, err
		}
		if bytes.Equal(ki, key) {
			return i, true, nil
		}
	}
	return 0, false, nil
}

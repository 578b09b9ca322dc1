// Package display implements the tree's three dump formats, grounded on
// original_source/btree.cc's PrintNode/DisplayInternal.
package display

import (
	"fmt"
	"io"

	"bptree/blocks"
	"bptree/cache"
	"bptree/node"
)

// Mode selects one of the three dump formats.
type Mode int

// The three supported modes.
const (
	Depth Mode = iota
	DepthDot
	SortedKeyVal
)

// Dump writes the subtree rooted at rootAddr to w in the given mode.
func Dump(w io.Writer, c *cache.Cache, rootAddr blocks.BlockAddress, mode Mode) error {
	if mode == DepthDot {
		if _, err := fmt.Fprintln(w, "digraph g {"); err != nil {
			return err
		}
	}

	if err := dumpNode(w, c, rootAddr, mode); err != nil {
		return err
	}

	if mode == DepthDot {
		if _, err := fmt.Fprintln(w, "}"); err != nil {
			return err
		}
	}
	return nil
}

func dumpNode(w io.Writer, c *cache.Cache, addr blocks.BlockAddress, mode Mode) error {
	buf, err := c.Fetch(addr)
	if err != nil {
		return err
	}
	n := node.Wrap(buf)

	if err := printNode(w, addr, n, mode); err != nil {
		return err
	}

	// A freshly created root with no separators yet has no children at
	// all, not one implicit child, so there is nothing to descend into.
	if n.NodeType() != blocks.LeafType && n.NumKeys() > 0 {
		numKeys := n.NumKeys()
		for i := 0; i <= numKeys; i++ {
			child, err := n.GetPtr(i)
			if err != nil {
				return err
			}
			if mode == DepthDot {
				if _, err := fmt.Fprintf(w, "%d -> %d;\n", addr, child); err != nil {
					return err
				}
			}
			if err := dumpNode(w, c, child, mode); err != nil {
				return err
			}
		}
	}
	return nil
}

// printNode renders one block's own content, matching PrintNode's three
// branches (interior / leaf / unexpected type) and per-mode punctuation.
func printNode(w io.Writer, addr blocks.BlockAddress, n *node.Node, mode Mode) error {
	switch mode {
	case DepthDot:
		if _, err := fmt.Fprintf(w, "%d [ label=\"%d: ", addr, addr); err != nil {
			return err
		}
	case Depth:
		if _, err := fmt.Fprintf(w, "%d: ", addr); err != nil {
			return err
		}
	}

	switch n.NodeType() {
	case blocks.RootType, blocks.InteriorType:
		if mode == SortedKeyVal {
			break
		}
		if mode != DepthDot {
			if _, err := fmt.Fprint(w, "Interior: "); err != nil {
				return err
			}
		}
		numKeys := n.NumKeys()
		if numKeys == 0 {
			if _, err := fmt.Fprint(w, "(empty)"); err != nil {
				return err
			}
			break
		}
		for i := 0; i <= numKeys; i++ {
			ptr, err := n.GetPtr(i)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "*%d ", ptr); err != nil {
				return err
			}
			if i == numKeys {
				break
			}
			key, err := n.GetKey(i)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s ", key); err != nil {
				return err
			}
		}

	case blocks.LeafType:
		if mode != DepthDot && mode != SortedKeyVal {
			if _, err := fmt.Fprint(w, "Leaf: "); err != nil {
				return err
			}
		}
		numKeys := n.NumKeys()
		for i := 0; i < numKeys; i++ {
			key, err := n.GetKey(i)
			if err != nil {
				return err
			}
			val, err := n.GetVal(i)
			if err != nil {
				return err
			}
			if mode == SortedKeyVal {
				if _, err := fmt.Fprintf(w, "(%s,%s)\n", key, val); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "%s %s ", key, val); err != nil {
				return err
			}
		}

	default:
		if _, err := fmt.Fprintf(w, "Unsupported Node Type %s", n.NodeType()); err != nil {
			return err
		}
	}

	if mode == DepthDot {
		if _, err := fmt.Fprintln(w, "\" ]"); err != nil {
			return err
		}
	}
	return nil
}

// Package freelist implements the singly-linked chain of UNALLOCATED
// blocks threaded through node headers, with its head kept in the
// superblock. It touches only cache.Cache and node.Node; it knows
// nothing about what shape a freshly allocated block will take.
package freelist

import (
	"bptree/blocks"
	"bptree/cache"
	"bptree/node"
)

// SuperblockAddress is the fixed block holding the tree's superblock.
const SuperblockAddress blocks.BlockAddress = 0

// Allocate pops the free-list head and rewrites the superblock to point
// at the next free block, in that order, per spec.md §5's ordering rule
// (the superblock is the last block whose write makes the new state
// observable). It fails with blocks.ErrNoSpace if the list is empty.
// The caller is responsible for formatting the returned block with
// node.New before using it.
func Allocate(c *cache.Cache, superblock *node.Node) (blocks.BlockAddress, error) {
	head := superblock.FreeList()
	if head == blocks.NullAddress {
		return 0, blocks.ErrNoSpace
	}

	headBuf, err := c.Fetch(head)
	if err != nil {
		return 0, err
	}
	headNode := node.Wrap(headBuf)
	if headNode.NodeType() != blocks.UnallocatedType {
		return 0, blocks.Insanef("free-list head %d has node type %s, expected UNALLOCATED", head, headNode.NodeType())
	}
	next := headNode.FreeList()

	superblock.SetFreeList(next)
	if err := c.MarkDirty(SuperblockAddress); err != nil {
		return 0, err
	}

	return head, nil
}

// Deallocate pushes addr onto the free list: the block is re-tagged
// UNALLOCATED with its FreeList field pointing at the prior head, then
// the superblock is rewritten to point at addr, in that order (block
// first, superblock last, mirroring Allocate).
func Deallocate(c *cache.Cache, superblock *node.Node, addr blocks.BlockAddress) error {
	buf, err := c.Fetch(addr)
	if err != nil {
		return err
	}
	freed := node.Wrap(buf)

	freed.SetNodeType(blocks.UnallocatedType)
	freed.SetNumKeys(0)
	freed.SetRootNode(blocks.NullAddress)
	freed.SetFreeList(superblock.FreeList())
	if err := c.MarkDirty(addr); err != nil {
		return err
	}

	superblock.SetFreeList(addr)
	return c.MarkDirty(SuperblockAddress)
}

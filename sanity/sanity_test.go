package sanity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bptree/blocks"
	"bptree/cache"
	"bptree/freelist"
	"bptree/node"
	"bptree/store"
	"bptree/store/memdev"
)

const (
	testKeySize   = 8
	testValueSize = 8
	testBlockSize = 256
	testDevBlocks = 8
)

func newTestCache(t *testing.T) (*cache.Cache, *node.Node) {
	requireT := require.New(t)

	dev := memdev.New(testBlockSize * testDevBlocks)
	st, err := store.Open(dev, testBlockSize)
	requireT.NoError(err)
	c, err := cache.New(st, testBlockSize*testDevBlocks)
	requireT.NoError(err)

	sbBuf, err := c.Stage(freelist.SuperblockAddress)
	requireT.NoError(err)
	sb, err := node.New(sbBuf, blocks.SuperblockType, testKeySize, testValueSize, testBlockSize)
	requireT.NoError(err)

	var prev blocks.BlockAddress = blocks.NullAddress
	for a := blocks.BlockAddress(testDevBlocks - 1); a >= 4; a-- {
		buf, err := c.Stage(a)
		requireT.NoError(err)
		n, err := node.New(buf, blocks.UnallocatedType, testKeySize, testValueSize, testBlockSize)
		requireT.NoError(err)
		n.SetFreeList(prev)
		prev = a
	}
	sb.SetFreeList(4)
	requireT.NoError(c.MarkDirty(freelist.SuperblockAddress))

	return c, sb
}

// buildValidTree formats a root (block 1) with one separator key routing
// to two leaves (blocks 2, 3), mirroring traversal's buildSplitTree.
func buildValidTree(t *testing.T, c *cache.Cache, sb *node.Node) {
	requireT := require.New(t)

	leftBuf, err := c.Stage(2)
	requireT.NoError(err)
	left, err := node.New(leftBuf, blocks.LeafType, testKeySize, testValueSize, testBlockSize)
	requireT.NoError(err)
	left.SetNumKeys(1)
	requireT.NoError(left.SetKey(0, []byte("AAAAAAAA")))
	requireT.NoError(left.SetVal(0, []byte("valueAAA")))

	rightBuf, err := c.Stage(3)
	requireT.NoError(err)
	right, err := node.New(rightBuf, blocks.LeafType, testKeySize, testValueSize, testBlockSize)
	requireT.NoError(err)
	right.SetNumKeys(1)
	requireT.NoError(right.SetKey(0, []byte("CCCCCCCC")))
	requireT.NoError(right.SetVal(0, []byte("valueCCC")))

	rootBuf, err := c.Stage(1)
	requireT.NoError(err)
	root, err := node.New(rootBuf, blocks.RootType, testKeySize, testValueSize, testBlockSize)
	requireT.NoError(err)
	root.SetNumKeys(1)
	requireT.NoError(root.SetKey(0, []byte("AAAAAAAA")))
	requireT.NoError(root.SetPtr(0, 2))
	requireT.NoError(root.SetPtr(1, 3))

	sb.SetRootNode(1)
	requireT.NoError(c.MarkDirty(freelist.SuperblockAddress))
}

func TestCheckPassesOnWellFormedTree(t *testing.T) {
	requireT := require.New(t)

	c, sb := newTestCache(t)
	buildValidTree(t, c, sb)

	requireT.NoError(Check(c, sb))
}

func TestCheckFailsOnUnsortedLeafKeys(t *testing.T) {
	requireT := require.New(t)

	c, sb := newTestCache(t)
	buildValidTree(t, c, sb)

	leftBuf, err := c.Fetch(2)
	requireT.NoError(err)
	left := node.Wrap(leftBuf)
	left.SetNumKeys(2)
	requireT.NoError(left.SetKey(0, []byte("ZZZZZZZZ")))
	requireT.NoError(left.SetVal(0, []byte("valueZZZ")))
	requireT.NoError(left.SetKey(1, []byte("AAAAAAAA")))
	requireT.NoError(left.SetVal(1, []byte("valueAAA")))
	requireT.NoError(c.MarkDirty(2))

	err = Check(c, sb)
	requireT.Error(err)
	code, ok := blocks.CodeOf(err)
	requireT.True(ok)
	requireT.Equal(blocks.Insane, code)
}

func TestCheckFailsOnLeafKeyOutsideSeparatorBound(t *testing.T) {
	requireT := require.New(t)

	c, sb := newTestCache(t)
	buildValidTree(t, c, sb)

	// "ZZZZZZZZ" belongs under the right child's upper bound, not the
	// left's (which must stay <= the separator "AAAAAAAA").
	leftBuf, err := c.Fetch(2)
	requireT.NoError(err)
	left := node.Wrap(leftBuf)
	requireT.NoError(left.SetKey(0, []byte("ZZZZZZZZ")))
	requireT.NoError(c.MarkDirty(2))

	err = Check(c, sb)
	requireT.ErrorIs(err, blocks.ErrInsane)
}

func TestCheckFailsOnFreeListCycle(t *testing.T) {
	requireT := require.New(t)

	c, sb := newTestCache(t)
	buildValidTree(t, c, sb)

	buf, err := c.Fetch(4)
	requireT.NoError(err)
	n := node.Wrap(buf)
	n.SetFreeList(4)
	requireT.NoError(c.MarkDirty(4))

	err = Check(c, sb)
	requireT.ErrorIs(err, blocks.ErrInsane)
}

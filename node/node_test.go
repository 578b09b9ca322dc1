package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bptree/blocks"
)

const (
	testKeySize   = 8
	testValueSize = 8
	testBlockSize = 256
)

func newTestLeaf(t *testing.T) *Node {
	requireT := require.New(t)
	buf := make([]byte, testBlockSize)
	n, err := New(buf, blocks.LeafType, testKeySize, testValueSize, testBlockSize)
	requireT.NoError(err)
	return n
}

func newTestInterior(t *testing.T) *Node {
	requireT := require.New(t)
	buf := make([]byte, testBlockSize)
	n, err := New(buf, blocks.InteriorType, testKeySize, testValueSize, testBlockSize)
	requireT.NoError(err)
	return n
}

func TestMaxNumKeysAndSoftLimit(t *testing.T) {
	requireT := require.New(t)

	maxKeys := MaxNumKeys(testBlockSize)
	requireT.Equal((testBlockSize-HeaderSize())/16, maxKeys)
	requireT.Equal(2*maxKeys/3, SoftLimit(testBlockSize))
}

func TestLeafKeyValueRoundTrip(t *testing.T) {
	requireT := require.New(t)

	n := newTestLeaf(t)
	n.SetNumKeys(2)

	requireT.NoError(n.SetKey(0, []byte("keyAAAAA")))
	requireT.NoError(n.SetVal(0, []byte("valAAAAA")))
	requireT.NoError(n.SetKey(1, []byte("keyBBBBB")))
	requireT.NoError(n.SetVal(1, []byte("valBBBBB")))

	k0, err := n.GetKey(0)
	requireT.NoError(err)
	requireT.Equal([]byte("keyAAAAA"), k0)

	v1, err := n.GetVal(1)
	requireT.NoError(err)
	requireT.Equal([]byte("valBBBBB"), v1)
}

func TestLeafOutOfBounds(t *testing.T) {
	requireT := require.New(t)

	n := newTestLeaf(t)
	n.SetNumKeys(1)
	requireT.NoError(n.SetKey(0, []byte("keyAAAAA")))

	_, err := n.GetKey(1)
	requireT.ErrorIs(err, blocks.ErrOutOfBounds)
}

func TestLeafWrongNodeTypeForValue(t *testing.T) {
	requireT := require.New(t)

	n := newTestInterior(t)
	n.SetNumKeys(1)

	_, err := n.GetVal(0)
	requireT.ErrorIs(err, blocks.ErrWrongNodeType)
}

func TestInteriorPointerRoundTrip(t *testing.T) {
	requireT := require.New(t)

	n := newTestInterior(t)
	n.SetNumKeys(1)
	requireT.NoError(n.SetKey(0, []byte("keyAAAAA")))
	requireT.NoError(n.SetPtr(0, 5))
	requireT.NoError(n.SetPtr(1, 9))

	p0, err := n.GetPtr(0)
	requireT.NoError(err)
	requireT.EqualValues(5, p0)

	p1, err := n.GetPtr(1)
	requireT.NoError(err)
	requireT.EqualValues(9, p1)

	_, err = n.GetPtr(2)
	requireT.ErrorIs(err, blocks.ErrOutOfBounds)
}

func TestWrapPreservesHeaderFields(t *testing.T) {
	requireT := require.New(t)

	n := newTestLeaf(t)
	n.SetNumKeys(3)
	n.SetRootNode(42)
	n.SetFreeList(7)

	reopened := Wrap(n.Bytes())
	requireT.Equal(3, reopened.NumKeys())
	requireT.EqualValues(42, reopened.RootNode())
	requireT.EqualValues(7, reopened.FreeList())
	requireT.Equal(blocks.LeafType, reopened.NodeType())
}

func TestValidateFootprintRejectsOversizedKeys(t *testing.T) {
	requireT := require.New(t)

	err := ValidateFootprint(1000, 8, testBlockSize)
	requireT.Error(err)
	code, ok := blocks.CodeOf(err)
	requireT.True(ok)
	requireT.Equal(blocks.Insane, code)
}

package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bptree/blocks"
	"bptree/store"
	"bptree/store/memdev"
)

const (
	testBlockSize = 256
	testDevSize   = testBlockSize * 32
	testCacheSize = testBlockSize * 8
)

func newTestCache(t *testing.T) *Cache {
	requireT := require.New(t)

	dev := memdev.New(testDevSize)
	st, err := store.Open(dev, testBlockSize)
	requireT.NoError(err)

	c, err := New(st, testCacheSize)
	requireT.NoError(err)

	return c
}

func TestStageThenFetchReturnsSameBytes(t *testing.T) {
	requireT := require.New(t)

	c := newTestCache(t)

	data, err := c.Stage(5)
	requireT.NoError(err)
	for i := range data {
		data[i] = byte(i)
	}

	fetched, err := c.Fetch(5)
	requireT.NoError(err)
	requireT.Equal(data, fetched)
}

func TestCommitPersistsAcrossEviction(t *testing.T) {
	requireT := require.New(t)

	c := newTestCache(t)

	data, err := c.Stage(1)
	requireT.NoError(err)
	data[0] = 0xAB
	requireT.NoError(c.Commit())

	// Force eviction by touching many other addresses.
	for a := blocks.BlockAddress(2); a < testDevSize/testBlockSize; a++ {
		_, err := c.Stage(a)
		requireT.NoError(err)
	}
	requireT.NoError(c.Commit())

	fetched, err := c.Fetch(1)
	requireT.NoError(err)
	requireT.EqualValues(0xAB, fetched[0])
}

func TestFetchUnknownBlockReadsZeroed(t *testing.T) {
	requireT := require.New(t)

	c := newTestCache(t)

	data, err := c.Fetch(7)
	requireT.NoError(err)
	for _, b := range data {
		requireT.EqualValues(0, b)
	}
}

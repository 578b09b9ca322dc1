// Package cache buffers fixed-size blocks from a store.Store in memory,
// deferring writes until Commit so a run of mutations against one tree
// touches the device only once.
package cache

import (
	"github.com/outofforest/photon"
	"github.com/pkg/errors"

	"bptree/blocks"
	"bptree/store"
)

// Cache holds a bounded window of a store's blocks in memory, tracking
// which ones have pending writes.
type Cache struct {
	store    *store.Store
	nSlots   int64
	slotSize int64
	data     []byte
	dirty    map[int64]struct{}

	// checksums remembers, for every block this process has written, the
	// checksum it wrote. A later Fetch that has to go back to the device
	// (because the slot was evicted) verifies the bytes it reads against
	// this, catching corruption introduced between the write and the read
	// without requiring the checksum to be part of the on-disk format.
	checksums map[blocks.BlockAddress]blocks.Hash
}

// New creates a cache over st backed by size bytes of memory.
func New(st *store.Store, size int64) (*Cache, error) {
	slotSize := st.BlockSize() + headerSize
	nSlots := size / slotSize
	if nSlots < 1 {
		return nil, errors.Errorf("cache size %d is too small for block size %d", size, st.BlockSize())
	}

	return &Cache{
		store:     st,
		nSlots:    nSlots,
		slotSize:  slotSize,
		data:      make([]byte, nSlots*slotSize),
		dirty:     make(map[int64]struct{}, maxDirtySlots),
		checksums: map[blocks.BlockAddress]blocks.Hash{},
	}, nil
}

// BlockSize returns the block size of the underlying store.
func (c *Cache) BlockSize() int64 {
	return c.store.BlockSize()
}

// Fetch returns the bytes of the addressed block, reading through to the
// store on a cache miss. The returned slice aliases cache memory; callers
// that mutate it must call MarkDirty.
func (c *Cache) Fetch(address blocks.BlockAddress) ([]byte, error) {
	slot, err := c.locate(address)
	if err != nil {
		return nil, err
	}

	h := c.header(slot)
	data := c.slotData(slot)

	if h.V.State == slotClean || h.V.State == slotDirty {
		return data, nil
	}

	if err := c.store.ReadBlock(address, data); err != nil {
		return nil, err
	}
	if expected, ok := c.checksums[address]; ok {
		if err := blocks.VerifyChecksum(address, data, expected); err != nil {
			return nil, err
		}
	}

	h.V.Address = address
	h.V.State = slotClean

	return data, nil
}

// Stage reserves a cache slot for address without reading it from the
// store, zeroing its contents and marking it dirty. It is used when a
// caller is about to populate a freshly allocated block from scratch.
func (c *Cache) Stage(address blocks.BlockAddress) ([]byte, error) {
	slot, err := c.locate(address)
	if err != nil {
		return nil, err
	}

	data := c.slotData(slot)
	for i := range data {
		data[i] = 0
	}

	h := c.header(slot)
	h.V.Address = address
	h.V.State = slotDirty

	if err := c.markDirtySlot(slot); err != nil {
		return nil, err
	}

	return data, nil
}

// MarkDirty records that the bytes previously returned by Fetch for
// address have been modified and must be written back on Commit.
func (c *Cache) MarkDirty(address blocks.BlockAddress) error {
	slot, err := c.locate(address)
	if err != nil {
		return err
	}

	c.header(slot).V.State = slotDirty

	return c.markDirtySlot(slot)
}

func (c *Cache) markDirtySlot(slot int64) error {
	if len(c.dirty) >= maxDirtySlots {
		if err := c.flush(); err != nil {
			return err
		}
	}
	c.dirty[slot] = struct{}{}
	return nil
}

// Commit writes every dirty block to the store and syncs it.
func (c *Cache) Commit() error {
	if err := c.flush(); err != nil {
		return err
	}
	return errors.WithStack(c.store.Sync())
}

func (c *Cache) flush() error {
	for slot := range c.dirty {
		h := c.header(slot)
		data := c.slotData(slot)

		if err := c.store.WriteBlock(h.V.Address, data); err != nil {
			return err
		}
		c.checksums[h.V.Address] = blocks.Checksum(data)

		h.V.State = slotClean
	}

	for slot := range c.dirty {
		delete(c.dirty, slot)
	}

	return nil
}

// locate returns the slot currently holding address, evicting another
// slot if necessary. It never touches the store itself except to flush a
// dirty victim before reuse.
//
// Advancing the probe as slot*3+1 alternates between even and odd
// candidate slots and never stays on slot 0, spreading better than a
// linear scan.
func (c *Cache) locate(address blocks.BlockAddress) (int64, error) {
	selected := int64(address) % c.nSlots
	var freeSelected bool

	for i, slot := 0, selected; i < maxCacheTries; i, slot = i+1, (slot*3+1)%c.nSlots {
		h := c.header(slot)

		switch h.V.State {
		case slotFree:
			return slot, nil
		case slotClean, slotDirty:
			if h.V.Address == address {
				return slot, nil
			}
		}

		if !freeSelected {
			freeSelected = true
			selected = slot
		}
	}

	h := c.header(selected)
	if h.V.State == slotDirty {
		data := c.slotData(selected)
		if err := c.store.WriteBlock(h.V.Address, data); err != nil {
			return 0, err
		}
		c.checksums[h.V.Address] = blocks.Checksum(data)
		delete(c.dirty, selected)
	}

	h.V.State = slotFree

	return selected, nil
}

func (c *Cache) header(slot int64) photon.Union[*slotHeader] {
	offset := slot * c.slotSize
	return photon.NewFromBytes[slotHeader](c.data[offset:])
}

func (c *Cache) slotData(slot int64) []byte {
	offset := slot*c.slotSize + headerSize
	return c.data[offset : offset+c.store.BlockSize()]
}

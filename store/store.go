// Package store implements the block device abstraction the rest of the
// tree treats as external: raw, fixed-size block read/write over anything
// satisfying Dev. It knows nothing about node headers, the free list, or
// the superblock — that is the cache's and the tree's job.
package store

import (
	"io"

	"github.com/pkg/errors"

	"bptree/blocks"
)

// minBlocks is the smallest device this package will accept: room for a
// superblock, a root, and at least one free block.
const minBlocks = 3

// Dev is the interface required from the underlying device. *os.File and
// an in-memory buffer both satisfy it via the filedev/memdev packages.
type Dev interface {
	io.ReadWriteSeeker
	Sync() error
	Size() int64
}

// Store reads and writes fixed-size blocks on a Dev.
type Store struct {
	dev       Dev
	blockSize int64
}

// Open wraps dev as a Store of the given block size, rejecting a device too
// small to hold even a minimal tree.
func Open(dev Dev, blockSize int64) (*Store, error) {
	if blockSize <= 0 {
		return nil, errors.Errorf("invalid block size: %d", blockSize)
	}

	nBlocks := dev.Size() / blockSize
	if nBlocks < minBlocks {
		return nil, errors.Errorf("device is too small, minimum size is %d bytes, provided %d", minBlocks*blockSize, dev.Size())
	}

	return &Store{
		dev:       dev,
		blockSize: blockSize,
	}, nil
}

// BlockSize returns the fixed size of every block.
func (s *Store) BlockSize() int64 {
	return s.blockSize
}

// NumBlocks returns how many blocks the device holds.
func (s *Store) NumBlocks() int64 {
	return s.dev.Size() / s.blockSize
}

// ReadBlock reads the addressed block's bytes into p, which must be exactly
// BlockSize() long.
func (s *Store) ReadBlock(address blocks.BlockAddress, p []byte) error {
	if int64(len(p)) != s.blockSize {
		return errors.Errorf("buffer size %d does not match block size %d", len(p), s.blockSize)
	}

	if _, err := s.dev.Seek(int64(address)*s.blockSize, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.ReadFull(s.dev, p); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// WriteBlock writes p, which must be exactly BlockSize() long, to the
// addressed block.
func (s *Store) WriteBlock(address blocks.BlockAddress, p []byte) error {
	if int64(len(p)) != s.blockSize {
		return errors.Errorf("buffer size %d does not match block size %d", len(p), s.blockSize)
	}

	if _, err := s.dev.Seek(int64(address)*s.blockSize, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	if _, err := s.dev.Write(p); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Sync forces pending writes out to the device.
func (s *Store) Sync() error {
	return errors.WithStack(s.dev.Sync())
}

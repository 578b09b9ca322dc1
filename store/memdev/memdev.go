// Package memdev provides an in-memory stand-in for a block device, used by
// tests and by callers that want a throwaway tree with no file behind it.
package memdev

import (
	"io"

	"github.com/pkg/errors"
)

var (
	_ io.Seeker = &MemoryDevice{}
	_ io.Reader = &MemoryDevice{}
	_ io.Writer = &MemoryDevice{}
)

// MemoryDevice simulates device I/O against a byte slice held in memory.
type MemoryDevice struct {
	size   int64
	offset int64
	data   []byte
}

// New allocates a zeroed in-memory device of the given size.
func New(size int64) *MemoryDevice {
	return &MemoryDevice{
		size: size,
		data: make([]byte, size),
	}
}

// Size returns the fixed size of the device.
func (md *MemoryDevice) Size() int64 {
	return md.size
}

// Seek moves the read/write cursor, rejecting positions outside [0, size].
func (md *MemoryDevice) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = md.offset + offset
	case io.SeekEnd:
		target = md.size + offset
	default:
		return 0, errors.Errorf("invalid whence: %d", whence)
	}

	if target < 0 || target > md.size {
		return 0, errors.Errorf("invalid offset: %d", target)
	}

	md.offset = target
	return target, nil
}

// Read copies from the device at the current cursor into p.
func (md *MemoryDevice) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := copy(p, md.data[md.offset:])
	md.offset += int64(n)
	return n, nil
}

// Write copies p into the device at the current cursor.
func (md *MemoryDevice) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := copy(md.data[md.offset:], p)
	md.offset += int64(n)
	return n, nil
}

// Sync is a no-op: there is nothing beyond memory to flush to.
func (md *MemoryDevice) Sync() error {
	return nil
}

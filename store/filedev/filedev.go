// Package filedev provides a block device backed by an *os.File, for trees
// that persist across process restarts.
package filedev

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

var _ io.ReadWriteSeeker = &FileDevice{}

// FileDevice uses an open file handle as a device. The size is captured at
// Open time; growing the file afterwards does not change what NumBlocks
// reports until the device is reopened.
type FileDevice struct {
	file *os.File
	size int64
}

// Open opens path for read/write, creating it if it does not exist, and
// wraps it as a FileDevice.
func Open(path string) (*FileDevice, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return New(file)
}

// New wraps an already-open file handle as a FileDevice.
func New(file *os.File) (*FileDevice, error) {
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &FileDevice{
		file: file,
		size: size,
	}, nil
}

// Seek moves the read/write cursor within the file.
func (fd *FileDevice) Seek(offset int64, whence int) (int64, error) {
	n, err := fd.file.Seek(offset, whence)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Read reads from the file at the current cursor.
func (fd *FileDevice) Read(p []byte) (int, error) {
	n, err := fd.file.Read(p)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Write writes to the file at the current cursor.
func (fd *FileDevice) Write(p []byte) (int, error) {
	n, err := fd.file.Write(p)
	if err != nil {
		return n, errors.WithStack(err)
	}
	return n, nil
}

// Sync flushes the file to stable storage.
func (fd *FileDevice) Sync() error {
	if err := fd.file.Sync(); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Close closes the underlying file.
func (fd *FileDevice) Close() error {
	return errors.WithStack(fd.file.Close())
}

// Size returns the byte size of the file as observed when it was opened.
func (fd *FileDevice) Size() int64 {
	return fd.size
}

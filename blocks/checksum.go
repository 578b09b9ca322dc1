package blocks

import (
	"github.com/cespare/xxhash/v2"
)

// Hash is a block checksum. xxhash is used rather than a cryptographic hash
// because checksums here exist purely to catch accidental cache/device
// corruption, not to resist tampering, and every cache write-back computes one.
type Hash uint64

// Checksum computes the checksum of a block's bytes.
func Checksum(b []byte) Hash {
	return Hash(xxhash.Sum64(b))
}

// VerifyChecksum reports ErrInsane if the checksum of p does not match
// expected. The cache calls this when it reads back from the backing store
// a block whose checksum it recorded on an earlier write-back.
func VerifyChecksum(address BlockAddress, p []byte, expected Hash) error {
	if got := Checksum(p); got != expected {
		return Insanef("checksum mismatch for block %d, computed: %x, expected: %x", address, got, expected)
	}
	return nil
}

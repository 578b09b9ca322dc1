//go:build !test

package cache

const (
	// maxCacheTries is the maximum number of probes using open addressing before taking over a slot in cache.
	maxCacheTries = 10

	// maxDirtySlots is the number of dirty slots that triggers an implicit commit.
	maxDirtySlots = 10000
)

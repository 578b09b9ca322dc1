//go:build test

package cache

const (
	// maxCacheTries is the maximum number of probes using open addressing before taking over a slot in cache.
	maxCacheTries = 2

	// maxDirtySlots is the number of dirty slots that triggers an implicit commit.
	maxDirtySlots = 2
)

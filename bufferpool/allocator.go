package bufferpool

import "github.com/graphkit/graphd/unsafex/malloc"

// Allocator is the arena-backed allocation strategy behind a Pool's buffer
// memory. Both malloc.BuddyAllocator and malloc.BitmapAllocator satisfy it
// unmodified; the Pool is written against the interface so either strategy
// can back it.
type Allocator interface {
	Alloc(size int) []byte
	Free(block []byte)
	Available() int
	Reset()
}

// NewBuddyArena builds an Allocator backed by a buddy allocator over a
// freshly allocated arena of totalSize bytes, split into power-of-two
// blocks between minBlock and maxBlock.
func NewBuddyArena(totalSize, minBlock, maxBlock int) (Allocator, error) {
	arena := make([]byte, totalSize)
	return malloc.NewBuddyAllocatorWithBlockSize(arena, minBlock, maxBlock)
}

// NewBitmapArena builds an Allocator backed by a bitmap allocator, for
// workloads whose buffers are closer to uniformly sized than the buddy
// allocator's power-of-two rounding suits.
func NewBitmapArena(totalSize, minBlock, maxBlock int) (Allocator, error) {
	arena := make([]byte, totalSize)
	return malloc.NewBitmapAllocatorWithBlockSize(arena, minBlock, maxBlock)
}

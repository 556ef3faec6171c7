// Package buddy implements a single-threaded buddy-system memory
// allocator: a fixed 4 MiB arena is partitioned into power-of-two blocks
// with per-order free lists, split on demand and coalesced on free.
// Requests too large for the arena escape to the kernel page mapper,
// optionally with huge-page backing.
//
// The allocator is not safe for concurrent use; a caller needing that
// must supply its own external synchronization.
package buddy

import (
	"sync"
	"unsafe"

	"github.com/cloudwego/buddyalloc/pkg/buddy/kernel"
)

// Allocator is the buddy-system heap. Its zero value is not usable; build
// one with New.
type Allocator struct {
	once sync.Once

	heap   kernel.HeapExtender
	mapper kernel.PageMapper
	huge   kernel.HugePageOracle

	arenaStart uintptr
	heads      [MaxOrder + 1]int32 // heads[k] = offset of order k's free-list head, -1 if empty

	counters counters
}

// New builds an Allocator over the given kernel collaborators. The arena
// is not reserved until the first public call (Allocate, ZeroAllocate,
// Free, or Reallocate) triggers bootstrap.
func New(heap kernel.HeapExtender, mapper kernel.PageMapper, huge kernel.HugePageOracle) *Allocator {
	a := &Allocator{heap: heap, mapper: mapper, huge: huge}
	for i := range a.heads {
		a.heads[i] = -1
	}
	return a
}

func (a *Allocator) payloadAddr(base uintptr) uintptr {
	return base + headerSize
}

// allocate is the shared body of Allocate and ZeroAllocate: route to the
// arena or the large path based on header+payload size, and tag the
// resulting block with origin.
func (a *Allocator) allocate(n uintptr, origin Origin, huge bool) (uintptr, bool) {
	need := n + headerSize
	if need > MaxBlockSize {
		return a.allocateLarge(need, huge, origin)
	}

	addr, ok := a.findFree(need)
	if !ok {
		return 0, false
	}
	h := headerAt(addr)
	order := orderOfBlockSize(uintptr(h.blockSize))
	a.removeFree(order, addr)
	a.counters.markBusy(h)
	h.origin = origin
	return a.payloadAddr(addr), true
}

// Allocate reserves n bytes and returns the payload address, or (0,
// false) if n is zero, exceeds MaxSize, or no block is available.
func (a *Allocator) Allocate(n uintptr) (uintptr, bool) {
	a.bootstrap()
	if n == 0 || n > MaxSize {
		return 0, false
	}
	return a.allocate(n, OriginPlain, n >= hugePageThresholdPlain)
}

// ZeroAllocate reserves num*size bytes, zeroes them, and returns the
// payload address, or (0, false) on the same bounds as Allocate. The
// huge-page hint is decided by the per-element size, not the total.
func (a *Allocator) ZeroAllocate(num, size uintptr) (uintptr, bool) {
	a.bootstrap()
	if num == 0 || size == 0 {
		return 0, false
	}
	if num > MaxSize/size {
		return 0, false // would overflow past MaxSize
	}
	total := num * size
	if total == 0 || total > MaxSize {
		return 0, false
	}

	addr, ok := a.allocate(total, OriginZeroed, size > hugePageThresholdZeroedElem)
	if !ok {
		return 0, false
	}
	zeroMemory(addr, total)
	return addr, true
}

// Free releases the block at addr, which must have been returned by
// Allocate/ZeroAllocate/Reallocate and not yet freed. A nil (zero) addr
// is a no-op, and freeing an already-free block is silently ignored
// (weak double-free detection via the is-free flag; a wild pointer is
// undefined behavior — there are no guards against it).
func (a *Allocator) Free(addr uintptr) {
	a.bootstrap()
	if addr == 0 {
		return
	}
	base := addr - headerSize
	h := headerAt(base)
	if h.isFree {
		return
	}

	if h.blockSize > MaxBlockSize {
		a.counters.removeBlock(h)
		_ = a.mapper.Munmap(base, int(h.blockSize))
		return
	}

	a.counters.markFree(h)
	a.insertFree(orderOfBlockSize(uintptr(h.blockSize)), base)
	a.coalesceWalk(base)
}

// Reallocate resizes the block at addr to hold n bytes, returning the
// (possibly new) payload address. addr == 0 is equivalent to Allocate(n).
// If header plus n exceeds MaxBlockSize, the data moves to a fresh large
// mapping unless the block size already equals exactly that amount; this
// holds for shrinking a large block too. Otherwise a request that fits the
// current block keeps the same block, and growing tries, in order, an
// in-place coalesce with free buddies, then falls back to
// allocate-copy-free. The origin method is always preserved across the large-path,
// coalesce-grow, and copy-move branches, since it governs huge-page
// eligibility for large reallocations.
func (a *Allocator) Reallocate(addr uintptr, n uintptr) (uintptr, bool) {
	a.bootstrap()
	if n == 0 || n > MaxSize {
		return 0, false
	}
	if addr == 0 {
		return a.Allocate(n)
	}

	base := addr - headerSize
	h := headerAt(base)
	origin := h.origin
	need := n + headerSize

	if need > MaxBlockSize {
		if uintptr(h.blockSize) == need {
			return addr, true
		}
		newAddr, ok := a.allocate(n, origin, hugeHint(origin, n))
		if !ok {
			return 0, false
		}
		copyPayload(newAddr, addr, minUintptr(uintptr(h.payloadSize), n))
		a.Free(addr)
		return newAddr, true
	}

	if need <= uintptr(h.blockSize) {
		return addr, true // shrinking never splits off the excess; the block keeps its current size
	}

	if reachable := a.lookAhead(base); uintptr(MinBlockSize)<<reachable >= need {
		// join preserves addr's busy state through every step (it
		// generalizes the free-after-free case join also serves), so
		// the block at newBase is already busy and off every free
		// list once the loop below stops — no separate busy
		// transition is needed afterward.
		newBase := base
		for uintptr(headerAt(newBase).blockSize) < need {
			parent, ok := a.join(newBase)
			if !ok {
				break // look-ahead guarantees legality; defensive only
			}
			newBase = parent
		}

		ph := headerAt(newBase)
		ph.origin = origin

		newAddr := a.payloadAddr(newBase)
		if newBase != base {
			copyPayload(newAddr, addr, uintptr(h.payloadSize))
		}
		return newAddr, true
	}

	newAddr, ok := a.allocate(n, origin, false)
	if !ok {
		return 0, false
	}
	copyPayload(newAddr, addr, uintptr(h.payloadSize))
	a.Free(addr)
	return newAddr, true
}

// FreeBlocks returns the number of blocks currently resident on a free
// list.
func (a *Allocator) FreeBlocks() uint64 { return a.counters.freeBlocks }

// FreeBytes returns the total payload capacity of free blocks.
func (a *Allocator) FreeBytes() uint64 { return a.counters.freeBytes }

// TotalBlocks returns the number of blocks the allocator currently owns,
// free or busy.
func (a *Allocator) TotalBlocks() uint64 { return a.counters.allocBlocks }

// TotalBytes returns the summed payload capacity of every block the
// allocator currently owns, free or busy.
func (a *Allocator) TotalBytes() uint64 { return a.counters.allocBytes }

// MetadataBytes returns the total bytes spent on block headers.
func (a *Allocator) MetadataBytes() uint64 { return a.counters.metaBytes }

func copyPayload(dstAddr, srcAddr, n uintptr) {
	if n == 0 {
		return
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(dstAddr)), n)
	src := unsafe.Slice((*byte)(unsafe.Pointer(srcAddr)), n)
	copy(dst, src) // copy is overlap-safe per the language spec
}

func zeroMemory(addr, n uintptr) {
	if n == 0 {
		return
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	for i := range b {
		b[i] = 0
	}
}

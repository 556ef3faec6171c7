// Package kerneltest provides an in-memory stand-in for pkg/buddy/kernel's
// collaborators, so the buddy algorithm's own tests can exercise
// bootstrap alignment, arena exhaustion, and the large-allocation path
// without issuing real syscalls.
package kerneltest

import (
	"fmt"
	"unsafe"
)

// Fake implements kernel.HeapExtender, kernel.PageMapper, and
// kernel.HugePageOracle over ordinary Go-allocated backing arrays. The
// heap and mmap regions are pre-allocated up front so addresses handed
// out remain stable for the lifetime of the Fake — unlike a growable
// slice, which may relocate its backing array on append.
type Fake struct {
	heap     []byte
	brk      int
	mapSpace []byte
	mapNext  int
	maps     map[uintptr]int
	hugeSize int
}

// New creates a Fake with heapCap bytes available to Sbrk and mapCap
// bytes available to Mmap, reporting hugeSize as the huge-page size.
func New(heapCap, mapCap, hugeSize int) *Fake {
	return &Fake{
		heap:     make([]byte, heapCap),
		mapSpace: make([]byte, mapCap),
		maps:     make(map[uintptr]int),
		hugeSize: hugeSize,
	}
}

func (f *Fake) heapBase() uintptr { return uintptr(unsafe.Pointer(&f.heap[0])) }

// Sbrk extends the fake break by delta bytes and returns the break
// address prior to the extension, or the current break if delta is 0.
func (f *Fake) Sbrk(delta int) (uintptr, error) {
	cur := f.heapBase() + uintptr(f.brk)
	if delta == 0 {
		return cur, nil
	}
	if delta < 0 {
		return 0, fmt.Errorf("kerneltest: negative sbrk delta %d", delta)
	}
	if f.brk+delta > len(f.heap) {
		return 0, fmt.Errorf("kerneltest: fake heap exhausted (cap %d)", len(f.heap))
	}
	f.brk += delta
	return cur, nil
}

// Mmap hands out a slice of the fake mmap region.
func (f *Fake) Mmap(length int, huge bool) (uintptr, error) {
	if f.mapNext+length > len(f.mapSpace) {
		return 0, fmt.Errorf("kerneltest: fake mmap region exhausted (cap %d)", len(f.mapSpace))
	}
	addr := uintptr(unsafe.Pointer(&f.mapSpace[f.mapNext]))
	f.maps[addr] = length
	f.mapNext += length
	return addr, nil
}

// Munmap releases a mapping previously returned by Mmap. It does not
// reclaim space in the fake mmap region (tests are expected to size
// mapCap generously); it only validates the (addr, length) pair matches
// what was handed out, the same contract a real unmapper enforces.
func (f *Fake) Munmap(addr uintptr, length int) error {
	got, ok := f.maps[addr]
	if !ok {
		return fmt.Errorf("kerneltest: munmap of untracked address %#x", addr)
	}
	if got != length {
		return fmt.Errorf("kerneltest: munmap length %d does not match mapped length %d", length, got)
	}
	delete(f.maps, addr)
	return nil
}

// HugePageSize returns the fixed huge-page size this Fake was built with.
func (f *Fake) HugePageSize() int { return f.hugeSize }

// Package kernel isolates the three ways the buddy allocator reaches
// outside its own arena: contiguous heap extension, anonymous page
// mapping, and the system's huge-page geometry. pkg/buddy only ever talks
// to these three small interfaces, never to golang.org/x/sys/unix
// directly, so the allocator core stays testable without real syscalls
// (see kerneltest).
package kernel

// HeapExtender models sbrk-style contiguous heap extension. Given a byte
// count, it must extend the break by exactly that many bytes and return
// the previous break address, or an error if extension failed.
type HeapExtender interface {
	Sbrk(delta int) (uintptr, error)
}

// PageMapper models anonymous page mapping. Mmap returns a fresh
// read/write mapping of at least length bytes (optionally hinting for
// huge-page backing), or an error. Munmap must be called with the exact
// same length used at map time.
type PageMapper interface {
	Mmap(length int, huge bool) (uintptr, error)
	Munmap(addr uintptr, length int) error
}

// HugePageOracle reports the system's huge-page size in bytes, fixed per
// process.
type HugePageOracle interface {
	HugePageSize() int
}

package buddy

import "unsafe"

// Origin records which public entry point produced an allocation. It is
// propagated through splits, joins, and copy-moves so that reallocating a
// zero-allocated block keeps the huge-page eligibility rules that apply
// to its original entry point.
type Origin uint8

const (
	// OriginPlain marks a block produced by Allocate.
	OriginPlain Origin = iota
	// OriginZeroed marks a block produced by ZeroAllocate.
	OriginZeroed
)

// header is co-located at the base of every block the allocator manages,
// both arena blocks (free or busy) and large, page-mapped allocations.
// Storing it in-band means free-list link storage costs nothing extra and
// the buddy address of a block is computable as addr XOR blockSize
// without a side table.
//
// payloadSize/blockSize are kept as uint32 (not uintptr) deliberately:
// this caps a single block at 4 GiB, far above MaxSize, but keeps the
// header small enough that a 100-byte request still leaves headroom
// under a 128-byte order-0 block instead of spilling into order 1.
//
// prev/next are offsets (relative to the arena base) of free-list
// neighbors and are meaningful only while the block is free and resident
// on an order's list; -1 means "no neighbor". They are unused for large
// (page-mapped) blocks, which never sit on a free list.
type header struct {
	payloadSize uint32
	blockSize   uint32
	prev        int32
	next        int32
	origin      Origin
	isFree      bool
}

// headerSize is the fixed cost of co-locating a header with every block.
// unsafe.Sizeof of a fixed-layout struct literal is a compile-time
// constant, so this can be used anywhere a Go const is required (e.g. the
// MinBlockSize > headerSize sanity check below).
const headerSize = unsafe.Sizeof(header{})

func headerAt(addr uintptr) *header {
	return (*header)(unsafe.Pointer(addr)) //nolint:govet // raw OS memory, not GC-managed
}

// HeaderSize returns the fixed per-block overhead in bytes.
func HeaderSize() uintptr {
	return headerSize
}

func init() {
	if MinBlockSize <= headerSize {
		panic("buddy: MinBlockSize must be greater than the block header size")
	}
}

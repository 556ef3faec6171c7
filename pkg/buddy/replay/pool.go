// Package replay provides a fixed-capacity FIFO record buffer used by the
// buddyctl driver's history command to hold serialized operation-log
// entries while it replays a script against a buddy.Allocator. Records are
// reserved at the tail and must be released from the head in the same
// order they were reserved, matching how the driver discards its oldest
// buffered line when the buffer fills up.
package replay

import (
	"fmt"
	"unsafe"
)

const (
	recordHeaderSize = 8
	recordMagic      uint32 = 0x68697374 // "hist"

	// DefaultMaxRecordSize is the default largest single record, including
	// its header (512 KiB).
	DefaultMaxRecordSize = 512 * 1024
)

// Pool is a circular byte arena holding variable-length records in arrival
// order. A single contiguous arc from head to tail (wrapping at the arena's
// end) holds every live record plus, at most, one pending gap: the unused
// remainder left at the end of the arena when a reservation does not fit
// before wrap and is placed at offset 0 instead. The gap is reclaimed once
// the head advances past it.
type Pool struct {
	arena []byte
	base  unsafe.Pointer
	cap   int

	head int
	tail int
	used int

	gapOffset int // -1 when no gap is pending
	gapLen    int

	maxRecordLen int
}

// NewPool creates a Pool over arena, rejecting any single record whose
// header plus payload would exceed maxRecordLen.
func NewPool(arena []byte, maxRecordLen int) (*Pool, error) {
	if maxRecordLen <= recordHeaderSize {
		return nil, fmt.Errorf("replay: max record length must exceed the %d-byte record header", recordHeaderSize)
	}
	if len(arena) < maxRecordLen {
		return nil, fmt.Errorf("replay: arena of %d bytes cannot hold a single %d-byte record", len(arena), maxRecordLen)
	}
	return &Pool{
		arena:        arena,
		base:         unsafe.Pointer(&arena[0]),
		cap:          len(arena),
		gapOffset:    -1,
		maxRecordLen: maxRecordLen,
	}, nil
}

// Reserve claims room for a size-byte record at the tail of the ring and
// returns its writable buffer, or nil if size is non-positive, the record
// (with header) exceeds maxRecordLen, or the ring has no contiguous room
// for it yet. A nil result is the caller's cue to release the oldest
// outstanding record and retry, the same way a bounded history buffer
// drops its earliest line to make room for a new one.
func (p *Pool) Reserve(size int) []byte {
	if size <= 0 {
		return nil
	}
	total := size + recordHeaderSize
	if total > p.maxRecordLen {
		return nil
	}

	wasted := 0
	if spaceToEnd := p.cap - p.tail; spaceToEnd < total {
		wasted = spaceToEnd
	}
	if p.used+wasted+total > p.cap {
		return nil
	}

	if wasted > 0 {
		p.gapOffset = p.tail
		p.gapLen = wasted
		p.used += wasted
		p.tail = 0
	}

	offset := p.tail
	p.writeHeader(offset, size)
	p.used += total
	p.tail += total
	if p.tail == p.cap {
		p.tail = 0
	}

	return unsafe.Slice((*byte)(unsafe.Add(p.base, offset+recordHeaderSize)), size)
}

// Release returns the record at the head of the ring to the pool. record
// must be the oldest still-outstanding result of Reserve; releasing
// anything else, or releasing twice, panics.
func (p *Pool) Release(record []byte) {
	if len(record) == 0 {
		return
	}
	offset := int(uintptr(unsafe.Pointer(&record[0]))-uintptr(p.base)) - recordHeaderSize
	if offset != p.head {
		panic("replay: records must be released in the order they were reserved")
	}

	magic, size := p.readHeader(offset)
	if magic != recordMagic {
		panic("replay: double release or corrupted record")
	}
	p.clearHeader(offset)

	p.used -= size + recordHeaderSize
	p.head += size + recordHeaderSize
	if p.head == p.cap {
		p.head = 0
	}
	if p.head == p.gapOffset {
		p.used -= p.gapLen
		p.head = 0
		p.gapOffset = -1
	}
}

// Available returns the number of bytes not currently occupied by a live
// record or a pending gap.
func (p *Pool) Available() int {
	return p.cap - p.used
}

// Reset releases every outstanding record at once.
func (p *Pool) Reset() {
	p.head, p.tail, p.used = 0, 0, 0
	p.gapOffset = -1
}

func (p *Pool) writeHeader(offset, size int) {
	ptr := unsafe.Add(p.base, offset)
	*(*uint32)(ptr) = recordMagic
	*(*uint32)(unsafe.Add(ptr, 4)) = uint32(size)
}

func (p *Pool) readHeader(offset int) (uint32, int) {
	ptr := unsafe.Add(p.base, offset)
	magic := *(*uint32)(ptr)
	size := *(*uint32)(unsafe.Add(ptr, 4))
	return magic, int(size)
}

func (p *Pool) clearHeader(offset int) {
	*(*uint32)(unsafe.Add(p.base, offset)) = 0
}

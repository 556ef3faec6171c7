package buddy

// allocateLarge routes a request whose header+payload exceeds MaxBlockSize
// directly to the kernel page mapper. need already includes the header.
// When huge is set, need is rounded up to a multiple of the system
// huge-page size before mapping, so the eventual unmap covers exactly the
// mapped region; payloadSize is derived from that same rounded length,
// since it is the block's actual capacity, not the caller's raw request.
func (a *Allocator) allocateLarge(need uintptr, huge bool, origin Origin) (uintptr, bool) {
	mapLen := need
	if huge {
		if hp := uintptr(a.huge.HugePageSize()); hp > 0 {
			mapLen = alignUp(need, hp)
		}
	}

	base, err := a.mapper.Mmap(int(mapLen), huge)
	if err != nil {
		return 0, false
	}

	*headerAt(base) = header{
		payloadSize: uint32(mapLen - headerSize),
		blockSize:   uint32(mapLen),
		isFree:      false,
		origin:      origin,
		prev:        -1,
		next:        -1,
	}
	a.counters.addBlock(headerAt(base))
	return a.payloadAddr(base), true
}

// hugeHint decides the huge-page request hint for a given origin method.
// Allocate measures against the caller's requested byte count; ZeroAllocate
// measures against the per-element size, not the total. Reallocate's
// escape-to-large path calls this with the new byte count n, the threshold
// being picked by the block's preserved origin.
func hugeHint(origin Origin, measure uintptr) bool {
	if origin == OriginZeroed {
		return measure > hugePageThresholdZeroedElem
	}
	return measure >= hugePageThresholdPlain
}

package buddy

// Free-list discipline: each order's list is kept sorted by ascending
// address, doubly linked via the header's own prev/next fields. Insertion
// walks the list and splices in at the first position where the next
// node is absent or its address exceeds the new block's, keeping the
// list ordered without a separate sort pass.

func (a *Allocator) offsetOf(addr uintptr) int32 {
	return int32(addr - a.arenaStart)
}

func (a *Allocator) addrOf(off int32) uintptr {
	return a.arenaStart + uintptr(off)
}

// insertFree splices a free block into order k's address-ordered list.
// The block's header must already be initialized (isFree=true); this
// only manages list linkage.
func (a *Allocator) insertFree(order int, addr uintptr) {
	off := a.offsetOf(addr)
	h := headerAt(addr)

	headOff := a.heads[order]
	if headOff == -1 || headOff > off {
		h.prev = -1
		h.next = headOff
		if headOff != -1 {
			headerAt(a.addrOf(headOff)).prev = off
		}
		a.heads[order] = off
		return
	}

	iter := headOff
	for {
		iterH := headerAt(a.addrOf(iter))
		if iterH.next == -1 || iterH.next > off {
			h.prev = iter
			h.next = iterH.next
			if iterH.next != -1 {
				headerAt(a.addrOf(iterH.next)).prev = off
			}
			iterH.next = off
			return
		}
		iter = iterH.next
	}
}

// removeFree unlinks a free block from order k's list using its own
// prev/next fields.
func (a *Allocator) removeFree(order int, addr uintptr) {
	h := headerAt(addr)
	if h.prev == -1 {
		a.heads[order] = h.next
	} else {
		headerAt(a.addrOf(h.prev)).next = h.next
	}
	if h.next != -1 {
		headerAt(a.addrOf(h.next)).prev = h.prev
	}
	h.prev, h.next = -1, -1
}

// peekHead returns the address at the head of order k's list without
// removing it, or (0, false) if the list is empty.
func (a *Allocator) peekHead(order int) (uintptr, bool) {
	off := a.heads[order]
	if off == -1 {
		return 0, false
	}
	return a.addrOf(off), true
}

package buddy

// split halves the block at addr, which must currently be the head of its
// order's free list (or otherwise already detached from a caller's
// perspective), producing a left child at the same address and a right
// child at its buddy address. Both children are initialized free at the
// new order; the left child's is-free flag and origin are restored to the
// parent's prior state. Returns the left child's address.
func (a *Allocator) split(addr uintptr) uintptr {
	h := headerAt(addr)
	order := orderOfBlockSize(uintptr(h.blockSize))
	wasFree := h.isFree
	origin := h.origin
	newOrder := order - 1
	newSize := uintptr(MinBlockSize) << newOrder

	if wasFree {
		a.removeFree(order, addr)
	}
	a.counters.removeBlock(h)

	rightAddr := buddyAddr(addr, newSize)

	*headerAt(addr) = header{
		payloadSize: uint32(newSize - headerSize),
		blockSize:   uint32(newSize),
		isFree:      wasFree,
		origin:      origin,
		prev:        -1,
		next:        -1,
	}
	*headerAt(rightAddr) = header{
		payloadSize: uint32(newSize - headerSize),
		blockSize:   uint32(newSize),
		isFree:      true,
		origin:      origin,
		prev:        -1,
		next:        -1,
	}

	a.counters.addBlock(headerAt(addr))
	a.counters.addBlock(headerAt(rightAddr))

	if wasFree {
		a.insertFree(newOrder, addr)
	}
	a.insertFree(newOrder, rightAddr)

	return addr
}

// entirelyFree reports whether the block spanning [addr, addr+size) is
// either a single free block of exactly that size, or has been further
// subdivided into two halves that are themselves (recursively) entirely
// free. This is a pure read: the check both the coalesce look-ahead and
// join's legality gate depend on, since a buddy that has been split into
// two free children is not directly joinable — its own halves must be
// physically recombined first.
func (a *Allocator) entirelyFree(addr, size uintptr) bool {
	h := headerAt(addr)
	if uintptr(h.blockSize) == size {
		return h.isFree
	}
	if uintptr(h.blockSize) > size {
		return false
	}
	half := size >> 1
	return a.entirelyFree(addr, half) && a.entirelyFree(buddyAddr(addr, half), half)
}

// collapse physically merges the block spanning [addr, addr+size), already
// known via entirelyFree to be either a single free block of that size or
// two recursively-entirely-free halves, into one free header of exactly
// size. No-op if it is already a single block. Because addr is itself a
// validly aligned block address of size `size`, the recursive merge always
// lands back at addr (buddyAddr(addr, half) > addr for any half < size),
// so the caller can rely on headerAt(addr) being valid afterward.
func (a *Allocator) collapse(addr, size uintptr) {
	h := headerAt(addr)
	if uintptr(h.blockSize) == size {
		return
	}
	half := size >> 1
	buddyHalf := buddyAddr(addr, half)
	a.collapse(addr, half)
	a.collapse(buddyHalf, half)

	order := orderOfBlockSize(half)
	a.removeFree(order, addr)
	a.removeFree(order, buddyHalf)
	ah := headerAt(addr)
	bh := headerAt(buddyHalf)
	a.counters.removeBlock(ah)
	a.counters.removeBlock(bh)

	*headerAt(addr) = header{
		payloadSize: uint32(size - headerSize),
		blockSize:   uint32(size),
		isFree:      true,
		origin:      ah.origin,
		prev:        -1,
		next:        -1,
	}
	a.counters.addBlock(headerAt(addr))
	a.insertFree(order+1, addr)
}

// join attempts to coalesce the block at addr with its buddy, whether addr
// itself is free (the ordinary post-free coalesce walk) or busy (the
// in-place grow path reallocate uses, which must preserve addr's busy
// state and payload through the merge). It succeeds only if the buddy is
// entirely free; on success it returns the new parent block's address, at
// order+1, with addr's prior free/busy state and origin carried over. On
// failure it returns (0, false) and mutates nothing.
func (a *Allocator) join(addr uintptr) (uintptr, bool) {
	h := headerAt(addr)
	order := orderOfBlockSize(uintptr(h.blockSize))
	if order >= MaxOrder {
		return 0, false
	}
	size := uintptr(h.blockSize)
	buddy := buddyAddr(addr, size)
	if !a.entirelyFree(buddy, size) {
		return 0, false
	}
	a.collapse(buddy, size)

	wasFree := h.isFree
	origin := h.origin
	bh := headerAt(buddy)

	if wasFree {
		a.removeFree(order, addr)
	}
	a.removeFree(order, buddy)
	a.counters.removeBlock(h)
	a.counters.removeBlock(bh)

	parentAddr := addr
	if buddy < addr {
		parentAddr = buddy
	}
	newSize := size << 1
	*headerAt(parentAddr) = header{
		payloadSize: uint32(newSize - headerSize),
		blockSize:   uint32(newSize),
		isFree:      wasFree,
		origin:      origin,
		prev:        -1,
		next:        -1,
	}
	a.counters.addBlock(headerAt(parentAddr))
	if wasFree {
		a.insertFree(order+1, parentAddr)
	}
	return parentAddr, true
}

// coalesceWalk repeatedly joins the free block at addr with its buddy
// until a join fails or MaxOrder is reached. Run after every free.
func (a *Allocator) coalesceWalk(addr uintptr) {
	cur := addr
	for {
		parent, ok := a.join(cur)
		if !ok {
			return
		}
		cur = parent
	}
}

// lookAhead is a pure read: the maximal order the busy block at addr
// could reach by successively joining with currently-free buddies, as if
// addr were itself free. It must not mutate any list or counter.
func (a *Allocator) lookAhead(addr uintptr) int {
	h := headerAt(addr)
	order := orderOfBlockSize(uintptr(h.blockSize))
	size := uintptr(h.blockSize)
	for order < MaxOrder {
		buddy := buddyAddr(addr, size)
		if !a.entirelyFree(buddy, size) {
			break
		}
		if buddy < addr {
			addr = buddy
		}
		size <<= 1
		order++
	}
	return order
}

// findFree returns a free block of exactly the order needed for n bytes,
// splitting a higher-order block as necessary. It peeks free-list heads
// rather than popping them: split() itself detaches whatever it is
// splitting from its order's list, so the returned block is still marked
// free and still resident on order k's list — callers (Allocate) must
// transition it to busy and remove it themselves.
func (a *Allocator) findFree(n uintptr) (uintptr, bool) {
	order := orderForSize(n)
	if order > MaxOrder {
		return 0, false
	}
	if addr, ok := a.peekHead(order); ok {
		return addr, true
	}

	found := -1
	for o := order + 1; o <= MaxOrder; o++ {
		if a.heads[o] != -1 {
			found = o
			break
		}
	}
	if found == -1 {
		return 0, false
	}

	addr, _ := a.peekHead(found)
	for cur := found; cur > order; cur-- {
		addr = a.split(addr)
	}
	return addr, true
}

package buddy

// counters tracks the allocator's running introspection totals through a
// single bottleneck: every block entering or leaving the allocator's
// awareness (bootstrap, split, join, large alloc/free) runs through
// addBlock/removeBlock; every free/busy transition of an already-known
// block runs through markFree/markBusy. allocBlocks/allocBytes count
// every block the allocator currently owns, free or busy, not just the
// in-use ones.
type counters struct {
	freeBlocks  uint64
	freeBytes   uint64
	allocBlocks uint64
	allocBytes  uint64
	metaBytes   uint64
}

func (c *counters) addBlock(h *header) {
	if h.isFree {
		c.freeBlocks++
		c.freeBytes += uint64(h.payloadSize)
	}
	c.allocBlocks++
	c.allocBytes += uint64(h.payloadSize)
	c.metaBytes += uint64(headerSize)
}

func (c *counters) removeBlock(h *header) {
	if h.isFree {
		c.freeBlocks--
		c.freeBytes -= uint64(h.payloadSize)
	}
	c.allocBlocks--
	c.allocBytes -= uint64(h.payloadSize)
	c.metaBytes -= uint64(headerSize)
}

func (c *counters) markFree(h *header) {
	h.isFree = true
	c.freeBlocks++
	c.freeBytes += uint64(h.payloadSize)
}

func (c *counters) markBusy(h *header) {
	h.isFree = false
	c.freeBlocks--
	c.freeBytes -= uint64(h.payloadSize)
}

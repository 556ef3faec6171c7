package buddy

import "fmt"

// bootstrap runs exactly once per Allocator: it aligns the break pointer
// to an ArenaSize boundary, reserves the full arena, and populates the
// top-order free list with arenaSlots maximum-order blocks. Bootstrap is
// assumed to succeed; a kernel failure here is unrecoverable, so it
// panics rather than threading an error through every public call.
func (a *Allocator) bootstrap() {
	a.once.Do(func() {
		cur, err := a.heap.Sbrk(0)
		if err != nil {
			panic(fmt.Sprintf("buddy: bootstrap could not read the break pointer: %v", err))
		}

		if rem := uintptr(cur) % ArenaSize; rem != 0 {
			if _, err := a.heap.Sbrk(int(ArenaSize - rem)); err != nil {
				panic(fmt.Sprintf("buddy: bootstrap could not align the break pointer: %v", err))
			}
		}

		base, err := a.heap.Sbrk(ArenaSize)
		if err != nil {
			panic(fmt.Sprintf("buddy: bootstrap could not reserve the arena: %v", err))
		}
		a.arenaStart = base

		for i := 0; i < arenaSlots; i++ {
			addr := base + uintptr(i*MaxBlockSize)
			*headerAt(addr) = header{
				payloadSize: uint32(MaxBlockSize - headerSize),
				blockSize:   uint32(MaxBlockSize),
				isFree:      true,
				origin:      OriginPlain,
				prev:        -1,
				next:        -1,
			}
			a.counters.addBlock(headerAt(addr))
			a.insertFree(MaxOrder, addr)
		}
	})
}

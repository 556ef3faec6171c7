package main

import (
	"fmt"
	"os"

	"github.com/cloudwego/buddyalloc/pkg/buddy"
	"github.com/cloudwego/buddyalloc/pkg/buddy/kernel"
)

// driver replays a parsed script against one Allocator, tracking each
// bound id's current payload address so later lines can refer back to
// earlier allocations.
type driver struct {
	alloc *buddy.Allocator
	vars  map[string]uintptr
}

func newDriver() *driver {
	k := &kernel.Linux{}
	return &driver{
		alloc: buddy.New(k, k, k),
		vars:  make(map[string]uintptr),
	}
}

// exec runs one op and returns a one-line human-readable result, or an
// error if the op referenced an unbound id or the allocator refused the
// request.
func (d *driver) exec(o op) (string, error) {
	switch o.kind {
	case "alloc":
		addr, ok := d.alloc.Allocate(o.a)
		if !ok {
			return "", fmt.Errorf("alloc %s %d: allocator returned null", o.id, o.a)
		}
		d.vars[o.id] = addr
		return fmt.Sprintf("alloc %s = %#x (%d bytes)", o.id, addr, o.a), nil

	case "zalloc":
		addr, ok := d.alloc.ZeroAllocate(o.a, o.b)
		if !ok {
			return "", fmt.Errorf("zalloc %s %d*%d: allocator returned null", o.id, o.a, o.b)
		}
		d.vars[o.id] = addr
		return fmt.Sprintf("zalloc %s = %#x (%d * %d bytes)", o.id, addr, o.a, o.b), nil

	case "free":
		addr, ok := d.vars[o.id]
		if !ok {
			return "", fmt.Errorf("free %s: unbound id", o.id)
		}
		d.alloc.Free(addr)
		delete(d.vars, o.id)
		return fmt.Sprintf("free %s (was %#x)", o.id, addr), nil

	case "realloc":
		addr, ok := d.vars[o.id]
		if !ok {
			return "", fmt.Errorf("realloc %s: unbound id", o.id)
		}
		newAddr, ok := d.alloc.Reallocate(addr, o.a)
		if !ok {
			return "", fmt.Errorf("realloc %s %d: allocator returned null", o.id, o.a)
		}
		d.vars[o.id] = newAddr
		return fmt.Sprintf("realloc %s = %#x (%d bytes, was %#x)", o.id, newAddr, o.a, addr), nil

	default:
		return "", fmt.Errorf("unknown op kind %q", o.kind)
	}
}

func (d *driver) summary() string {
	return fmt.Sprintf(
		"free_blocks=%d free_bytes=%d total_blocks=%d total_bytes=%d metadata_bytes=%d",
		d.alloc.FreeBlocks(), d.alloc.FreeBytes(),
		d.alloc.TotalBlocks(), d.alloc.TotalBytes(),
		d.alloc.MetadataBytes(),
	)
}

func openScript(path string) (*os.File, error) {
	if path == "-" || path == "" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

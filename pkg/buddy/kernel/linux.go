//go:build linux

package kernel

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux implements HeapExtender, PageMapper, and HugePageOracle against
// real Linux syscalls. The zero value is ready to use.
type Linux struct {
	once     sync.Once
	hugeSize int
}

// Sbrk extends the process break by delta bytes (delta == 0 only reads
// the current break) and returns the break address prior to the
// extension, matching the classical sbrk(2) contract. x/sys/unix does
// not wrap brk(2) directly, so the raw syscall number is used, the same
// way the original C implementation calls libc's sbrk.
func (l *Linux) Sbrk(delta int) (uintptr, error) {
	cur, _, errno := unix.Syscall(unix.SYS_BRK, 0, 0, 0)
	if delta == 0 {
		return cur, nil
	}

	want := cur + uintptr(delta)
	got, _, errno := unix.Syscall(unix.SYS_BRK, want, 0, 0)
	if got != want {
		if errno != 0 {
			return 0, errno
		}
		return 0, fmt.Errorf("kernel: brk extension by %d bytes failed: wanted break %#x, kernel reports %#x", delta, want, got)
	}
	return cur, nil
}

// Mmap creates a fresh anonymous read/write mapping, optionally hinting
// MAP_HUGETLB.
func (l *Linux) Mmap(length int, huge bool) (uintptr, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
	if huge {
		flags |= unix.MAP_HUGETLB
	}
	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return 0, fmt.Errorf("kernel: mmap %d bytes (huge=%v): %w", length, huge, err)
	}
	return uintptr(unsafe.Pointer(&data[0])), nil
}

// Munmap unmaps exactly length bytes starting at addr.
func (l *Linux) Munmap(addr uintptr, length int) error {
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("kernel: munmap %#x (%d bytes): %w", addr, length, err)
	}
	return nil
}

// HugePageSize reads /proc/meminfo's "Hugepagesize:" line once and caches
// it for the process lifetime.
func (l *Linux) HugePageSize() int {
	l.once.Do(func() {
		l.hugeSize = readHugePageSize()
	})
	return l.hugeSize
}

func readHugePageSize() int {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Hugepagesize:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return int(kb * 1024)
	}
	return 0
}

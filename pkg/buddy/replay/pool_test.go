package replay

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		max     int
		wantErr bool
	}{
		{"valid", 1024 * 1024, 64 * 1024, false},
		{"valid_small_arena", 16 * 1024, 8192, false},
		{"max_le_header", 16 * 1024, recordHeaderSize, true},
		{"arena_smaller_than_max", 4096, 8192, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPool(make([]byte, tt.size), tt.max)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPoolReserveRelease(t *testing.T) {
	p := newTestPool(t, 1024*1024, 64*1024)

	r1 := p.Reserve(1024)
	require.NotNil(t, r1)
	assert.Equal(t, 1024, len(r1))

	for i := range r1 {
		r1[i] = byte(i)
	}

	r2 := p.Reserve(8192)
	require.NotNil(t, r2)
	assert.False(t, recordsOverlap(r1, r2))

	p.Release(r1)
	r3 := p.Reserve(2048)
	require.NotNil(t, r3)

	p.Release(r2)
	p.Release(r3)
}

func TestPoolReserveSizes(t *testing.T) {
	p := newTestPool(t, 2*1024*1024, 128*1024)

	for _, sz := range []int{1, 100, 1024, 4096, 8192, 16384, 32768, 65536} {
		r := p.Reserve(sz)
		require.NotNil(t, r, "size=%d", sz)
		assert.Equal(t, sz, len(r))
		p.Release(r)
	}
}

func TestPoolReserveZeroNegative(t *testing.T) {
	p := newTestPool(t, 256*1024, 16*1024)
	assert.Nil(t, p.Reserve(0))
	assert.Nil(t, p.Reserve(-1))
}

func TestPoolReserveTooLarge(t *testing.T) {
	p := newTestPool(t, 256*1024, 16*1024)
	assert.Nil(t, p.Reserve(16*1024)) // max minus header exceeded
}

func TestPoolExhaustion(t *testing.T) {
	p := newTestPool(t, 256*1024, 64*1024)

	// 1016 bytes plus the 8-byte header is 1024, so 256 records fill the
	// 256 KiB arena exactly and leave no room for even a 1-byte record.
	var records [][]byte
	for {
		r := p.Reserve(1016)
		if r == nil {
			break
		}
		records = append(records, r)
	}
	assert.Greater(t, len(records), 0)
	assert.Nil(t, p.Reserve(1))

	for _, r := range records {
		p.Release(r)
	}

	r := p.Reserve(1024)
	require.NotNil(t, r)
	p.Release(r)
}

// TestPoolWrapsAroundThroughAGap drives the ring past its physical end: two
// large records fill all but 80 bytes of the arena, releasing the first
// makes room (by total byte count) for a third that nonetheless can't fit
// before the arena's end, forcing a wrap that leaves an 80-byte gap for
// Release to skip over once the head reaches it.
func TestPoolWrapsAroundThroughAGap(t *testing.T) {
	const arenaSize = 4096
	p := newTestPool(t, arenaSize, 2048)

	var records [][]byte
	reserve := func(n int) {
		r := p.Reserve(n)
		require.NotNil(t, r, "reserve %d", n)
		records = append(records, r)
	}
	release := func() {
		require.NotEmpty(t, records)
		p.Release(records[0])
		records = records[1:]
	}

	reserve(2000) // total 2008, tail at 2008
	reserve(2000) // total 2008, tail at 4016 (80 bytes left before the end)
	release()     // free the first record's 2008 bytes so there's room overall

	// 900 bytes (total 908) fits in the 2008 bytes now free overall, but not
	// in the 80 bytes left before the arena's end, so it must wrap.
	reserve(900)
	assert.Equal(t, 908, p.tail, "reserve should have wrapped tail to 0 and advanced")
	assert.NotEqual(t, -1, p.gapOffset, "a gap should be pending after wrap")

	for len(records) > 0 {
		release()
	}
	assert.Equal(t, -1, p.gapOffset, "gap should be cleared once head passes it")
	assert.Equal(t, arenaSize, p.Available())

	// The ring must still be usable after a full wrap-and-drain cycle.
	r := p.Reserve(500)
	require.NotNil(t, r)
	p.Release(r)
}

func TestPoolReleaseOutOfOrderPanics(t *testing.T) {
	p := newTestPool(t, 256*1024, 16*1024)

	r1 := p.Reserve(1024)
	require.NotNil(t, r1)
	r2 := p.Reserve(1024)
	require.NotNil(t, r2)

	assert.Panics(t, func() { p.Release(r2) })
	assert.NotPanics(t, func() { p.Release(r1) })
}

func TestPoolReleaseInvalid(t *testing.T) {
	p := newTestPool(t, 256*1024, 16*1024)

	assert.NotPanics(t, func() { p.Release(nil) })
	assert.NotPanics(t, func() { p.Release([]byte{}) })

	r := p.Reserve(1024)
	require.NotNil(t, r)
	assert.NotPanics(t, func() { p.Release(r) })
	assert.Panics(t, func() { p.Release(r) })
}

func TestPoolAvailable(t *testing.T) {
	p := newTestPool(t, 256*1024, 16*1024)
	initial := p.Available()
	assert.Greater(t, initial, 0)

	r := p.Reserve(4096)
	require.NotNil(t, r)
	assert.Less(t, p.Available(), initial)

	p.Release(r)
	assert.Equal(t, initial, p.Available())
}

func TestPoolReset(t *testing.T) {
	p := newTestPool(t, 256*1024, 16*1024)
	initial := p.Available()

	for i := 0; i < 10; i++ {
		r := p.Reserve(1024)
		require.NotNil(t, r)
	}
	assert.Less(t, p.Available(), initial)

	p.Reset()
	assert.Equal(t, initial, p.Available())

	r := p.Reserve(1024)
	require.NotNil(t, r)
	p.Release(r)
}

// helpers

func newTestPool(t *testing.T, size, max int) *Pool {
	t.Helper()
	p, err := NewPool(make([]byte, size), max)
	require.NoError(t, err)
	return p
}

func recordsOverlap(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aStart := uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&a)))
	aEnd := aStart + uintptr(len(a))
	bStart := uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&b)))
	bEnd := bStart + uintptr(len(b))
	return !(aEnd <= bStart || bEnd <= aStart)
}

// benchmarks

func BenchmarkPoolReserve(b *testing.B) {
	p, _ := NewPool(make([]byte, 16*1024*1024), 64*1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := p.Reserve(4096)
		if r != nil {
			p.Release(r)
		}
	}
}

func BenchmarkPoolReserveWrapping(b *testing.B) {
	p, _ := NewPool(make([]byte, 256*1024), 64*1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := p.Reserve(32 * 1024)
		if r != nil {
			p.Release(r)
		}
	}
}

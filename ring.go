package parallelreader

import (
	"math/bits"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const (
	// MaxCapacity is the largest ring capacity accepted by NewRingBuffer.
	MaxCapacity = 1 << 30

	cacheLineSize = 64

	// rings up to this size run without tail padding
	smallRingCapacity = 1024
)

// Char is the element type a stream moves: bytes, UTF-16 code units or runes.
type Char interface {
	~byte | ~uint16 | ~rune
}

// RingBuffer is a bounded single-producer/single-consumer ring of characters.
//
// head and tail are free-running counters: tail is advanced by the producer
// only, head by the consumer only, and each side keeps a private copy of the
// other's counter which it refreshes only when its cached view says the ring
// is full (producer) or empty (consumer). Every counter group lives on its own
// cache line so that the two sides never write to a line the other one reads
// on its fast path.
type RingBuffer[T Char] struct {
	_         cpu.CacheLinePad
	tail      atomic.Uint64 // producer-owned
	headCache uint64        // producer's last observed head
	_         cpu.CacheLinePad
	head      atomic.Uint64 // consumer-owned
	tailCache uint64        // consumer's last observed tail
	_         cpu.CacheLinePad

	mask        uint64
	capacity    uint64
	tailPadding uint64
	buf         []T
	_           cpu.CacheLinePad
}

// NewRingBuffer allocates a ring holding at least capacity characters.
// The capacity is rounded up to the next power of two.
func NewRingBuffer[T Char](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, invalidf("ring capacity %d out of range [1, %d]", capacity, MaxCapacity)
	}

	size := roundUpPow2(capacity)
	return &RingBuffer[T]{
		mask:        size - 1,
		capacity:    size,
		tailPadding: tailPaddingFor[T](size),
		buf:         make([]T, size),
	}, nil
}

func roundUpPow2(n int) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(uint64(n-1))
}

// tailPaddingFor keeps one cache line of slack between the producer's write
// position and the consumer's read position on large rings.
func tailPaddingFor[T Char](capacity uint64) uint64 {
	if capacity <= smallRingCapacity {
		return 0
	}
	var zero T
	slots := uint64(cacheLineSize / unsafe.Sizeof(zero))
	if slots == 0 {
		slots = 1
	}
	return slots
}

// Cap returns the effective (power of two) capacity.
func (r *RingBuffer[T]) Cap() int {
	return int(r.capacity)
}

// TailPadding returns the number of slots the producer always leaves free.
func (r *RingBuffer[T]) TailPadding() int {
	return int(r.tailPadding)
}

// Len returns the number of buffered characters. It is a snapshot and may be
// stale by the time the caller looks at it.
func (r *RingBuffer[T]) Len() int {
	head := r.head.Load()
	return int(r.tail.Load() - head)
}

// TryReadOne pops a single character.
// Returns (zero, false) if the ring is empty.
// IMPORTANT: must be called from a single consumer goroutine.
func (r *RingBuffer[T]) TryReadOne() (T, bool) {
	head := r.head.Load()
	if head >= r.tailCache {
		r.tailCache = r.tail.Load()
		if head >= r.tailCache {
			var zero T
			return zero, false
		}
	}

	c := r.buf[head&r.mask]
	// publish the slot back to the producer
	r.head.Store(head + 1)
	return c, true
}

// TryRead copies up to len(p) characters out of the ring and returns how many
// were copied. It returns 0 only if p is empty or the ring is empty.
// IMPORTANT: must be called from a single consumer goroutine.
func (r *RingBuffer[T]) TryRead(p []T) int {
	if len(p) == 0 {
		return 0
	}

	head := r.head.Load()
	if head >= r.tailCache {
		r.tailCache = r.tail.Load()
		if head >= r.tailCache {
			return 0
		}
	}

	n := min(uint64(len(p)), r.tailCache-head)
	idx := head & r.mask
	// the used region may wrap around the end of buf
	first := min(n, r.capacity-idx)
	copy(p[:first], r.buf[idx:idx+first])
	copy(p[first:n], r.buf[:n-first])

	r.head.Store(head + n)
	return int(n)
}

// TryWrite copies up to len(p) characters into the ring and returns how many
// were accepted. It returns 0 if the ring is full.
// IMPORTANT: must be called from a single producer goroutine.
func (r *RingBuffer[T]) TryWrite(p []T) int {
	var written int
	// at most two spans: up to the end of buf, then from its start
	for i := 0; i < 2 && written < len(p); i++ {
		span := r.writable()
		if len(span) == 0 {
			break
		}
		n := copy(span, p[written:])
		r.publish(n)
		written += n
	}
	return written
}

// writable returns the free region starting at tail and ending at whichever
// comes first: the end of buf or the last slot the producer may fill.
// The returned slice is empty when the ring is full.
func (r *RingBuffer[T]) writable() []T {
	tail := r.tail.Load()
	limit := r.capacity - r.tailPadding

	if tail-r.headCache >= limit {
		r.headCache = r.head.Load()
		if tail-r.headCache >= limit {
			return nil
		}
	}

	free := limit - (tail - r.headCache)
	idx := tail & r.mask
	end := min(idx+free, r.capacity)
	return r.buf[idx:end]
}

// publish makes n characters written into the span returned by writable
// visible to the consumer.
func (r *RingBuffer[T]) publish(n int) {
	if n <= 0 {
		return
	}
	r.tail.Store(r.tail.Load() + uint64(n))
}

package parallelreader

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// taskQueue is the bounded multi-producer/multi-consumer queue behind Pool.
// Any goroutine may submit a task and any worker may take one.
//
// Original algorithm by Dmitry Vyukov
// https://www.1024cores.net/home/lock-free-algorithms/queues/bounded-mpmc-queue
type taskQueue struct {
	_        cpu.CacheLinePad
	mask     uint64
	capacity uint64
	slots    []taskSlot
	_        cpu.CacheLinePad
	enqueue  atomic.Uint64 // next position to submit to
	_        cpu.CacheLinePad
	dequeue  atomic.Uint64 // next position to take from
	_        cpu.CacheLinePad
}

type taskSlot struct {
	seq  atomic.Uint64 // slot generation: pos when free, pos+1 when filled
	task func()
}

// newTaskQueue creates a queue holding at least capacity tasks.
func newTaskQueue(capacity int) (*taskQueue, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, invalidf("task queue capacity %d out of range [1, %d]", capacity, MaxCapacity)
	}

	// a slot's "filled" and "free on the next lap" stamps coincide when there
	// is only one slot
	size := max(2, roundUpPow2(capacity))
	slots := make([]taskSlot, size)
	for i := range slots {
		slots[i].seq.Store(uint64(i))
	}

	return &taskQueue{
		mask:     size - 1,
		capacity: size,
		slots:    slots,
	}, nil
}

// push appends task. Returns false if the queue is full.
// Safe to call concurrently from many goroutines.
func (q *taskQueue) push(task func()) bool {
	var spins uint32
	for {
		pos := q.enqueue.Load()
		s := &q.slots[pos&q.mask]
		diff := int64(s.seq.Load()) - int64(pos)

		switch {
		case diff == 0:
			if q.enqueue.CompareAndSwap(pos, pos+1) {
				s.task = task
				// publish: seq = pos+1
				s.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			// a worker has not released this slot from the previous lap yet
			return false
		}

		// lost the race or the slot is still from a previous lap, retry
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// pop removes the oldest task. Returns (nil, false) if the queue is empty.
// Safe to call concurrently from many goroutines.
func (q *taskQueue) pop() (func(), bool) {
	var spins uint32
	for {
		pos := q.dequeue.Load()
		s := &q.slots[pos&q.mask]
		diff := int64(s.seq.Load()) - int64(pos+1)

		switch {
		case diff == 0:
			if q.dequeue.CompareAndSwap(pos, pos+1) {
				task := s.task
				s.task = nil
				// hand the slot to the next lap: pos+capacity
				s.seq.Store(pos + q.capacity)
				return task, true
			}
		case diff < 0:
			return nil, false
		}

		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

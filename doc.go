// Package parallelreader prefetches a slow sequential source on a background
// goroutine so that reads are served from memory.
//
// The producer goroutine pulls from the source into a small staging buffer
// and copies it into a lock-free single-producer/single-consumer ring; the
// consumer reads from the ring through an io.Reader-like surface:
//
//	r, err := parallelreader.New(file, parallelreader.WithCapacity(1<<20))
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	_, err = io.Copy(dst, r)
//
// Neither side takes a lock. While the ring is empty (consumer) or full
// (producer) the waiting side calls its WaitStrategy. A failure of the source
// is captured by the producer and returned to the consumer once everything
// read before it has been consumed.
package parallelreader

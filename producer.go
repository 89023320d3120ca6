package parallelreader

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
)

// producer is the background half of a stream. It owns the source and the
// staging buffer; the ring is the only state it shares with the consumer.
type producer[T Char] struct {
	ring   *RingBuffer[T]
	src    Source[T]
	wait   WaitStrategy
	logger *zap.Logger

	staging []T
	off     int   // next staged element to copy into the ring
	size    int   // staged elements
	pending error // returned by the source together with the staged data

	running atomic.Bool
	failure atomic.Pointer[SourceError]
	done    chan struct{}

	reads atomic.Uint64
	waits atomic.Uint64
}

func newProducer[T Char](ring *RingBuffer[T], src Source[T], stagingSize int, wait WaitStrategy, logger *zap.Logger) *producer[T] {
	p := &producer[T]{
		ring:    ring,
		src:     src,
		wait:    wait,
		logger:  logger,
		staging: make([]T, stagingSize),
		done:    make(chan struct{}),
	}
	p.running.Store(true)
	return p
}

// run is the refill loop handed to the Executor.
func (p *producer[T]) run() {
	defer close(p.done)
	defer func() {
		if r := recover(); r != nil {
			p.finish(fmt.Errorf("source panicked: %v", r))
		}
	}()

	p.logger.Debug("producer started",
		zap.Int("capacity", p.ring.Cap()),
		zap.Int("staging", len(p.staging)))

	var spins int
	for p.running.Load() {
		span := p.ring.writable()
		if len(span) == 0 {
			p.waits.Add(1)
			spins = p.wait.Idle(spins)
			continue
		}

		if p.off >= p.size {
			p.refill()
			if p.off >= p.size {
				if p.running.Load() {
					// source returned (0, nil)
					spins = p.wait.Idle(spins)
				}
				continue
			}
		}

		n := copy(span, p.staging[p.off:p.size])
		p.off += n
		p.ring.publish(n)
		spins = 0
	}

	p.logger.Debug("producer finished",
		zap.Uint64("produced", p.ring.tail.Load()),
		zap.Uint64("source_reads", p.reads.Load()))
}

// refill issues one blocking read into the staging buffer, or ends the loop if
// the previous read already reported the end of the source.
func (p *producer[T]) refill() {
	if p.pending != nil {
		p.finish(p.pending)
		return
	}

	n, err := p.src.Read(p.staging)
	p.reads.Add(1)
	p.off, p.size = 0, max(0, min(n, len(p.staging)))

	if err != nil {
		if p.size > 0 {
			p.pending = err
			return
		}
		p.finish(err)
	}
}

// finish stops the loop. io.EOF ends the stream normally, anything else is
// stored as the stream's failure before running is cleared, so a consumer
// that sees running == false also sees the failure.
func (p *producer[T]) finish(err error) {
	switch {
	case errors.Is(err, io.EOF):
	case !p.running.Load():
		// the owner closed the source under a blocked read
		p.logger.Debug("source read aborted by close", zap.Error(err))
	default:
		p.failure.Store(&SourceError{Err: err})
		p.logger.Warn("source read failed",
			zap.Error(err),
			zap.Uint64("produced", p.ring.tail.Load()))
	}
	p.running.Store(false)
}

// stop asks the loop to exit after its current step. It does not interrupt a
// blocked source read.
func (p *producer[T]) stop() {
	p.running.Store(false)
}

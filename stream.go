package parallelreader

import (
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
)

// Stream reads characters that a background producer prefetches from a
// Source into a RingBuffer.
//
// A Stream has exactly one consumer: Read and ReadOne must not be called
// concurrently. Close may be called from any goroutine.
type Stream[T Char] struct {
	ring     *RingBuffer[T]
	producer *producer[T]
	wait     WaitStrategy
	logger   *zap.Logger

	closed atomic.Bool
	waits  atomic.Uint64
}

// NewStream starts prefetching from src and returns the consuming end.
// The Stream owns src from then on and closes it in Close. If NewStream fails
// src is left open.
func NewStream[T Char](src Source[T], opts ...Option) (*Stream[T], error) {
	if src == nil {
		return nil, invalidf("nil source")
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	ring, err := NewRingBuffer[T](cfg.capacity)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger.With(zap.String("component", "parallelreader"))
	s := &Stream[T]{
		ring:     ring,
		producer: newProducer(ring, src, cfg.stagingSize, cfg.wait, logger),
		wait:     cfg.wait,
		logger:   logger,
	}
	if err := cfg.executor.Execute(s.producer.run); err != nil {
		return nil, fmt.Errorf("parallelreader: start producer: %w", err)
	}
	return s, nil
}

// ReadOne returns the next character. It waits while the producer is behind
// and returns io.EOF once the source is exhausted and everything has been
// read.
func (s *Stream[T]) ReadOne() (T, error) {
	if s.closed.Load() {
		var zero T
		return zero, ErrClosed
	}

	var spins int
	for {
		if c, ok := s.ring.TryReadOne(); ok {
			return c, nil
		}
		var err error
		if spins, err = s.awaitData(spins); err != nil {
			var zero T
			return zero, err
		}
	}
}

// Read copies up to len(p) buffered characters into p. It waits only while
// nothing at all is buffered, so it may return fewer than len(p) characters
// even if the source has more.
//
// At the end of the source Read returns (0, io.EOF). If the source failed, Read
// returns a *SourceError once the characters produced before the failure
// have been read, and on every call after that.
func (s *Stream[T]) Read(p []T) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	var spins int
	for {
		if n := s.ring.TryRead(p); n > 0 {
			return n, nil
		}
		var err error
		if spins, err = s.awaitData(spins); err != nil {
			return 0, err
		}
	}
}

// awaitData is called each time the ring looked empty. It returns a terminal
// error if the stream can make no further progress, and otherwise idles.
func (s *Stream[T]) awaitData(spins int) (int, error) {
	if s.closed.Load() {
		return spins, ErrClosed
	}
	if !s.producer.running.Load() {
		// tail may have moved between the ring's refresh and the producer
		// stopping; look once more before reporting the end
		if s.ring.Len() > 0 {
			return spins, nil
		}
		if f := s.producer.failure.Load(); f != nil {
			return spins, f
		}
		// stopped by a concurrent Close rather than by the source
		if s.closed.Load() {
			return spins, ErrClosed
		}
		return spins, io.EOF
	}

	s.waits.Add(1)
	return s.wait.Idle(spins), nil
}

// Close stops the producer and closes the source, which is expected to
// unblock a pending source read. It returns the source's Close error. Calling
// Close again is a no-op; reads after Close return ErrClosed.
func (s *Stream[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.producer.stop()
	err := s.producer.src.Close()
	if err != nil {
		s.logger.Warn("source close failed", zap.Error(err))
	}
	s.logger.Debug("stream closed",
		zap.Uint64("consumed", s.ring.head.Load()),
		zap.Uint64("produced", s.ring.tail.Load()))
	return err
}

// Done is closed once the background producer has returned.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.producer.done
}

// Cap returns the effective ring capacity.
func (s *Stream[T]) Cap() int {
	return s.ring.Cap()
}

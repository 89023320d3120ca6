package parallelreader

// Stats is a point-in-time snapshot of a stream's counters.
type Stats struct {
	Capacity      int
	Produced      uint64 // characters published by the producer (tail)
	Consumed      uint64 // characters handed to the consumer (head)
	SourceReads   uint64
	ProducerWaits uint64 // idle calls on a full ring
	ConsumerWaits uint64 // idle calls on an empty ring
	Running       bool
	Failed        bool
}

// Buffered returns the number of characters produced but not yet consumed.
func (s Stats) Buffered() uint64 {
	return s.Produced - s.Consumed
}

// Stats retrieves the current counters of the stream.
func (s *Stream[T]) Stats() Stats {
	consumed := s.ring.head.Load()
	return Stats{
		Capacity:      s.ring.Cap(),
		Produced:      s.ring.tail.Load(),
		Consumed:      consumed,
		SourceReads:   s.producer.reads.Load(),
		ProducerWaits: s.producer.waits.Load(),
		ConsumerWaits: s.waits.Load(),
		Running:       s.producer.running.Load(),
		Failed:        s.producer.failure.Load() != nil,
	}
}

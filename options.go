package parallelreader

import "go.uber.org/zap"

const (
	DefaultCapacity    = 64 * 1024
	DefaultStagingSize = 8192
)

type config struct {
	capacity    int
	stagingSize int
	wait        WaitStrategy
	executor    Executor
	logger      *zap.Logger
}

// Option configures a stream at construction time.
type Option func(*config)

// WithCapacity sets the ring capacity, rounded up to a power of two.
// A larger ring tolerates longer latency spikes of the source.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		c.capacity = capacity
	}
}

// WithStagingSize sets how many characters the producer requests from the
// source per read call.
func WithStagingSize(size int) Option {
	return func(c *config) {
		c.stagingSize = size
	}
}

// WithWaitStrategy sets how both sides idle while the ring is empty or full.
func WithWaitStrategy(w WaitStrategy) Option {
	return func(c *config) {
		c.wait = w
	}
}

// WithExecutor sets where the background producer runs.
func WithExecutor(e Executor) Option {
	return func(c *config) {
		c.executor = e
	}
}

// WithLogger sets the logger used for producer lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func newConfig(opts []Option) (*config, error) {
	c := &config{
		capacity:    DefaultCapacity,
		stagingSize: DefaultStagingSize,
		wait:        DefaultWaitStrategy,
		executor:    GoExecutor,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.stagingSize <= 0:
		return nil, invalidf("staging size must be positive, got %d", c.stagingSize)
	case c.wait == nil:
		return nil, invalidf("nil wait strategy")
	case c.executor == nil:
		return nil, invalidf("nil executor")
	case c.logger == nil:
		return nil, invalidf("nil logger")
	}
	// capacity is validated by NewRingBuffer
	return c, nil
}

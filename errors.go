package parallelreader

import "fmt"

var (
	// ErrInvalidConfiguration is wrapped by every construction error caused by
	// a bad argument or option.
	ErrInvalidConfiguration = fmt.Errorf("parallelreader: invalid configuration")
	// ErrClosed is returned by reads on a closed stream.
	ErrClosed = fmt.Errorf("parallelreader: read on closed stream")
	// ErrQueueIsFull is returned by Pool.Execute when no queue slot is free.
	ErrQueueIsFull = fmt.Errorf("parallelreader: queue is full")
	// ErrPoolClosed is returned by Pool.Execute after Shutdown.
	ErrPoolClosed = fmt.Errorf("parallelreader: pool is closed")
	// ErrExecutorSaturated is returned by a GroupExecutor whose group limit is
	// reached.
	ErrExecutorSaturated = fmt.Errorf("parallelreader: executor refused task: limit reached")
)

// SourceError is the terminal failure captured from the underlying source.
// It is returned by every read once the data produced before the failure has
// been consumed.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return "parallelreader: source read failed: " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...)
}

package parallelreader

import "golang.org/x/sync/errgroup"

// Executor runs the background refill task of a stream on its own goroutine.
// Execute must not run task on the calling goroutine: the task only returns
// once the stream has ended or been closed.
type Executor interface {
	Execute(task func()) error
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(task func()) error

// Execute calls f(task).
func (f ExecutorFunc) Execute(task func()) error {
	return f(task)
}

// GoExecutor starts a new goroutine per task. It is the default executor.
var GoExecutor Executor = ExecutorFunc(func(task func()) error {
	go task()
	return nil
})

// GroupExecutor runs tasks in g, so that an application can g.Wait() for every
// producer it started. If g has a limit set (errgroup.Group.SetLimit) and the
// limit is reached, Execute returns ErrExecutorSaturated instead of blocking.
func GroupExecutor(g *errgroup.Group) Executor {
	return ExecutorFunc(func(task func()) error {
		if !g.TryGo(func() error {
			task()
			return nil
		}) {
			return ErrExecutorSaturated
		}
		return nil
	})
}

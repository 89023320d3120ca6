package parallelreader

import (
	"context"
	"runtime"
	"sync"
)

// Pool is an Executor with a fixed number of worker goroutines fed from a
// bounded lock-free queue. Every producer task occupies a worker until its
// stream ends or is closed, so a Pool with W workers runs at most W streams
// at a time; further streams wait in the queue.
type Pool struct {
	queue  *taskQueue
	signal chan struct{} // one token per queued task
	done   chan struct{}
	wg     sync.WaitGroup

	// held shared by Execute, exclusively by Shutdown: once Shutdown owns it
	// every accepted task has its token in signal
	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines serving a queue of queueCapacity tasks.
// workers <= 0 selects runtime.GOMAXPROCS(0).
func NewPool(workers, queueCapacity int) (*Pool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queue, err := newTaskQueue(queueCapacity)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		queue:  queue,
		signal: make(chan struct{}, queue.capacity),
		done:   make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p, nil
}

// Execute queues task for the next free worker. Every task Execute accepts
// runs, even if Shutdown is called before a worker gets to it.
// Returns ErrQueueIsFull if the queue is at capacity and ErrPoolClosed after
// Shutdown.
func (p *Pool) Execute(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	if !p.queue.push(task) {
		return ErrQueueIsFull
	}
	// never blocks: tokens outstanding <= tasks queued <= cap(signal)
	p.signal <- struct{}{}
	return nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.signal:
			p.take()()
		case <-p.done:
			// run what was accepted before Shutdown
			for {
				select {
				case <-p.signal:
					p.take()()
				default:
					return
				}
			}
		}
	}
}

// take pops the task a signal token stands for. The token is sent only after
// a push succeeded, but another pusher may have claimed an earlier slot and
// not yet published it, so pop can briefly report an empty queue.
func (p *Pool) take() func() {
	var spins int
	for {
		if task, ok := p.queue.pop(); ok {
			return task
		}
		spins = Yield{}.Idle(spins)
	}
}

// Shutdown stops accepting tasks and waits until every worker has returned or
// ctx is done. Queued tasks still run; running tasks are not interrupted,
// close their streams to end them. Shutdown may be called again, e.g. after a
// ctx timeout, to keep waiting.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package parallelreader

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestGroupExecutor(t *testing.T) {
	var g errgroup.Group
	g.SetLimit(1)
	exec := GroupExecutor(&g)

	src := newBlockingSource()
	first, err := New(src, WithExecutor(exec), WithWaitStrategy(Yield{}))
	require.NoError(t, err)
	<-src.entered

	// the only slot is taken by the first producer
	_, err = New(newBlockingSource(), WithExecutor(exec))
	assert.ErrorIs(t, err, ErrExecutorSaturated)

	require.NoError(t, first.Close())
	require.NoError(t, g.Wait())

	second, err := NewStream[byte](newScriptedSource([]byte("ok"), 0, nil), WithExecutor(exec))
	require.NoError(t, err)
	got, err := readAll(t, second, 4)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "ok", string(got))
	require.NoError(t, g.Wait())
}

func TestPoolRunsStreams(t *testing.T) {
	pool, err := NewPool(2, 8)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		payload := randomPayload(5000)
		s, err := NewStream[byte](newScriptedSource(payload, 100, nil),
			WithExecutor(pool), WithCapacity(256), WithWaitStrategy(Yield{}))
		require.NoError(t, err)

		got, err := readAll(t, s, 64)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, payload, got)
		<-s.Done()
		require.NoError(t, s.Close())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
}

func TestPoolQueueFull(t *testing.T) {
	pool, err := NewPool(1, 2)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, pool.Execute(func() {
		close(started)
		<-release
	}))
	<-started

	ran := make(chan struct{}, 2)
	require.NoError(t, pool.Execute(func() { ran <- struct{}{} }))
	require.NoError(t, pool.Execute(func() { ran <- struct{}{} }))
	assert.ErrorIs(t, pool.Execute(func() {}), ErrQueueIsFull)

	close(release)
	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatal("queued task never ran")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	require.NoError(t, pool.Shutdown(ctx))
	assert.ErrorIs(t, pool.Execute(func() {}), ErrPoolClosed)
}

func TestPoolShutdownTimeout(t *testing.T) {
	pool, err := NewPool(1, 4)
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	require.NoError(t, pool.Execute(func() {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
}

// Every task accepted by concurrent Execute calls runs exactly once, even when
// pushers publish their slots out of order.
func TestPoolConcurrentExecute(t *testing.T) {
	const (
		submitters = 8
		perSubmit  = 100
		rounds     = 20
	)

	pool, err := NewPool(4, 1024)
	require.NoError(t, err)

	for round := 0; round < rounds; round++ {
		var ran atomic.Int64
		var tasks sync.WaitGroup
		tasks.Add(submitters * perSubmit)

		var submit sync.WaitGroup
		submit.Add(submitters)
		for i := 0; i < submitters; i++ {
			go func() {
				defer submit.Done()
				for j := 0; j < perSubmit; j++ {
					task := func() {
						ran.Add(1)
						tasks.Done()
					}
					for {
						err := pool.Execute(task)
						if err == nil {
							break
						}
						if !errors.Is(err, ErrQueueIsFull) {
							t.Errorf("execute: %v", err)
							return
						}
						runtime.Gosched()
					}
				}
			}()
		}
		submit.Wait()

		finished := make(chan struct{})
		go func() {
			tasks.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Fatalf("round %d: %d of %d accepted tasks ran", round, ran.Load(), submitters*perSubmit)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
}

// A stream whose producer is still queued when the pool shuts down gets its
// producer run, so its reads end instead of waiting forever.
func TestPoolShutdownRunsQueuedStreams(t *testing.T) {
	pool, err := NewPool(1, 4)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, pool.Execute(func() {
		close(started)
		<-release
	}))
	<-started

	s, err := NewStream[byte](newScriptedSource([]byte("queued"), 0, nil),
		WithExecutor(pool), WithWaitStrategy(Yield{}))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
	assert.ErrorIs(t, pool.Execute(func() {}), ErrPoolClosed)

	close(release)
	got, err := readAll(t, s, 4)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "queued", string(got))

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
}

// Execute racing with Shutdown either rejects the task or runs it.
func TestPoolExecuteDuringShutdown(t *testing.T) {
	const submitters = 8

	pool, err := NewPool(2, 64)
	require.NoError(t, err)

	var accepted, ran atomic.Int64
	var submit sync.WaitGroup
	submit.Add(submitters)
	for i := 0; i < submitters; i++ {
		go func() {
			defer submit.Done()
			for {
				err := pool.Execute(func() { ran.Add(1) })
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, ErrPoolClosed):
					return
				default:
					runtime.Gosched()
				}
			}
		}()
	}

	time.Sleep(time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	submit.Wait()

	assert.Equal(t, accepted.Load(), ran.Load())
}

func TestNewPoolInvalid(t *testing.T) {
	_, err := NewPool(1, 0)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 3)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})

	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	assert.True(t, errors.Is(q.Enqueue(Job{ID: "x"}), ErrQueueStopped))

	q.Start(context.Background())
	q.Stop()
	assert.True(t, errors.Is(q.TryEnqueue(Job{ID: "y"}), ErrQueueStopped))
}

func TestQueueTryEnqueueReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	q := NewQueue("full", func(ctx context.Context, job Job) error {
		once.Do(func() { close(started) })
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.TryEnqueue(Job{ID: "1"}))
	<-started
	require.NoError(t, q.TryEnqueue(Job{ID: "2"}))
	assert.True(t, errors.Is(q.TryEnqueue(Job{ID: "3"}), ErrQueueFull))

	close(block)
	q.Stop()
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var processed int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	q := NewQueue("drain", func(ctx context.Context, job Job) error {
		if job.ID == "first" {
			once.Do(func() { close(started) })
			<-release
		}
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "first"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "second"}))
	require.NoError(t, q.Enqueue(Job{ID: "third"}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	q.Stop()
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}

func TestQueueStopLetsInFlightJobFinishOnLiveContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var handlerErr error
	var calls int32

	q := NewQueue("inflight", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		handlerErr = ctx.Err()
		return handlerErr
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Minute})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "audit-1"}))
	<-started
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	q.Stop()

	assert.NoError(t, handlerErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueStopRunsPendingRetries(t *testing.T) {
	failed := make(chan struct{})
	var attempts int32

	q := NewQueue("pending-retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			defer close(failed)
			return errors.New("audit table locked")
		}
		return ctx.Err()
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Minute})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "audit-2"}))
	<-failed
	q.Stop()

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

package jobrunner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/printmaker/internal/observability/statsd"
	"github.com/target/printmaker/internal/testutil"
)

func TestPool_RunsAllTasks(t *testing.T) {
	p := NewPool(PoolOptions{MinWorkers: 2, MaxWorkers: 4, QueueCapacity: 8})
	var done atomic.Int32
	for i := range 50 {
		require.NoError(t, p.Submit(context.Background(), fmt.Sprintf("job%d", i), func(context.Context) {
			done.Add(1)
		}))
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.EqualValues(t, 50, done.Load())
	assert.Zero(t, p.Stats().Tracked)
}

func TestPool_GrowsWhenQueueIsFullAndBlocksAtMax(t *testing.T) {
	p := NewPool(PoolOptions{MinWorkers: 1, MaxWorkers: 3, QueueCapacity: 1})
	release := make(chan struct{})
	block := func(context.Context) { <-release }

	// 3 running + 1 queued saturate the pool.
	for i := range 4 {
		require.NoError(t, p.Submit(context.Background(), fmt.Sprintf("b%d", i), block))
	}
	require.True(t, testutil.Eventually(func() bool { return p.Stats().Active == 3 }, time.Second))
	assert.Equal(t, 3, p.Stats().Workers)
	assert.Equal(t, 1, p.Stats().Queued)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, "overflow", block)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, p.Cancel("overflow"), "rejected task is not tracked")

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_IdleWorkersRetireToMinimum(t *testing.T) {
	p := NewPool(PoolOptions{MinWorkers: 1, MaxWorkers: 4, QueueCapacity: 1, IdleTimeout: 20 * time.Millisecond})
	release := make(chan struct{})
	for i := range 5 {
		require.NoError(t, p.Submit(context.Background(), fmt.Sprintf("b%d", i), func(context.Context) { <-release }))
	}
	assert.Equal(t, 4, p.Stats().Workers)
	close(release)

	assert.True(t, testutil.Eventually(func() bool { return p.Stats().Workers == 1 }, 2*time.Second))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_CancelRunningTask(t *testing.T) {
	p := NewPool(PoolOptions{MinWorkers: 1, MaxWorkers: 1})
	started := make(chan struct{})
	result := make(chan error, 1)
	require.NoError(t, p.Submit(context.Background(), "job1", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		result <- ctx.Err()
	}))
	<-started

	assert.True(t, p.Cancel("job1"))
	assert.ErrorIs(t, <-result, context.Canceled)
	assert.True(t, testutil.Eventually(func() bool { return !p.Cancel("job1") }, time.Second))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_DuplicateID(t *testing.T) {
	p := NewPool(PoolOptions{MinWorkers: 1, MaxWorkers: 1})
	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), "job1", func(context.Context) { <-release }))
	err := p.Submit(context.Background(), "job1", func(context.Context) {})
	assert.ErrorIs(t, err, ErrDuplicateTask)
	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := NewPool(PoolOptions{MinWorkers: 1})
	require.NoError(t, p.Shutdown(context.Background()))
	err := p.Submit(context.Background(), "late", func(context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_ShutdownDeadlineCancelsTasks(t *testing.T) {
	p := NewPool(PoolOptions{MinWorkers: 1, MaxWorkers: 1, QueueCapacity: 4})
	var mu sync.Mutex
	var outcomes []error
	task := func(ctx context.Context) {
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
		mu.Lock()
		outcomes = append(outcomes, ctx.Err())
		mu.Unlock()
	}
	for i := range 3 {
		require.NoError(t, p.Submit(context.Background(), fmt.Sprintf("slow%d", i), task))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, outcomes, 3, "queued tasks still run, with a cancelled context")
	for _, e := range outcomes {
		assert.ErrorIs(t, e, context.Canceled)
	}
}

func TestPool_RecoversFromPanics(t *testing.T) {
	p := NewPool(PoolOptions{MinWorkers: 1, MaxWorkers: 1})
	require.NoError(t, p.Submit(context.Background(), "bad", func(context.Context) { panic("boom") }))
	ran := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), "good", func(context.Context) { close(ran) }))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_EmitsGauges(t *testing.T) {
	var rec statsd.Recorder
	p := NewPool(PoolOptions{MinWorkers: 1, Metrics: &rec})
	require.NoError(t, p.Submit(context.Background(), "job", func(context.Context) {}))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.NotEmpty(t, rec.Samples())
}

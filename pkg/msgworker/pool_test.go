package msgworker

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

func startPool(t *testing.T, workers, queue int) *Pool {
	t.Helper()
	pool := NewPool(workers, queue)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		pool.Stop()
		cancel()
	})
	return pool
}

func TestPool_TryDispatchDoesNotBlock(t *testing.T) {
	pool := startPool(t, 2, 10)

	start := time.Now()
	ok := pool.TryDispatch(Job{
		Key: "123@s.whatsapp.net",
		Handler: func(ctx context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	})

	assert.True(t, ok)
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestPool_SameKeyRunsInOrder(t *testing.T) {
	pool := startPool(t, 4, 100)

	var (
		mu      sync.Mutex
		results []int
		wg      sync.WaitGroup
	)
	for i := 1; i <= 5; i++ {
		val := i
		wg.Add(1)
		require.True(t, pool.TryDispatch(Job{
			Key: "group@g.us",
			Handler: func(ctx context.Context) error {
				defer wg.Done()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				results = append(results, val)
				mu.Unlock()
				return nil
			},
		}))
	}
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, results)
}

func TestPool_RunWaitsForHandler(t *testing.T) {
	pool := startPool(t, 2, 10)

	var ran int32
	err := pool.Run(context.Background(), Job{
		Key: "51999@s.whatsapp.net",
		Handler: func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			atomic.StoreInt32(&ran, 1)
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestPool_RunReturnsHandlerErrorAndRecoversPanics(t *testing.T) {
	pool := startPool(t, 1, 10)
	boom := errors.New("boom")

	err := pool.Run(context.Background(), Job{Key: "a", Handler: func(ctx context.Context) error { return boom }})
	assert.ErrorIs(t, err, boom)

	err = pool.Run(context.Background(), Job{Key: "a", Handler: func(ctx context.Context) error { panic("bad") }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	stats := pool.Stats()
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Equal(t, int64(2), stats.TotalProcessed)
}

func TestPool_QueueFull(t *testing.T) {
	pool := startPool(t, 1, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.TryDispatch(Job{Key: "k", Handler: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	require.True(t, pool.TryDispatch(Job{Key: "k", Handler: func(ctx context.Context) error { return nil }}))

	err := pool.Run(context.Background(), Job{Key: "k", Handler: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)

	assert.Equal(t, int64(1), pool.Stats().TotalDropped)
}

func TestPool_RejectsAfterStop(t *testing.T) {
	pool := NewPool(1, 1)
	pool.Start(context.Background())
	pool.Stop()

	err := pool.Run(context.Background(), Job{Key: "k", Handler: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrPoolStopped)
	assert.False(t, pool.TryDispatch(Job{Key: "k", Handler: func(ctx context.Context) error { return nil }}))
}

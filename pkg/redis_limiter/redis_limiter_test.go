package redis_limiter

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live server at CONTENTGEN_TEST_REDIS_ADDR.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("CONTENTGEN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CONTENTGEN_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLimiter_BoundsConcurrency(t *testing.T) {
	client := testClient(t)
	logger := logrus.New()
	prefix := "test_limit:" + uuid.NewString() + ":"
	rl := NewRedisLimiter(client, prefix, time.Minute, 50*time.Millisecond, logger)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx, "m", 2))
	require.NoError(t, rl.Acquire(ctx, "m", 2))
	assert.ErrorIs(t, rl.Acquire(ctx, "m", 2), ErrLimitReached)

	rl.Release(ctx, "m")
	n, err := rl.Current(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, rl.Acquire(ctx, "m", 2))
	rl.Release(ctx, "m")
	rl.Release(ctx, "m")

	n, err = rl.Current(ctx, "m")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTaskLock_SingleOwner(t *testing.T) {
	client := testClient(t)
	lock := NewTaskLock(client, "test_claim:"+uuid.NewString()+":", time.Minute, logrus.New())
	ctx := context.Background()

	var (
		mu      sync.Mutex
		winners int
		unlocks []func()
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, ok, err := lock.TryLock(ctx, "task-1")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				unlocks = append(unlocks, unlock)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, winners)

	unlocks[0]()
	unlock, ok, err := lock.TryLock(ctx, "task-1")
	require.NoError(t, err)
	assert.True(t, ok)
	unlock()
}

func TestTaskLock_RenewsWhileHeld(t *testing.T) {
	client := testClient(t)
	lock := NewTaskLock(client, "test_claim:"+uuid.NewString()+":", 300*time.Millisecond, logrus.New())
	ctx := context.Background()

	unlock, ok, err := lock.TryLock(ctx, "task-1")
	require.NoError(t, err)
	require.True(t, ok)

	// well past the ttl; the claim must still be ours
	time.Sleep(time.Second)
	_, ok, err = lock.TryLock(ctx, "task-1")
	require.NoError(t, err)
	assert.False(t, ok)

	unlock()
	unlock()
	again, ok, err := lock.TryLock(ctx, "task-1")
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}

func TestKeepAlive_RenewsUntilStopped(t *testing.T) {
	var (
		mu      sync.Mutex
		renewed int
	)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(5*time.Millisecond, stop, func() (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			renewed++
			return true, nil
		}, func(err error) { t.Errorf("unexpected report: %v", err) })
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return renewed >= 3
	}, time.Second, time.Millisecond)
	close(stop)
	<-done
}

func TestKeepAlive_StopsWhenClaimLost(t *testing.T) {
	var calls, reports int
	keepAlive(time.Millisecond, make(chan struct{}), func() (bool, error) {
		calls++
		if calls == 1 {
			return false, errors.New("connection reset")
		}
		return false, nil
	}, func(err error) {
		reports++
		if reports == 2 {
			assert.NoError(t, err, "a lost claim reports nil")
		}
	})

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, reports)
}

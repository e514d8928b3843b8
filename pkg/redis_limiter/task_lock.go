package redis_limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// unlockScript deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0`)

// renewScript extends the key's TTL only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0`)

// TaskLock grants single-owner claims on tasks with SET NX PX.
type TaskLock struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    logrus.FieldLogger
}

// NewTaskLock creates a TaskLock. A held claim is renewed every ttl/3, so ttl
// only bounds how long a crashed holder blocks the task.
func NewTaskLock(client *redis.Client, keyPrefix string, ttl time.Duration, logger logrus.FieldLogger) *TaskLock {
	return &TaskLock{client: client, keyPrefix: keyPrefix, ttl: ttl, logger: logger}
}

// TryLock claims taskID. ok is false when someone else holds it.
func (l *TaskLock) TryLock(ctx context.Context, taskID string) (unlock func(), ok bool, err error) {
	key := l.keyPrefix + taskID
	token := uuid.NewString()

	ok, err = l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim task %s: %w", taskID, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		keepAlive(l.ttl/3, stop, func() (bool, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n, err := renewScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			return n == 1, err
		}, func(err error) {
			entry := l.logger.WithField("task_id", taskID)
			if err != nil {
				entry.WithError(err).Warn("task claim renewal failed")
				return
			}
			entry.Error("task claim lost before release")
		})
	}()

	var once sync.Once
	unlock = func() {
		once.Do(func() {
			close(stop)
			<-stopped
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.WithError(err).WithField("task_id", taskID).Warn("task claim release failed")
			}
		})
	}
	return unlock, true, nil
}

// keepAlive calls renew every interval until stop closes or renew reports the
// claim gone. Errors are reported and retried on the next tick.
func keepAlive(interval time.Duration, stop <-chan struct{}, renew func() (bool, error), report func(error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := renew()
			if err != nil {
				report(err)
				continue
			}
			if !held {
				report(nil)
				return
			}
		}
	}
}

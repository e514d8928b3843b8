package service

import (
	"context"
	"sync"
)

// TaskLocker grants single-owner claims on tasks. unlock must be called
// exactly once when ok is true.
type TaskLocker interface {
	TryLock(ctx context.Context, taskID string) (unlock func(), ok bool, err error)
}

// LocalLocker is an in-process TaskLocker for single-instance deployments.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates a LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// TryLock claims taskID without blocking.
func (l *LocalLocker) TryLock(_ context.Context, taskID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[taskID]; busy {
		return nil, false, nil
	}
	l.held[taskID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, taskID)
			l.mu.Unlock()
		})
	}, true, nil
}

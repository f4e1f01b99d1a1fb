package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
)

// ErrRunInProgress is returned when another deduplication run of the same entity holds the lock.
var ErrRunInProgress = errors.New("a deduplication run for this entity is already in progress")

// RunLock is a held run lock.
type RunLock interface {
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// Locker serializes deduplication runs across processes.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (RunLock, error)
}

// RedisLocker obtains run locks through redislock.
type RedisLocker struct {
	Client *redislock.Client
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{Client: client}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (RunLock, error) {
	if l == nil || l.Client == nil {
		return nil, errors.New("redis lock client not initialized")
	}
	lock, err := l.Client.Obtain(ctx, key, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrRunInProgress
	} else if err != nil {
		return nil, err
	}
	return &redisRunLock{lock: lock}, nil
}

type redisRunLock struct {
	lock *redislock.Lock
}

func (l *redisRunLock) Refresh(ctx context.Context, ttl time.Duration) error {
	return l.lock.Refresh(ctx, ttl, nil)
}

func (l *redisRunLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if err == redislock.ErrLockNotHeld {
		return nil
	}
	return err
}

func dedupLockKey(entityType string) string {
	return "dedup:" + entityType
}

// keepLockAlive refreshes lock every ttl/2 until stop is closed. It returns a channel closed once it exits.
func keepLockAlive(ctx context.Context, lock RunLock, ttl time.Duration, stop <-chan struct{}, onError func(error)) <-chan struct{} {
	done := make(chan struct{})
	interval := ttl / 2
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.Refresh(ctx, ttl); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
	return done
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/datavend-backend/pkg/instance"
)

const defaultLockTTL = 15 * time.Minute

// ErrLockLost means the lock expired before the run finished and may now
// belong to another worker.
var ErrLockLost = errors.New("job lock expired before release")

// Lock guards one job across cron workers.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Locker hands out the lock guarding a named job.
type Locker interface {
	For(job string) (Lock, error)
}

// LockStore is the slice of the Redis client job locks run on.
type LockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	LockKey(name string) string
}

type RedisLocker struct {
	store LockStore
	ttl   time.Duration
}

func NewRedisLocker(store LockStore, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("lock store is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{store: store, ttl: ttl}, nil
}

func (l *RedisLocker) For(job string) (Lock, error) {
	if job == "" {
		return nil, errors.New("job name is required")
	}
	return &redisLock{store: l.store, key: l.store.LockKey(job), ttl: l.ttl}, nil
}

// redisLock is held while its key stores the owner token. Release only
// deletes the key when the token still matches.
type redisLock struct {
	store LockStore
	key   string
	ttl   time.Duration
	owner string
}

func (l *redisLock) Acquire(ctx context.Context) (bool, error) {
	token := instance.GetID() + ":" + uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.owner = token
	}
	return ok, nil
}

func (l *redisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	token := l.owner
	l.owner = ""
	deleted, err := l.store.DelIfValue(ctx, l.key, token)
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if !deleted {
		return ErrLockLost
	}
	return nil
}

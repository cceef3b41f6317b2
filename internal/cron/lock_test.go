package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
}

func newMemoryLockStore() *memoryLockStore { return &memoryLockStore{values: map[string]string{}} }

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if current, ok := m.values[key]; !ok || current != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memoryLockStore) LockKey(name string) string { return "datavend:lock:cron:" + name }

func TestRedisLockerIsolatesJobs(t *testing.T) {
	ctx := context.Background()
	store := newMemoryLockStore()
	locker, err := NewRedisLocker(store, time.Minute)
	require.NoError(t, err)

	accrual, err := locker.For("commission-daily-accrual")
	require.NoError(t, err)
	rival, err := locker.For("commission-daily-accrual")
	require.NoError(t, err)
	cleanup, err := locker.For("notification-cleanup")
	require.NoError(t, err)

	ok, err := accrual.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = rival.Acquire(ctx)
	assert.False(t, ok, "second holder of the same job must lose")
	ok, _ = cleanup.Acquire(ctx)
	assert.True(t, ok, "other jobs lock independently")

	require.NoError(t, rival.Release(ctx), "releasing an unheld lock is a no-op")
	assert.Contains(t, store.values, "datavend:lock:cron:commission-daily-accrual")

	require.NoError(t, accrual.Release(ctx))
	ok, _ = rival.Acquire(ctx)
	assert.True(t, ok)
}

func TestReleaseReportsLockTakenOver(t *testing.T) {
	ctx := context.Background()
	store := newMemoryLockStore()
	locker, err := NewRedisLocker(store, time.Minute)
	require.NoError(t, err)
	lock, err := locker.For("outbox-retention")
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// TTL ran out and another worker took the key.
	store.values["datavend:lock:cron:outbox-retention"] = "other-worker"

	assert.ErrorIs(t, lock.Release(ctx), ErrLockLost)
	assert.Equal(t, "other-worker", store.values["datavend:lock:cron:outbox-retention"])
	assert.NoError(t, lock.Release(ctx), "second release has nothing to do")
}

func TestNewRedisLockerValidates(t *testing.T) {
	_, err := NewRedisLocker(nil, time.Minute)
	assert.Error(t, err)

	locker, err := NewRedisLocker(newMemoryLockStore(), 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, locker.ttl)

	_, err = locker.For("")
	assert.Error(t, err)
}

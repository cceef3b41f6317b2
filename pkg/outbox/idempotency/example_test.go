package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// memoryStore is a map-backed stand-in for Redis.
type memoryStore map[string]string

func (s memoryStore) Get(_ context.Context, key string) (string, error) { return s[key], nil }

func (s memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, taken := s[key]; taken {
		return false, nil
	}
	s[key] = fmt.Sprint(value)
	return true, nil
}

func (s memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s, key)
	}
	return nil
}

func (s memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func ExampleManager_Guard() {
	ctx := context.Background()
	manager, _ := NewManager(memoryStore{}, time.Hour)
	eventID := uuid.MustParse("6a1f3c52-0d8e-4b7a-9c1e-2f5d7b3a9e10")

	deliver := func(fail bool) {
		err := manager.Guard(ctx, "notifications", eventID, func() error {
			if fail {
				return errors.New("database unavailable")
			}
			fmt.Println("notification written")
			return nil
		})
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			fmt.Println("duplicate delivery skipped")
		case err != nil:
			fmt.Println("nack:", err)
		}
	}

	deliver(true)
	deliver(false)
	deliver(false)
	// Output:
	// nack: database unavailable
	// notification written
	// duplicate delivery skipped
}

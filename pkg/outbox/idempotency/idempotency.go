// Package idempotency deduplicates at-least-once Pub/Sub deliveries per
// consumer by claiming each event ID in Redis before handling it.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/datavend-backend/pkg/redis"
)

// ErrAlreadyProcessed is returned by Guard for an event that was claimed by
// an earlier delivery.
var ErrAlreadyProcessed = errors.New("event already processed")

// Manager claims keys of the form dv:idempotency:evt:<consumer>:<event_id>.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager keeps claims for ttl; zero keeps them until evicted.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim marks the event as taken by consumer. It reports false when another
// delivery already holds the claim.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

// Release drops a claim so the event can be handled again.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Guard runs fn at most once per consumer and event. A failing fn releases
// the claim so a redelivery gets another attempt.
func (m *Manager) Guard(ctx context.Context, consumer string, eventID uuid.UUID, fn func() error) error {
	claimed, err := m.Claim(ctx, consumer, eventID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyProcessed
	}
	if err := fn(); err != nil {
		if relErr := m.Release(ctx, consumer, eventID); relErr != nil {
			return multierr.Append(err, fmt.Errorf("release claim: %w", relErr))
		}
		return err
	}
	return nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}

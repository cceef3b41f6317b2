package notifications

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/registry"
)

const notificationConsumer = "in-app-notifications"

type writer interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type guard interface {
	Guard(ctx context.Context, consumer string, eventID uuid.UUID, fn func() error) error
}

// Consumer turns domain events from the shared topic into in-app notifications.
type Consumer struct {
	writer       writer
	subscription *pubsub.Subscriber
	registry     resolver
	idempotency  guard
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(w writer, subscription *pubsub.Subscriber, reg resolver, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	c, err := newConsumer(w, reg, manager, logg)
	if err != nil {
		return nil, err
	}
	c.subscription = subscription
	return c, nil
}

func newConsumer(w writer, reg resolver, g guard, logg *logger.Logger) (*Consumer, error) {
	if w == nil {
		return nil, fmt.Errorf("notifications writer required")
	}
	if reg == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if g == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{writer: w, registry: reg, idempotency: g, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.handle(ctx, msg.ID, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	created int
}

func (c *Consumer) handle(ctx context.Context, messageID string, attrs map[string]string, data []byte) processResult {
	eventType := attrs["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id":   messageID,
		"event_type":   eventType,
		"aggregate_id": attrs["aggregate_id"],
	})

	aggregateID, err := uuid.Parse(attrs["aggregate_id"])
	if err != nil {
		c.logg.Error(logCtx, "invalid aggregate id", err)
		return processResult{ack: true}
	}
	resolved, err := c.registry.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventType(eventType),
		AggregateType: enums.OutboxAggregateType(attrs["aggregate_type"]),
		AggregateID:   aggregateID,
		Payload:       data,
	})
	if err != nil {
		c.logg.Error(logCtx, "failed to decode event", err)
		return processResult{ack: true}
	}

	batch := Compose(resolved.Descriptor.EventType, resolved.Payload)
	if len(batch) == 0 {
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	err = c.idempotency.Guard(ctx, notificationConsumer, eventID, func() error {
		for i := range batch {
			if err := c.writer.Create(ctx, &batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, idempotency.ErrAlreadyProcessed):
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	case err != nil:
		c.logg.Error(logCtx, "notification handling failed", err)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithField(logCtx, "notifications", len(batch)), "notifications created")
	return processResult{ack: true, created: len(batch)}
}

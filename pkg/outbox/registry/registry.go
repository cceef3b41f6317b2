// Package registry decodes committed outbox rows into typed domain events
// and decides which topic each one is published to.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and what its
// payload decodes into.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	newPayload func() any
}

// ResolvedEvent is an outbox row with its envelope and payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// catalog lists the aggregate and payload shape of every event type.
var catalog = []EventDescriptor{
	{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, newPayload: payloadOf[payloads.OrderCreatedEvent]()},
	{EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, newPayload: payloadOf[payloads.OrderStatusChangedEvent]()},
	{EventType: enums.EventOrderRefunded, AggregateType: enums.AggregateOrder, newPayload: payloadOf[payloads.OrderRefundedEvent]()},
	{EventType: enums.EventOrderReported, AggregateType: enums.AggregateOrder, newPayload: payloadOf[payloads.OrderReportedEvent]()},

	{EventType: enums.EventWalletCredited, AggregateType: enums.AggregateWalletTransaction, newPayload: payloadOf[payloads.WalletEntryEvent]()},
	{EventType: enums.EventWalletDebited, AggregateType: enums.AggregateWalletTransaction, newPayload: payloadOf[payloads.WalletEntryEvent]()},
	{EventType: enums.EventTopUpRequested, AggregateType: enums.AggregateWalletTransaction, newPayload: payloadOf[payloads.TopUpRequestedEvent]()},
	{EventType: enums.EventTopUpReviewed, AggregateType: enums.AggregateWalletTransaction, newPayload: payloadOf[payloads.TopUpReviewedEvent]()},

	{EventType: enums.EventCommissionAccrued, AggregateType: enums.AggregateCommissionRecord, newPayload: payloadOf[payloads.CommissionEvent]()},
	{EventType: enums.EventCommissionPaid, AggregateType: enums.AggregateCommissionRecord, newPayload: payloadOf[payloads.CommissionEvent]()},
	{EventType: enums.EventCommissionRejected, AggregateType: enums.AggregateCommissionRecord, newPayload: payloadOf[payloads.CommissionEvent]()},
	{EventType: enums.EventCommissionExpired, AggregateType: enums.AggregateCommissionRecord, newPayload: payloadOf[payloads.CommissionEvent]()},
}

// NewEventRegistry routes every cataloged event to the domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	entries := make(map[enums.OutboxEventType]EventDescriptor, len(catalog))
	for _, desc := range catalog {
		desc.Topic = cfg.DomainTopic
		entries[desc.EventType] = desc
	}
	return &EventRegistry{entries: entries}, nil
}

func (r *EventRegistry) Supports(eventType enums.OutboxEventType) bool {
	_, ok := r.entries[eventType]
	return ok
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every error it returns is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.describe(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("%s: empty payload", event.EventType))
	}

	payload := desc.newPayload()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) describe(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return desc, fmt.Errorf("unsupported event type %q", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return desc, fmt.Errorf("%s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return desc, fmt.Errorf("%s: missing aggregate_id", event.EventType)
	}
	return desc, nil
}

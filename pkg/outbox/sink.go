package outbox

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Sink queues domain events after the originating change has committed.
// Delivery is best effort: a failed write is logged and dropped so callers
// never roll back or fail because of a notification.
type Sink struct {
	db   txRunner
	svc  *Service
	logg *logger.Logger
}

func NewSink(db txRunner, svc *Service, logg *logger.Logger) *Sink {
	return &Sink{db: db, svc: svc, logg: logg}
}

// Notify writes the event in its own transaction.
func (s *Sink) Notify(ctx context.Context, event DomainEvent) {
	if s == nil || s.db == nil || s.svc == nil {
		return
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.svc.Emit(ctx, tx, event)
	})
	if err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		})
		s.logg.Warn(logCtx, "dropping domain event: "+err.Error())
	}
}

// NotifyOnce behaves like Notify but skips events already queued for the aggregate.
func (s *Sink) NotifyOnce(ctx context.Context, event DomainEvent) {
	if s == nil || s.db == nil || s.svc == nil {
		return
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.svc.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "event_type", event.EventType)
		s.logg.Warn(logCtx, "dropping domain event: "+err.Error())
	}
}

// Discard is a sink that drops every event.
type Discard struct{}

func (Discard) Notify(context.Context, DomainEvent) {}

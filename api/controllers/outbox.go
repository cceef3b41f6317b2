package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/datavend-backend/api/responses"
	"github.com/angelmondragon/datavend-backend/api/validators"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

// DeadLetters is the operator view over events the publisher parked.
type DeadLetters interface {
	List(ctx context.Context, filter outbox.DLQFilter) (*pagination.Page[models.OutboxDLQ], error)
	Replay(ctx context.Context, eventID uuid.UUID) error
}

// AdminListDeadLetters pages through parked outbox events, optionally by reason.
func AdminListDeadLetters(store DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := outbox.DLQFilter{Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
			reason := enums.OutboxDLQErrorReason(raw)
			if !reason.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid reason filter"))
				return
			}
			filter.Reason = &reason
		}
		page, err := store.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pagination.ListError(err, "list dead letters"))
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminReplayDeadLetter hands a parked event back to the publisher.
func AdminReplayDeadLetter(store DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter store unavailable"))
			return
		}
		eventID, err := validators.ParseUUIDParam(r, "eventId", "event id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithField(r.Context(), "event_id", eventID.String())
		if err := store.Replay(ctx, eventID); err != nil {
			if errors.Is(err, outbox.ErrDeadLetterNotFound) {
				err = pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "dead letter not found")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "outbox.dlq.replayed")
		responses.WriteSuccess(w, map[string]any{"event_id": eventID, "status": "requeued"})
	}
}

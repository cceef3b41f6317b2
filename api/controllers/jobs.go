package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/datavend-backend/api/responses"
	"github.com/angelmondragon/datavend-backend/api/validators"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

// JobTrigger runs a named background job on demand.
type JobTrigger interface {
	Trigger(ctx context.Context, name string, at time.Time) error
}

type runJobRequest struct {
	At string `json:"at"`
}

// AdminRunJob runs a lifecycle job immediately. An optional "at" replays the
// job as if it fired at that instant, which is how missed windows are backfilled.
func AdminRunJob(trigger JobTrigger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if trigger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job runner unavailable"))
			return
		}
		name := strings.TrimSpace(chi.URLParam(r, "job"))
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "job name is required"))
			return
		}
		var body runJobRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		var at time.Time
		if raw := strings.TrimSpace(body.At); raw != "" {
			parsed, err := validators.ParseTime(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "at must be a timestamp"))
				return
			}
			at = parsed
		}

		ctx := logg.WithField(r.Context(), "job", name)
		if err := trigger.Trigger(ctx, name, at); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payload := map[string]any{"job": name, "status": "completed"}
		if !at.IsZero() {
			payload["reference_time"] = at
		}
		responses.WriteSuccess(w, payload)
	}
}

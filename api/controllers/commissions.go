package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/datavend-backend/api/middleware"
	"github.com/angelmondragon/datavend-backend/api/responses"
	"github.com/angelmondragon/datavend-backend/api/validators"
	"github.com/angelmondragon/datavend-backend/internal/commissions"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

type commissionPayRequest struct {
	Reference    string `json:"reference" validate:"max=120"`
	CreditWallet bool   `json:"credit_wallet"`
}

type commissionReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// commissionAction is one of the admin status changes that carry a reason.
type commissionAction func(svc commissions.Service, r *http.Request, recordID, actorID uuid.UUID, reason string) (any, error)

// ListCommissions pages the caller's commission records.
func ListCommissions(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := commissionFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListForAgent(r.Context(), caller.UserID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// CommissionDetail returns one record. Agents only see their own.
func CommissionDetail(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recordID, err := validators.ParseUUIDParam(r, "recordId", "commission id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Get(r.Context(), recordID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !caller.IsAdmin() && record.AgentID != caller.UserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "commission record not found"))
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// CommissionStatement returns the running month plus anything awaiting payment.
func CommissionStatement(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		statement, err := svc.CurrentStatement(r.Context(), caller.UserID, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statement)
	}
}

// CommissionSummaries lists archived monthly summaries for a year, defaulting to the current one.
func CommissionSummaries(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		year, err := validators.ParseQueryInt(r, "year", time.Now().UTC().Year(), 2000, 9999)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summaries, err := svc.ListSummaries(r.Context(), caller.UserID, year)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"year": year, "items": summaries})
	}
}

// AdminPayCommission settles a finalized monthly record.
func AdminPayCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recordID, err := validators.ParseUUIDParam(r, "recordId", "commission id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body commissionPayRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Pay(r.Context(), commissions.PayInput{
			RecordID:     recordID,
			PaidBy:       caller.UserID,
			Reference:    strings.TrimSpace(body.Reference),
			CreditWallet: body.CreditWallet,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// AdminRejectCommission rejects a record with a reason.
func AdminRejectCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionReasonHandler(svc, logg, func(svc commissions.Service, r *http.Request, recordID, actorID uuid.UUID, reason string) (any, error) {
		return svc.Reject(r.Context(), recordID, actorID, reason)
	})
}

// AdminCancelCommission cancels a record with a reason.
func AdminCancelCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return commissionReasonHandler(svc, logg, func(svc commissions.Service, r *http.Request, recordID, actorID uuid.UUID, reason string) (any, error) {
		return svc.Cancel(r.Context(), recordID, actorID, reason)
	})
}

// AdminReinstateCommission moves a rejected or cancelled record back to pending.
func AdminReinstateCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recordID, err := validators.ParseUUIDParam(r, "recordId", "commission id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Reinstate(r.Context(), recordID, caller.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func commissionReasonHandler(svc commissions.Service, logg *logger.Logger, action commissionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recordID, err := validators.ParseUUIDParam(r, "recordId", "commission id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body commissionReasonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := action(svc, r, recordID, caller.UserID, validators.SanitizeString(body.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func commissionFilters(r *http.Request) (commissions.RecordFilters, error) {
	var filters commissions.RecordFilters
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseCommissionStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("period")); raw != "" {
		period, err := enums.ParseCommissionPeriod(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid period filter")
		}
		filters.Period = &period
	}
	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return filters, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return filters, err
	}
	filters.From, filters.To = from, to
	return filters, nil
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/datavend-backend/api/middleware"
	"github.com/angelmondragon/datavend-backend/api/responses"
	"github.com/angelmondragon/datavend-backend/api/validators"
	"github.com/angelmondragon/datavend-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

var errNotificationsUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable")

// inboxHandler resolves the caller before fn runs. Every inbox route is
// scoped to the caller's own notifications.
func inboxHandler(svc notifications.Service, logg *logger.Logger, fn func(r *http.Request, caller middleware.Caller) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errNotificationsUnavailable)
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body, err := fn(r, caller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

// ListNotifications pages the caller's inbox, newest first, with the
// unread count. ?unreadOnly=true hides read entries.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, caller middleware.Caller) (any, error) {
		page, err := validators.ParsePageParams(r)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			UserID:     caller.UserID,
			UnreadOnly: unreadOnly,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
		})
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, caller middleware.Caller) (any, error) {
		id, err := validators.ParseUUIDParam(r, "notificationId", "notification id")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), caller.UserID, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request, caller middleware.Caller) (any, error) {
		updated, err := svc.MarkAllRead(r.Context(), caller.UserID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": updated}, nil
	})
}

package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

type stubDeadLetters struct {
	filter   outbox.DLQFilter
	replayed []uuid.UUID
	replay   error
}

func (s *stubDeadLetters) List(_ context.Context, filter outbox.DLQFilter) (*pagination.Page[models.OutboxDLQ], error) {
	s.filter = filter
	return &pagination.Page[models.OutboxDLQ]{Items: []models.OutboxDLQ{}}, nil
}

func (s *stubDeadLetters) Replay(_ context.Context, eventID uuid.UUID) error {
	s.replayed = append(s.replayed, eventID)
	return s.replay
}

func TestAdminListDeadLettersFiltersByReason(t *testing.T) {
	store := &stubDeadLetters{}
	resp := httptest.NewRecorder()
	AdminListDeadLetters(store, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/?reason=max_attempts&limit=5", nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NotNil(t, store.filter.Reason)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, *store.filter.Reason)
	assert.Equal(t, 5, store.filter.Params.Limit)

	resp = httptest.NewRecorder()
	AdminListDeadLetters(store, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/?reason=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func replayRequest(eventID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("eventId", eventID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestAdminReplayDeadLetter(t *testing.T) {
	eventID := uuid.New()
	store := &stubDeadLetters{}
	resp := httptest.NewRecorder()
	AdminReplayDeadLetter(store, testLogger())(resp, replayRequest(eventID.String()))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []uuid.UUID{eventID}, store.replayed)

	store.replay = outbox.ErrDeadLetterNotFound
	resp = httptest.NewRecorder()
	AdminReplayDeadLetter(store, testLogger())(resp, replayRequest(uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = httptest.NewRecorder()
	AdminReplayDeadLetter(store, testLogger())(resp, replayRequest("nope"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

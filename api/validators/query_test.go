package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

func TestParsePageParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&cursor=abc", nil)
	params, err := ParsePageParams(req)
	if err != nil {
		t.Fatalf("ParsePageParams: %v", err)
	}
	if params.Limit != 10 || params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", params)
	}

	params, err = ParsePageParams(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("ParsePageParams: %v", err)
	}
	if params.Limit != pagination.DefaultLimit {
		t.Fatalf("expected default limit, got %d", params.Limit)
	}

	_, err = ParsePageParams(httptest.NewRequest(http.MethodGet, "/?limit=1000", nil))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryTime(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=2026-03-31T23:00:00Z&bad=yesterday", nil)
	from, err := ParseQueryTime(req, "from")
	if err != nil || !from.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %v err=%v", from, err)
	}
	to, err := ParseQueryTime(req, "to")
	if err != nil || !to.Equal(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected to %v err=%v", to, err)
	}
	if missing, err := ParseQueryTime(req, "missing"); err != nil || missing != nil {
		t.Fatalf("expected nil for missing key, got %v err=%v", missing, err)
	}
	if _, err := ParseQueryTime(req, "bad"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("orderId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	got, err := ParseUUIDParam(withParam(id.String()), "orderId", "order id")
	if err != nil || got != id {
		t.Fatalf("unexpected id %s err=%v", got, err)
	}
	if _, err := ParseUUIDParam(withParam("nope"), "orderId", "order id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseUUIDParam(withParam(""), "orderId", "order id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty id, got %v", err)
	}
}

func TestParseQueryBool(t *testing.T) {
	cases := map[string]struct {
		query   string
		want    bool
		wantErr bool
	}{
		"absent":  {query: "/", want: false},
		"true":    {query: "/?unreadOnly=true", want: true},
		"one":     {query: "/?unreadOnly=1", want: true},
		"false":   {query: "/?unreadOnly=false", want: false},
		"garbage": {query: "/?unreadOnly=maybe", wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseQueryBool(httptest.NewRequest(http.MethodGet, tc.query, nil), "unreadOnly")
			if tc.wantErr {
				if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("got %v, %v want %v", got, err, tc.want)
			}
		})
	}
}

package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/internal/wallet"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

// stubWallet overrides the calls a test needs; anything else panics on the nil embed.
type stubWallet struct {
	wallet.Service
	balance      func(ctx context.Context, ownerID uuid.UUID) (*wallet.BalanceView, error)
	requestTopUp func(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, error)
	credit       func(ctx context.Context, input wallet.PostingInput) (*models.WalletTransaction, error)
	list         func(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters wallet.TransactionFilters) (*pagination.Page[models.WalletTransaction], error)
	reject       func(ctx context.Context, requestID, approverID uuid.UUID, reason string) (*models.WalletTransaction, error)
}

func (s *stubWallet) Balance(ctx context.Context, ownerID uuid.UUID) (*wallet.BalanceView, error) {
	return s.balance(ctx, ownerID)
}

func (s *stubWallet) RequestTopUp(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, error) {
	return s.requestTopUp(ctx, ownerID, amount)
}

func (s *stubWallet) Credit(ctx context.Context, input wallet.PostingInput) (*models.WalletTransaction, error) {
	return s.credit(ctx, input)
}

func (s *stubWallet) ListTransactions(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters wallet.TransactionFilters) (*pagination.Page[models.WalletTransaction], error) {
	return s.list(ctx, ownerID, params, filters)
}

func (s *stubWallet) RejectTopUp(ctx context.Context, requestID, approverID uuid.UUID, reason string) (*models.WalletTransaction, error) {
	return s.reject(ctx, requestID, approverID, reason)
}

func TestWalletBalanceUsesCaller(t *testing.T) {
	userID := uuid.New()
	svc := &stubWallet{
		balance: func(ctx context.Context, ownerID uuid.UUID) (*wallet.BalanceView, error) {
			if ownerID != userID {
				t.Fatalf("unexpected owner %s", ownerID)
			}
			return &wallet.BalanceView{OwnerID: ownerID, Balance: decimal.RequireFromString("12.50")}, nil
		},
	}
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil), userID, enums.RoleAgent)
	resp := httptest.NewRecorder()
	WalletBalance(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"balance":"12.5"`) {
		t.Fatalf("balance missing from %s", resp.Body.String())
	}
}

func TestWalletRequestTopUpBelowMinimum(t *testing.T) {
	svc := &stubWallet{
		requestTopUp: func(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, error) {
			if !amount.Equal(decimal.NewFromInt(1)) {
				t.Fatalf("unexpected amount %s", amount)
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up below minimum")
		},
	}
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/wallet/top-ups", strings.NewReader(`{"amount":"1"}`)), uuid.New(), enums.RoleAgent)
	resp := httptest.NewRecorder()
	WalletRequestTopUp(svc, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestWalletRequestTopUpCreated(t *testing.T) {
	svc := &stubWallet{
		requestTopUp: func(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, error) {
			return &models.WalletTransaction{OwnerID: ownerID, Amount: amount, Type: enums.WalletTxTypeTopUp, Status: enums.WalletTxStatusPending}, nil
		},
	}
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/wallet/top-ups", strings.NewReader(`{"amount":"50.00"}`)), uuid.New(), enums.RoleAgent)
	resp := httptest.NewRecorder()
	WalletRequestTopUp(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestWalletTransactionsFilters(t *testing.T) {
	svc := &stubWallet{
		list: func(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters wallet.TransactionFilters) (*pagination.Page[models.WalletTransaction], error) {
			if filters.Type == nil || *filters.Type != enums.WalletTxTypeRefund {
				t.Fatalf("unexpected type filter %v", filters.Type)
			}
			if filters.Status != nil {
				t.Fatalf("expected no status filter")
			}
			return &pagination.Page[models.WalletTransaction]{}, nil
		},
	}
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/wallet/transactions?type=refund", nil), uuid.New(), enums.RoleAgent)
	resp := httptest.NewRecorder()
	WalletTransactions(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	bad := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/wallet/transactions?type=gift", nil), uuid.New(), enums.RoleAgent)
	resp = httptest.NewRecorder()
	WalletTransactions(svc, testLogger())(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminWalletCreditPostsAdjustment(t *testing.T) {
	adminID := uuid.New()
	ownerID := uuid.New()
	svc := &stubWallet{
		credit: func(ctx context.Context, input wallet.PostingInput) (*models.WalletTransaction, error) {
			if input.OwnerID != ownerID || input.Type != enums.WalletTxTypeAdjustment {
				t.Fatalf("unexpected posting %+v", input)
			}
			if input.ApproverID == nil || *input.ApproverID != adminID {
				t.Fatalf("approver not recorded")
			}
			if input.Metadata["reference"] != "TCK-9" {
				t.Fatalf("reference not carried: %v", input.Metadata)
			}
			return &models.WalletTransaction{OwnerID: ownerID, Amount: input.Amount}, nil
		},
	}
	body := `{"amount":"20","description":"goodwill credit","reference":"TCK-9"}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/admin/v1/wallets/"+ownerID.String()+"/credits", strings.NewReader(body)), adminID, enums.RoleAdmin)
	req = addRouteParam(req, "ownerId", ownerID.String())
	resp := httptest.NewRecorder()
	AdminWalletCredit(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminRejectTopUpRequiresReason(t *testing.T) {
	requestID := uuid.New()
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/admin/v1/top-ups/"+requestID.String()+"/reject", strings.NewReader(`{}`)), uuid.New(), enums.RoleAdmin)
	req = addRouteParam(req, "topUpId", requestID.String())
	resp := httptest.NewRecorder()
	AdminRejectTopUp(&stubWallet{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

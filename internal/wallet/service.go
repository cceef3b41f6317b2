package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/db"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/metrics"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

const (
	defaultConflictRetries = 3
	defaultRetryBaseDelay  = 20 * time.Millisecond
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NotificationSink receives fire-and-forget domain events.
type NotificationSink interface {
	Notify(ctx context.Context, event outbox.DomainEvent)
}

// CreditListener is told about every committed credit so dependent work
// (draft order conversion) can run. Its errors never reach the caller.
type CreditListener interface {
	OnWalletCredited(ctx context.Context, ownerID uuid.UUID) error
}

// ThresholdProvider supplies the minimum top-up amount.
type ThresholdProvider interface {
	MinTopUp() decimal.Decimal
}

// Ledger is the transactional surface other domains use to move money inside
// their own unit of work. Callers run the work through RetryConflicts and call
// Committed once their transaction has committed.
type Ledger interface {
	DebitTx(ctx context.Context, tx *gorm.DB, input PostingInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input PostingInput) (*models.WalletTransaction, error)
	Committed(ctx context.Context, txns ...*models.WalletTransaction)
	RetryConflicts(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service exposes wallet operations to handlers and other domains.
type Service interface {
	Ledger
	Debit(ctx context.Context, input PostingInput) (*models.WalletTransaction, error)
	Credit(ctx context.Context, input PostingInput) (*models.WalletTransaction, error)
	RequestTopUp(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, error)
	ApproveTopUp(ctx context.Context, requestID, approverID uuid.UUID) (*TopUpReview, error)
	RejectTopUp(ctx context.Context, requestID, approverID uuid.UUID, reason string) (*models.WalletTransaction, error)
	Balance(ctx context.Context, ownerID uuid.UUID) (*BalanceView, error)
	ListTransactions(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters TransactionFilters) (*pagination.Page[models.WalletTransaction], error)
	ListPendingTopUps(ctx context.Context, params pagination.Params) (*pagination.Page[models.WalletTransaction], error)
	VerifyLedger(ctx context.Context, ownerID uuid.UUID) (*LedgerReport, error)
	SetCreditListener(listener CreditListener)
}

// ServiceParams groups the wallet service dependencies.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Settings   ThresholdProvider
	Sink       NotificationSink
	Logger     *logger.Logger
	Metrics    *metrics.WalletMetrics
	Config     config.WalletConfig
	Now        func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	settings  ThresholdProvider
	sink      NotificationSink
	logg      *logger.Logger
	metrics   *metrics.WalletMetrics
	listener  CreditListener
	retries   uint64
	baseDelay time.Duration
	now       func() time.Time
}

// NewService wires the wallet ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	sink := params.Sink
	if sink == nil {
		sink = outbox.Discard{}
	}
	retries := params.Config.ConflictRetries
	if retries <= 0 {
		retries = defaultConflictRetries
	}
	baseDelay := params.Config.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repository,
		tx:        params.Tx,
		settings:  params.Settings,
		sink:      sink,
		logg:      params.Logger,
		metrics:   params.Metrics,
		retries:   uint64(retries),
		baseDelay: baseDelay,
		now:       now,
	}, nil
}

func (s *service) SetCreditListener(listener CreditListener) {
	s.listener = listener
}

// RetryConflicts reruns fn while it fails with a concurrency conflict, with
// exponential backoff, then surfaces the last error.
func (s *service) RetryConflicts(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if pkgerrors.IsCode(err, pkgerrors.CodeConcurrencyConflict) {
			s.metrics.IncConflict()
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *service) Debit(ctx context.Context, input PostingInput) (*models.WalletTransaction, error) {
	if input.Type == "" {
		input.Type = enums.WalletTxTypePurchase
	}
	var txn *models.WalletTransaction
	err := s.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			txn, err = s.DebitTx(ctx, tx, input)
			return err
		})
	})
	s.metrics.ObservePosting("debit", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.Committed(ctx, txn)
	return txn, nil
}

func (s *service) Credit(ctx context.Context, input PostingInput) (*models.WalletTransaction, error) {
	if input.Type == "" {
		input.Type = enums.WalletTxTypeAdjustment
	}
	var txn *models.WalletTransaction
	err := s.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			txn, err = s.CreditTx(ctx, tx, input)
			return err
		})
	})
	s.metrics.ObservePosting("credit", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.Committed(ctx, txn)
	return txn, nil
}

func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input PostingInput) (*models.WalletTransaction, error) {
	if input.Type == "" {
		input.Type = enums.WalletTxTypePurchase
	}
	if input.Type != enums.WalletTxTypePurchase && input.Type != enums.WalletTxTypeAdjustment {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s cannot be a debit", input.Type))
	}
	return s.post(ctx, tx, enums.WalletTxKindDebit, input)
}

func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input PostingInput) (*models.WalletTransaction, error) {
	if input.Type == "" {
		input.Type = enums.WalletTxTypeAdjustment
	}
	if input.Type == enums.WalletTxTypePurchase || !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s cannot be a credit", input.Type))
	}
	return s.post(ctx, tx, enums.WalletTxKindCredit, input)
}

// post moves the balance and appends the matching ledger row. The owner row is
// locked for the rest of the transaction and the version check catches any
// writer that slipped past the lock.
func (s *service) post(ctx context.Context, tx *gorm.DB, kind enums.WalletTxKind, input PostingInput) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for wallet posting")
	}
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	account, err := repo.LockAccount(ctx, input.OwnerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet owner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet account")
	}

	balance := account.WalletBalance
	if kind == enums.WalletTxKindDebit {
		if balance.LessThan(input.Amount) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient wallet balance").
				WithDetails(map[string]any{
					"balance":  balance.StringFixed(2),
					"required": input.Amount.StringFixed(2),
				})
		}
		balance = balance.Sub(input.Amount)
	} else {
		balance = balance.Add(input.Amount)
	}

	if err := repo.UpdateBalance(ctx, input.OwnerID, account.WalletVersion, balance); err != nil {
		if errors.Is(err, errVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "wallet changed concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}

	description := input.Description
	if description == "" {
		description = defaultDescription(kind, input.Type)
	}
	txn := &models.WalletTransaction{
		ID:             uuid.New(),
		OwnerID:        input.OwnerID,
		Kind:           kind,
		Type:           input.Type,
		Amount:         input.Amount,
		BalanceAfter:   balance,
		Description:    description,
		RelatedOrderID: input.RelatedOrderID,
		ApproverID:     input.ApproverID,
		Status:         enums.WalletTxStatusCompleted,
		Sequence:       account.WalletVersion + 1,
		Metadata:       input.Metadata,
		CreatedAt:      s.now(),
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet transaction")
	}
	return txn, nil
}

// Committed publishes events for rows whose transaction has committed and
// wakes the credit listener once per credited owner.
func (s *service) Committed(ctx context.Context, txns ...*models.WalletTransaction) {
	credited := map[uuid.UUID]struct{}{}
	for _, txn := range txns {
		if txn == nil {
			continue
		}
		eventType := enums.EventWalletDebited
		if txn.Kind == enums.WalletTxKindCredit {
			eventType = enums.EventWalletCredited
			credited[txn.OwnerID] = struct{}{}
		}
		s.sink.Notify(ctx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateWalletTransaction,
			AggregateID:   txn.ID,
			Actor:         actorFor(txn),
			OccurredAt:    txn.CreatedAt,
			Data: payloads.WalletEntryEvent{
				TransactionID:  txn.ID,
				OwnerID:        txn.OwnerID,
				Kind:           txn.Kind,
				Type:           txn.Type,
				Amount:         txn.Amount,
				BalanceAfter:   txn.BalanceAfter,
				RelatedOrderID: txn.RelatedOrderID,
				Description:    txn.Description,
			},
		})
	}
	if s.listener == nil {
		return
	}
	for ownerID := range credited {
		if err := s.listener.OnWalletCredited(ctx, ownerID); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "owner_id", ownerID.String()), "credit listener failed", err)
		}
	}
}

func (s *service) RequestTopUp(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*models.WalletTransaction, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if minimum := s.settings.MinTopUp(); amount.LessThan(minimum) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up below minimum").
			WithDetails(map[string]any{"minimum": minimum.StringFixed(2)})
	}

	var request *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.LockAccount(ctx, ownerID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wallet owner not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet account")
		}
		pending, err := repo.FindPendingTopUp(ctx, ownerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending top-up")
		}
		if pending != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "a top-up request is already awaiting review").
				WithDetails(map[string]any{"request_id": pending.ID.String()})
		}
		request = &models.WalletTransaction{
			ID:           uuid.New(),
			OwnerID:      ownerID,
			Kind:         enums.WalletTxKindCredit,
			Type:         enums.WalletTxTypeTopUp,
			Amount:       amount,
			BalanceAfter: account.WalletBalance,
			Description:  "Top-up request",
			Status:       enums.WalletTxStatusPending,
			CreatedAt:    s.now(),
		}
		if err := repo.CreateTransaction(ctx, request); err != nil {
			if db.IsUniqueViolation(err, "ux_wallet_transactions_pending_top_up") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a top-up request is already awaiting review")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create top-up request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventTopUpRequested,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   request.ID,
		Actor:         &outbox.ActorRef{UserID: ownerID, Role: string(enums.RoleAgent)},
		Data: payloads.TopUpRequestedEvent{
			RequestID: request.ID,
			OwnerID:   ownerID,
			Amount:    amount,
		},
	})
	return request, nil
}

func (s *service) ApproveTopUp(ctx context.Context, requestID, approverID uuid.UUID) (*TopUpReview, error) {
	if requestID == uuid.Nil || approverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id and approver are required")
	}

	review := &TopUpReview{}
	err := s.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			request, err := s.lockPendingTopUp(ctx, repo, requestID)
			if err != nil {
				return err
			}
			credit, err := s.CreditTx(ctx, tx, PostingInput{
				OwnerID:     request.OwnerID,
				Amount:      request.Amount,
				Type:        enums.WalletTxTypeTopUp,
				Description: "Top-up approved",
				ApproverID:  &approverID,
				Metadata:    map[string]any{"top_up_request_id": request.ID.String()},
			})
			if err != nil {
				return err
			}
			reviewedAt := s.now()
			if err := repo.UpdateTransaction(ctx, request.ID, map[string]any{
				"status":      enums.WalletTxStatusApproved,
				"approver_id": approverID,
				"reviewed_at": reviewedAt,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark top-up approved")
			}
			request.Status = enums.WalletTxStatusApproved
			request.ApproverID = &approverID
			request.ReviewedAt = &reviewedAt
			review.Request = request
			review.Credit = credit
			return nil
		})
	})
	s.metrics.ObservePosting("top_up_approve", outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.notifyReview(ctx, review.Request, approverID, &review.Credit.ID)
	s.Committed(ctx, review.Credit)
	return review, nil
}

func (s *service) RejectTopUp(ctx context.Context, requestID, approverID uuid.UUID, reason string) (*models.WalletTransaction, error) {
	if requestID == uuid.Nil || approverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id and approver are required")
	}

	var request *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		request, err = s.lockPendingTopUp(ctx, repo, requestID)
		if err != nil {
			return err
		}
		reviewedAt := s.now()
		metadata := request.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		if reason != "" {
			metadata["rejection_reason"] = reason
		}
		if err := repo.UpdateTransaction(ctx, request.ID, map[string]any{
			"status":      enums.WalletTxStatusRejected,
			"approver_id": approverID,
			"reviewed_at": reviewedAt,
			"metadata":    metadata,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark top-up rejected")
		}
		request.Status = enums.WalletTxStatusRejected
		request.ApproverID = &approverID
		request.ReviewedAt = &reviewedAt
		request.Metadata = metadata
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyReview(ctx, request, approverID, nil)
	return request, nil
}

func (s *service) lockPendingTopUp(ctx context.Context, repo Repository, requestID uuid.UUID) (*models.WalletTransaction, error) {
	request, err := repo.LockTransaction(ctx, requestID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "top-up request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load top-up request")
	}
	if request.Type != enums.WalletTxTypeTopUp {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction is not a top-up request")
	}
	if request.Status != enums.WalletTxStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "top-up request already reviewed").
			WithDetails(map[string]any{"status": request.Status})
	}
	return request, nil
}

func (s *service) notifyReview(ctx context.Context, request *models.WalletTransaction, approverID uuid.UUID, creditID *uuid.UUID) {
	s.sink.Notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventTopUpReviewed,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   request.ID,
		Actor:         &outbox.ActorRef{UserID: approverID, Role: string(enums.RoleAdmin)},
		Data: payloads.TopUpReviewedEvent{
			RequestID:           request.ID,
			OwnerID:             request.OwnerID,
			Amount:              request.Amount,
			Status:              request.Status,
			ApproverID:          approverID,
			CreditTransactionID: creditID,
		},
	})
}

func (s *service) Balance(ctx context.Context, ownerID uuid.UUID) (*BalanceView, error) {
	account, err := s.repo.FindAccount(ctx, ownerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet owner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	pending, err := s.repo.FindPendingTopUp(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending top-up")
	}
	return &BalanceView{OwnerID: ownerID, Balance: account.WalletBalance, PendingTopUp: pending}, nil
}

func (s *service) ListTransactions(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters TransactionFilters) (*pagination.Page[models.WalletTransaction], error) {
	rows, err := s.repo.ListTransactions(ctx, ownerID, params, filters)
	if err != nil {
		return nil, pagination.ListError(err, "list wallet transactions")
	}
	page := pagination.BuildPage(rows, params.Limit, transactionCursor)
	return &page, nil
}

func (s *service) ListPendingTopUps(ctx context.Context, params pagination.Params) (*pagination.Page[models.WalletTransaction], error) {
	rows, err := s.repo.ListPendingTopUps(ctx, params)
	if err != nil {
		return nil, pagination.ListError(err, "list pending top-ups")
	}
	page := pagination.BuildPage(rows, params.Limit, transactionCursor)
	return &page, nil
}

func transactionCursor(txn models.WalletTransaction) pagination.Cursor {
	return pagination.Cursor{CreatedAt: txn.CreatedAt, ID: txn.ID}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most two decimal places")
	}
	return nil
}

func defaultDescription(kind enums.WalletTxKind, txType enums.WalletTxType) string {
	switch txType {
	case enums.WalletTxTypePurchase:
		return "Order payment"
	case enums.WalletTxTypeRefund:
		return "Order refund"
	case enums.WalletTxTypeTopUp:
		return "Wallet top-up"
	case enums.WalletTxTypeCommissionPayout:
		return "Commission payout"
	}
	if kind == enums.WalletTxKindDebit {
		return "Balance adjustment (debit)"
	}
	return "Balance adjustment (credit)"
}

func actorFor(txn *models.WalletTransaction) *outbox.ActorRef {
	if txn.ApproverID != nil {
		return &outbox.ActorRef{UserID: *txn.ApproverID, Role: string(enums.RoleAdmin)}
	}
	return &outbox.ActorRef{UserID: txn.OwnerID}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if e := pkgerrors.As(err); e != nil {
		return string(e.Code())
	}
	return "error"
}

// VerifyLedger replays every posted transaction in sequence order and compares
// the running sum against each balance snapshot and the stored balance.
func (s *service) VerifyLedger(ctx context.Context, ownerID uuid.UUID) (*LedgerReport, error) {
	account, err := s.repo.FindAccount(ctx, ownerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet owner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	posted, err := s.repo.ListPosted(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load posted transactions")
	}

	report := &LedgerReport{
		OwnerID:    ownerID,
		Balance:    account.WalletBalance,
		Replayed:   decimal.Zero,
		Entries:    len(posted),
		Consistent: true,
	}
	for _, txn := range posted {
		report.Replayed = report.Replayed.Add(txn.Signed())
		if report.Divergence == nil && !report.Replayed.Equal(txn.BalanceAfter) {
			id := txn.ID
			report.Consistent = false
			report.Divergence = &Divergence{
				TransactionID: &id,
				Sequence:      txn.Sequence,
				Expected:      report.Replayed,
				Recorded:      txn.BalanceAfter,
			}
		}
	}
	if !report.Replayed.Equal(account.WalletBalance) {
		report.Consistent = false
		if report.Divergence == nil {
			report.Divergence = &Divergence{
				Sequence: account.WalletVersion,
				Expected: report.Replayed,
				Recorded: account.WalletBalance,
			}
		}
	}
	if !report.Consistent && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "owner_id", ownerID.String()), "wallet ledger diverges from balance")
	}
	return report, nil
}

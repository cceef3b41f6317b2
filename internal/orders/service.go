package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/internal/wallet"
	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/db"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
	"github.com/angelmondragon/datavend-backend/pkg/types"
)

const maxOrderItems = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NotificationSink receives fire-and-forget domain events.
type NotificationSink interface {
	Notify(ctx context.Context, event outbox.DomainEvent)
}

// WalletLedger moves money inside an order's own transaction.
type WalletLedger interface {
	DebitTx(ctx context.Context, tx *gorm.DB, input wallet.PostingInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input wallet.PostingInput) (*models.WalletTransaction, error)
	Committed(ctx context.Context, txns ...*models.WalletTransaction)
	RetryConflicts(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the order state machine.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor Actor, reason string) (*models.Order, error)
	ProcessItem(ctx context.Context, input ProcessItemInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*CancelResult, error)
	RefundFailed(ctx context.Context, orderID uuid.UUID) (*models.WalletTransaction, error)
	Report(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	UpdateReception(ctx context.Context, orderID uuid.UUID, status enums.ReceptionStatus, actor Actor) (*models.Order, error)
	ConvertDrafts(ctx context.Context, ownerID uuid.UUID) (*DraftConversion, error)
	RetryDraft(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	CleanupReported(ctx context.Context, now time.Time) (*CleanupResult, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters OrderFilters) (*pagination.Page[models.Order], error)
	ListReported(ctx context.Context, params pagination.Params) (*pagination.Page[models.Order], error)
	CompletedOrderStats(ctx context.Context, from, to time.Time) ([]AgentSales, error)
	OnWalletCredited(ctx context.Context, ownerID uuid.UUID) error
}

// ServiceParams groups the order service dependencies.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Wallet     WalletLedger
	Sink       NotificationSink
	Logger     *logger.Logger
	Config     config.OrdersConfig
	Now        func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	wallet WalletLedger
	sink   NotificationSink
	logg   *logger.Logger
	cfg    config.OrdersConfig
	now    func() time.Time
}

type statusChange struct {
	from   enums.OrderStatus
	to     enums.OrderStatus
	reason string
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	sink := params.Sink
	if sink == nil {
		sink = outbox.Discard{}
	}
	cfg := params.Config
	if cfg.ReportAutoResolveAfter <= 0 {
		cfg.ReportAutoResolveAfter = 24 * time.Hour
	}
	if cfg.ResolvedFlagClearAfter <= 0 {
		cfg.ResolvedFlagClearAfter = 10 * time.Minute
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = defaultPhoneRegion
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:   params.Repository,
		tx:     params.Tx,
		wallet: params.Wallet,
		sink:   sink,
		logg:   params.Logger,
		cfg:    cfg,
		now:    now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreate(&input, s.cfg.PhoneRegion); err != nil {
		return nil, err
	}

	var (
		order   *models.Order
		debit   *models.WalletTransaction
		changes []statusChange
	)
	err := s.wallet.RetryConflicts(ctx, func(ctx context.Context) error {
		now := s.now()
		order = buildOrder(input, now)
		debit = nil
		changes = nil
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			txn, err := s.wallet.DebitTx(ctx, tx, purchaseFor(order))
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
					return nil
				}
				return err
			}
			debit = txn
			updates, advanced, err := markPaid(order, now)
			if err != nil {
				return err
			}
			changes = advanced
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	actor := Actor{UserID: input.OwnerID, TenantID: input.TenantID, Role: enums.RoleAgent}
	s.sink.Notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data:          payloadCreated(order),
	})
	s.emitChanges(ctx, order, actor, changes)
	if debit != nil {
		s.wallet.Committed(ctx, debit)
	} else if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "order saved as draft pending wallet balance")
	}
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor Actor, reason string) (*models.Order, error) {
	if status == enums.OrderStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failed is set by item processing and cannot be chosen manually")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", status))
	}
	if status == enums.OrderStatusCancelled {
		result, err := s.Cancel(ctx, orderID, actor, reason)
		if err != nil {
			return nil, err
		}
		return result.Order, nil
	}

	var (
		order  *models.Order
		change statusChange
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusDraft {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "draft orders advance only once paid")
		}
		now := s.now()
		change = statusChange{from: order.Status, to: status, reason: reason}
		updates, err := Transition(order, status, now)
		if err != nil {
			return err
		}
		order.Notes = order.Notes.Append(now, actor.label(), noteFor(change))
		updates["notes"] = order.Notes
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitChanges(ctx, order, actor, []statusChange{change})
	return s.reload(ctx, order.ID)
}

// ProcessItem applies an item outcome and rolls the item set up into the
// order status. A rollup to failed refunds a paid order in the same unit of work.
func (s *service) ProcessItem(ctx context.Context, input ProcessItemInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and item id are required")
	}
	if !input.Status.IsValid() || input.Status == enums.ItemStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid item status %q", input.Status))
	}

	var (
		order   *models.Order
		refund  *models.WalletTransaction
		changes []statusChange
	)
	err := s.wallet.RetryConflicts(ctx, func(ctx context.Context) error {
		refund = nil
		changes = nil
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			var err error
			order, err = lockOrder(ctx, repo, input.OrderID)
			if err != nil {
				return err
			}
			if order.Status == enums.OrderStatusDraft {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "draft orders cannot be processed")
			}
			if order.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("order is %s", order.Status))
			}

			items, err := repo.ListItems(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
			}
			idx := -1
			for i := range items {
				if items[i].ID == input.ItemID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			item := &items[idx]
			if item.ProcessingStatus == input.Status {
				return nil
			}
			if !canTransitionItem(item.ProcessingStatus, input.Status) {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition,
					fmt.Sprintf("item cannot move from %s to %s", item.ProcessingStatus, input.Status))
			}

			now := s.now()
			itemUpdates := map[string]any{"processing_status": input.Status}
			if input.Status != enums.ItemStatusProcessing {
				itemUpdates["processed_at"] = now
			}
			if input.Status == enums.ItemStatusFailed && input.Reason != "" {
				itemUpdates["failure_reason"] = input.Reason
			}
			if err := repo.UpdateItem(ctx, item.ID, itemUpdates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
			}
			item.ProcessingStatus = input.Status

			target, ok := aggregateItems(items)
			if !ok || target == order.Status {
				return nil
			}
			if target == enums.OrderStatusCancelled {
				var change statusChange
				change, refund, err = s.cancelLocked(ctx, tx, order, input.Actor, "all items cancelled", now)
				if err != nil {
					return err
				}
				changes = append(changes, change)
				return nil
			}

			change := statusChange{from: order.Status, to: target, reason: input.Reason}
			updates, err := Transition(order, target, now)
			if err != nil {
				return err
			}
			order.Notes = order.Notes.Append(now, input.Actor.label(), noteFor(change))
			updates["notes"] = order.Notes
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			changes = append(changes, change)

			if target == enums.OrderStatusFailed {
				refund, err = s.refundLocked(ctx, tx, order, "fulfillment failed", now)
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitChanges(ctx, order, input.Actor, changes)
	s.afterRefund(ctx, order, input.Actor, refund)
	return s.reload(ctx, order.ID)
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*CancelResult, error) {
	var (
		order  *models.Order
		refund *models.WalletTransaction
		change statusChange
	)
	err := s.wallet.RetryConflicts(ctx, func(ctx context.Context) error {
		refund = nil
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			order, err = lockOrder(ctx, s.repo.WithTx(tx), orderID)
			if err != nil {
				return err
			}
			if !actor.isAdmin() && order.OwnerID != actor.UserID {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			change, refund, err = s.cancelLocked(ctx, tx, order, actor, reason, s.now())
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitChanges(ctx, order, actor, []statusChange{change})
	s.afterRefund(ctx, order, actor, refund)

	result := &CancelResult{RefundedAmount: decimal.Zero}
	if refund != nil {
		result.RefundedAmount = refund.Amount
	}
	result.Order, err = s.reload(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RefundFailed re-drives the refund of a failed order. It returns nil when the
// order has nothing left to refund.
func (s *service) RefundFailed(ctx context.Context, orderID uuid.UUID) (*models.WalletTransaction, error) {
	var (
		order  *models.Order
		refund *models.WalletTransaction
	)
	err := s.wallet.RetryConflicts(ctx, func(ctx context.Context) error {
		refund = nil
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			order, err = lockOrder(ctx, s.repo.WithTx(tx), orderID)
			if err != nil {
				return err
			}
			if order.Status != enums.OrderStatusFailed {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only failed orders are refunded this way")
			}
			refund, err = s.refundLocked(ctx, tx, order, "fulfillment failed", s.now())
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterRefund(ctx, order, systemActor, refund)
	return refund, nil
}

// cancelLocked cancels an order whose row lock the caller holds. Open items
// are closed and a paid order is refunded in full.
func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor, reason string, now time.Time) (statusChange, *models.WalletTransaction, error) {
	repo := s.repo.WithTx(tx)
	change := statusChange{from: order.Status, to: enums.OrderStatusCancelled, reason: reason}
	updates, err := Transition(order, enums.OrderStatusCancelled, now)
	if err != nil {
		return change, nil, err
	}
	order.Notes = order.Notes.Append(now, actor.label(), noteFor(change))
	updates["notes"] = order.Notes
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return change, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if err := repo.CancelOpenItems(ctx, order.ID, now); err != nil {
		return change, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order items")
	}
	refund, err := s.refundLocked(ctx, tx, order, orDefault(reason, "order cancelled"), now)
	return change, refund, err
}

// refundLocked credits the order total back once. The payment status read
// under the row lock is the gate.
func (s *service) refundLocked(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, now time.Time) (*models.WalletTransaction, error) {
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, nil
	}
	orderID := order.ID
	credit, err := s.wallet.CreditTx(ctx, tx, wallet.PostingInput{
		OwnerID:        order.OwnerID,
		Amount:         order.Total,
		Type:           enums.WalletTxTypeRefund,
		Description:    fmt.Sprintf("Refund for order %s", order.OrderNumber),
		RelatedOrderID: &orderID,
		Metadata:       types.JSONMap{"reason": reason},
	})
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = enums.PaymentStatusRefunded
	order.RefundedAmount = order.Total
	order.Notes = order.Notes.Append(now, "system", fmt.Sprintf("refunded %s to wallet", order.Total.StringFixed(2)))
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
		"payment_status":  enums.PaymentStatusRefunded,
		"refunded_amount": order.Total,
		"notes":           order.Notes,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
	}
	return credit, nil
}

func (s *service) afterRefund(ctx context.Context, order *models.Order, actor Actor, refund *models.WalletTransaction) {
	if refund == nil {
		return
	}
	reason, _ := refund.Metadata["reason"].(string)
	s.sink.Notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventOrderRefunded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data:          payloadRefunded(order, refund, reason),
	})
	s.wallet.Committed(ctx, refund)
}

func (s *service) Report(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	var (
		order   *models.Order
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !actor.isAdmin() && order.OwnerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusDraft || order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("a %s order cannot be reported", order.Status))
		}
		if order.Reported && order.ReceptionStatus != enums.ReceptionStatusResolved {
			return nil
		}

		now := s.now()
		reception := enums.ReceptionStatusNotReceived
		if order.ReceptionStatus == enums.ReceptionStatusChecking {
			reception = enums.ReceptionStatusChecking
		}
		order.Reported = true
		order.ReportedAt = &now
		order.ResolvedAt = nil
		order.ReceptionStatus = reception
		order.Notes = order.Notes.Append(now, actor.label(), "delivery reported as not received")
		changed = true
		if err := repo.Update(ctx, order.ID, map[string]any{
			"reported":         true,
			"reported_at":      now,
			"resolved_at":      nil,
			"reception_status": reception,
			"notes":            order.Notes,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "report order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.sink.Notify(ctx, outbox.DomainEvent{
			EventType:     enums.EventOrderReported,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data:          payloadReported(order),
		})
	}
	return s.reload(ctx, order.ID)
}

func (s *service) UpdateReception(ctx context.Context, orderID uuid.UUID, status enums.ReceptionStatus, actor Actor) (*models.Order, error) {
	if status != enums.ReceptionStatusChecking && status != enums.ReceptionStatusResolved {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reception can only move to checking or resolved")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !order.Reported {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order has no open delivery report")
		}
		if order.ReceptionStatus == status {
			return nil
		}

		now := s.now()
		updates := map[string]any{"reception_status": status}
		if status == enums.ReceptionStatusResolved {
			order.ResolvedAt = &now
			updates["resolved_at"] = now
		}
		order.ReceptionStatus = status
		order.Notes = order.Notes.Append(now, actor.label(), fmt.Sprintf("delivery report marked %s", status))
		updates["notes"] = order.Notes
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reception status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// ConvertDrafts charges an owner's drafts oldest first and stops at the first
// one the balance cannot cover.
func (s *service) ConvertDrafts(ctx context.Context, ownerID uuid.UUID) (*DraftConversion, error) {
	drafts, err := s.repo.ListDrafts(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list drafts")
	}

	result := &DraftConversion{Converted: []uuid.UUID{}}
	for i, draft := range drafts {
		converted, err := s.convertDraft(ctx, draft.ID)
		if err != nil {
			result.Remaining = len(drafts) - i
			if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
				return result, nil
			}
			return result, err
		}
		if converted {
			result.Converted = append(result.Converted, draft.ID)
		}
	}
	return result, nil
}

func (s *service) RetryDraft(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.Get(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not a draft")
	}
	if _, err := s.convertDraft(ctx, order.ID); err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

func (s *service) convertDraft(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var (
		order   *models.Order
		debit   *models.WalletTransaction
		changes []statusChange
	)
	err := s.wallet.RetryConflicts(ctx, func(ctx context.Context) error {
		debit = nil
		changes = nil
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			var err error
			order, err = lockOrder(ctx, repo, orderID)
			if err != nil {
				return err
			}
			if order.Status != enums.OrderStatusDraft {
				return nil
			}
			debit, err = s.wallet.DebitTx(ctx, tx, purchaseFor(order))
			if err != nil {
				return err
			}
			now := s.now()
			updates, advanced, err := markPaid(order, now)
			if err != nil {
				return err
			}
			changes = advanced
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert draft")
			}
			return nil
		})
	})
	if err != nil || debit == nil {
		return false, err
	}

	actor := Actor{UserID: order.OwnerID, TenantID: order.TenantID, Role: enums.RoleAgent}
	s.emitChanges(ctx, order, actor, changes)
	s.wallet.Committed(ctx, debit)
	return true, nil
}

// OnWalletCredited converts drafts whenever the owner's balance grows.
func (s *service) OnWalletCredited(ctx context.Context, ownerID uuid.UUID) error {
	result, err := s.ConvertDrafts(ctx, ownerID)
	if result != nil && len(result.Converted) > 0 && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"owner_id":  ownerID.String(),
			"converted": len(result.Converted),
			"remaining": result.Remaining,
		})
		s.logg.Info(logCtx, "drafts converted after wallet credit")
	}
	return err
}

// CleanupReported auto-resolves stale reports and lowers the flag on resolved
// ones. Each order is handled on its own; failures are collected.
func (s *service) CleanupReported(ctx context.Context, now time.Time) (*CleanupResult, error) {
	now = now.UTC()
	result := &CleanupResult{}
	var errs error

	stale, err := s.repo.ListStaleReports(ctx, now.Add(-s.cfg.ReportAutoResolveAfter))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale reports")
	}
	for _, candidate := range stale {
		done, err := s.autoResolve(ctx, candidate.ID, now)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("auto-resolve order %s: %w", candidate.ID, err))
			s.logEntityFailure(ctx, candidate.ID, "auto-resolve reported order failed", err)
			continue
		}
		if done {
			result.AutoResolved++
		}
	}

	resolved, err := s.repo.ListResolvedReports(ctx, now.Add(-s.cfg.ResolvedFlagClearAfter))
	if err != nil {
		return result, multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list resolved reports"))
	}
	for _, candidate := range resolved {
		done, err := s.clearResolvedFlag(ctx, candidate.ID, now)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("clear report flag on order %s: %w", candidate.ID, err))
			s.logEntityFailure(ctx, candidate.ID, "clear reported flag failed", err)
			continue
		}
		if done {
			result.FlagsCleared++
		}
	}
	return result, errs
}

func (s *service) autoResolve(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error) {
	done := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !order.Reported || order.ReportedAt == nil ||
			(order.ReceptionStatus != enums.ReceptionStatusNotReceived && order.ReceptionStatus != enums.ReceptionStatusChecking) ||
			order.ReportedAt.After(now.Add(-s.cfg.ReportAutoResolveAfter)) {
			return nil
		}
		notes := order.Notes.Append(now, "system",
			fmt.Sprintf("report auto-resolved as received after %s without follow-up", s.cfg.ReportAutoResolveAfter))
		if err := repo.Update(ctx, order.ID, map[string]any{
			"reception_status": enums.ReceptionStatusReceived,
			"reported":         false,
			"notes":            notes,
		}); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

func (s *service) clearResolvedFlag(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error) {
	done := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !order.Reported || order.ReceptionStatus != enums.ReceptionStatusResolved ||
			order.ResolvedAt == nil || order.ResolvedAt.After(now.Add(-s.cfg.ResolvedFlagClearAfter)) {
			return nil
		}
		if err := repo.Update(ctx, order.ID, map[string]any{"reported": false}); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.reload(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && order.OwnerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters OrderFilters) (*pagination.Page[models.Order], error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID, params, filters)
	if err != nil {
		return nil, pagination.ListError(err, "list orders")
	}
	page := pagination.BuildPage(rows, params.Limit, orderCursor)
	return &page, nil
}

func (s *service) ListReported(ctx context.Context, params pagination.Params) (*pagination.Page[models.Order], error) {
	rows, err := s.repo.ListReported(ctx, params)
	if err != nil {
		return nil, pagination.ListError(err, "list reported orders")
	}
	page := pagination.BuildPage(rows, params.Limit, orderCursor)
	return &page, nil
}

func (s *service) CompletedOrderStats(ctx context.Context, from, to time.Time) ([]AgentSales, error) {
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "window start must precede its end")
	}
	rows, err := s.repo.CompletedStats(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate completed orders")
	}
	for i := range rows {
		rows[i].Revenue = rows[i].Revenue.Round(2)
	}
	return rows, nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) emitChanges(ctx context.Context, order *models.Order, actor Actor, changes []statusChange) {
	for _, change := range changes {
		s.sink.Notify(ctx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data:          payloadStatusChanged(order, change),
		})
	}
}

func (s *service) logEntityFailure(ctx context.Context, orderID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "order_id", orderID.String()), msg, err)
}

func lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.Lock(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}

// markPaid flips payment to paid and advances a draft to pending, or on to
// confirmed for bulk orders.
func markPaid(order *models.Order, now time.Time) (map[string]any, []statusChange, error) {
	updates := map[string]any{}
	var changes []statusChange

	targets := []enums.OrderStatus{enums.OrderStatusPending}
	if order.Type == enums.OrderTypeBulk {
		targets = append(targets, enums.OrderStatusConfirmed)
	}
	for _, target := range targets {
		from := order.Status
		step, err := Transition(order, target, now)
		if err != nil {
			return nil, nil, err
		}
		for k, v := range step {
			updates[k] = v
		}
		changes = append(changes, statusChange{from: from, to: target, reason: "payment received"})
	}
	order.PaymentStatus = enums.PaymentStatusPaid
	order.Notes = order.Notes.Append(now, "system", fmt.Sprintf("paid %s from wallet", order.Total.StringFixed(2)))
	updates["payment_status"] = enums.PaymentStatusPaid
	updates["notes"] = order.Notes
	return updates, changes, nil
}

func purchaseFor(order *models.Order) wallet.PostingInput {
	orderID := order.ID
	return wallet.PostingInput{
		OwnerID:        order.OwnerID,
		Amount:         order.Total,
		Type:           enums.WalletTxTypePurchase,
		Description:    fmt.Sprintf("Payment for order %s", order.OrderNumber),
		RelatedOrderID: &orderID,
	}
}

func validateCreate(input *CreateOrderInput, phoneRegion string) error {
	if input.OwnerID == uuid.Nil || input.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner and tenant are required")
	}
	if input.Type == "" {
		input.Type = enums.OrderTypeSingle
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order type %q", input.Type))
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if len(input.Items) > maxOrderItems {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order accepts at most %d items", maxOrderItems))
	}
	for i, item := range input.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.PackageRef) == "" || strings.TrimSpace(item.CustomerPhone) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+": package and customer phone are required")
		}
		phone, err := normalizePhone(item.CustomerPhone, phoneRegion)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, field+": invalid customer phone")
		}
		input.Items[i].CustomerPhone = phone
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, field+": quantity must be at least 1")
		}
		if !item.UnitPrice.IsPositive() || !item.UnitPrice.Equal(item.UnitPrice.Round(2)) {
			return pkgerrors.New(pkgerrors.CodeValidation, field+": unit price must be positive with at most two decimals")
		}
	}
	if input.Tax.IsNegative() || input.Discount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax and discount must not be negative")
	}
	if !input.Tax.Equal(input.Tax.Round(2)) || !input.Discount.Equal(input.Discount.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax and discount take at most two decimals")
	}
	subtotal := decimal.Zero
	for _, item := range input.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !subtotal.Add(input.Tax).Sub(input.Discount).IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount leaves nothing to charge")
	}
	return nil
}

func buildOrder(input CreateOrderInput, now time.Time) *models.Order {
	orderID := uuid.New()
	items := make([]models.OrderItem, 0, len(input.Items))
	subtotal := decimal.Zero
	for i, in := range input.Items {
		lineTotal := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			ID:               uuid.New(),
			OrderID:          orderID,
			PackageRef:       strings.TrimSpace(in.PackageRef),
			Quantity:         in.Quantity,
			UnitPrice:        in.UnitPrice,
			TotalPrice:       lineTotal,
			CustomerPhone:    strings.TrimSpace(in.CustomerPhone),
			ProcessingStatus: enums.ItemStatusPending,
			CreatedAt:        now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt:        now,
		})
	}
	return &models.Order{
		ID:              orderID,
		OrderNumber:     orderNumber(orderID, now),
		Type:            input.Type,
		Subtotal:        subtotal,
		Tax:             input.Tax,
		Discount:        input.Discount,
		Total:           subtotal.Add(input.Tax).Sub(input.Discount),
		Status:          enums.OrderStatusDraft,
		PaymentStatus:   enums.PaymentStatusPending,
		ReceptionStatus: enums.ReceptionStatusReceived,
		RefundedAmount:  decimal.Zero,
		Notes:           types.Notes{}.Append(now, input.OwnerID.String(), "order placed"),
		OwnerID:         input.OwnerID,
		TenantID:        input.TenantID,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           items,
	}
}

func orderNumber(id uuid.UUID, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("DV-%s-%s", now.Format("20060102"), suffix)
}

func orderCursor(order models.Order) pagination.Cursor {
	return pagination.Cursor{CreatedAt: order.CreatedAt, ID: order.ID}
}

func noteFor(change statusChange) string {
	msg := fmt.Sprintf("status %s -> %s", change.from, change.to)
	if change.reason != "" {
		msg += ": " + change.reason
	}
	return msg
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return outbox.SystemActor()
	}
	ref := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	if actor.TenantID != uuid.Nil {
		tenant := actor.TenantID
		ref.TenantID = &tenant
	}
	return ref
}

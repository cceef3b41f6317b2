package commissions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/internal/orders"
	"github.com/angelmondragon/datavend-backend/internal/wallet"
	"github.com/angelmondragon/datavend-backend/pkg/db"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
	"github.com/angelmondragon/datavend-backend/pkg/types"
)

const systemLabel = "system"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NotificationSink receives fire-and-forget domain events.
type NotificationSink interface {
	Notify(ctx context.Context, event outbox.DomainEvent)
}

// SalesSource reports completed order totals per agent over a window.
type SalesSource interface {
	CompletedOrderStats(ctx context.Context, from, to time.Time) ([]orders.AgentSales, error)
}

// RateProvider resolves commission rates and the expiry horizon.
type RateProvider interface {
	CommissionRate(tier enums.UserTier) decimal.Decimal
	CommissionExpiryDays() int
}

// SummaryExporter ships archived summaries to the reporting warehouse.
type SummaryExporter interface {
	ExportSummaries(ctx context.Context, summaries []models.CommissionMonthlySummary) error
}

// PayoutLedger credits commission payouts to agent wallets.
type PayoutLedger interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input wallet.PostingInput) (*models.WalletTransaction, error)
	Committed(ctx context.Context, txns ...*models.WalletTransaction)
	RetryConflicts(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service runs the commission lifecycle: accrual, finalization, archival,
// payment and expiry.
type Service interface {
	AccrueDaily(ctx context.Context, day time.Time) (*AccrualResult, error)
	FinalizeMonth(ctx context.Context, month time.Time) (*FinalizeResult, error)
	ArchiveMonth(ctx context.Context, month time.Time) (*ArchiveResult, error)
	ExpireStale(ctx context.Context, now time.Time) (*ExpiryResult, error)
	Pay(ctx context.Context, input PayInput) (*models.CommissionRecord, error)
	Reject(ctx context.Context, recordID, rejectedBy uuid.UUID, reason string) (*models.CommissionRecord, error)
	Cancel(ctx context.Context, recordID, cancelledBy uuid.UUID, reason string) (*models.CommissionRecord, error)
	Reinstate(ctx context.Context, recordID, actorID uuid.UUID) (*models.CommissionRecord, error)
	Get(ctx context.Context, recordID uuid.UUID) (*models.CommissionRecord, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID, params pagination.Params, filters RecordFilters) (*pagination.Page[models.CommissionRecord], error)
	CurrentStatement(ctx context.Context, agentID uuid.UUID, now time.Time) (*Statement, error)
	ListSummaries(ctx context.Context, agentID uuid.UUID, year int) ([]models.CommissionMonthlySummary, error)
}

// ServiceParams groups the commission service dependencies.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Sales      SalesSource
	Rates      RateProvider
	Exporter   SummaryExporter
	Payouts    PayoutLedger
	Sink       NotificationSink
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	sales    SalesSource
	rates    RateProvider
	exporter SummaryExporter
	payouts  PayoutLedger
	sink     NotificationSink
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the commission service. Exporter and Payouts are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("sales source required")
	}
	if params.Rates == nil {
		return nil, fmt.Errorf("rate provider required")
	}
	sink := params.Sink
	if sink == nil {
		sink = outbox.Discard{}
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		sales:    params.Sales,
		rates:    params.Rates,
		exporter: params.Exporter,
		payouts:  params.Payouts,
		sink:     sink,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// AccrueDaily writes one pending daily record per agent with completed sales
// on the given day. Reruns update open records in place.
func (s *service) AccrueDaily(ctx context.Context, day time.Time) (*AccrualResult, error) {
	start := dayStart(day)
	result := &AccrualResult{Day: start}

	sales, err := s.sales.CompletedOrderStats(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return result, err
	}
	result.Agents = len(sales)
	if len(sales) == 0 {
		return result, nil
	}

	agentIDs := make([]uuid.UUID, 0, len(sales))
	for _, row := range sales {
		agentIDs = append(agentIDs, row.AgentID)
	}
	tiers, err := s.repo.AgentTiers(ctx, agentIDs)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent tiers")
	}

	var errs error
	for _, row := range sales {
		record, outcome, err := s.accrueAgent(ctx, row, tiers[row.AgentID], start)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("agent %s: %w", row.AgentID, err))
			s.logError(ctx, map[string]any{"agent_id": row.AgentID.String(), "day": start.Format(time.DateOnly)}, "daily accrual failed", err)
			continue
		}
		switch outcome {
		case accrualSkipped:
			result.Skipped++
		case accrualUnchanged:
			result.Unchanged++
		default:
			result.Written++
			s.notify(ctx, enums.EventCommissionAccrued, record, outbox.SystemActor(), "")
		}
	}
	return result, errs
}

type accrualOutcome int

const (
	accrualWritten accrualOutcome = iota
	accrualUnchanged
	accrualSkipped
)

func (s *service) accrueAgent(ctx context.Context, row orders.AgentSales, tier enums.UserTier, start time.Time) (*models.CommissionRecord, accrualOutcome, error) {
	rate := s.rates.CommissionRate(tier)
	amount := row.Revenue.Mul(rate).Round(2)

	var (
		record  *models.CommissionRecord
		outcome accrualOutcome
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()

		existing, err := repo.FindByPeriod(ctx, row.AgentID, enums.CommissionPeriodDaily, start)
		if err != nil && !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load daily record")
		}
		if existing == nil {
			record = &models.CommissionRecord{
				ID:             uuid.New(),
				AgentID:        row.AgentID,
				TenantID:       row.TenantID,
				Period:         enums.CommissionPeriodDaily,
				PeriodStart:    start,
				PeriodEnd:      start,
				TotalOrders:    row.Orders,
				TotalRevenue:   row.Revenue,
				CommissionRate: rate,
				Amount:         amount,
				Status:         enums.CommissionStatusPending,
				Notes:          types.Notes{}.Append(now, systemLabel, "accrued from completed orders"),
			}
			// A concurrent run may have inserted the same day since the lookup.
			written, err := repo.UpsertDaily(ctx, record)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create daily record")
			}
			outcome = accrualWritten
			if !written {
				outcome = accrualSkipped
			}
			return nil
		}

		record = existing
		if existing.Status != enums.CommissionStatusPending || existing.IsFinal {
			outcome = accrualSkipped
			return nil
		}
		if existing.TotalOrders == row.Orders &&
			existing.TotalRevenue.Equal(row.Revenue) &&
			existing.CommissionRate.Equal(rate) &&
			existing.Amount.Equal(amount) {
			outcome = accrualUnchanged
			return nil
		}

		existing.TenantID = row.TenantID
		existing.TotalOrders = row.Orders
		existing.TotalRevenue = row.Revenue
		existing.CommissionRate = rate
		existing.Amount = amount
		existing.Notes = existing.Notes.Append(now, systemLabel, fmt.Sprintf("recalculated to %s", amount.StringFixed(2)))
		if err := repo.Update(ctx, existing.ID, map[string]any{
			"tenant_id":       row.TenantID,
			"total_orders":    row.Orders,
			"total_revenue":   row.Revenue,
			"commission_rate": rate,
			"amount":          amount,
			"notes":           existing.Notes,
			"updated_at":      now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update daily record")
		}
		outcome = accrualWritten
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return record, outcome, nil
}

// FinalizeMonth freezes every open record of a closed month and writes the
// payable monthly record per agent. Statuses are left as they are.
func (s *service) FinalizeMonth(ctx context.Context, month time.Time) (*FinalizeResult, error) {
	start := monthStart(month)
	end := start.AddDate(0, 1, 0)
	result := &FinalizeResult{MonthStart: start}
	if err := s.requireClosed(end); err != nil {
		return result, err
	}

	daily, err := s.repo.ListForMonth(ctx, enums.CommissionPeriodDaily, start, end)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load daily records")
	}

	now := s.now()
	var errs error
	for _, totals := range rollup(daily) {
		if !totals.pending.IsPositive() {
			continue
		}
		record := monthlyRecord(totals, start, now)
		created, err := s.repo.InsertMonthlyIfAbsent(ctx, record)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("agent %s: %w", totals.agentID, err))
			s.logError(ctx, map[string]any{"agent_id": totals.agentID.String(), "month": start.Format("2006-01")}, "monthly record failed", err)
			continue
		}
		if created {
			result.MonthlyCreated++
			s.notify(ctx, enums.EventCommissionAccrued, record, outbox.SystemActor(), "")
		}
	}

	finalized, err := s.repo.FinalizeRange(ctx, start, end, now)
	if err != nil {
		return result, multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize month"))
	}
	result.Finalized = finalized
	return result, errs
}

func monthlyRecord(totals periodTotals, start, now time.Time) *models.CommissionRecord {
	rate := decimal.Zero
	if totals.revenue.IsPositive() {
		rate = totals.pending.Div(totals.revenue).Round(4)
	}
	finalizedAt := now
	return &models.CommissionRecord{
		ID:             uuid.New(),
		AgentID:        totals.agentID,
		TenantID:       totals.tenantID,
		Period:         enums.CommissionPeriodMonthly,
		PeriodStart:    start,
		PeriodEnd:      start.AddDate(0, 1, -1),
		TotalOrders:    totals.orders,
		TotalRevenue:   totals.revenue,
		CommissionRate: rate,
		Amount:         totals.pending,
		Status:         enums.CommissionStatusPending,
		IsFinal:        true,
		FinalizedAt:    &finalizedAt,
		Notes: types.Notes{}.Append(now, systemLabel,
			fmt.Sprintf("finalized from %d daily records", totals.records)),
	}
}

// ArchiveMonth rolls a closed month into per-agent summaries and drops the
// month's daily records. The month is finalized first so every pending daily
// amount has a payable monthly record before its daily rows are removed.
// Monthly records stay until they are paid or expire.
func (s *service) ArchiveMonth(ctx context.Context, month time.Time) (*ArchiveResult, error) {
	start := monthStart(month)
	end := start.AddDate(0, 1, 0)
	result := &ArchiveResult{MonthStart: start}
	if err := s.requireClosed(end); err != nil {
		return result, err
	}

	finalized, err := s.FinalizeMonth(ctx, start)
	if finalized != nil {
		result.MonthlyCreated = finalized.MonthlyCreated
	}
	if err != nil {
		return result, fmt.Errorf("finalize before archive: %w", err)
	}

	monthly, err := s.repo.ListForMonth(ctx, enums.CommissionPeriodMonthly, start, end)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load monthly records")
	}
	daily, err := s.repo.ListForMonth(ctx, enums.CommissionPeriodDaily, start, end)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load daily records")
	}

	now := s.now()
	var (
		errs    error
		written []models.CommissionMonthlySummary
	)
	totals, unsettled := archiveTotals(monthly, daily)
	for _, agentID := range unsettled {
		result.Failed++
		errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("agent %s has pending daily commission without a monthly record", agentID)))
		s.logWarn(ctx, map[string]any{"agent_id": agentID.String(), "month": start.Format("2006-01")}, "daily records kept: no monthly record")
	}
	for _, t := range totals {
		summary := buildSummary(t, start, now)
		if err := s.repo.UpsertSummary(ctx, &summary); err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("agent %s: %w", t.agentID, err))
			s.logError(ctx, map[string]any{"agent_id": t.agentID.String(), "month": start.Format("2006-01")}, "summary upsert failed", err)
			continue
		}
		written = append(written, summary)
	}
	result.Summaries = len(written)

	if errs != nil {
		return result, errs
	}

	removed, err := s.repo.DeleteDaily(ctx, start, end)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove archived daily records")
	}
	result.DailyRemoved = removed

	if s.exporter != nil && len(written) > 0 {
		if err := s.exporter.ExportSummaries(ctx, written); err != nil {
			s.logWarn(ctx, map[string]any{"month": start.Format("2006-01")}, "summary export failed: "+err.Error())
		} else {
			result.Exported = true
		}
	}
	return result, nil
}

// archiveTotals prefers an agent's monthly record. Agents with daily records
// only are summarised from those when nothing in them is still pending; the
// rest are returned as unsettled so their daily rows are kept.
func archiveTotals(monthly, daily []models.CommissionRecord) ([]periodTotals, []uuid.UUID) {
	out := rollup(monthly)
	dailyCounts := map[uuid.UUID]int64{}
	for _, r := range daily {
		dailyCounts[r.AgentID]++
	}
	seen := make(map[uuid.UUID]struct{}, len(out))
	for i := range out {
		seen[out[i].agentID] = struct{}{}
		out[i].records += dailyCounts[out[i].agentID]
	}
	var unsettled []uuid.UUID
	for _, totals := range rollup(daily) {
		if _, ok := seen[totals.agentID]; ok {
			continue
		}
		if totals.pending.IsPositive() {
			unsettled = append(unsettled, totals.agentID)
			continue
		}
		out = append(out, totals)
	}
	return out, unsettled
}

func buildSummary(totals periodTotals, start, now time.Time) models.CommissionMonthlySummary {
	return models.CommissionMonthlySummary{
		ID:            uuid.New(),
		AgentID:       totals.agentID,
		TenantID:      totals.tenantID,
		Year:          start.Year(),
		Month:         int(start.Month()),
		TotalOrders:   totals.orders,
		TotalRevenue:  totals.revenue,
		TotalEarned:   totals.paid.Add(totals.pending).Add(totals.expired),
		TotalPaid:     totals.paid,
		TotalPending:  totals.pending,
		TotalExpired:  totals.expired,
		PaymentStatus: summaryStatus(totals),
		RecordCount:   totals.records,
		ArchivedAt:    now,
	}
}

func summaryStatus(t periodTotals) enums.SummaryPaymentStatus {
	switch {
	case t.pending.IsPositive() && t.paid.IsPositive():
		return enums.SummaryPaymentPartiallyPaid
	case t.pending.IsPositive():
		return enums.SummaryPaymentUnpaid
	case t.expired.IsPositive() && t.paid.IsPositive():
		return enums.SummaryPaymentPartiallyPaid
	case t.expired.IsPositive():
		return enums.SummaryPaymentExpired
	default:
		return enums.SummaryPaymentPaid
	}
}

// rollup sums records per agent in first-seen order. Rejected and cancelled
// amounts count toward orders and revenue but not toward earnings.
func rollup(records []models.CommissionRecord) []periodTotals {
	index := map[uuid.UUID]int{}
	var out []periodTotals
	for _, r := range records {
		i, ok := index[r.AgentID]
		if !ok {
			i = len(out)
			index[r.AgentID] = i
			out = append(out, periodTotals{
				agentID:  r.AgentID,
				tenantID: r.TenantID,
				revenue:  decimal.Zero,
				amount:   decimal.Zero,
				paid:     decimal.Zero,
				pending:  decimal.Zero,
				expired:  decimal.Zero,
			})
		}
		t := &out[i]
		t.orders += r.TotalOrders
		t.revenue = t.revenue.Add(r.TotalRevenue)
		t.amount = t.amount.Add(r.Amount)
		t.records++
		switch r.Status {
		case enums.CommissionStatusPaid:
			t.paid = t.paid.Add(r.Amount)
		case enums.CommissionStatusPending:
			t.pending = t.pending.Add(r.Amount)
		case enums.CommissionStatusExpired:
			t.expired = t.expired.Add(r.Amount)
		}
	}
	return out
}

// ExpireStale expires pending monthly records left unpaid past the horizon.
func (s *service) ExpireStale(ctx context.Context, now time.Time) (*ExpiryResult, error) {
	days := s.rates.CommissionExpiryDays()
	cutoff := dayStart(now).AddDate(0, 0, -days)
	result := &ExpiryResult{Cutoff: cutoff}

	candidates, err := s.repo.ListStaleMonthly(ctx, cutoff)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale commissions")
	}

	var errs error
	for _, candidate := range candidates {
		record, err := s.expireOne(ctx, candidate.ID, cutoff, days, now)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("record %s: %w", candidate.ID, err))
			s.logError(ctx, map[string]any{"commission_id": candidate.ID.String()}, "commission expiry failed", err)
			continue
		}
		if record == nil {
			continue
		}
		result.Expired++
		s.notify(ctx, enums.EventCommissionExpired, record, outbox.SystemActor(), "")
	}
	return result, errs
}

func (s *service) expireOne(ctx context.Context, recordID uuid.UUID, cutoff time.Time, days int, now time.Time) (*models.CommissionRecord, error) {
	var record *models.CommissionRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := lockRecord(ctx, repo, recordID)
		if err != nil {
			return err
		}
		if locked.Status != enums.CommissionStatusPending || !locked.PeriodEnd.Before(cutoff) {
			return nil
		}
		if _, err := Transition(locked, enums.CommissionStatusExpired); err != nil {
			return err
		}
		locked.Notes = locked.Notes.Append(now, systemLabel,
			fmt.Sprintf("expired: %s left unpaid more than %d days after %s",
				locked.Amount.StringFixed(2), days, locked.PeriodEnd.Format(time.DateOnly)))
		if err := repo.Update(ctx, locked.ID, map[string]any{
			"status":     locked.Status,
			"notes":      locked.Notes,
			"updated_at": now.UTC(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire commission")
		}
		if err := s.refreshSummary(ctx, repo, locked); err != nil {
			return err
		}
		record = locked
		return nil
	})
	return record, err
}

func (s *service) Pay(ctx context.Context, input PayInput) (*models.CommissionRecord, error) {
	if input.RecordID == uuid.Nil || input.PaidBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id and payer are required")
	}
	reference := strings.TrimSpace(input.Reference)
	if !input.CreditWallet && reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if input.CreditWallet && s.payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet payouts are not configured")
	}

	var (
		record *models.CommissionRecord
		credit *models.WalletTransaction
	)
	run := func(ctx context.Context) error {
		credit = nil
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			locked, err := lockRecord(ctx, repo, input.RecordID)
			if err != nil {
				return err
			}
			if locked.Period != enums.CommissionPeriodMonthly {
				return pkgerrors.New(pkgerrors.CodeValidation, "only monthly commission records are payable")
			}
			if _, err := Transition(locked, enums.CommissionStatusPaid); err != nil {
				return err
			}

			now := s.now()
			ref := reference
			if input.CreditWallet {
				payer := input.PaidBy
				credit, err = s.payouts.CreditTx(ctx, tx, wallet.PostingInput{
					OwnerID:     locked.AgentID,
					Amount:      locked.Amount,
					Type:        enums.WalletTxTypeCommissionPayout,
					Description: fmt.Sprintf("Commission for %s", locked.PeriodStart.Format("January 2006")),
					ApproverID:  &payer,
					Metadata:    types.JSONMap{"commission_record_id": locked.ID.String()},
				})
				if err != nil {
					return err
				}
				if ref == "" {
					ref = credit.ID.String()
				}
			}

			paidBy := input.PaidBy
			locked.PaidAt = &now
			locked.PaidBy = &paidBy
			locked.PaymentReference = &ref
			locked.Notes = locked.Notes.Append(now, paidBy.String(), "paid, reference "+ref)
			if err := repo.Update(ctx, locked.ID, map[string]any{
				"status":            locked.Status,
				"paid_at":           now,
				"paid_by":           paidBy,
				"payment_reference": ref,
				"notes":             locked.Notes,
				"updated_at":        now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record commission payment")
			}
			if err := s.refreshSummary(ctx, repo, locked); err != nil {
				return err
			}
			record = locked
			return nil
		})
	}

	var err error
	if input.CreditWallet {
		err = s.payouts.RetryConflicts(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, err
	}
	if credit != nil {
		s.payouts.Committed(ctx, credit)
	}
	s.notify(ctx, enums.EventCommissionPaid, record, adminActor(input.PaidBy), "")
	return record, nil
}

func (s *service) Reject(ctx context.Context, recordID, rejectedBy uuid.UUID, reason string) (*models.CommissionRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	record, err := s.review(ctx, recordID, enums.CommissionStatusRejected, func(record *models.CommissionRecord, now time.Time) map[string]any {
		record.RejectedAt = &now
		record.RejectedBy = &rejectedBy
		record.RejectionReason = &reason
		record.Notes = record.Notes.Append(now, rejectedBy.String(), "rejected: "+reason)
		return map[string]any{
			"rejected_at":      now,
			"rejected_by":      rejectedBy,
			"rejection_reason": reason,
		}
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, enums.EventCommissionRejected, record, adminActor(rejectedBy), reason)
	return record, nil
}

func (s *service) Cancel(ctx context.Context, recordID, cancelledBy uuid.UUID, reason string) (*models.CommissionRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by administrator"
	}
	return s.review(ctx, recordID, enums.CommissionStatusCancelled, func(record *models.CommissionRecord, now time.Time) map[string]any {
		record.Notes = record.Notes.Append(now, cancelledBy.String(), "cancelled: "+reason)
		return map[string]any{}
	})
}

func (s *service) Reinstate(ctx context.Context, recordID, actorID uuid.UUID) (*models.CommissionRecord, error) {
	return s.review(ctx, recordID, enums.CommissionStatusPending, func(record *models.CommissionRecord, now time.Time) map[string]any {
		record.Notes = record.Notes.Append(now, actorID.String(), "reinstated")
		return map[string]any{}
	})
}

// review locks a record, applies the transition and the caller's stamps, and
// keeps any archived summary in step.
func (s *service) review(ctx context.Context, recordID uuid.UUID, to enums.CommissionStatus, stamp func(*models.CommissionRecord, time.Time) map[string]any) (*models.CommissionRecord, error) {
	var record *models.CommissionRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := lockRecord(ctx, repo, recordID)
		if err != nil {
			return err
		}
		// A finalized day is settled through its month's monthly record.
		if locked.Period == enums.CommissionPeriodDaily && locked.IsFinal {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "daily record is finalized; review the monthly record instead")
		}
		updates, err := Transition(locked, to)
		if err != nil {
			return err
		}
		now := s.now()
		for k, v := range stamp(locked, now) {
			updates[k] = v
		}
		updates["notes"] = locked.Notes
		updates["updated_at"] = now
		if err := repo.Update(ctx, locked.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission status")
		}
		if err := s.refreshSummary(ctx, repo, locked); err != nil {
			return err
		}
		record = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// refreshSummary recomputes an archived month's payment columns after its
// monthly record changes status.
func (s *service) refreshSummary(ctx context.Context, repo Repository, record *models.CommissionRecord) error {
	if record.Period != enums.CommissionPeriodMonthly {
		return nil
	}
	summary, err := repo.FindSummary(ctx, record.AgentID, record.PeriodStart.Year(), int(record.PeriodStart.Month()))
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission summary")
	}
	totals := rollup([]models.CommissionRecord{*record})[0]
	refreshed := buildSummary(totals, record.PeriodStart, summary.ArchivedAt)
	refreshed.ID = summary.ID
	refreshed.RecordCount = summary.RecordCount
	if err := repo.UpsertSummary(ctx, &refreshed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh commission summary")
	}
	return nil
}

func (s *service) Get(ctx context.Context, recordID uuid.UUID) (*models.CommissionRecord, error) {
	record, err := s.repo.Find(ctx, recordID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commission record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission record")
	}
	return record, nil
}

func (s *service) ListForAgent(ctx context.Context, agentID uuid.UUID, params pagination.Params, filters RecordFilters) (*pagination.Page[models.CommissionRecord], error) {
	rows, err := s.repo.ListForAgent(ctx, agentID, params, filters)
	if err != nil {
		return nil, pagination.ListError(err, "list commission records")
	}
	page := pagination.BuildPage(rows, params.Limit, recordCursor)
	return &page, nil
}

// CurrentStatement separates this month's accruing daily records from
// earlier monthly records still waiting for payment.
func (s *service) CurrentStatement(ctx context.Context, agentID uuid.UUID, now time.Time) (*Statement, error) {
	start := monthStart(now)
	daily, err := s.repo.ListAgentRange(ctx, agentID, enums.CommissionPeriodDaily, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accruing records")
	}
	awaiting, err := s.repo.ListPendingMonthly(ctx, agentID, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending records")
	}

	statement := &Statement{
		AgentID:         agentID,
		MonthStart:      start,
		AccruingRevenue: decimal.Zero,
		AccruingAmount:  decimal.Zero,
		Accruing:        []models.CommissionRecord{},
		AwaitingPayment: awaiting,
		AwaitingTotal:   decimal.Zero,
	}
	for _, r := range daily {
		if r.Status != enums.CommissionStatusPending || r.IsFinal {
			continue
		}
		statement.Accruing = append(statement.Accruing, r)
		statement.AccruingOrders += r.TotalOrders
		statement.AccruingRevenue = statement.AccruingRevenue.Add(r.TotalRevenue)
		statement.AccruingAmount = statement.AccruingAmount.Add(r.Amount)
	}
	if statement.AwaitingPayment == nil {
		statement.AwaitingPayment = []models.CommissionRecord{}
	}
	for _, r := range awaiting {
		statement.AwaitingTotal = statement.AwaitingTotal.Add(r.Amount)
	}
	return statement, nil
}

func (s *service) ListSummaries(ctx context.Context, agentID uuid.UUID, year int) ([]models.CommissionMonthlySummary, error) {
	summaries, err := s.repo.ListSummaries(ctx, agentID, year)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission summaries")
	}
	return summaries, nil
}

func (s *service) requireClosed(monthEnd time.Time) error {
	if monthEnd.After(s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "month has not closed yet").
			WithDetails(map[string]any{"closes_at": monthEnd})
	}
	return nil
}

func (s *service) notify(ctx context.Context, eventType enums.OutboxEventType, record *models.CommissionRecord, actor *outbox.ActorRef, reason string) {
	if record == nil {
		return
	}
	s.sink.Notify(ctx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateCommissionRecord,
		AggregateID:   record.ID,
		Actor:         actor,
		Data:          payloadFor(record, reason),
	})
}

func (s *service) logError(ctx context.Context, fields map[string]any, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithFields(ctx, fields), msg, err)
}

func (s *service) logWarn(ctx context.Context, fields map[string]any, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}

func lockRecord(ctx context.Context, repo Repository, recordID uuid.UUID) (*models.CommissionRecord, error) {
	record, err := repo.Lock(ctx, recordID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commission record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock commission record")
	}
	return record, nil
}

func adminActor(userID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: string(enums.RoleAdmin)}
}

func recordCursor(record models.CommissionRecord) pagination.Cursor {
	return pagination.Cursor{CreatedAt: record.CreatedAt, ID: record.ID}
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

package commissions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/internal/orders"
	"github.com/angelmondragon/datavend-backend/internal/settings"
	"github.com/angelmondragon/datavend-backend/internal/wallet"
	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/db"
	"github.com/angelmondragon/datavend-backend/pkg/db/dbtest"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
	"github.com/angelmondragon/datavend-backend/pkg/types"
)

// stubSales serves completed order totals keyed by the window's start day.
type stubSales struct {
	mu   sync.Mutex
	rows map[string][]orders.AgentSales
}

func (s *stubSales) set(day time.Time, rows ...orders.AgentSales) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		s.rows = map[string][]orders.AgentSales{}
	}
	s.rows[day.Format(time.DateOnly)] = rows
}

func (s *stubSales) CompletedOrderStats(_ context.Context, from, _ time.Time) ([]orders.AgentSales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[from.Format(time.DateOnly)], nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingSink) Notify(_ context.Context, event outbox.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) count(eventType enums.OutboxEventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

type recordingExporter struct {
	batches [][]models.CommissionMonthlySummary
	err     error
}

func (r *recordingExporter) ExportSummaries(_ context.Context, summaries []models.CommissionMonthlySummary) error {
	r.batches = append(r.batches, summaries)
	return r.err
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	wallet   wallet.Service
	sales    *stubSales
	sink     *recordingSink
	exporter *recordingExporter
	tenant   uuid.UUID
}

var fixedNow = time.Date(2026, 4, 2, 6, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	now := func() time.Time { return fixedNow }
	provider, err := settings.New(settings.Values{
		Rates: map[enums.UserTier]decimal.Decimal{
			enums.UserTierSuperAgent: dec("0.03"),
		},
		DefaultRate: dec("0.02"),
		MinTopUp:    decimal.NewFromInt(10),
		ExpiryDays:  30,
	})
	require.NoError(t, err)

	sink := &recordingSink{}
	ws, err := wallet.NewService(wallet.ServiceParams{
		Repository: wallet.NewRepository(conn),
		Tx:         db.Wrap(conn),
		Settings:   provider,
		Sink:       sink,
		Config:     config.WalletConfig{ConflictRetries: 1, RetryBaseDelay: time.Millisecond},
		Now:        now,
	})
	require.NoError(t, err)

	sales := &stubSales{}
	exporter := &recordingExporter{}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         db.Wrap(conn),
		Sales:      sales,
		Rates:      provider,
		Exporter:   exporter,
		Payouts:    ws,
		Sink:       sink,
		Now:        now,
	})
	require.NoError(t, err)

	return &fixture{conn: conn, svc: svc, wallet: ws, sales: sales, sink: sink, exporter: exporter, tenant: uuid.New()}
}

func (f *fixture) seedAgent(t *testing.T, tier enums.UserTier) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.conn.Create(&models.User{
		ID:            id,
		TenantID:      f.tenant,
		Email:         id.String() + "@example.test",
		Name:          "Agent",
		Tier:          tier,
		WalletBalance: decimal.Zero,
	}).Error)
	return id
}

func (f *fixture) seedMonthly(t *testing.T, agentID uuid.UUID, month time.Time, amount string, status enums.CommissionStatus) *models.CommissionRecord {
	t.Helper()
	start := monthStart(month)
	finalized := start.AddDate(0, 1, 0)
	record := &models.CommissionRecord{
		ID:             uuid.New(),
		AgentID:        agentID,
		TenantID:       f.tenant,
		Period:         enums.CommissionPeriodMonthly,
		PeriodStart:    start,
		PeriodEnd:      start.AddDate(0, 1, -1),
		TotalOrders:    4,
		TotalRevenue:   dec("400.00"),
		CommissionRate: dec("0.02"),
		Amount:         dec(amount),
		Status:         status,
		IsFinal:        true,
		FinalizedAt:    &finalized,
		Notes:          types.Notes{},
	}
	require.NoError(t, f.conn.Create(record).Error)
	return record
}

func (f *fixture) records(t *testing.T, agentID uuid.UUID, period enums.CommissionPeriod) []models.CommissionRecord {
	t.Helper()
	var out []models.CommissionRecord
	require.NoError(t, f.conn.
		Where("agent_id = ? AND period = ?", agentID, period).
		Order("period_start ASC").
		Find(&out).Error)
	return out
}

func (f *fixture) reload(t *testing.T, recordID uuid.UUID) models.CommissionRecord {
	t.Helper()
	var record models.CommissionRecord
	require.NoError(t, f.conn.Where("id = ?", recordID).First(&record).Error)
	return record
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func sale(agentID, tenantID uuid.UUID, count int64, revenue string) orders.AgentSales {
	return orders.AgentSales{AgentID: agentID, TenantID: tenantID, Orders: count, Revenue: dec(revenue)}
}

var (
	march5 = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	march6 = time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
)

func TestAccrueDailyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierSuperAgent)
	f.sales.set(march5, sale(agent, f.tenant, 3, "100.00"))

	first, err := f.svc.AccrueDaily(ctx, march5.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Written)

	second, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 1, second.Unchanged)

	records := f.records(t, agent, enums.CommissionPeriodDaily)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(dec("3.00")))
	assert.True(t, records[0].CommissionRate.Equal(dec("0.03")))
	assert.Equal(t, int64(3), records[0].TotalOrders)
	assert.True(t, records[0].PeriodStart.Equal(march5))
	assert.True(t, records[0].PeriodEnd.Equal(march5))
	assert.Equal(t, enums.CommissionStatusPending, records[0].Status)
	assert.Equal(t, 1, f.sink.count(enums.EventCommissionAccrued))
}

func TestAccrueDailyUsesDefaultRateForUnlistedTier(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, enums.UserTierDealer)
	f.sales.set(march5, sale(agent, f.tenant, 1, "50.00"))

	_, err := f.svc.AccrueDaily(context.Background(), march5)
	require.NoError(t, err)

	records := f.records(t, agent, enums.CommissionPeriodDaily)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(dec("1.00")))
}

func TestAccrueDailyRecalculatesOpenRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	f.sales.set(march5, sale(agent, f.tenant, 1, "100.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)

	f.sales.set(march5, sale(agent, f.tenant, 2, "250.00"))
	result, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)

	records := f.records(t, agent, enums.CommissionPeriodDaily)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(dec("5.00")))
	assert.Equal(t, int64(2), records[0].TotalOrders)
	assert.Len(t, records[0].Notes, 2)
	assert.Equal(t, 2, f.sink.count(enums.EventCommissionAccrued))
}

func TestAccrueDailyLeavesFinalRecordsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	f.sales.set(march5, sale(agent, f.tenant, 1, "100.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	_, err = f.svc.FinalizeMonth(ctx, march5)
	require.NoError(t, err)

	f.sales.set(march5, sale(agent, f.tenant, 9, "900.00"))
	result, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)

	records := f.records(t, agent, enums.CommissionPeriodDaily)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(dec("2.00")))
}

func TestUpsertDailyAbsorbsDuplicateInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewRepository(f.conn)
	agent := f.seedAgent(t, enums.UserTierAgent)
	daily := func(revenue, amount string) *models.CommissionRecord {
		return &models.CommissionRecord{
			AgentID:        agent,
			TenantID:       f.tenant,
			Period:         enums.CommissionPeriodDaily,
			PeriodStart:    march5,
			PeriodEnd:      march5,
			TotalOrders:    1,
			TotalRevenue:   dec(revenue),
			CommissionRate: dec("0.02"),
			Amount:         dec(amount),
			Status:         enums.CommissionStatusPending,
			Notes:          types.Notes{},
		}
	}

	written, err := repo.UpsertDaily(ctx, daily("100.00", "2.00"))
	require.NoError(t, err)
	assert.True(t, written)
	written, err = repo.UpsertDaily(ctx, daily("150.00", "3.00"))
	require.NoError(t, err)
	assert.True(t, written)

	records := f.records(t, agent, enums.CommissionPeriodDaily)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(dec("3.00")))

	_, err = f.svc.FinalizeMonth(ctx, march5)
	require.NoError(t, err)
	written, err = repo.UpsertDaily(ctx, daily("900.00", "18.00"))
	require.NoError(t, err)
	assert.False(t, written)
	assert.True(t, f.reload(t, records[0].ID).Amount.Equal(dec("3.00")))
}

func TestFinalizeMonthFreezesRecordsAndWritesMonthly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierSuperAgent)
	f.sales.set(march5, sale(agent, f.tenant, 3, "100.00"))
	f.sales.set(march6, sale(agent, f.tenant, 2, "50.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	_, err = f.svc.AccrueDaily(ctx, march6)
	require.NoError(t, err)

	result, err := f.svc.FinalizeMonth(ctx, march6)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Finalized)
	assert.Equal(t, 1, result.MonthlyCreated)

	for _, r := range f.records(t, agent, enums.CommissionPeriodDaily) {
		assert.True(t, r.IsFinal)
		require.NotNil(t, r.FinalizedAt)
		assert.Equal(t, enums.CommissionStatusPending, r.Status)
	}

	monthly := f.records(t, agent, enums.CommissionPeriodMonthly)
	require.Len(t, monthly, 1)
	assert.True(t, monthly[0].Amount.Equal(dec("4.50")))
	assert.True(t, monthly[0].TotalRevenue.Equal(dec("150.00")))
	assert.Equal(t, int64(5), monthly[0].TotalOrders)
	assert.True(t, monthly[0].CommissionRate.Equal(dec("0.03")))
	assert.True(t, monthly[0].IsFinal)
	assert.True(t, monthly[0].PeriodEnd.Equal(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))

	again, err := f.svc.FinalizeMonth(ctx, march5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Finalized)
	assert.Equal(t, 0, again.MonthlyCreated)
	assert.Len(t, f.records(t, agent, enums.CommissionPeriodMonthly), 1)
}

func TestFinalizeMonthRejectsOpenMonth(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.FinalizeMonth(context.Background(), fixedNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestArchiveMonthRollsUpAndRemovesDailyRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierSuperAgent)
	f.sales.set(march5, sale(agent, f.tenant, 3, "100.00"))
	f.sales.set(march6, sale(agent, f.tenant, 2, "50.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	_, err = f.svc.AccrueDaily(ctx, march6)
	require.NoError(t, err)
	_, err = f.svc.FinalizeMonth(ctx, march5)
	require.NoError(t, err)

	result, err := f.svc.ArchiveMonth(ctx, march5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summaries)
	assert.Equal(t, int64(2), result.DailyRemoved)
	assert.True(t, result.Exported)
	require.Len(t, f.exporter.batches, 1)

	assert.Empty(t, f.records(t, agent, enums.CommissionPeriodDaily))
	assert.Len(t, f.records(t, agent, enums.CommissionPeriodMonthly), 1)

	summaries, err := f.svc.ListSummaries(ctx, agent, 2026)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, 3, s.Month)
	assert.True(t, s.TotalEarned.Equal(dec("4.50")))
	assert.True(t, s.TotalPending.Equal(dec("4.50")))
	assert.True(t, s.TotalPaid.IsZero())
	assert.Equal(t, enums.SummaryPaymentUnpaid, s.PaymentStatus)
	assert.Equal(t, int64(3), s.RecordCount)
	assert.Equal(t, int64(5), s.TotalOrders)

	rerun, err := f.svc.ArchiveMonth(ctx, march5)
	require.NoError(t, err)
	assert.Equal(t, 1, rerun.Summaries)
	summaries, err = f.svc.ListSummaries(ctx, agent, 2026)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestArchiveMonthFinalizesBeforeRemovingDailyRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	f.sales.set(march5, sale(agent, f.tenant, 1, "100.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)

	result, err := f.svc.ArchiveMonth(ctx, march5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MonthlyCreated)
	assert.Equal(t, 1, result.Summaries)
	assert.Equal(t, int64(1), result.DailyRemoved)
	assert.Empty(t, f.records(t, agent, enums.CommissionPeriodDaily))

	monthly := f.records(t, agent, enums.CommissionPeriodMonthly)
	require.Len(t, monthly, 1)
	assert.Equal(t, enums.CommissionStatusPending, monthly[0].Status)
	assert.True(t, monthly[0].Amount.Equal(dec("2.00")))

	summaries, err := f.svc.ListSummaries(ctx, agent, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].TotalEarned.Equal(dec("2.00")))
	assert.True(t, summaries[0].TotalPending.Equal(dec("2.00")))
	assert.Equal(t, enums.SummaryPaymentUnpaid, summaries[0].PaymentStatus)

	again, err := f.svc.FinalizeMonth(ctx, march5)
	require.NoError(t, err)
	assert.Zero(t, again.MonthlyCreated)
	assert.Len(t, f.records(t, agent, enums.CommissionPeriodMonthly), 1)

	paid, err := f.svc.Pay(ctx, PayInput{RecordID: monthly[0].ID, PaidBy: uuid.New(), Reference: "BANK-9"})
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusPaid, paid.Status)
}

func TestArchiveTotalsKeepsUnsettledDailyRecords(t *testing.T) {
	settled, pending, covered := uuid.New(), uuid.New(), uuid.New()
	daily := []models.CommissionRecord{
		{AgentID: settled, Amount: dec("1.00"), Status: enums.CommissionStatusCancelled},
		{AgentID: pending, Amount: dec("2.00"), Status: enums.CommissionStatusPending},
		{AgentID: covered, Amount: dec("3.00"), Status: enums.CommissionStatusPending},
	}
	monthly := []models.CommissionRecord{
		{AgentID: covered, Amount: dec("3.00"), Status: enums.CommissionStatusPending},
	}

	totals, unsettled := archiveTotals(monthly, daily)
	assert.Equal(t, []uuid.UUID{pending}, unsettled)
	require.Len(t, totals, 2)
	assert.Equal(t, covered, totals[0].agentID)
	assert.Equal(t, int64(2), totals[0].records)
	assert.Equal(t, settled, totals[1].agentID)
	assert.True(t, totals[1].pending.IsZero())
}

func TestArchiveExportFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	f.sales.set(march5, sale(agent, f.tenant, 1, "100.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	f.exporter.err = errors.New("warehouse unavailable")

	result, err := f.svc.ArchiveMonth(ctx, march5)
	require.NoError(t, err)
	assert.False(t, result.Exported)
	assert.Equal(t, 1, result.Summaries)
}

func TestArchiveMonthRejectsOpenMonth(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ArchiveMonth(context.Background(), fixedNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestExpireStaleExpiresOldPendingMonthlyRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	january := f.seedMonthly(t, agent, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "12.00", enums.CommissionStatusPending)
	paidJanuary := f.seedMonthly(t, f.seedAgent(t, enums.UserTierAgent), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "8.00", enums.CommissionStatusPaid)
	march := f.seedMonthly(t, agent, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "5.00", enums.CommissionStatusPending)

	result, err := f.svc.ExpireStale(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.True(t, result.Cutoff.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))

	expired := f.reload(t, january.ID)
	assert.Equal(t, enums.CommissionStatusExpired, expired.Status)
	note, ok := expired.Notes.Last()
	require.True(t, ok)
	assert.Contains(t, note.Message, "expired")
	assert.Equal(t, enums.CommissionStatusPaid, f.reload(t, paidJanuary.ID).Status)
	assert.Equal(t, enums.CommissionStatusPending, f.reload(t, march.ID).Status)
	assert.Equal(t, 1, f.sink.count(enums.EventCommissionExpired))

	again, err := f.svc.ExpireStale(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Expired)
}

func TestPayCreditsAgentWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	record := f.seedMonthly(t, agent, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "12.50", enums.CommissionStatusPending)
	admin := uuid.New()

	paid, err := f.svc.Pay(ctx, PayInput{RecordID: record.ID, PaidBy: admin, CreditWallet: true})
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentReference)
	require.NotNil(t, paid.PaidBy)
	assert.Equal(t, admin, *paid.PaidBy)

	view, err := f.wallet.Balance(ctx, agent)
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(dec("12.50")))

	var payout models.WalletTransaction
	require.NoError(t, f.conn.Where("owner_id = ? AND type = ?", agent, enums.WalletTxTypeCommissionPayout).First(&payout).Error)
	assert.Equal(t, payout.ID.String(), *paid.PaymentReference)

	_, err = f.svc.Pay(ctx, PayInput{RecordID: record.ID, PaidBy: admin, CreditWallet: true})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	view, err = f.wallet.Balance(ctx, agent)
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(dec("12.50")))
	assert.Equal(t, 1, f.sink.count(enums.EventCommissionPaid))
}

func TestPayValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	f.sales.set(march5, sale(agent, f.tenant, 1, "100.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	daily := f.records(t, agent, enums.CommissionPeriodDaily)[0]
	monthly := f.seedMonthly(t, agent, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "3.00", enums.CommissionStatusPending)

	_, err = f.svc.Pay(ctx, PayInput{RecordID: monthly.ID, PaidBy: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "reference required")

	_, err = f.svc.Pay(ctx, PayInput{RecordID: daily.ID, PaidBy: uuid.New(), Reference: "BANK-1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "daily records are not payable")

	_, err = f.svc.Pay(ctx, PayInput{RecordID: uuid.New(), PaidBy: uuid.New(), Reference: "BANK-1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPayRefreshesArchivedSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierSuperAgent)
	f.sales.set(march5, sale(agent, f.tenant, 3, "100.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	_, err = f.svc.FinalizeMonth(ctx, march5)
	require.NoError(t, err)
	_, err = f.svc.ArchiveMonth(ctx, march5)
	require.NoError(t, err)

	monthly := f.records(t, agent, enums.CommissionPeriodMonthly)[0]
	_, err = f.svc.Pay(ctx, PayInput{RecordID: monthly.ID, PaidBy: uuid.New(), Reference: "BANK-7"})
	require.NoError(t, err)

	summaries, err := f.svc.ListSummaries(ctx, agent, 2026)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, enums.SummaryPaymentPaid, summaries[0].PaymentStatus)
	assert.True(t, summaries[0].TotalPaid.Equal(dec("3.00")))
	assert.True(t, summaries[0].TotalPending.IsZero())
	assert.Equal(t, int64(2), summaries[0].RecordCount)
}

func TestRejectCancelAndReinstate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	record := f.seedMonthly(t, agent, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "7.00", enums.CommissionStatusPending)
	admin := uuid.New()

	_, err := f.svc.Reject(ctx, record.ID, admin, "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	cancelled, err := f.svc.Cancel(ctx, record.ID, admin, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusCancelled, cancelled.Status)

	_, err = f.svc.Reject(ctx, record.ID, admin, "fraud")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	reinstated, err := f.svc.Reinstate(ctx, record.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusPending, reinstated.Status)

	rejected, err := f.svc.Reject(ctx, record.ID, admin, "fraud")
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusRejected, rejected.Status)

	stored := f.reload(t, record.ID)
	require.NotNil(t, stored.RejectionReason)
	assert.Equal(t, "fraud", *stored.RejectionReason)
	require.NotNil(t, stored.RejectedBy)
	assert.Equal(t, admin, *stored.RejectedBy)
	assert.Len(t, stored.Notes, 3)

	_, err = f.svc.Reinstate(ctx, record.ID, admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.Equal(t, 1, f.sink.count(enums.EventCommissionRejected))
}

func TestFinalizedDailyRecordsCannotBeReviewed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	admin := uuid.New()
	f.sales.set(march5, sale(agent, f.tenant, 1, "100.00"))
	f.sales.set(march6, sale(agent, f.tenant, 1, "50.00"))
	_, err := f.svc.AccrueDaily(ctx, march5)
	require.NoError(t, err)
	_, err = f.svc.AccrueDaily(ctx, march6)
	require.NoError(t, err)

	daily := f.records(t, agent, enums.CommissionPeriodDaily)
	require.Len(t, daily, 2)
	_, err = f.svc.Cancel(ctx, daily[0].ID, admin, "duplicate sale")
	require.NoError(t, err)

	_, err = f.svc.FinalizeMonth(ctx, march5)
	require.NoError(t, err)
	monthly := f.records(t, agent, enums.CommissionPeriodMonthly)
	require.Len(t, monthly, 1)
	assert.True(t, monthly[0].Amount.Equal(dec("1.00")))

	_, err = f.svc.Reinstate(ctx, daily[0].ID, admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	_, err = f.svc.Cancel(ctx, daily[1].ID, admin, "late")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	assert.Equal(t, enums.CommissionStatusCancelled, f.reload(t, daily[0].ID).Status)
	assert.Equal(t, enums.CommissionStatusPending, f.reload(t, daily[1].ID).Status)
	assert.True(t, f.reload(t, monthly[0].ID).Amount.Equal(dec("1.00")))
}

func TestCurrentStatementSplitsAccruingAndAwaiting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	april1 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	f.sales.set(april1, sale(agent, f.tenant, 2, "150.00"))
	_, err := f.svc.AccrueDaily(ctx, april1)
	require.NoError(t, err)
	f.seedMonthly(t, agent, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "4.00", enums.CommissionStatusPending)
	f.seedMonthly(t, agent, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "6.00", enums.CommissionStatusPending)
	f.seedMonthly(t, agent, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "9.00", enums.CommissionStatusPaid)

	statement, err := f.svc.CurrentStatement(ctx, agent, fixedNow)
	require.NoError(t, err)
	assert.True(t, statement.MonthStart.Equal(april1))
	assert.Len(t, statement.Accruing, 1)
	assert.Equal(t, int64(2), statement.AccruingOrders)
	assert.True(t, statement.AccruingAmount.Equal(dec("3.00")))
	assert.Len(t, statement.AwaitingPayment, 2)
	assert.True(t, statement.AwaitingTotal.Equal(dec("10.00")))
}

func TestListForAgentPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, enums.UserTierAgent)
	for m := 1; m <= 3; m++ {
		f.seedMonthly(t, agent, time.Date(2025, time.Month(m), 1, 0, 0, 0, 0, time.UTC), "1.00", enums.CommissionStatusPending)
	}
	f.seedMonthly(t, f.seedAgent(t, enums.UserTierAgent), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "1.00", enums.CommissionStatusPending)

	first, err := f.svc.ListForAgent(ctx, agent, pagination.Params{Limit: 2}, RecordFilters{})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.ListForAgent(ctx, agent, pagination.Params{Limit: 2, Cursor: first.NextCursor}, RecordFilters{})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	paid := enums.CommissionStatusPaid
	filtered, err := f.svc.ListForAgent(ctx, agent, pagination.Params{Limit: 10}, RecordFilters{Status: &paid})
	require.NoError(t, err)
	assert.Empty(t, filtered.Items)
}

func TestSummaryStatus(t *testing.T) {
	cases := []struct {
		name                   string
		paid, pending, expired string
		want                   enums.SummaryPaymentStatus
	}{
		{"all paid", "5", "0", "0", enums.SummaryPaymentPaid},
		{"nothing paid", "0", "5", "0", enums.SummaryPaymentUnpaid},
		{"some paid", "2", "3", "0", enums.SummaryPaymentPartiallyPaid},
		{"expired", "0", "0", "5", enums.SummaryPaymentExpired},
		{"paid and expired", "1", "0", "4", enums.SummaryPaymentPartiallyPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := summaryStatus(periodTotals{paid: dec(tc.paid), pending: dec(tc.pending), expired: dec(tc.expired)})
			assert.Equal(t, tc.want, got)
		})
	}
}

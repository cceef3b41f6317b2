package orders

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

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
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

// Now ticks one millisecond per call so creation order stays strict.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
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

type fixture struct {
	conn   *gorm.DB
	orders Service
	wallet wallet.Service
	sink   *recordingSink
	clock  *testClock
	tenant uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	clock := &testClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	sink := &recordingSink{}
	provider, err := settings.New(settings.Values{
		DefaultRate: decimal.RequireFromString("0.02"),
		MinTopUp:    decimal.NewFromInt(10),
		ExpiryDays:  30,
	})
	require.NoError(t, err)

	ws, err := wallet.NewService(wallet.ServiceParams{
		Repository: wallet.NewRepository(conn),
		Tx:         db.Wrap(conn),
		Settings:   provider,
		Sink:       sink,
		Config:     config.WalletConfig{ConflictRetries: 1, RetryBaseDelay: time.Millisecond},
		Now:        clock.Now,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         db.Wrap(conn),
		Wallet:     ws,
		Sink:       sink,
		Now:        clock.Now,
	})
	require.NoError(t, err)
	ws.SetCreditListener(svc)

	return &fixture{conn: conn, orders: svc, wallet: ws, sink: sink, clock: clock, tenant: uuid.New()}
}

func (f *fixture) seedAgent(t *testing.T, balance string) Actor {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.conn.Create(&models.User{
		ID:            id,
		TenantID:      f.tenant,
		Email:         id.String() + "@example.test",
		Name:          "Agent",
		Tier:          enums.UserTierAgent,
		WalletBalance: decimal.Zero,
	}).Error)
	if amount := dec(balance); amount.IsPositive() {
		_, err := f.wallet.Credit(context.Background(), wallet.PostingInput{OwnerID: id, Amount: amount})
		require.NoError(t, err)
	}
	return Actor{UserID: id, TenantID: f.tenant, Role: enums.RoleAgent}
}

func (f *fixture) place(t *testing.T, agent Actor, orderType enums.OrderType, prices ...string) *models.Order {
	t.Helper()
	items := make([]ItemInput, 0, len(prices))
	for i, price := range prices {
		items = append(items, ItemInput{
			PackageRef:    "mtn-1gb",
			Quantity:      1,
			UnitPrice:     dec(price),
			CustomerPhone: "055000000" + string(rune('0'+i)),
		})
	}
	order, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		OwnerID:  agent.UserID,
		TenantID: agent.TenantID,
		Type:     orderType,
		Items:    items,
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) balance(t *testing.T, owner uuid.UUID) decimal.Decimal {
	t.Helper()
	view, err := f.wallet.Balance(context.Background(), owner)
	require.NoError(t, err)
	return view.Balance
}

func (f *fixture) countTransactions(t *testing.T, orderID uuid.UUID, txType enums.WalletTxType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.WalletTransaction{}).
		Where("related_order_id = ? AND type = ?", orderID, txType).
		Count(&n).Error)
	return n
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var admin = Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

func TestCreateOrderDebitsWallet(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, "100.00")

	order, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		OwnerID:  agent.UserID,
		TenantID: agent.TenantID,
		Items: []ItemInput{
			{PackageRef: "mtn-2gb", Quantity: 2, UnitPrice: dec("10.00"), CustomerPhone: "0550000001"},
		},
		Tax:      dec("1.00"),
		Discount: dec("0.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.True(t, order.Subtotal.Equal(dec("20.00")))
	assert.True(t, order.Total.Equal(dec("20.50")))
	assert.True(t, f.balance(t, agent.UserID).Equal(dec("79.50")))
	assert.Equal(t, int64(1), f.countTransactions(t, order.ID, enums.WalletTxTypePurchase))
	assert.Equal(t, 1, f.sink.count(enums.EventOrderCreated))
	assert.Equal(t, 1, f.sink.count(enums.EventOrderStatusChanged))
}

func TestCreateBulkOrderIsConfirmedOncePaid(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, "50.00")

	order := f.place(t, agent, enums.OrderTypeBulk, "10.00", "10.00")
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
	assert.Equal(t, 2, f.sink.count(enums.EventOrderStatusChanged))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, "0")
	base := func() CreateOrderInput {
		return CreateOrderInput{
			OwnerID:  agent.UserID,
			TenantID: agent.TenantID,
			Items:    []ItemInput{{PackageRef: "p", Quantity: 1, UnitPrice: dec("5"), CustomerPhone: "0550000000"}},
		}
	}
	cases := map[string]func(*CreateOrderInput){
		"no items":       func(in *CreateOrderInput) { in.Items = nil },
		"zero quantity":  func(in *CreateOrderInput) { in.Items[0].Quantity = 0 },
		"free item":      func(in *CreateOrderInput) { in.Items[0].UnitPrice = decimal.Zero },
		"bad type":       func(in *CreateOrderInput) { in.Type = "wholesale" },
		"discount > sum": func(in *CreateOrderInput) { in.Discount = dec("6") },
		"missing tenant": func(in *CreateOrderInput) { in.TenantID = uuid.Nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := base()
			mutate(&input)
			_, err := f.orders.CreateOrder(context.Background(), input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestInsufficientFundsCreatesDraftWithoutTransaction(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, "5.00")

	order := f.place(t, agent, enums.OrderTypeSingle, "35.00")
	assert.Equal(t, enums.OrderStatusDraft, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.True(t, f.balance(t, agent.UserID).Equal(dec("5.00")))
	assert.Equal(t, int64(0), f.countTransactions(t, order.ID, enums.WalletTxTypePurchase))
	assert.Zero(t, f.sink.count(enums.EventOrderStatusChanged))
}

func TestTopUpConvertsDraftsOldestFirstUntilFundsRunOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "0")

	first := f.place(t, agent, enums.OrderTypeSingle, "20.00")
	second := f.place(t, agent, enums.OrderTypeSingle, "30.00")
	require.Equal(t, enums.OrderStatusDraft, first.Status)
	require.Equal(t, enums.OrderStatusDraft, second.Status)

	request, err := f.wallet.RequestTopUp(ctx, agent.UserID, dec("25.00"))
	require.NoError(t, err)
	_, err = f.wallet.ApproveTopUp(ctx, request.ID, admin.UserID)
	require.NoError(t, err)

	got, err := f.orders.Get(ctx, first.ID, agent)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, got.Status)
	assert.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)

	got, err = f.orders.Get(ctx, second.ID, agent)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDraft, got.Status)
	assert.Equal(t, enums.PaymentStatusPending, got.PaymentStatus)

	assert.True(t, f.balance(t, agent.UserID).Equal(dec("5.00")))
	report, err := f.wallet.VerifyLedger(ctx, agent.UserID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestRetryDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "0")
	draft := f.place(t, agent, enums.OrderTypeBulk, "15.00")

	_, err := f.orders.RetryDraft(ctx, draft.ID, agent)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	// Fund the wallet directly so the credit listener does not convert the draft first.
	require.NoError(t, f.conn.Model(&models.User{}).Where("id = ?", agent.UserID).
		Updates(map[string]any{"wallet_balance": dec("15.00")}).Error)
	order, err := f.orders.RetryDraft(ctx, draft.ID, agent)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)

	_, err = f.orders.RetryDraft(ctx, draft.ID, agent)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestUpdateStatusRejectsManualFailure(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, "20")
	order := f.place(t, agent, enums.OrderTypeSingle, "10")

	_, err := f.orders.UpdateStatus(context.Background(), order.ID, enums.OrderStatusFailed, admin, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateStatusFollowsTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "20")
	order := f.place(t, agent, enums.OrderTypeSingle, "10")

	updated, err := f.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted, admin, "delivered")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	_, err = f.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, admin, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestProcessItemAggregatesToPartiallyCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "100")
	order := f.place(t, agent, enums.OrderTypeSingle, "10", "10", "10")
	require.Len(t, order.Items, 3)

	step := func(itemID uuid.UUID, status enums.ItemStatus) *models.Order {
		t.Helper()
		updated, err := f.orders.ProcessItem(ctx, ProcessItemInput{
			OrderID: order.ID, ItemID: itemID, Status: status, Actor: admin, Reason: "provider timeout",
		})
		require.NoError(t, err)
		return updated
	}

	updated := step(order.Items[0].ID, enums.ItemStatusProcessing)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)
	require.NotNil(t, updated.ProcessingStartedAt)
	started := *updated.ProcessingStartedAt

	updated = step(order.Items[0].ID, enums.ItemStatusCompleted)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)
	updated = step(order.Items[1].ID, enums.ItemStatusCompleted)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)
	updated = step(order.Items[2].ID, enums.ItemStatusFailed)
	assert.Equal(t, enums.OrderStatusPartiallyCompleted, updated.Status)
	assert.True(t, updated.ProcessingStartedAt.Equal(started))
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
	require.NotNil(t, updated.Items[2].FailureReason)
	assert.Equal(t, "provider timeout", *updated.Items[2].FailureReason)

	_, err := f.orders.ProcessItem(ctx, ProcessItemInput{
		OrderID: order.ID, ItemID: order.Items[2].ID, Status: enums.ItemStatusCompleted, Actor: admin,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestAllItemsCompletedCompletesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "100")
	order := f.place(t, agent, enums.OrderTypeSingle, "10", "10")

	for _, item := range order.Items {
		_, err := f.orders.ProcessItem(ctx, ProcessItemInput{OrderID: order.ID, ItemID: item.ID, Status: enums.ItemStatusCompleted, Actor: admin})
		require.NoError(t, err)
	}
	got, err := f.orders.Get(ctx, order.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestFailedOrderIsRefundedExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "50")
	order := f.place(t, agent, enums.OrderTypeSingle, "30")
	require.True(t, f.balance(t, agent.UserID).Equal(dec("20")))

	updated, err := f.orders.ProcessItem(ctx, ProcessItemInput{
		OrderID: order.ID, ItemID: order.Items[0].ID, Status: enums.ItemStatusFailed, Actor: admin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFailed, updated.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, updated.PaymentStatus)
	assert.True(t, updated.RefundedAmount.Equal(dec("30")))
	assert.True(t, f.balance(t, agent.UserID).Equal(dec("50")))

	again, err := f.orders.RefundFailed(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, int64(1), f.countTransactions(t, order.ID, enums.WalletTxTypeRefund))
	assert.True(t, f.balance(t, agent.UserID).Equal(dec("50")))
	assert.Equal(t, 1, f.sink.count(enums.EventOrderRefunded))

	report, err := f.wallet.VerifyLedger(ctx, agent.UserID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestRefundFailedRequiresFailedOrder(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, "50")
	order := f.place(t, agent, enums.OrderTypeSingle, "30")

	_, err := f.orders.RefundFailed(context.Background(), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestCancelRefundsPaidOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "40")
	order := f.place(t, agent, enums.OrderTypeSingle, "12.50", "12.50")

	result, err := f.orders.Cancel(ctx, order.ID, agent, "customer changed mind")
	require.NoError(t, err)
	assert.True(t, result.RefundedAmount.Equal(dec("25")))
	assert.Equal(t, enums.OrderStatusCancelled, result.Order.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, result.Order.PaymentStatus)
	assert.NotNil(t, result.Order.CancelledAt)
	for _, item := range result.Order.Items {
		assert.Equal(t, enums.ItemStatusCancelled, item.ProcessingStatus)
	}
	assert.True(t, f.balance(t, agent.UserID).Equal(dec("40")))

	_, err = f.orders.Cancel(ctx, order.ID, agent, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.Equal(t, int64(1), f.countTransactions(t, order.ID, enums.WalletTxTypeRefund))
}

func TestCancelDraftHasNothingToRefund(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, "0")
	draft := f.place(t, agent, enums.OrderTypeSingle, "12")

	result, err := f.orders.Cancel(context.Background(), draft.ID, agent, "")
	require.NoError(t, err)
	assert.True(t, result.RefundedAmount.IsZero())
	assert.Equal(t, enums.PaymentStatusPending, result.Order.PaymentStatus)
}

func TestCancelHidesOtherOwnersOrders(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "20")
	stranger := f.seedAgent(t, "0")
	order := f.place(t, owner, enums.OrderTypeSingle, "10")

	_, err := f.orders.Cancel(context.Background(), order.ID, stranger, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReportedOrderAutoResolvesAfterDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "20")
	order := f.place(t, agent, enums.OrderTypeSingle, "10")
	_, err := f.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted, admin, "")
	require.NoError(t, err)

	reported, err := f.orders.Report(ctx, order.ID, agent)
	require.NoError(t, err)
	assert.True(t, reported.Reported)
	assert.Equal(t, enums.ReceptionStatusNotReceived, reported.ReceptionStatus)
	require.NotNil(t, reported.ReportedAt)
	reportedAt := *reported.ReportedAt

	result, err := f.orders.CleanupReported(ctx, reportedAt.Add(23*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, result.AutoResolved)

	result, err = f.orders.CleanupReported(ctx, reportedAt.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.AutoResolved)

	got, err := f.orders.Get(ctx, order.ID, agent)
	require.NoError(t, err)
	assert.False(t, got.Reported)
	assert.Equal(t, enums.ReceptionStatusReceived, got.ReceptionStatus)
	last, ok := got.Notes.Last()
	require.True(t, ok)
	assert.True(t, strings.Contains(last.Message, "auto-resolved"), last.Message)
}

func TestReportKeepsCheckingStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "20")
	order := f.place(t, agent, enums.OrderTypeSingle, "10")

	_, err := f.orders.Report(ctx, order.ID, agent)
	require.NoError(t, err)
	checking, err := f.orders.UpdateReception(ctx, order.ID, enums.ReceptionStatusChecking, admin)
	require.NoError(t, err)
	assert.Equal(t, enums.ReceptionStatusChecking, checking.ReceptionStatus)

	again, err := f.orders.Report(ctx, order.ID, agent)
	require.NoError(t, err)
	assert.Equal(t, enums.ReceptionStatusChecking, again.ReceptionStatus)
	assert.Equal(t, 1, f.sink.count(enums.EventOrderReported))
}

func TestResolvedReportFlagClearsAfterTenMinutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "20")
	order := f.place(t, agent, enums.OrderTypeSingle, "10")

	_, err := f.orders.Report(ctx, order.ID, agent)
	require.NoError(t, err)
	resolved, err := f.orders.UpdateReception(ctx, order.ID, enums.ReceptionStatusResolved, admin)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	resolvedAt := *resolved.ResolvedAt

	result, err := f.orders.CleanupReported(ctx, resolvedAt.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, result.FlagsCleared)

	result, err = f.orders.CleanupReported(ctx, resolvedAt.Add(11*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, result.FlagsCleared)

	got, err := f.orders.Get(ctx, order.ID, agent)
	require.NoError(t, err)
	assert.False(t, got.Reported)
	assert.Equal(t, enums.ReceptionStatusResolved, got.ReceptionStatus)
}

func TestUpdateReceptionNeedsOpenReport(t *testing.T) {
	f := newFixture(t)
	agent := f.seedAgent(t, "20")
	order := f.place(t, agent, enums.OrderTypeSingle, "10")

	_, err := f.orders.UpdateReception(context.Background(), order.ID, enums.ReceptionStatusResolved, admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	_, err = f.orders.UpdateReception(context.Background(), order.ID, enums.ReceptionStatusReceived, admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCompletedOrderStatsGroupsByAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.seedAgent(t, "100")
	second := f.seedAgent(t, "100")

	for _, order := range []*models.Order{
		f.place(t, first, enums.OrderTypeSingle, "10.25"),
		f.place(t, first, enums.OrderTypeSingle, "20.50"),
		f.place(t, second, enums.OrderTypeSingle, "5.00"),
	} {
		_, err := f.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted, admin, "")
		require.NoError(t, err)
	}
	f.place(t, second, enums.OrderTypeSingle, "7.00")

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	stats, err := f.orders.CompletedOrderStats(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byAgent := map[uuid.UUID]AgentSales{}
	for _, row := range stats {
		byAgent[row.AgentID] = row
	}
	assert.Equal(t, int64(2), byAgent[first.UserID].Orders)
	assert.True(t, byAgent[first.UserID].Revenue.Equal(dec("30.75")), byAgent[first.UserID].Revenue.String())
	assert.Equal(t, int64(1), byAgent[second.UserID].Orders)
	assert.Equal(t, f.tenant, byAgent[second.UserID].TenantID)

	none, err := f.orders.CompletedOrderStats(ctx, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListByOwnerPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.seedAgent(t, "100")
	for i := 0; i < 3; i++ {
		f.place(t, agent, enums.OrderTypeSingle, "1")
	}

	page, err := f.orders.ListByOwner(ctx, agent.UserID, pagination.Params{Limit: 2}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.orders.ListByOwner(ctx, agent.UserID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	assert.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)
}

package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/db"
	"github.com/angelmondragon/datavend-backend/pkg/db/dbtest"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

type fixedThreshold decimal.Decimal

func (f fixedThreshold) MinTopUp() decimal.Decimal { return decimal.Decimal(f) }

type recordingSink struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (r *recordingSink) Notify(_ context.Context, event outbox.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) types() []enums.OutboxEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]enums.OutboxEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type recordingListener struct {
	owners []uuid.UUID
}

func (l *recordingListener) OnWalletCredited(_ context.Context, ownerID uuid.UUID) error {
	l.owners = append(l.owners, ownerID)
	return nil
}

// conflictingRepo misses the version check a fixed number of times.
type conflictingRepo struct {
	Repository
	misses *int
}

func (r conflictingRepo) WithTx(tx *gorm.DB) Repository {
	return conflictingRepo{Repository: r.Repository.WithTx(tx), misses: r.misses}
}

func (r conflictingRepo) UpdateBalance(ctx context.Context, ownerID uuid.UUID, expected int64, balance decimal.Decimal) error {
	if *r.misses > 0 {
		*r.misses--
		return errVersionConflict
	}
	return r.Repository.UpdateBalance(ctx, ownerID, expected, balance)
}

type harness struct {
	conn *gorm.DB
	svc  Service
	sink *recordingSink
}

func newHarness(t *testing.T, repo func(Repository) Repository) harness {
	t.Helper()
	conn := dbtest.Open(t)
	sink := &recordingSink{}
	base := NewRepository(conn)
	if repo != nil {
		base = repo(base)
	}
	svc, err := NewService(ServiceParams{
		Repository: base,
		Tx:         db.Wrap(conn),
		Settings:   fixedThreshold(decimal.NewFromInt(10)),
		Sink:       sink,
		Config:     config.WalletConfig{ConflictRetries: 2, RetryBaseDelay: time.Millisecond},
	})
	require.NoError(t, err)
	return harness{conn: conn, svc: svc, sink: sink}
}

func (h harness) seedUser(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, h.conn.Create(&models.User{
		ID:            id,
		TenantID:      uuid.New(),
		Email:         id.String() + "@example.test",
		Name:          "Agent",
		Tier:          enums.UserTierAgent,
		WalletBalance: decimal.Zero,
	}).Error)
	return id
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCreditAndDebitKeepBalanceEqualToHistory(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)

	_, err := h.svc.Credit(ctx, PostingInput{OwnerID: owner, Amount: dec("100.00"), Type: enums.WalletTxTypeAdjustment})
	require.NoError(t, err)
	debit, err := h.svc.Debit(ctx, PostingInput{OwnerID: owner, Amount: dec("30.50")})
	require.NoError(t, err)
	assert.Equal(t, enums.WalletTxTypePurchase, debit.Type)
	assert.True(t, debit.BalanceAfter.Equal(dec("69.50")))
	assert.Equal(t, int64(2), debit.Sequence)

	view, err := h.svc.Balance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(dec("69.50")), view.Balance.String())

	report, err := h.svc.VerifyLedger(ctx, owner)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 2, report.Entries)
	assert.True(t, report.Replayed.Equal(dec("69.50")))
	assert.Equal(t, []enums.OutboxEventType{enums.EventWalletCredited, enums.EventWalletDebited}, h.sink.types())
}

func TestDebitInsufficientFundsLeavesNoTrace(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)
	_, err := h.svc.Credit(ctx, PostingInput{OwnerID: owner, Amount: dec("5.00")})
	require.NoError(t, err)

	_, err = h.svc.Debit(ctx, PostingInput{OwnerID: owner, Amount: dec("5.01")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "5.00", details["balance"])
	assert.Equal(t, "5.01", details["required"])

	var count int64
	require.NoError(t, h.conn.Model(&models.WalletTransaction{}).Where("owner_id = ?", owner).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	view, err := h.svc.Balance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(dec("5.00")))
}

func TestPostingValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)

	cases := []struct {
		name  string
		input PostingInput
		debit bool
	}{
		{name: "zero amount", input: PostingInput{OwnerID: owner, Amount: decimal.Zero}},
		{name: "negative amount", input: PostingInput{OwnerID: owner, Amount: dec("-1")}},
		{name: "three decimals", input: PostingInput{OwnerID: owner, Amount: dec("1.005")}},
		{name: "missing owner", input: PostingInput{Amount: dec("1")}},
		{name: "refund debit", input: PostingInput{OwnerID: owner, Amount: dec("1"), Type: enums.WalletTxTypeRefund}, debit: true},
		{name: "purchase credit", input: PostingInput{OwnerID: owner, Amount: dec("1"), Type: enums.WalletTxTypePurchase}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			if tc.debit {
				_, err = h.svc.Debit(ctx, tc.input)
			} else {
				_, err = h.svc.Credit(ctx, tc.input)
			}
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestCreditUnknownOwner(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Credit(context.Background(), PostingInput{OwnerID: uuid.New(), Amount: dec("1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTopUpApproveCreditsWallet(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)
	admin := uuid.New()
	listener := &recordingListener{}
	h.svc.SetCreditListener(listener)

	request, err := h.svc.RequestTopUp(ctx, owner, dec("50"))
	require.NoError(t, err)
	assert.Equal(t, enums.WalletTxStatusPending, request.Status)
	assert.Equal(t, int64(0), request.Sequence)

	view, err := h.svc.Balance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, view.Balance.IsZero())
	require.NotNil(t, view.PendingTopUp)

	review, err := h.svc.ApproveTopUp(ctx, request.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, enums.WalletTxStatusApproved, review.Request.Status)
	require.NotNil(t, review.Credit)
	assert.Equal(t, enums.WalletTxTypeTopUp, review.Credit.Type)
	assert.True(t, review.Credit.BalanceAfter.Equal(dec("50")))
	assert.Equal(t, []uuid.UUID{owner}, listener.owners)

	_, err = h.svc.ApproveTopUp(ctx, request.ID, admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	report, err := h.svc.VerifyLedger(ctx, owner)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.Entries)
	assert.Contains(t, h.sink.types(), enums.EventTopUpReviewed)
}

func TestTopUpRejectLeavesBalance(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)

	request, err := h.svc.RequestTopUp(ctx, owner, dec("25"))
	require.NoError(t, err)
	rejected, err := h.svc.RejectTopUp(ctx, request.ID, uuid.New(), "receipt unreadable")
	require.NoError(t, err)
	assert.Equal(t, enums.WalletTxStatusRejected, rejected.Status)
	assert.Equal(t, "receipt unreadable", rejected.Metadata["rejection_reason"])

	view, err := h.svc.Balance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, view.Balance.IsZero())
	assert.Nil(t, view.PendingTopUp)

	_, err = h.svc.RequestTopUp(ctx, owner, dec("25"))
	assert.NoError(t, err)
}

func TestOnlyOnePendingTopUpPerOwner(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)

	_, err := h.svc.RequestTopUp(ctx, owner, dec("20"))
	require.NoError(t, err)
	_, err = h.svc.RequestTopUp(ctx, owner, dec("30"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestTopUpBelowMinimum(t *testing.T) {
	h := newHarness(t, nil)
	owner := h.seedUser(t)
	_, err := h.svc.RequestTopUp(context.Background(), owner, dec("9.99"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)
	_, err := h.svc.Credit(ctx, PostingInput{OwnerID: owner, Amount: dec("50.00")})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		declined  int
		other     []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Debit(ctx, PostingInput{OwnerID: owner, Amount: dec("10.00")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds):
				declined++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, declined)

	view, err := h.svc.Balance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, view.Balance.IsZero(), view.Balance.String())

	report, err := h.svc.VerifyLedger(ctx, owner)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 6, report.Entries)
}

func TestVersionConflictIsRetried(t *testing.T) {
	misses := 2
	h := newHarness(t, func(r Repository) Repository { return conflictingRepo{Repository: r, misses: &misses} })
	ctx := context.Background()
	owner := h.seedUser(t)

	txn, err := h.svc.Credit(ctx, PostingInput{OwnerID: owner, Amount: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, 0, misses)
	assert.Equal(t, int64(1), txn.Sequence)

	report, err := h.svc.VerifyLedger(ctx, owner)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.Entries)
}

func TestVersionConflictSurfacesAfterRetries(t *testing.T) {
	misses := 10
	h := newHarness(t, func(r Repository) Repository { return conflictingRepo{Repository: r, misses: &misses} })
	owner := h.seedUser(t)

	_, err := h.svc.Credit(context.Background(), PostingInput{OwnerID: owner, Amount: dec("10")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConcurrencyConflict))
	assert.Equal(t, 7, misses)
}

func TestVerifyLedgerFindsDivergence(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)
	_, err := h.svc.Credit(ctx, PostingInput{OwnerID: owner, Amount: dec("10")})
	require.NoError(t, err)

	require.NoError(t, h.conn.Model(&models.User{}).Where("id = ?", owner).Update("wallet_balance", dec("12")).Error)

	report, err := h.svc.VerifyLedger(ctx, owner)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	require.NotNil(t, report.Divergence)
	assert.Nil(t, report.Divergence.TransactionID)
	assert.True(t, report.Divergence.Recorded.Equal(dec("12")))
}

func TestListTransactionsPaginates(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	owner := h.seedUser(t)
	for i := 0; i < 3; i++ {
		_, err := h.svc.Credit(ctx, PostingInput{OwnerID: owner, Amount: dec("1")})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	first, err := h.svc.ListTransactions(ctx, owner, pagination.Params{Limit: 2}, TransactionFilters{})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, int64(3), first.Items[0].Sequence)

	second, err := h.svc.ListTransactions(ctx, owner, pagination.Params{Limit: 2, Cursor: first.NextCursor}, TransactionFilters{})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, int64(1), second.Items[0].Sequence)
}

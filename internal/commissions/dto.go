package commissions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
)

// PayInput records a commission payment.
type PayInput struct {
	RecordID uuid.UUID
	PaidBy   uuid.UUID
	// Reference is the external payment reference. Wallet payouts use the
	// credit transaction id when it is empty.
	Reference    string
	CreditWallet bool
}

// RecordFilters narrows an agent's commission listing.
type RecordFilters struct {
	Status *enums.CommissionStatus
	Period *enums.CommissionPeriod
	From   *time.Time
	To     *time.Time
}

// AccrualResult summarises one daily accrual pass.
type AccrualResult struct {
	Day       time.Time `json:"day"`
	Agents    int       `json:"agents"`
	Written   int       `json:"written"`
	Unchanged int       `json:"unchanged"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

// FinalizeResult summarises a month finalization.
type FinalizeResult struct {
	MonthStart     time.Time `json:"month_start"`
	Finalized      int64     `json:"finalized"`
	MonthlyCreated int       `json:"monthly_created"`
	Failed         int       `json:"failed"`
}

// ArchiveResult summarises a month archival.
type ArchiveResult struct {
	MonthStart     time.Time `json:"month_start"`
	MonthlyCreated int       `json:"monthly_created"`
	Summaries      int       `json:"summaries"`
	DailyRemoved   int64     `json:"daily_removed"`
	Failed         int       `json:"failed"`
	Exported       bool      `json:"exported"`
}

// ExpiryResult summarises an expiry sweep.
type ExpiryResult struct {
	Cutoff  time.Time `json:"cutoff"`
	Expired int       `json:"expired"`
	Failed  int       `json:"failed"`
}

// Statement splits an agent's commission into what is still accruing this
// month and what earlier months are waiting to be paid.
type Statement struct {
	AgentID         uuid.UUID                 `json:"agent_id"`
	MonthStart      time.Time                 `json:"month_start"`
	AccruingOrders  int64                     `json:"accruing_orders"`
	AccruingRevenue decimal.Decimal           `json:"accruing_revenue"`
	AccruingAmount  decimal.Decimal           `json:"accruing_amount"`
	Accruing        []models.CommissionRecord `json:"accruing"`
	AwaitingPayment []models.CommissionRecord `json:"awaiting_payment"`
	AwaitingTotal   decimal.Decimal           `json:"awaiting_total"`
}

// periodTotals is a per-agent sum over a set of commission records.
type periodTotals struct {
	agentID  uuid.UUID
	tenantID uuid.UUID
	orders   int64
	revenue  decimal.Decimal
	amount   decimal.Decimal
	paid     decimal.Decimal
	pending  decimal.Decimal
	expired  decimal.Decimal
	records  int64
}

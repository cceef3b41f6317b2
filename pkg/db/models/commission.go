package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/types"
)

// CommissionRecord is an agent's accrued commission for one period.
type CommissionRecord struct {
	ID               uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID          uuid.UUID              `gorm:"column:agent_id;type:uuid;not null;uniqueIndex:ux_commission_period"`
	TenantID         uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null"`
	Period           enums.CommissionPeriod `gorm:"column:period;type:commission_period;not null;uniqueIndex:ux_commission_period"`
	PeriodStart      time.Time              `gorm:"column:period_start;type:date;not null;uniqueIndex:ux_commission_period"`
	PeriodEnd        time.Time              `gorm:"column:period_end;type:date;not null"`
	TotalOrders      int64                  `gorm:"column:total_orders;not null"`
	TotalRevenue     decimal.Decimal        `gorm:"column:total_revenue;type:numeric(14,2);not null"`
	CommissionRate   decimal.Decimal        `gorm:"column:commission_rate;type:numeric(6,4);not null"`
	Amount           decimal.Decimal        `gorm:"column:amount;type:numeric(14,2);not null"`
	Status           enums.CommissionStatus `gorm:"column:status;type:commission_status;not null"`
	IsFinal          bool                   `gorm:"column:is_final;not null;default:false"`
	FinalizedAt      *time.Time             `gorm:"column:finalized_at"`
	PaidAt           *time.Time             `gorm:"column:paid_at"`
	PaidBy           *uuid.UUID             `gorm:"column:paid_by;type:uuid"`
	PaymentReference *string                `gorm:"column:payment_reference;type:text"`
	RejectedAt       *time.Time             `gorm:"column:rejected_at"`
	RejectedBy       *uuid.UUID             `gorm:"column:rejected_by;type:uuid"`
	RejectionReason  *string                `gorm:"column:rejection_reason;type:text"`
	Notes            types.Notes            `gorm:"column:notes;type:jsonb;not null"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// CommissionMonthlySummary is the long-term rollup of an archived month.
type CommissionMonthlySummary struct {
	ID            uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID       uuid.UUID                  `gorm:"column:agent_id;type:uuid;not null;uniqueIndex:ux_commission_summary_month"`
	TenantID      uuid.UUID                  `gorm:"column:tenant_id;type:uuid;not null"`
	Year          int                        `gorm:"column:year;not null;uniqueIndex:ux_commission_summary_month"`
	Month         int                        `gorm:"column:month;not null;uniqueIndex:ux_commission_summary_month"`
	TotalOrders   int64                      `gorm:"column:total_orders;not null"`
	TotalRevenue  decimal.Decimal            `gorm:"column:total_revenue;type:numeric(14,2);not null"`
	TotalEarned   decimal.Decimal            `gorm:"column:total_earned;type:numeric(14,2);not null"`
	TotalPaid     decimal.Decimal            `gorm:"column:total_paid;type:numeric(14,2);not null"`
	TotalPending  decimal.Decimal            `gorm:"column:total_pending;type:numeric(14,2);not null"`
	TotalExpired  decimal.Decimal            `gorm:"column:total_expired;type:numeric(14,2);not null"`
	PaymentStatus enums.SummaryPaymentStatus `gorm:"column:payment_status;type:summary_payment_status;not null"`
	RecordCount   int64                      `gorm:"column:record_count;not null"`
	ArchivedAt    time.Time                  `gorm:"column:archived_at;not null"`
}

// TableName pins the summary table name.
func (CommissionMonthlySummary) TableName() string {
	return "commission_monthly_summaries"
}

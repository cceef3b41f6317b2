package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/types"
)

// Order is a bundle purchase placed by an agent.
type Order struct {
	ID                  uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber         string                `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	Type                enums.OrderType       `gorm:"column:type;type:order_type;not null"`
	Subtotal            decimal.Decimal       `gorm:"column:subtotal;type:numeric(14,2);not null"`
	Tax                 decimal.Decimal       `gorm:"column:tax;type:numeric(14,2);not null"`
	Discount            decimal.Decimal       `gorm:"column:discount;type:numeric(14,2);not null"`
	Total               decimal.Decimal       `gorm:"column:total;type:numeric(14,2);not null"`
	Status              enums.OrderStatus     `gorm:"column:status;type:order_status;not null"`
	PaymentStatus       enums.PaymentStatus   `gorm:"column:payment_status;type:payment_status;not null"`
	ReceptionStatus     enums.ReceptionStatus `gorm:"column:reception_status;type:reception_status;not null"`
	Reported            bool                  `gorm:"column:reported;not null;default:false"`
	ReportedAt          *time.Time            `gorm:"column:reported_at"`
	ResolvedAt          *time.Time            `gorm:"column:resolved_at"`
	ProcessingStartedAt *time.Time            `gorm:"column:processing_started_at"`
	CompletedAt         *time.Time            `gorm:"column:completed_at"`
	CancelledAt         *time.Time            `gorm:"column:cancelled_at"`
	RefundedAmount      decimal.Decimal       `gorm:"column:refunded_amount;type:numeric(14,2);not null;default:0"`
	Notes               types.Notes           `gorm:"column:notes;type:jsonb;not null"`
	OwnerID             uuid.UUID             `gorm:"column:owner_id;type:uuid;not null"`
	TenantID            uuid.UUID             `gorm:"column:tenant_id;type:uuid;not null"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
}

// OrderItem is a single bundle delivery within an order.
type OrderItem struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	PackageRef       string           `gorm:"column:package_ref;type:text;not null"`
	Quantity         int              `gorm:"column:quantity;not null"`
	UnitPrice        decimal.Decimal  `gorm:"column:unit_price;type:numeric(14,2);not null"`
	TotalPrice       decimal.Decimal  `gorm:"column:total_price;type:numeric(14,2);not null"`
	CustomerPhone    string           `gorm:"column:customer_phone;type:text;not null"`
	ProcessingStatus enums.ItemStatus `gorm:"column:processing_status;type:item_status;not null"`
	FailureReason    *string          `gorm:"column:failure_reason;type:text"`
	ProcessedAt      *time.Time       `gorm:"column:processed_at"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

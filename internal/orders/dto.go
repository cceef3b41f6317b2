package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
)

// Actor is the caller of an order operation as supplied by the identity layer.
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     enums.Role
}

func (a Actor) isAdmin() bool {
	return a.Role == enums.RoleAdmin
}

func (a Actor) label() string {
	if a.UserID == uuid.Nil {
		return "system"
	}
	return a.UserID.String()
}

var systemActor = Actor{}

// ItemInput is one bundle line of a new order.
type ItemInput struct {
	PackageRef    string          `json:"package_ref" validate:"required,max=120"`
	Quantity      int             `json:"quantity" validate:"required,min=1,max=1000"`
	UnitPrice     decimal.Decimal `json:"unit_price" validate:"money"`
	CustomerPhone string          `json:"customer_phone" validate:"required,min=7,max=20"`
}

// CreateOrderInput carries everything needed to price and place an order.
type CreateOrderInput struct {
	OwnerID  uuid.UUID
	TenantID uuid.UUID
	Type     enums.OrderType
	Items    []ItemInput
	Tax      decimal.Decimal
	Discount decimal.Decimal
}

// ProcessItemInput is an administrative item status change.
type ProcessItemInput struct {
	OrderID uuid.UUID
	ItemID  uuid.UUID
	Status  enums.ItemStatus
	Reason  string
	Actor   Actor
}

// OrderFilters narrows order listings.
type OrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Type          *enums.OrderType
	From          *time.Time
	To            *time.Time
}

// CancelResult reports the cancelled order and how much went back to the wallet.
type CancelResult struct {
	Order          *models.Order   `json:"order"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
}

// DraftConversion summarises one draft conversion pass for an owner.
type DraftConversion struct {
	Converted []uuid.UUID `json:"converted"`
	Remaining int         `json:"remaining"`
}

// CleanupResult counts what a reported-order cleanup pass changed.
type CleanupResult struct {
	AutoResolved int `json:"auto_resolved"`
	FlagsCleared int `json:"flags_cleared"`
	Failed       int `json:"failed"`
}

// AgentSales is one agent's completed order volume over a window.
type AgentSales struct {
	AgentID  uuid.UUID       `gorm:"column:owner_id"`
	TenantID uuid.UUID       `gorm:"column:tenant_id"`
	Orders   int64           `gorm:"column:orders"`
	Revenue  decimal.Decimal `gorm:"column:revenue"`
}

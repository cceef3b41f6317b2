package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once an order is persisted, paid or drafted.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	OwnerID       uuid.UUID           `json:"owner_id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	Type          enums.OrderType     `json:"type"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal     `json:"total"`
}

// OrderStatusChangedEvent records every accepted transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	OwnerID     uuid.UUID         `json:"owner_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason,omitempty"`
}

// OrderRefundedEvent is emitted when a paid order's total returns to the wallet.
type OrderRefundedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Reason        string          `json:"reason,omitempty"`
}

// OrderReportedEvent is emitted when an owner reports a delivery as not received.
type OrderReportedEvent struct {
	OrderID         uuid.UUID             `json:"order_id"`
	OrderNumber     string                `json:"order_number"`
	OwnerID         uuid.UUID             `json:"owner_id"`
	ReceptionStatus enums.ReceptionStatus `json:"reception_status"`
	ReportedAt      time.Time             `json:"reported_at"`
}

// WalletEntryEvent covers both wallet_credited and wallet_debited.
type WalletEntryEvent struct {
	TransactionID  uuid.UUID          `json:"transaction_id"`
	OwnerID        uuid.UUID          `json:"owner_id"`
	Kind           enums.WalletTxKind `json:"kind"`
	Type           enums.WalletTxType `json:"type"`
	Amount         decimal.Decimal    `json:"amount"`
	BalanceAfter   decimal.Decimal    `json:"balance_after"`
	RelatedOrderID *uuid.UUID         `json:"related_order_id,omitempty"`
	Description    string             `json:"description"`
}

// TopUpRequestedEvent tells admins a top-up awaits review.
type TopUpRequestedEvent struct {
	RequestID uuid.UUID       `json:"request_id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// TopUpReviewedEvent carries the admin decision on a top-up request.
type TopUpReviewedEvent struct {
	RequestID           uuid.UUID            `json:"request_id"`
	OwnerID             uuid.UUID            `json:"owner_id"`
	Amount              decimal.Decimal      `json:"amount"`
	Status              enums.WalletTxStatus `json:"status"`
	ApproverID          uuid.UUID            `json:"approver_id"`
	CreditTransactionID *uuid.UUID           `json:"credit_transaction_id,omitempty"`
}

// CommissionEvent covers accrued, paid, rejected and expired records.
type CommissionEvent struct {
	RecordID         uuid.UUID              `json:"record_id"`
	AgentID          uuid.UUID              `json:"agent_id"`
	Period           enums.CommissionPeriod `json:"period"`
	PeriodStart      time.Time              `json:"period_start"`
	PeriodEnd        time.Time              `json:"period_end"`
	Amount           decimal.Decimal        `json:"amount"`
	Status           enums.CommissionStatus `json:"status"`
	PaymentReference string                 `json:"payment_reference,omitempty"`
	Reason           string                 `json:"reason,omitempty"`
}

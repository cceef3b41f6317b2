package enums

import "fmt"

// OrderType distinguishes how an order was placed.
type OrderType string

const (
	OrderTypeSingle     OrderType = "single"
	OrderTypeBulk       OrderType = "bulk"
	OrderTypeStorefront OrderType = "storefront"
)

var validOrderTypes = []OrderType{OrderTypeSingle, OrderTypeBulk, OrderTypeStorefront}

// IsValid reports whether the value is a known OrderType.
func (t OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusDraft              OrderStatus = "draft"
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusConfirmed          OrderStatus = "confirmed"
	OrderStatusProcessing         OrderStatus = "processing"
	OrderStatusPartiallyCompleted OrderStatus = "partially_completed"
	OrderStatusCompleted          OrderStatus = "completed"
	OrderStatusFailed             OrderStatus = "failed"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusPartiallyCompleted,
	OrderStatusCompleted,
	OrderStatusFailed,
	OrderStatusCancelled,
}

// OrderStatuses returns every known order status.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// ReceptionStatus tracks delivery confirmation for reported orders.
type ReceptionStatus string

const (
	ReceptionStatusNotReceived ReceptionStatus = "not_received"
	ReceptionStatusReceived    ReceptionStatus = "received"
	ReceptionStatusChecking    ReceptionStatus = "checking"
	ReceptionStatusResolved    ReceptionStatus = "resolved"
)

var validReceptionStatuses = []ReceptionStatus{
	ReceptionStatusNotReceived,
	ReceptionStatusReceived,
	ReceptionStatusChecking,
	ReceptionStatusResolved,
}

// IsValid reports whether the value is a known ReceptionStatus.
func (s ReceptionStatus) IsValid() bool {
	for _, candidate := range validReceptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReceptionStatus converts raw input into a ReceptionStatus.
func ParseReceptionStatus(value string) (ReceptionStatus, error) {
	for _, candidate := range validReceptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reception status %q", value)
}

// ItemStatus is the processing state of a single order item.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
	ItemStatusCancelled  ItemStatus = "cancelled"
)

var validItemStatuses = []ItemStatus{
	ItemStatusPending,
	ItemStatusProcessing,
	ItemStatusCompleted,
	ItemStatusFailed,
	ItemStatusCancelled,
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}

// PaymentStatus tracks the wallet side of an order: pending until the debit
// lands, paid after it, refunded once a failed order is credited back.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// ParsePaymentStatus accepts the lowercase wire value.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	if status := PaymentStatus(value); status.IsValid() {
		return status, nil
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

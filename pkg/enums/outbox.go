package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder             OutboxAggregateType = "order"
	AggregateWalletTransaction OutboxAggregateType = "wallet_transaction"
	AggregateCommissionRecord  OutboxAggregateType = "commission_record"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateWalletTransaction,
	AggregateCommissionRecord,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderRefunded      OutboxEventType = "order_refunded"
	EventOrderReported      OutboxEventType = "order_reported"
	EventWalletCredited     OutboxEventType = "wallet_credited"
	EventWalletDebited      OutboxEventType = "wallet_debited"
	EventTopUpRequested     OutboxEventType = "top_up_requested"
	EventTopUpReviewed      OutboxEventType = "top_up_reviewed"
	EventCommissionAccrued  OutboxEventType = "commission_accrued"
	EventCommissionPaid     OutboxEventType = "commission_paid"
	EventCommissionRejected OutboxEventType = "commission_rejected"
	EventCommissionExpired  OutboxEventType = "commission_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderRefunded,
	EventOrderReported,
	EventWalletCredited,
	EventWalletDebited,
	EventTopUpRequested,
	EventTopUpReviewed,
	EventCommissionAccrued,
	EventCommissionPaid,
	EventCommissionRejected,
	EventCommissionExpired,
}

// OutboxEventTypes returns every event type the outbox can carry.
func OutboxEventTypes() []OutboxEventType {
	out := make([]OutboxEventType, len(validOutboxEventTypes))
	copy(out, validOutboxEventTypes)
	return out
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why a row was parked in the dead letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

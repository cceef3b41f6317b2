package enums

import "fmt"

// CommissionPeriod is the accrual granularity of a commission record.
type CommissionPeriod string

const (
	CommissionPeriodDaily   CommissionPeriod = "daily"
	CommissionPeriodMonthly CommissionPeriod = "monthly"
)

// IsValid reports whether the value is a known CommissionPeriod.
func (p CommissionPeriod) IsValid() bool {
	return p == CommissionPeriodDaily || p == CommissionPeriodMonthly
}

// ParseCommissionPeriod converts raw input into a CommissionPeriod.
func ParseCommissionPeriod(value string) (CommissionPeriod, error) {
	p := CommissionPeriod(value)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid commission period %q", value)
	}
	return p, nil
}

// CommissionStatus is the payment lifecycle of a commission record.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusRejected  CommissionStatus = "rejected"
	CommissionStatusExpired   CommissionStatus = "expired"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusPending,
	CommissionStatusPaid,
	CommissionStatusRejected,
	CommissionStatusExpired,
	CommissionStatusCancelled,
}

// CommissionStatuses returns every known commission status.
func CommissionStatuses() []CommissionStatus {
	out := make([]CommissionStatus, len(validCommissionStatuses))
	copy(out, validCommissionStatuses)
	return out
}

// IsValid reports whether the value is a known CommissionStatus.
func (s CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the record can no longer change status.
func (s CommissionStatus) IsTerminal() bool {
	return s == CommissionStatusPaid || s == CommissionStatusRejected || s == CommissionStatusExpired
}

// ParseCommissionStatus converts raw input into a CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}

// SummaryPaymentStatus is the rolled-up payment state of an archived month.
type SummaryPaymentStatus string

const (
	SummaryPaymentPaid          SummaryPaymentStatus = "paid"
	SummaryPaymentPartiallyPaid SummaryPaymentStatus = "partially_paid"
	SummaryPaymentUnpaid        SummaryPaymentStatus = "unpaid"
	SummaryPaymentExpired       SummaryPaymentStatus = "expired"
)

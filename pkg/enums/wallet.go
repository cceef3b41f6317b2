package enums

import "fmt"

// WalletTxKind is the direction of a wallet transaction.
type WalletTxKind string

const (
	WalletTxKindCredit WalletTxKind = "credit"
	WalletTxKindDebit  WalletTxKind = "debit"
)

func (k WalletTxKind) IsValid() bool {
	return k == WalletTxKindCredit || k == WalletTxKindDebit
}

// WalletTxType classifies why money moved.
type WalletTxType string

const (
	WalletTxTypePurchase         WalletTxType = "purchase"
	WalletTxTypeRefund           WalletTxType = "refund"
	WalletTxTypeTopUp            WalletTxType = "top_up"
	WalletTxTypeAdjustment       WalletTxType = "adjustment"
	WalletTxTypeCommissionPayout WalletTxType = "commission_payout"
)

var validWalletTxTypes = []WalletTxType{
	WalletTxTypePurchase,
	WalletTxTypeRefund,
	WalletTxTypeTopUp,
	WalletTxTypeAdjustment,
	WalletTxTypeCommissionPayout,
}

// IsValid reports whether the value is a known WalletTxType.
func (t WalletTxType) IsValid() bool {
	for _, candidate := range validWalletTxTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTxType converts raw input into a WalletTxType.
func ParseWalletTxType(value string) (WalletTxType, error) {
	for _, candidate := range validWalletTxTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}

// WalletTxStatus tracks top-up review; posted movements are always completed.
type WalletTxStatus string

const (
	WalletTxStatusPending   WalletTxStatus = "pending"
	WalletTxStatusApproved  WalletTxStatus = "approved"
	WalletTxStatusRejected  WalletTxStatus = "rejected"
	WalletTxStatusCompleted WalletTxStatus = "completed"
)

var validWalletTxStatuses = []WalletTxStatus{
	WalletTxStatusPending,
	WalletTxStatusApproved,
	WalletTxStatusRejected,
	WalletTxStatusCompleted,
}

// IsValid reports whether the value is a known WalletTxStatus.
func (s WalletTxStatus) IsValid() bool {
	for _, candidate := range validWalletTxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseWalletTxStatus converts raw input into a WalletTxStatus.
func ParseWalletTxStatus(value string) (WalletTxStatus, error) {
	for _, candidate := range validWalletTxStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction status %q", value)
}

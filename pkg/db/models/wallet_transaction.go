package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/types"
)

// WalletTransaction is an immutable ledger row. Only top-up requests change
// status after creation. Sequence is the owner's wallet_version right after the
// posting and orders the ledger replay; unposted requests carry zero.
type WalletTransaction struct {
	ID             uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index"`
	Kind           enums.WalletTxKind   `gorm:"column:kind;type:wallet_tx_kind;not null"`
	Type           enums.WalletTxType   `gorm:"column:type;type:wallet_tx_type;not null"`
	Amount         decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceAfter   decimal.Decimal      `gorm:"column:balance_after;type:numeric(14,2);not null"`
	Description    string               `gorm:"column:description;type:text;not null"`
	RelatedOrderID *uuid.UUID           `gorm:"column:related_order_id;type:uuid"`
	ApproverID     *uuid.UUID           `gorm:"column:approver_id;type:uuid"`
	Status         enums.WalletTxStatus `gorm:"column:status;type:wallet_tx_status;not null"`
	Sequence       int64                `gorm:"column:sequence;not null;default:0"`
	Metadata       types.JSONMap        `gorm:"column:metadata;type:jsonb;not null"`
	ReviewedAt     *time.Time           `gorm:"column:reviewed_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// Signed returns the amount with the sign of its direction.
func (t WalletTransaction) Signed() decimal.Decimal {
	if t.Kind == enums.WalletTxKindDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

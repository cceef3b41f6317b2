package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/enums"
)

// User is a reseller account. The embedded wallet columns are written only by
// the wallet repository.
type User struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index"`
	ParentID      *uuid.UUID      `gorm:"column:parent_id;type:uuid"`
	Email         string          `gorm:"type:text;not null;uniqueIndex"`
	Name          string          `gorm:"type:text;not null"`
	Tier          enums.UserTier  `gorm:"type:user_tier;not null;default:agent"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(14,2);not null;default:0"`
	WalletVersion int64           `gorm:"column:wallet_version;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

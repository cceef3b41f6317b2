package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/types"
)

// PostingInput describes one balance movement.
type PostingInput struct {
	OwnerID        uuid.UUID
	Amount         decimal.Decimal
	Type           enums.WalletTxType
	Description    string
	RelatedOrderID *uuid.UUID
	ApproverID     *uuid.UUID
	Metadata       types.JSONMap
}

// TransactionFilters narrows a transaction listing.
type TransactionFilters struct {
	Type   *enums.WalletTxType
	Status *enums.WalletTxStatus
	From   *time.Time
	To     *time.Time
}

// BalanceView is what an owner sees on their wallet screen.
type BalanceView struct {
	OwnerID      uuid.UUID                 `json:"owner_id"`
	Balance      decimal.Decimal           `json:"balance"`
	PendingTopUp *models.WalletTransaction `json:"pending_top_up,omitempty"`
}

// TopUpReview is the outcome of approving a top-up request.
type TopUpReview struct {
	Request *models.WalletTransaction `json:"request"`
	Credit  *models.WalletTransaction `json:"credit,omitempty"`
}

// LedgerReport is the result of replaying an owner's posted transactions.
type LedgerReport struct {
	OwnerID    uuid.UUID       `json:"owner_id"`
	Balance    decimal.Decimal `json:"balance"`
	Replayed   decimal.Decimal `json:"replayed"`
	Entries    int             `json:"entries"`
	Consistent bool            `json:"consistent"`
	Divergence *Divergence     `json:"divergence,omitempty"`
}

// Divergence pinpoints the first row whose snapshot disagrees with the replay.
// A nil TransactionID means every row matched but the account balance did not.
type Divergence struct {
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	Sequence      int64           `json:"sequence"`
	Expected      decimal.Decimal `json:"expected"`
	Recorded      decimal.Decimal `json:"recorded"`
}

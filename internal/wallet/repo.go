package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

// errVersionConflict is returned when the wallet_version compare-and-swap misses.
var errVersionConflict = errors.New("wallet version changed")

// Repository owns every write to users.wallet_* and wallet_transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockAccount(ctx context.Context, ownerID uuid.UUID) (*models.User, error)
	FindAccount(ctx context.Context, ownerID uuid.UUID) (*models.User, error)
	UpdateBalance(ctx context.Context, ownerID uuid.UUID, expectedVersion int64, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	LockTransaction(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindPendingTopUp(ctx context.Context, ownerID uuid.UUID) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters TransactionFilters) ([]models.WalletTransaction, error)
	ListPosted(ctx context.Context, ownerID uuid.UUID) ([]models.WalletTransaction, error)
	ListPendingTopUps(ctx context.Context, params pagination.Params) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockAccount reads the owner row with a row lock held until the transaction ends.
func (r *repository) LockAccount(ctx context.Context, ownerID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", ownerID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindAccount(ctx context.Context, ownerID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", ownerID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateBalance(ctx context.Context, ownerID uuid.UUID, expectedVersion int64, balance decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND wallet_version = ?", ownerID, expectedVersion).
		Updates(map[string]any{
			"wallet_balance": balance,
			"wallet_version": expectedVersion + 1,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Metadata == nil {
		txn.Metadata = map[string]any{}
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) LockTransaction(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindPendingTopUp(ctx context.Context, ownerID uuid.UUID) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND type = ? AND status = ?", ownerID, enums.WalletTxTypeTopUp, enums.WalletTxStatusPending).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListTransactions(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters TransactionFilters) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("owner_id = ?", ownerID)

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		query = query.Where("created_at < ?", filters.To.UTC())
	}

	var rows []models.WalletTransaction
	err := query.Scopes(pagination.Keyset(params, "created_at")).Find(&rows).Error
	return rows, err
}

// ListPosted returns every balance-moving row in ledger order.
func (r *repository) ListPosted(ctx context.Context, ownerID uuid.UUID) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND sequence > 0", ownerID, enums.WalletTxStatusCompleted).
		Order("sequence ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListPendingTopUps(ctx context.Context, params pagination.Params) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("type = ? AND status = ?", enums.WalletTxTypeTopUp, enums.WalletTxStatusPending)

	var rows []models.WalletTransaction
	err := query.Scopes(pagination.Keyset(params, "created_at")).Find(&rows).Error
	return rows, err
}

package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Lock(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	CancelOpenItems(ctx context.Context, orderID uuid.UUID, at time.Time) error
	ListDrafts(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters OrderFilters) ([]models.Order, error)
	ListReported(ctx context.Context, params pagination.Params) ([]models.Order, error)
	ListStaleReports(ctx context.Context, reportedBefore time.Time) ([]models.Order, error)
	ListResolvedReports(ctx context.Context, resolvedBefore time.Time) ([]models.Order, error)
	CompletedStats(ctx context.Context, from, to time.Time) ([]AgentSales, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its items in one statement batch.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Lock reads the order row under FOR UPDATE. Items are not loaded.
func (r *repository) Lock(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

// CancelOpenItems closes every item that has not reached an outcome yet.
func (r *repository) CancelOpenItems(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND processing_status IN ?", orderID,
			[]enums.ItemStatus{enums.ItemStatusPending, enums.ItemStatusProcessing}).
		Updates(map[string]any{
			"processing_status": enums.ItemStatusCancelled,
			"processed_at":      at.UTC(),
			"updated_at":        at.UTC(),
		}).Error
}

// ListDrafts returns an owner's drafts oldest first.
func (r *repository) ListDrafts(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, enums.OrderStatusDraft).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, params pagination.Params, filters OrderFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("owner_id = ?", ownerID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		query = query.Where("created_at < ?", filters.To.UTC())
	}
	return r.page(query, params)
}

func (r *repository) ListReported(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("reported = ?", true)
	return r.page(query, params)
}

func (r *repository) page(query *gorm.DB, params pagination.Params) ([]models.Order, error) {
	var orders []models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Scopes(pagination.Keyset(params, "created_at")).
		Find(&orders).Error
	return orders, err
}

// ListStaleReports finds active reports still awaiting follow-up.
func (r *repository) ListStaleReports(ctx context.Context, reportedBefore time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("reported = ? AND reception_status IN ? AND reported_at <= ?",
			true,
			[]enums.ReceptionStatus{enums.ReceptionStatusNotReceived, enums.ReceptionStatusChecking},
			reportedBefore.UTC()).
		Order("reported_at ASC").
		Find(&orders).Error
	return orders, err
}

// ListResolvedReports finds resolved reports whose flag is still raised.
func (r *repository) ListResolvedReports(ctx context.Context, resolvedBefore time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("reported = ? AND reception_status = ? AND resolved_at <= ?",
			true, enums.ReceptionStatusResolved, resolvedBefore.UTC()).
		Order("resolved_at ASC").
		Find(&orders).Error
	return orders, err
}

// CompletedStats groups completed orders by agent over [from, to).
func (r *repository) CompletedStats(ctx context.Context, from, to time.Time) ([]AgentSales, error) {
	var rows []AgentSales
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("owner_id, tenant_id, COUNT(*) AS orders, COALESCE(SUM(total), 0) AS revenue").
		Where("status = ? AND completed_at >= ? AND completed_at < ?", enums.OrderStatusCompleted, from.UTC(), to.UTC()).
		Group("owner_id, tenant_id").
		Order("owner_id").
		Scan(&rows).Error
	return rows, err
}

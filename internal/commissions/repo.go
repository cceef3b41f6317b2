package commissions

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

// Repository defines persistence operations for commission records and summaries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertDaily(ctx context.Context, record *models.CommissionRecord) (bool, error)
	Find(ctx context.Context, recordID uuid.UUID) (*models.CommissionRecord, error)
	Lock(ctx context.Context, recordID uuid.UUID) (*models.CommissionRecord, error)
	FindByPeriod(ctx context.Context, agentID uuid.UUID, period enums.CommissionPeriod, start time.Time) (*models.CommissionRecord, error)
	Update(ctx context.Context, recordID uuid.UUID, updates map[string]any) error
	InsertMonthlyIfAbsent(ctx context.Context, record *models.CommissionRecord) (bool, error)
	FinalizeRange(ctx context.Context, from, to, at time.Time) (int64, error)
	ListForMonth(ctx context.Context, period enums.CommissionPeriod, from, to time.Time) ([]models.CommissionRecord, error)
	DeleteDaily(ctx context.Context, from, to time.Time) (int64, error)
	ListStaleMonthly(ctx context.Context, endedBefore time.Time) ([]models.CommissionRecord, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID, params pagination.Params, filters RecordFilters) ([]models.CommissionRecord, error)
	ListAgentRange(ctx context.Context, agentID uuid.UUID, period enums.CommissionPeriod, from, to time.Time) ([]models.CommissionRecord, error)
	ListPendingMonthly(ctx context.Context, agentID uuid.UUID, before time.Time) ([]models.CommissionRecord, error)
	UpsertSummary(ctx context.Context, summary *models.CommissionMonthlySummary) error
	FindSummary(ctx context.Context, agentID uuid.UUID, year, month int) (*models.CommissionMonthlySummary, error)
	ListSummaries(ctx context.Context, agentID uuid.UUID, year int) ([]models.CommissionMonthlySummary, error)
	AgentTiers(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]enums.UserTier, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertDaily inserts a daily record or, when one already exists for the
// agent and day, refreshes its totals while it is still pending and open.
// It reports whether a row was written.
func (r *repository) UpsertDaily(ctx context.Context, record *models.CommissionRecord) (bool, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agent_id"}, {Name: "period"}, {Name: "period_start"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tenant_id", "total_orders", "total_revenue", "commission_rate", "amount", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{
					SQL:  "commission_records.status = ? AND commission_records.is_final = ?",
					Vars: []any{enums.CommissionStatusPending, false},
				},
			}},
		}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Find(ctx context.Context, recordID uuid.UUID) (*models.CommissionRecord, error) {
	var record models.CommissionRecord
	if err := r.db.WithContext(ctx).Where("id = ?", recordID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) Lock(ctx context.Context, recordID uuid.UUID) (*models.CommissionRecord, error) {
	var record models.CommissionRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", recordID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByPeriod locks the record for one agent period, if it exists.
func (r *repository) FindByPeriod(ctx context.Context, agentID uuid.UUID, period enums.CommissionPeriod, start time.Time) (*models.CommissionRecord, error) {
	var record models.CommissionRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("agent_id = ? AND period = ? AND period_start = ?", agentID, period, start.UTC()).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) Update(ctx context.Context, recordID uuid.UUID, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("id = ?", recordID).
		Updates(updates).Error
}

// InsertMonthlyIfAbsent reports whether a new row was written.
func (r *repository) InsertMonthlyIfAbsent(ctx context.Context, record *models.CommissionRecord) (bool, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}, {Name: "period"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FinalizeRange marks every open record starting in [from, to) as final.
func (r *repository) FinalizeRange(ctx context.Context, from, to, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("is_final = ? AND period_start >= ? AND period_start < ?", false, from.UTC(), to.UTC()).
		Updates(map[string]any{
			"is_final":     true,
			"finalized_at": at.UTC(),
			"updated_at":   at.UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListForMonth(ctx context.Context, period enums.CommissionPeriod, from, to time.Time) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("period = ? AND period_start >= ? AND period_start < ?", period, from.UTC(), to.UTC()).
		Order("agent_id ASC, period_start ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) DeleteDaily(ctx context.Context, from, to time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("period = ? AND period_start >= ? AND period_start < ?", enums.CommissionPeriodDaily, from.UTC(), to.UTC()).
		Delete(&models.CommissionRecord{})
	return res.RowsAffected, res.Error
}

// ListStaleMonthly returns pending monthly records whose period ended before the cutoff.
func (r *repository) ListStaleMonthly(ctx context.Context, endedBefore time.Time) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("period = ? AND status = ? AND period_end < ?",
			enums.CommissionPeriodMonthly, enums.CommissionStatusPending, endedBefore.UTC()).
		Order("period_end ASC, id ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) ListForAgent(ctx context.Context, agentID uuid.UUID, params pagination.Params, filters RecordFilters) ([]models.CommissionRecord, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("agent_id = ?", agentID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Period != nil {
		query = query.Where("period = ?", *filters.Period)
	}
	if filters.From != nil {
		query = query.Where("period_start >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		query = query.Where("period_start < ?", filters.To.UTC())
	}
	var records []models.CommissionRecord
	err := query.Scopes(pagination.Keyset(params, "created_at")).Find(&records).Error
	return records, err
}

func (r *repository) ListAgentRange(ctx context.Context, agentID uuid.UUID, period enums.CommissionPeriod, from, to time.Time) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND period = ? AND period_start >= ? AND period_start < ?", agentID, period, from.UTC(), to.UTC()).
		Order("period_start ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) ListPendingMonthly(ctx context.Context, agentID uuid.UUID, before time.Time) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND period = ? AND status = ? AND period_start < ?",
			agentID, enums.CommissionPeriodMonthly, enums.CommissionStatusPending, before.UTC()).
		Order("period_start ASC").
		Find(&records).Error
	return records, err
}

// UpsertSummary writes the month's rollup, replacing an earlier archive run.
func (r *repository) UpsertSummary(ctx context.Context, summary *models.CommissionMonthlySummary) error {
	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agent_id"}, {Name: "year"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tenant_id", "total_orders", "total_revenue", "total_earned",
				"total_paid", "total_pending", "total_expired",
				"payment_status", "record_count", "archived_at",
			}),
		}).
		Create(summary).Error
}

func (r *repository) FindSummary(ctx context.Context, agentID uuid.UUID, year, month int) (*models.CommissionMonthlySummary, error) {
	var summary models.CommissionMonthlySummary
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND year = ? AND month = ?", agentID, year, month).
		First(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *repository) ListSummaries(ctx context.Context, agentID uuid.UUID, year int) ([]models.CommissionMonthlySummary, error) {
	query := r.db.WithContext(ctx).Where("agent_id = ?", agentID)
	if year > 0 {
		query = query.Where("year = ?", year)
	}
	var summaries []models.CommissionMonthlySummary
	err := query.Order("year DESC, month DESC").Find(&summaries).Error
	return summaries, err
}

func (r *repository) AgentTiers(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]enums.UserTier, error) {
	tiers := make(map[uuid.UUID]enums.UserTier, len(agentIDs))
	if len(agentIDs) == 0 {
		return tiers, nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).
		Select("id", "tier").
		Where("id IN ?", agentIDs).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		tiers[u.ID] = u.Tier
	}
	return tiers, nil
}

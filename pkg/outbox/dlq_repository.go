package outbox

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/pagination"
)

const maxDLQErrorLen = 1024

// ErrDeadLetterNotFound is returned when no parked row exists for an event.
var ErrDeadLetterNotFound = errors.New("dead letter not found")

// DLQFilter narrows a dead letter listing.
type DLQFilter struct {
	Reason *enums.OutboxDLQErrorReason
	Params pagination.Params
}

// DLQRepository stores events the publisher gave up on and puts them back in
// the queue on request.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx parks entry inside the publisher's transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		msg := clipUTF8(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// List returns parked rows, most recent failure first.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) (*pagination.Page[models.OutboxDLQ], error) {
	query := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if filter.Reason != nil {
		query = query.Where("error_reason = ?", *filter.Reason)
	}
	var rows []models.OutboxDLQ
	if err := query.Scopes(pagination.Keyset(filter.Params, "failed_at")).Find(&rows).Error; err != nil {
		return nil, err
	}
	page := pagination.BuildPage(rows, filter.Params.Limit, func(row models.OutboxDLQ) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.FailedAt, ID: row.ID}
	})
	return &page, nil
}

// Replay removes the parked row for eventID and rearms the outbox event with a
// fresh attempt budget so the publisher picks it up again.
func (r *DLQRepository) Replay(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDeadLetterNotFound
		}
		return tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{
				"attempt_count": 0,
				"last_error":    nil,
			}).Error
	})
}

// clipUTF8 cuts s to at most limit bytes without splitting a rune.
func clipUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

const (
	notificationRetention = 30 * 24 * time.Hour
	outboxRetention       = 30 * 24 * time.Hour
)

// pruneFunc deletes rows older than cutoff and reports how many went.
type pruneFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// pruneJob is a daily housekeeping job that drops rows past a retention
// window measured back from the run's reference time.
type pruneJob struct {
	name      string
	schedule  Schedule
	retention time.Duration
	prune     pruneFunc
	logg      *logger.Logger
	now       func() time.Time
}

func newPruneJob(name string, schedule Schedule, retention, fallback time.Duration, prune pruneFunc, logg *logger.Logger) *pruneJob {
	if retention <= 0 {
		retention = fallback
	}
	return &pruneJob{
		name:      name,
		schedule:  schedule,
		retention: retention,
		prune:     prune,
		logg:      logg,
		now:       time.Now,
	}
}

func (j *pruneJob) Name() string       { return j.name }
func (j *pruneJob) Schedule() Schedule { return j.schedule }

func (j *pruneJob) Run(ctx context.Context) error {
	cutoff := referenceTime(ctx, j.now).Add(-j.retention)
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention.pruned")
	return nil
}

type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications notificationsCleaner
	Retention     time.Duration
}

type notificationsCleaner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob drops read notifications past the retention
// window. Unread notifications are kept regardless of age.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Notifications == nil {
		return nil, errors.New("notifications service required")
	}
	return newPruneJob("notification-cleanup", Daily(2, 0), params.Retention, notificationRetention,
		params.Notifications.DeleteReadBefore, params.Logger), nil
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository publishedPruner
	Retention  time.Duration
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob drops published outbox rows past the retention
// window. Unpublished rows and dead letters are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil || params.Repository == nil {
		return nil, errors.New("db runner and outbox repository required")
	}
	prune := func(ctx context.Context, cutoff time.Time) (int64, error) {
		var deleted int64
		err := params.DB.WithTx(ctx, func(tx *gorm.DB) error {
			rows, err := params.Repository.DeletePublishedBefore(ctx, tx, cutoff)
			deleted = rows
			return err
		})
		return deleted, err
	}
	return newPruneJob("outbox-retention", Daily(2, 30), params.Retention, outboxRetention, prune, params.Logger), nil
}

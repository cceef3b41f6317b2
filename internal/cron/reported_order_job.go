package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/datavend-backend/internal/orders"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

type ReportedOrderJobParams struct {
	Logger   *logger.Logger
	Orders   reportedOrderCleaner
	Interval time.Duration
}

type reportedOrderCleaner interface {
	CleanupReported(ctx context.Context, now time.Time) (*orders.CleanupResult, error)
}

func NewReportedOrderJob(params ReportedOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &reportedOrderJob{
		logg:     params.Logger,
		orders:   params.Orders,
		interval: interval,
		now:      time.Now,
	}, nil
}

type reportedOrderJob struct {
	logg     *logger.Logger
	orders   reportedOrderCleaner
	interval time.Duration
	now      func() time.Time
}

func (j *reportedOrderJob) Name() string       { return "reported-order-cleanup" }
func (j *reportedOrderJob) Schedule() Schedule { return Every(j.interval) }

func (j *reportedOrderJob) Run(ctx context.Context) error {
	result, err := j.orders.CleanupReported(ctx, referenceTime(ctx, j.now))
	if result != nil && (result.AutoResolved > 0 || result.FlagsCleared > 0 || result.Failed > 0) {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"auto_resolved": result.AutoResolved,
			"flags_cleared": result.FlagsCleared,
			"failed":        result.Failed,
		}), "reported order cleanup complete")
	}
	if err != nil {
		return fmt.Errorf("reported order cleanup: %w", err)
	}
	return nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/datavend-backend/internal/commissions"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

// commissionLifecycle is the slice of the commission service the jobs drive.
type commissionLifecycle interface {
	AccrueDaily(ctx context.Context, day time.Time) (*commissions.AccrualResult, error)
	FinalizeMonth(ctx context.Context, month time.Time) (*commissions.FinalizeResult, error)
	ArchiveMonth(ctx context.Context, month time.Time) (*commissions.ArchiveResult, error)
	ExpireStale(ctx context.Context, now time.Time) (*commissions.ExpiryResult, error)
}

type CommissionJobParams struct {
	Logger      *logger.Logger
	Commissions commissionLifecycle
}

// NewCommissionJobs builds the four commission lifecycle jobs in the order a
// month boundary needs them: accrual, finalize, archive, expiry.
func NewCommissionJobs(params CommissionJobParams) ([]Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commission service required")
	}
	base := commissionJob{logg: params.Logger, svc: params.Commissions, now: time.Now}
	return []Job{
		&dailyAccrualJob{base},
		&monthlyFinalizeJob{base},
		&monthlyArchiveJob{base},
		&expirySweepJob{base},
	}, nil
}

type commissionJob struct {
	logg *logger.Logger
	svc  commissionLifecycle
	now  func() time.Time
}

// priorMonth returns the first instant of the month before ref.
func priorMonth(ref time.Time) time.Time {
	ref = ref.UTC()
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
}

type dailyAccrualJob struct{ commissionJob }

func (j *dailyAccrualJob) Name() string       { return "commission-daily-accrual" }
func (j *dailyAccrualJob) Schedule() Schedule { return Daily(0, 15) }

func (j *dailyAccrualJob) Run(ctx context.Context) error {
	day := referenceTime(ctx, j.now).AddDate(0, 0, -1)
	result, err := j.svc.AccrueDaily(ctx, day)
	if result != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"day":       result.Day.Format(time.DateOnly),
			"agents":    result.Agents,
			"written":   result.Written,
			"unchanged": result.Unchanged,
			"skipped":   result.Skipped,
			"failed":    result.Failed,
		}), "daily commission accrual complete")
	}
	if err != nil {
		return fmt.Errorf("daily accrual: %w", err)
	}
	return nil
}

type monthlyFinalizeJob struct{ commissionJob }

func (j *monthlyFinalizeJob) Name() string       { return "commission-monthly-finalize" }
func (j *monthlyFinalizeJob) Schedule() Schedule { return Monthly(1, 0, 30) }

func (j *monthlyFinalizeJob) Run(ctx context.Context) error {
	month := priorMonth(referenceTime(ctx, j.now))
	result, err := j.svc.FinalizeMonth(ctx, month)
	if result != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"month":           month.Format("2006-01"),
			"finalized":       result.Finalized,
			"monthly_created": result.MonthlyCreated,
			"failed":          result.Failed,
		}), "monthly commission finalize complete")
	}
	if err != nil {
		return fmt.Errorf("monthly finalize: %w", err)
	}
	return nil
}

type monthlyArchiveJob struct{ commissionJob }

func (j *monthlyArchiveJob) Name() string       { return "commission-monthly-archive" }
func (j *monthlyArchiveJob) Schedule() Schedule { return Monthly(1, 1, 0) }

func (j *monthlyArchiveJob) Run(ctx context.Context) error {
	month := priorMonth(referenceTime(ctx, j.now))
	result, err := j.svc.ArchiveMonth(ctx, month)
	if result != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"month":           month.Format("2006-01"),
			"monthly_created": result.MonthlyCreated,
			"summaries":       result.Summaries,
			"daily_removed":   result.DailyRemoved,
			"failed":          result.Failed,
			"exported":        result.Exported,
		}), "monthly commission archive complete")
	}
	if err != nil {
		return fmt.Errorf("monthly archive: %w", err)
	}
	return nil
}

type expirySweepJob struct{ commissionJob }

func (j *expirySweepJob) Name() string       { return "commission-expiry-sweep" }
func (j *expirySweepJob) Schedule() Schedule { return Monthly(1, 1, 30) }

func (j *expirySweepJob) Run(ctx context.Context) error {
	result, err := j.svc.ExpireStale(ctx, referenceTime(ctx, j.now))
	if result != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff":  result.Cutoff,
			"expired": result.Expired,
			"failed":  result.Failed,
		}), "commission expiry sweep complete")
	}
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	return nil
}

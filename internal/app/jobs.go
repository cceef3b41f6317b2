package app

import (
	"fmt"

	"github.com/angelmondragon/datavend-backend/internal/cron"
	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/db"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
)

// NewJobRegistry registers every scheduled job against the domain services.
// The API process builds the same registry so admins can trigger runs by name.
func NewJobRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, domain *Domain) (*cron.Registry, error) {
	if cfg == nil || logg == nil || dbClient == nil || domain == nil {
		return nil, fmt.Errorf("config, logger, database and domain are required")
	}

	commissionJobs, err := cron.NewCommissionJobs(cron.CommissionJobParams{
		Logger:      logg,
		Commissions: domain.Commissions,
	})
	if err != nil {
		return nil, fmt.Errorf("commission jobs: %w", err)
	}

	reported, err := cron.NewReportedOrderJob(cron.ReportedOrderJobParams{
		Logger: logg,
		Orders: domain.Orders,
	})
	if err != nil {
		return nil, fmt.Errorf("reported order job: %w", err)
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: domain.Notifications,
		Retention:     cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	registry := cron.NewRegistry(commissionJobs...)
	registry.Register(reported)
	registry.Register(cleanup)
	registry.Register(retention)
	return registry, nil
}

// Package app assembles the domain services shared by the API and the workers.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/datavend-backend/internal/commissions"
	"github.com/angelmondragon/datavend-backend/internal/notifications"
	"github.com/angelmondragon/datavend-backend/internal/orders"
	"github.com/angelmondragon/datavend-backend/internal/settings"
	"github.com/angelmondragon/datavend-backend/internal/wallet"
	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/db"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/metrics"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
)

// DomainParams are the backends the domain services run on.
type DomainParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Registry prometheus.Registerer
	// Exporter is optional; archived summaries stay local when it is nil.
	Exporter commissions.SummaryExporter
}

// Domain holds the wired services.
type Domain struct {
	Settings      *settings.Provider
	Outbox        *outbox.Service
	Sink          *outbox.Sink
	Wallet        wallet.Service
	Orders        orders.Service
	Commissions   commissions.Service
	Notifications notifications.Service
}

// NewDomain wires wallet, orders and commissions around one outbox sink, and
// registers the order service as the wallet's credit listener so drafts
// convert after every credit.
func NewDomain(params DomainParams) (*Domain, error) {
	if params.Config == nil || params.Logger == nil || params.DB == nil {
		return nil, fmt.Errorf("config, logger and database are required")
	}
	cfg := params.Config
	logg := params.Logger
	conn := params.DB.DB()

	provider, err := settings.NewProvider(cfg.Commission, cfg.Wallet)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	sink := outbox.NewSink(params.DB, outboxSvc, logg)

	walletSvc, err := wallet.NewService(wallet.ServiceParams{
		Repository: wallet.NewRepository(conn),
		Tx:         params.DB,
		Settings:   provider,
		Sink:       sink,
		Logger:     logg,
		Metrics:    metrics.NewWalletMetrics(params.Registry),
		Config:     cfg.Wallet,
	})
	if err != nil {
		return nil, fmt.Errorf("wallet service: %w", err)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(conn),
		Tx:         params.DB,
		Wallet:     walletSvc,
		Sink:       sink,
		Logger:     logg,
		Config:     cfg.Orders,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}
	walletSvc.SetCreditListener(ordersSvc)

	commissionSvc, err := commissions.NewService(commissions.ServiceParams{
		Repository: commissions.NewRepository(conn),
		Tx:         params.DB,
		Sales:      ordersSvc,
		Rates:      provider,
		Exporter:   params.Exporter,
		Payouts:    walletSvc,
		Sink:       sink,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("commission service: %w", err)
	}

	notificationSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("notification service: %w", err)
	}

	return &Domain{
		Settings:      provider,
		Outbox:        outboxSvc,
		Sink:          sink,
		Wallet:        walletSvc,
		Orders:        ordersSvc,
		Commissions:   commissionSvc,
		Notifications: notificationSvc,
	}, nil
}

package main

import (
	"context"
	"errors"
	"os"

	"github.com/angelmondragon/datavend-backend/internal/app"
	"github.com/angelmondragon/datavend-backend/internal/notifications"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/registry"
	"github.com/angelmondragon/datavend-backend/pkg/pubsub"
)

func main() {
	boot := context.Background()
	rt, err := app.Boot(boot, "worker")
	if err != nil {
		logger.New(logger.Options{ServiceName: "worker"}).Error(boot, "bootstrap failed", err)
		os.Exit(1)
	}
	cfg := rt.Config

	redisClient, err := rt.Redis(boot)
	if err != nil {
		rt.Exit(boot, "redis unavailable", err)
	}
	pubsubClient, err := rt.PubSub(boot, pubsub.RoleSubscriber)
	if err != nil {
		rt.Exit(boot, "pubsub unavailable", err)
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		rt.Exit(boot, "failed to build event registry", err)
	}
	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		rt.Exit(boot, "failed to create idempotency manager", err)
	}
	notificationSvc, err := notifications.NewService(notifications.NewRepository(rt.DB.DB()))
	if err != nil {
		rt.Exit(boot, "failed to create notification service", err)
	}
	consumer, err := notifications.NewConsumer(notificationSvc, pubsubClient.NotificationSubscription(), eventRegistry, manager, rt.Logger)
	if err != nil {
		rt.Exit(boot, "failed to create notification consumer", err)
	}

	service, err := NewService(ServiceParams{
		Logger:   rt.Logger,
		DB:       rt.DB,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	if err != nil {
		rt.Exit(boot, "failed to create worker service", err)
	}

	ctx, stop := rt.SignalContext(map[string]any{"subscription": cfg.PubSub.NotificationSubscription})
	defer stop()

	rt.Logger.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Exit(ctx, "worker stopped unexpectedly", err)
	}
	rt.Shutdown(ctx)
	rt.Logger.Info(ctx, "worker shut down")
}

package main

import (
	"context"
	"errors"
	"os"

	"github.com/angelmondragon/datavend-backend/internal/app"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/outbox"
	"github.com/angelmondragon/datavend-backend/pkg/outbox/registry"
	"github.com/angelmondragon/datavend-backend/pkg/pubsub"
)

func main() {
	boot := context.Background()
	rt, err := app.Boot(boot, "outbox-publisher")
	if err != nil {
		logger.New(logger.Options{ServiceName: "outbox-publisher"}).Error(boot, "bootstrap failed", err)
		os.Exit(1)
	}

	pubsubClient, err := rt.PubSub(boot, pubsub.RolePublisher)
	if err != nil {
		rt.Exit(boot, "pubsub unavailable", err)
	}
	eventRegistry, err := registry.NewEventRegistry(rt.Config.PubSub)
	if err != nil {
		rt.Exit(boot, "failed to build event registry", err)
	}
	service, err := NewService(ServiceParams{
		Config:        rt.Config,
		Logger:        rt.Logger,
		DB:            rt.DB,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(rt.DB.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(rt.DB.DB()),
	})
	if err != nil {
		rt.Exit(boot, "failed to create outbox publisher", err)
	}

	ctx, stop := rt.SignalContext(map[string]any{"topic": rt.Config.PubSub.DomainTopic})
	defer stop()

	rt.Logger.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Exit(ctx, "outbox publisher stopped unexpectedly", err)
	}
	rt.Shutdown(ctx)
	rt.Logger.Info(ctx, "outbox publisher shut down")
}

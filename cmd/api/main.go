package main

import (
	"context"

	"go.uber.org/zap"

	"labelmart/authflow"
	"labelmart/cart"
	"labelmart/config"
	"labelmart/db"
	"labelmart/gateway"
	"labelmart/localstore"
	"labelmart/notify"
	"labelmart/order"
	"labelmart/session"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.FromEnv()

	// Backend gateway: hosted platform when configured, local otherwise.
	var client gateway.Client
	if cfg.ProjectURL != "" {
		client, err = gateway.NewRESTClient(gateway.Config{
			ProjectURL: cfg.ProjectURL,
			APIKey:     cfg.AnonKey,
		})
		if err != nil {
			logger.Fatal("bootstrap gateway client", zap.Error(err))
		}
	} else {
		logger.Info("no project URL configured, using local backend")
		client = gateway.NewLocalBackend("")
	}

	storage, err := localstore.OpenSQLite(cfg.CartStorePath)
	if err != nil {
		logger.Fatal("bootstrap local store", zap.Error(err))
	}
	defer storage.Close()

	notifier := notify.NewZapNotifier(logger)

	cartStore := cart.NewStore(storage, notifier, logger)
	cartStore.Load()

	resolver := session.NewResolver(
		session.TableLookup(client, cfg.AdminEmail),
		notifier, logger,
	).WithTimeout(cfg.RoleTimeout)

	auth := authflow.NewController(client, resolver, storage, notifier, logger)

	var orderService *order.Service
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("bootstrap database pool", zap.Error(err))
		}
		defer pool.Close()
		orderService = order.NewService(pool, nil)
	}

	logger.Info("storefront core ready",
		zap.Int("cart_items", cartStore.Snapshot().ItemCount),
		zap.Bool("orders_enabled", orderService != nil),
		zap.Bool("auth_ready", auth != nil),
	)
}

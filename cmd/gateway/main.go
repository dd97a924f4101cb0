package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/invopilot/invoice-edge/internal/apiclient"
	"github.com/invopilot/invoice-edge/internal/cache"
	"github.com/invopilot/invoice-edge/internal/config"
	"github.com/invopilot/invoice-edge/internal/gateway"
	"github.com/invopilot/invoice-edge/internal/notify"
	"github.com/invopilot/invoice-edge/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	rdb, err := cache.Dial(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	store, err := cache.NewStore(rdb)
	if err != nil {
		logger.Fatal("cache store initialization failed", zap.Error(err))
	}

	api, err := apiclient.New(cfg.APIBaseURL, cfg.APIToken, cfg.RequestTimeout(), logger)
	if err != nil {
		logger.Fatal("api client initialization failed", zap.Error(err))
	}

	fetcher, err := cache.NewHTTPFetcher(api.HTTPClient(), api.BaseURL())
	if err != nil {
		logger.Fatal("fetcher initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	engine, err := cache.NewEngine(store, fetcher, cache.DefaultRules(), logger, metrics)
	if err != nil {
		logger.Fatal("cache engine initialization failed", zap.Error(err))
	}

	hub := notify.NewHub()
	poller, err := notify.NewPoller(notify.PollerOptions{
		API:      api,
		Hub:      hub,
		Logger:   logger,
		Metrics:  metrics,
		Interval: cfg.PollInterval(),
		Timeout:  cfg.RequestTimeout(),
	})
	if err != nil {
		logger.Fatal("poller initialization failed", zap.Error(err))
	}

	app, err := gateway.New(gateway.Deps{
		Engine:  engine,
		Poller:  poller,
		Hub:     hub,
		Logger:  logger,
		Metrics: metrics,
		Readiness: &gateway.Readiness{
			Redis:       rdb,
			BackendPing: api.Ping,
		},
	})
	if err != nil {
		logger.Fatal("gateway initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := poller.Start(groupCtx)
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	group.Go(func() error {
		logger.Info("invoice-edge gateway started", zap.Int("port", cfg.ListenPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.ListenPort))
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("gateway terminated", zap.Error(err))
	}
	logger.Info("gateway stopped")
}

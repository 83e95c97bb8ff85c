package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sentiment-pulse/src/config"
	"sentiment-pulse/src/feed"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/storage"
)

const demoPostCount = 120

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file (+ .env secrets)
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Sentiment store
	store, err := setupStore(cfg.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Storage.SeedDemoPosts {
		if err := storage.SeedDemoPosts(ctx, store, demoPostCount, appLogger); err != nil {
			appLogger.Warning("Demo seed failed: %v", err)
		}
	}

	// 2. Market data and tick sources
	networkManager := setupNetwork(cfg.MConfig)
	scheduler := setupScheduler(cfg)
	market := setupMarketData(cfg.MConfig, networkManager, scheduler)
	live, sim := setupTickSources(cfg, appLogger)

	// 3. Price feed aggregator
	feedLogger := logger.NewLogger(cfg.MConfig, "Feed")
	aggregator := feed.NewAggregator(cfg.MConfig, live, sim, feedLogger, feed.WithScheduler(scheduler))

	// 4. Servers
	analyzer := setupAnalysis(cfg.MConfig)
	srv := setupServer(cfg.MConfig, aggregator, market, store, analyzer)
	aggregator.Subscribe(srv.OnFeedEvent)

	grpcServer := startServers(srv, aggregator, cfg, *configPath, appLogger)

	// 5. Open the live feed, falls back to simulation on its own
	state := aggregator.Connect(ctx)
	appLogger.Info("Price feed started (%s, active %s)", state, aggregator.ActiveSymbol())

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	aggregator.Teardown()
	if err := srv.Stop(); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	appLogger.Info("Bye")
}

package main

import (
	"sentiment-pulse/src/analysis"
	"sentiment-pulse/src/config"
	"sentiment-pulse/src/data_source/finnhub"
	"sentiment-pulse/src/data_source/simulator"
	"sentiment-pulse/src/interfaces"
	"sentiment-pulse/src/logger"
	"sentiment-pulse/src/models"
	"sentiment-pulse/src/network"
	"sentiment-pulse/src/server"
	"sentiment-pulse/src/storage"
	"sentiment-pulse/src/utils"
)

// -----------------------------------------------------------------------------

// setupStore initializes the sentiment store based on config
func setupStore(config *models.MConfig, appLogger *logger.Logger) (interfaces.ISentimentStore, error) {
	var store interfaces.ISentimentStore
	var err error

	switch config.Storage.DBType {
	case "postgres":
		pgLogger := logger.NewLogger(config, "PostgresDB")
		store, err = storage.NewPostgresDB(config, pgLogger)
	default:
		// Default to SQLite
		sqliteLogger := logger.NewLogger(config, "SQLiteDB")
		store, err = storage.NewAsyncSQLiteDB(config, sqliteLogger)
	}

	if err != nil {
		appLogger.Error("Failed to init store: %v", err)
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		appLogger.Error("Failed to migrate store: %v", err)
		return nil, err
	}
	return store, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	networkLogger := logger.NewLogger(config, "NetworkManager")
	return network.NewAsyncNetworkManager(config, networkLogger)
}

// -----------------------------------------------------------------------------

// setupScheduler maps every catalog and chart symbol to its trading calendar
func setupScheduler(cfg *config.Config) *utils.MarketScheduler {
	symbols := cfg.CatalogSymbols()
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		seen[s] = true
	}
	for _, s := range cfg.Feed.ChartSymbols {
		if !seen[s] {
			symbols = append(symbols, s)
			seen[s] = true
		}
	}
	return utils.NewMarketScheduler(symbols, logger.NewLogger(cfg.MConfig, "MarketScheduler"))
}

// -----------------------------------------------------------------------------

// setupMarketData initializes the quote/candle client
func setupMarketData(config *models.MConfig, networkManager interfaces.INetworkManager, scheduler *utils.MarketScheduler) interfaces.IMarketData {
	return finnhub.NewRestClient(config, networkManager, scheduler, logger.NewLogger(config, "FinnhubREST"))
}

// -----------------------------------------------------------------------------

// setupTickSources builds the live stream and the simulator. The live source
// is nil without an API key so the feed starts simulated.
func setupTickSources(cfg *config.Config, appLogger *logger.Logger) (interfaces.ITickSource, interfaces.ITickSource) {
	sim := simulator.NewSimulator(cfg.MConfig, logger.NewLogger(cfg.MConfig, "Simulator"))

	if cfg.Finnhub.APIKey == "" {
		appLogger.Warning("No Finnhub API key configured, prices will be simulated")
		return nil, sim
	}

	symbols := cfg.CatalogSymbols()
	appLogger.Info("Live stream will subscribe %d symbols", len(symbols))
	return finnhub.NewStreamSource(cfg.MConfig, symbols, logger.NewLogger(cfg.MConfig, "FinnhubStream")), sim
}

// -----------------------------------------------------------------------------

// setupAnalysis initializes the analysis facade
func setupAnalysis(config *models.MConfig) *analysis.AnalysisFacade {
	analysisLogger := logger.NewLogger(config, "Analysis")
	return analysis.NewAnalysisFacade(config, analysisLogger)
}

// -----------------------------------------------------------------------------

// setupServer initializes the REST/websocket server
func setupServer(config *models.MConfig, feed interfaces.IPriceFeed, market interfaces.IMarketData,
	store interfaces.ISentimentStore, analyzer *analysis.AnalysisFacade) *server.FastAPIServer {
	return server.NewFastAPIServer(config, feed, market, store, analyzer, logger.NewLogger(config, "FastAPIServer"))
}

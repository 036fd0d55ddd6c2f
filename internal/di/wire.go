//go:build wireinject
// +build wireinject

package di

import (
	"PolyCorr/pkg/config"
	"PolyCorr/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideEngine,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisClient,

		// Repositories
		ProvideFindingSink,
		ProvideAlertPublisher,
		ProvideMarketStream,
		ProvideCatalogCache,
		ProvideMarketCatalog,

		// Use cases
		ProvideTradeBatcher,
		ProvidePipeline,
		ProvideTradeCollector,
		ProvideTradesHandler,
		ProvideAlertDispatcher,
		ProvideAutoDetectJob,
		ProvideSweepQueue,
		ProvideHistoricalSweep,
		ProvideSummaryCache,

		// HTTP and application
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

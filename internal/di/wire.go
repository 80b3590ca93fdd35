//go:build wireinject
// +build wireinject

package di

import (
	"SemaforoBot/pkg/config"
	"SemaforoBot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideStore,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideTradeStore,
		ProvideAnalysisStore,
		ProvideHistoryStore,
		ProvidePublisher,
		ProvideMetricSource,

		// Use cases
		ProvideParamsHolder,
		ProvideAnalyzer,
		ProvideMachine,
		ProvideTrader,
		ProvideWatcher,

		// HTTP surface and application server
		ProvideHealth,
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"EnsembleView/pkg/config"
	"EnsembleView/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideProjectionCache,
		ProvideSettingsStore,

		// Run state and the inbound channel
		ProvideState,
		ProvideSimulationStream,
		ProvideSession,

		// Derived views and fan-out
		ProvideCalculator,
		ProvideProjector,
		ProvideSnapshotPublisher,
		ProvideObservationSink,
		ProvideSnapshotWorker,

		// HTTP surface
		ProvideSimulationHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeViewer wires the in-process session used by the terminal viewer.
func InitializeViewer(cfg *config.Config) (*Viewer, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideKafkaProducer,
		ProvideState,
		ProvideSimulationStream,
		ProvideSession,
		ProvideCalculator,
		wire.Struct(new(Viewer), "*"),
	)
	return &Viewer{}, nil
}

package main

import (
	"cadbridge/commons/config"
	"cadbridge/commons/server"
	internalConfig "cadbridge/internal/config"

	"go.uber.org/fx"
)

func main() {
	fx.New(
		fx.WithLogger(config.ProvideFxLogger),
		fx.Provide(
			internalConfig.ProvideAppConfig,
			internalConfig.ProvideLoggerConfig,
			config.ProvideLogger,
			config.ProvideRouteDependencies,
			internalConfig.ProvideCoordinator,
			internalConfig.ProvideSourceClient,
			internalConfig.ProvideTransformer,
			internalConfig.ProvideSerializer,
			internalConfig.ProvideNaming,
			internalConfig.ProvideTransport,
			internalConfig.ProvideFingerprintStore,
			internalConfig.ProvideDeliverer,
			internalConfig.ProvideSheetWriter,
			internalConfig.ProvideExporter,
			internalConfig.ProvideCallSync,
			internalConfig.ProvideIncidentFilter,
			internalConfig.ProvideRunRepository,
			internalConfig.ProvidePoller,
			internalConfig.ProvidePollerHealthHandler,
			internalConfig.ProvideSyncHandler,
			internalConfig.ProvideRunHandler,
			internalConfig.ProvideIncidentHandler,
			internalConfig.ProvideFingerprintHandler,
			internalConfig.ProvidePollerRouterConfig,
			internalConfig.ProvidePollerServerConfig,
			internalConfig.ProvidePollerRouteInitializer,
			config.ProvideRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(internalConfig.ManagePollerLifecycle),
	).Run()
}

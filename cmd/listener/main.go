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
			internalConfig.ProvideNotificationListener,
			internalConfig.ProvideNotificationQueue,
			internalConfig.ProvideListenerHealthHandler,
			internalConfig.ProvideIncidentHandler,
			internalConfig.ProvideFingerprintHandler,
			internalConfig.ProvideListenerRouterConfig,
			internalConfig.ProvideListenerServerConfig,
			internalConfig.ProvideListenerRouteInitializer,
			config.ProvideRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(internalConfig.ManageNotificationQueueLifecycle),
	).Run()
}

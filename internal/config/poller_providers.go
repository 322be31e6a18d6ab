package config

import (
	"context"
	"fmt"

	commonsConfig "cadbridge/commons/config"
	"cadbridge/commons/routes"
	"cadbridge/commons/server"
	coordinator "cadbridge/internal/coordinator/iface"
	"cadbridge/internal/handler"
	"cadbridge/internal/logger"
	dynamoRepository "cadbridge/internal/repository/dynamodb"
	repository "cadbridge/internal/repository/iface"
	memoryRepository "cadbridge/internal/repository/memory"
	internalRoutes "cadbridge/internal/routes"
	"cadbridge/internal/service"
	source "cadbridge/internal/source/iface"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Service Providers

func ProvideIncidentFilter(cfg *AppConfig) (*service.IncidentFilter, error) {
	return service.NewIncidentFilter(cfg.Poller.Filter)
}

// Repository Providers

func ProvideRunRepository(cfg *AppConfig, log logger.Logger) (repository.RunRepository, error) {
	if cfg.History.Backend != HistoryDynamoDB {
		return memoryRepository.NewRunRepository(cfg.History.Capacity), nil
	}

	d := cfg.History.DynamoDB
	client, err := commonsConfig.NewDynamoDBClient(context.Background(), commonsConfig.AWSClientConfig{
		Region:   d.Region,
		Endpoint: d.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamodb client: %w", err)
	}
	return dynamoRepository.NewRunRepository(client, d.Table, log), nil
}

func ProvidePoller(
	src source.Source,
	exporter service.IExporter,
	filter *service.IncidentFilter,
	coord coordinator.Coordinator,
	runs repository.RunRepository,
	cfg *AppConfig,
	log logger.Logger,
) service.IPoller {
	return service.NewPoller(src, exporter, filter, coord, runs, service.PollerConfig{
		Schedule:   cfg.Poller.Schedule,
		DaysBack:   cfg.Poller.DaysBack,
		ActiveOnly: cfg.Poller.ActiveOnly,
		LockPath:   cfg.Coordination.LockPath,
		Owner:      cfg.Coordination.Owner,
	}, log)
}

// HTTP Providers

func ProvidePollerHealthHandler(cfg *AppConfig, coord coordinator.Coordinator, log logger.Logger) *handler.HealthHandler {
	return handler.NewHealthHandler(log, "poller", cfg.Service.Version, coord, cfg.Coordination.LockPath)
}

func ProvideSyncHandler(log logger.Logger, poller service.IPoller) *handler.SyncHandler {
	return handler.NewSyncHandler(log, poller)
}

func ProvideRunHandler(log logger.Logger, runs repository.RunRepository) *handler.RunHandler {
	return handler.NewRunHandler(log, runs)
}

func ProvidePollerRouterConfig(cfg *AppConfig) routes.RouterConfig {
	return routes.RouterConfig{
		ServiceName: "poller",
		Version:     cfg.Service.Version,
	}
}

func ProvidePollerServerConfig(cfg *AppConfig) server.ServerConfig {
	return server.ServerConfig{
		Port:         cfg.Server.Port,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func ProvidePollerRouteInitializer(
	healthHandler *handler.HealthHandler,
	syncHandler *handler.SyncHandler,
	runHandler *handler.RunHandler,
	incidentHandler *handler.IncidentHandler,
	fingerprintHandler *handler.FingerprintHandler,
) func(*gin.Engine, routes.RouteDependencies) {
	return func(router *gin.Engine, deps routes.RouteDependencies) {
		internalRoutes.InitHealthRoutes(router, healthHandler, deps.Logger)
		internalRoutes.InitSyncRoutes(router, syncHandler, deps.Logger)
		internalRoutes.InitRunRoutes(router, runHandler, deps.Logger)
		internalRoutes.InitIncidentRoutes(router, incidentHandler, deps.Logger)
		internalRoutes.InitFingerprintRoutes(router, fingerprintHandler, deps.Logger)
	}
}

// Lifecycle Management
func ManagePollerLifecycle(lc fx.Lifecycle, poller service.IPoller, cfg *AppConfig, srv *server.HTTPServer, log logger.Logger) {
	_ = srv

	if !cfg.Poller.Enabled {
		log.Info("scheduled polling disabled, serving manual sync only")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting poller", logger.String("schedule", cfg.Poller.Schedule))
			return poller.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping poller")
			return poller.Stop(ctx)
		},
	})
}

package config

import (
	"context"
	"fmt"

	commonsConfig "cadbridge/commons/config"
	"cadbridge/commons/routes"
	"cadbridge/commons/server"
	coordinator "cadbridge/internal/coordinator/iface"
	"cadbridge/internal/domain"
	"cadbridge/internal/handler"
	"cadbridge/internal/logger"
	queue "cadbridge/internal/queue/iface"
	"cadbridge/internal/queue/kafka"
	"cadbridge/internal/queue/sqs"
	internalRoutes "cadbridge/internal/routes"
	"cadbridge/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func ProvideNotificationListener(calls service.ICallSync, log logger.Logger) *service.NotificationListener {
	return service.NewNotificationListener(calls, log)
}

// Notification Queue Providers

type NotificationQueueResult struct {
	fx.Out
	Queue queue.Queue
}

// ProvideNotificationQueue builds the consumer for incident notifications on SQS or Kafka.
func ProvideNotificationQueue(
	cfg *AppConfig,
	listener *service.NotificationListener,
	log logger.Logger,
) (NotificationQueueResult, error) {
	if err := cfg.ValidateListener(); err != nil {
		return NotificationQueueResult{}, err
	}

	processor := queue.MessageProcessorFunc[domain.IncidentNotification](
		func(ctx context.Context, msg domain.IncidentNotification) bool {
			return listener.ProcessMessage(ctx, msg)
		},
	)

	switch cfg.Listener.Backend {
	case ListenerKafka:
		k := cfg.Listener.Kafka
		q := kafka.NewKafkaQueue[domain.IncidentNotification](
			kafka.NewReader(k.Brokers, k.Topic, k.GroupID),
			kafka.NewWriter(k.Brokers, k.Topic),
			kafka.QueueConfig{
				Topic:       k.Topic,
				MaxAttempts: k.MaxAttempts,
				RetryDelay:  k.RetryDelay,
			},
			processor,
			log,
		)
		return NotificationQueueResult{Queue: q}, nil
	default:
		s := cfg.Listener.SQS
		client, err := commonsConfig.NewSQSClient(context.Background(), commonsConfig.AWSClientConfig{
			Region:   s.Region,
			Endpoint: s.Endpoint,
		})
		if err != nil {
			return NotificationQueueResult{}, fmt.Errorf("failed to create sqs client: %w", err)
		}
		q := sqs.NewSQSQueue[domain.IncidentNotification](
			client,
			sqs.QueueConfig{
				QueueURL:          s.QueueURL,
				WorkerCount:       1,
				MaxMessages:       1,
				WaitTimeSeconds:   s.WaitTimeSeconds,
				VisibilityTimeout: s.VisibilityTimeout,
			},
			processor,
			log,
		)
		return NotificationQueueResult{Queue: q}, nil
	}
}

// HTTP Providers

func ProvideListenerHealthHandler(cfg *AppConfig, coord coordinator.Coordinator, log logger.Logger) *handler.HealthHandler {
	return handler.NewHealthHandler(log, "listener", cfg.Service.Version, coord, cfg.Coordination.LockPath)
}

func ProvideListenerRouterConfig(cfg *AppConfig) routes.RouterConfig {
	return routes.RouterConfig{
		ServiceName: "listener",
		Version:     cfg.Service.Version,
	}
}

func ProvideListenerServerConfig(cfg *AppConfig) server.ServerConfig {
	return server.ServerConfig{
		Port:         cfg.Listener.Port,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func ProvideListenerRouteInitializer(
	healthHandler *handler.HealthHandler,
	incidentHandler *handler.IncidentHandler,
	fingerprintHandler *handler.FingerprintHandler,
) func(*gin.Engine, routes.RouteDependencies) {
	return func(router *gin.Engine, deps routes.RouteDependencies) {
		internalRoutes.InitHealthRoutes(router, healthHandler, deps.Logger)
		internalRoutes.InitIncidentRoutes(router, incidentHandler, deps.Logger)
		internalRoutes.InitFingerprintRoutes(router, fingerprintHandler, deps.Logger)
	}
}

// Lifecycle Management
func ManageNotificationQueueLifecycle(lc fx.Lifecycle, q queue.Queue, srv *server.HTTPServer, log logger.Logger) {
	_ = srv

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting notification queue consumer")
			return q.StartConsumer(ctx)
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping notification queue consumer")
			return q.StopConsumer(ctx)
		},
	})
}

package config

import (
	"context"
	"fmt"

	commonsConfig "cadbridge/commons/config"
	redisCache "cadbridge/internal/cache/redis"
	coordinator "cadbridge/internal/coordinator/iface"
	noopCoordinator "cadbridge/internal/coordinator/noop"
	zkCoordinator "cadbridge/internal/coordinator/zk"
	"cadbridge/internal/delivery"
	"cadbridge/internal/export/xmlexport"
	"cadbridge/internal/handler"
	"cadbridge/internal/logger"
	"cadbridge/internal/mapping"
	"cadbridge/internal/service"
	source "cadbridge/internal/source/iface"
	"cadbridge/internal/source/rest"
	dynamoTabular "cadbridge/internal/tabular/dynamodb"
	sheetsTabular "cadbridge/internal/tabular/sheets"
	transfer "cadbridge/internal/transfer/iface"
	localTransfer "cadbridge/internal/transfer/local"
	minioTransfer "cadbridge/internal/transfer/minio"
	s3Transfer "cadbridge/internal/transfer/s3"

	"go.uber.org/fx"
)

// Providers shared by the poller and listener binaries.

func ProvideAppConfig() (*AppConfig, error) {
	return LoadAppConfig()
}

func ProvideLoggerConfig(cfg *AppConfig) commonsConfig.LoggerConfig {
	return commonsConfig.LoggerConfig{
		Level:       cfg.Service.LogLevel,
		Development: cfg.Service.Development,
	}
}

// Source

func ProvideSourceClient(cfg *AppConfig, log logger.Logger) (source.Source, error) {
	return rest.NewClient(rest.Config{
		BaseURL:           cfg.Source.BaseURL,
		ClientID:          cfg.Source.ClientID,
		ClientSecret:      cfg.Source.ClientSecret,
		Timeout:           cfg.Source.Timeout,
		MaxRetries:        cfg.Source.MaxRetries,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Burst:             cfg.Source.Burst,
		RefreshMargin:     cfg.Source.RefreshMargin,
	}, log)
}

// Transform and serialization

func ProvideTransformer(cfg *AppConfig) *mapping.Transformer {
	return mapping.NewTransformer(mapping.Options{
		SelectedUnit: cfg.Mapping.SelectedUnit,
		SortActivity: cfg.Mapping.SortActivity,
		Response: mapping.ResponseRules{
			NonEmergencyPriorityIDs: cfg.Mapping.NonEmergencyPriorityIDs,
		},
	})
}

func ProvideSerializer(cfg *AppConfig) *xmlexport.Serializer {
	return xmlexport.NewSerializer(xmlexport.Options{
		IncludeGUID: cfg.XML.IncludeGUID,
		GUID:        cfg.XML.GUID,
	})
}

// Delivery

func ProvideNaming(cfg *AppConfig) delivery.Naming {
	return delivery.Naming{
		Policy: delivery.NamingPolicy(cfg.Delivery.Naming),
		Dir:    cfg.Delivery.Directory,
	}
}

func ProvideTransport(cfg *AppConfig, log logger.Logger) (transfer.Transport, error) {
	switch cfg.Transfer.Backend {
	case TransferS3:
		s3cfg := cfg.Transfer.S3
		client, err := commonsConfig.NewS3Client(context.Background(), commonsConfig.AWSClientConfig{
			Region:   s3cfg.Region,
			Endpoint: s3cfg.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		return s3Transfer.NewS3Transport(client, s3cfg.Bucket, s3cfg.Prefix, s3cfg.Region, log)
	case TransferMinio:
		m := cfg.Transfer.Minio
		return minioTransfer.NewMinioTransport(minioTransfer.Config{
			EndpointURL:     m.Endpoint,
			AccessKeyID:     m.AccessKeyID,
			SecretAccessKey: m.SecretAccessKey,
			Region:          m.Region,
			UseSSL:          m.UseSSL,
			Bucket:          m.Bucket,
			Prefix:          m.Prefix,
		}, log)
	default:
		return localTransfer.NewLocalTransport(cfg.Transfer.Local.Directory, log)
	}
}

// ProvideFingerprintStore keeps fingerprints in process memory unless a shared Redis hash is
// configured.
func ProvideFingerprintStore(lc fx.Lifecycle, cfg *AppConfig, log logger.Logger) (delivery.FingerprintStore, error) {
	if cfg.Fingerprints.Backend != FingerprintsRedis {
		return delivery.NewMemoryStore(), nil
	}

	r := cfg.Fingerprints.Redis
	c, err := redisCache.NewRedisCache(r.Addr, r.Password, r.DB, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return delivery.NewRedisStore(c, r.HashKey), nil
}

func ProvideDeliverer(
	transport transfer.Transport,
	store delivery.FingerprintStore,
	naming delivery.Naming,
	cfg *AppConfig,
	log logger.Logger,
) *delivery.Deliverer {
	policy := delivery.RetryPolicy{
		MaxRetries: cfg.Delivery.MaxRetries,
		BaseDelay:  cfg.Delivery.BaseDelay,
		MaxDelay:   cfg.Delivery.MaxDelay,
		MaxElapsed: cfg.Delivery.MaxElapsed,
	}
	return delivery.NewDeliverer(transport, store, naming, policy, log)
}

// Sheet mirror

// ProvideSheetWriter returns nil when the sheet mirror is disabled.
func ProvideSheetWriter(cfg *AppConfig, log logger.Logger) (service.ISheetWriter, error) {
	switch cfg.Tabular.Backend {
	case TabularSheets:
		store, err := sheetsTabular.NewSheetsStore(
			context.Background(),
			cfg.Tabular.Sheets.SpreadsheetID,
			cfg.Tabular.Sheets.CredentialsFile,
			log,
		)
		if err != nil {
			return nil, err
		}
		return service.NewSheetWriter(store, cfg.Tabular.SheetName, log), nil
	case TabularDynamoDB:
		d := cfg.Tabular.DynamoDB
		client, err := commonsConfig.NewDynamoDBClient(context.Background(), commonsConfig.AWSClientConfig{
			Region:   d.Region,
			Endpoint: d.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamodb client: %w", err)
		}
		store := dynamoTabular.NewRowsStore(client, d.Table, log)
		return service.NewSheetWriter(store, cfg.Tabular.SheetName, log), nil
	default:
		return nil, nil
	}
}

// Services

func ProvideExporter(
	transformer *mapping.Transformer,
	serializer *xmlexport.Serializer,
	deliverer *delivery.Deliverer,
	naming delivery.Naming,
	sheet service.ISheetWriter,
	log logger.Logger,
) service.IExporter {
	return service.NewExporter(transformer, serializer, deliverer, naming, sheet, log)
}

// ProvideCoordinator connects to ZooKeeper when coordination is enabled and otherwise returns
// an in-process lock.
func ProvideCoordinator(lc fx.Lifecycle, cfg *AppConfig, log logger.Logger) (coordinator.Coordinator, error) {
	if cfg.Coordination.Backend != CoordinationZooKeeper {
		return noopCoordinator.NewNoopCoordinator(), nil
	}

	coord, err := zkCoordinator.NewZKCoordinator(cfg.Coordination.Servers, cfg.Coordination.SessionTimeout, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return coord.Close()
		},
	})
	return coord, nil
}

func ProvideCallSync(
	src source.Source,
	exporter service.IExporter,
	coord coordinator.Coordinator,
	cfg *AppConfig,
	log logger.Logger,
) service.ICallSync {
	return service.NewCallSync(src, exporter, coord, cfg.Coordination.LockPath, cfg.Coordination.Owner, log)
}

// HTTP Providers

func ProvideIncidentHandler(log logger.Logger, calls service.ICallSync) *handler.IncidentHandler {
	return handler.NewIncidentHandler(log, calls)
}

func ProvideFingerprintHandler(log logger.Logger, exporter service.IExporter) *handler.FingerprintHandler {
	return handler.NewFingerprintHandler(log, exporter)
}

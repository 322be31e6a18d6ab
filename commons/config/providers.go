package config

import (
	"context"

	"cadbridge/commons/routes"
	"cadbridge/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx/fxevent"
)

// LoggerConfig selects the logger flavour
type LoggerConfig struct {
	Level       string
	Development bool
}

// ProvideLogger creates and configures the logger for the application
func ProvideLogger(cfg LoggerConfig) (logger.Logger, error) {
	if cfg.Development {
		return logger.NewZapLoggerForDev()
	}
	return logger.NewZapLogger(cfg.Level)
}

// ProvideFxLogger creates the FX event logger using the application logger
func ProvideFxLogger(log logger.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{
		Logger: log.(*logger.ZapLogger).Logger(),
	}
}

// ProvideRouteDependencies creates route dependencies
func ProvideRouteDependencies(log logger.Logger) routes.RouteDependencies {
	return routes.RouteDependencies{
		Logger: log,
	}
}

// ProvideRouter creates and configures the Gin router with all routes
func ProvideRouter(
	config routes.RouterConfig,
	deps routes.RouteDependencies,
	routeInitializer func(*gin.Engine, routes.RouteDependencies),
) *gin.Engine {
	router := routes.NewRouter(config, deps)
	routeInitializer(router, deps)
	return router
}

// AWSClientConfig points an AWS client at a region and, for LocalStack or MinIO, an endpoint.
type AWSClientConfig struct {
	Region   string
	Endpoint string
}

func loadAWSConfig(ctx context.Context, c AWSClientConfig) (aws.Config, error) {
	endpoint := c.Endpoint
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if endpoint != "" {
					return aws.Endpoint{
						URL:               endpoint,
						SigningRegion:     region,
						HostnameImmutable: true,
					}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			})),
	)
}

// NewSQSClient provides an SQS client (for LocalStack or AWS)
func NewSQSClient(ctx context.Context, c AWSClientConfig) (*sqs.Client, error) {
	cfg, err := loadAWSConfig(ctx, c)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(cfg), nil
}

// NewDynamoDBClient provides DynamoDB client
func NewDynamoDBClient(ctx context.Context, c AWSClientConfig) (*awsdynamodb.Client, error) {
	cfg, err := loadAWSConfig(ctx, c)
	if err != nil {
		return nil, err
	}
	return awsdynamodb.NewFromConfig(cfg), nil
}

// NewS3Client provides an S3 client for document transfer. Custom endpoints use path-style
// addressing. Every call is a single HTTP attempt: the caller owns the retry policy.
func NewS3Client(ctx context.Context, c AWSClientConfig) (*awss3.Client, error) {
	cfg, err := loadAWSConfig(ctx, c)
	if err != nil {
		return nil, err
	}
	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.UsePathStyle = c.Endpoint != ""
		o.Retryer = aws.NopRetryer{}
	}), nil
}

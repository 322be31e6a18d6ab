package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	coordinator "cadbridge/internal/coordinator/iface"
	"cadbridge/internal/delivery"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the YAML file to load. Without it only defaults and environment
// overrides apply.
const ConfigPathEnv = "CADBRIDGE_CONFIG"

const (
	TransferLocal = "local"
	TransferS3    = "s3"
	TransferMinio = "minio"

	TabularSheets   = "sheets"
	TabularDynamoDB = "dynamodb"
	TabularNone     = "none"

	FingerprintsMemory = "memory"
	FingerprintsRedis  = "redis"

	ListenerSQS   = "sqs"
	ListenerKafka = "kafka"

	HistoryMemory   = "memory"
	HistoryDynamoDB = "dynamodb"

	CoordinationNone      = "none"
	CoordinationZooKeeper = "zookeeper"
)

type AppConfig struct {
	Service      ServiceConfig      `yaml:"service"`
	Server       ServerConfig       `yaml:"server"`
	Source       SourceConfig       `yaml:"source"`
	Mapping      MappingConfig      `yaml:"mapping"`
	XML          XMLConfig          `yaml:"xml"`
	Delivery     DeliveryConfig     `yaml:"delivery"`
	Transfer     TransferConfig     `yaml:"transfer"`
	Tabular      TabularConfig      `yaml:"tabular"`
	Fingerprints FingerprintConfig  `yaml:"fingerprints"`
	Poller       PollerConfig       `yaml:"poller"`
	History      HistoryConfig      `yaml:"history"`
	Listener     ListenerConfig     `yaml:"listener"`
	Coordination CoordinationConfig `yaml:"coordination"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	LogLevel string `yaml:"log_level"`
	// Development switches to the human-readable zap development logger.
	Development bool `yaml:"development"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type SourceConfig struct {
	BaseURL           string        `yaml:"base_url"`
	ClientID          string        `yaml:"client_id"`
	ClientSecret      string        `yaml:"client_secret"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	RefreshMargin     time.Duration `yaml:"refresh_margin"`
}

type MappingConfig struct {
	SelectedUnit            string   `yaml:"selected_unit"`
	SortActivity            bool     `yaml:"sort_activity"`
	NonEmergencyPriorityIDs []string `yaml:"non_emergency_priority_ids"`
}

type XMLConfig struct {
	IncludeGUID bool   `yaml:"include_guid"`
	GUID        string `yaml:"guid"`
}

type DeliveryConfig struct {
	Naming     string        `yaml:"naming"`
	Directory  string        `yaml:"directory"`
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

type TransferConfig struct {
	Backend string              `yaml:"backend"`
	Local   LocalTransferConfig `yaml:"local"`
	S3      S3TransferConfig    `yaml:"s3"`
	Minio   MinioTransferConfig `yaml:"minio"`
}

type LocalTransferConfig struct {
	Directory string `yaml:"directory"`
}

type S3TransferConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type MinioTransferConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
}

type TabularConfig struct {
	Backend   string              `yaml:"backend"`
	SheetName string              `yaml:"sheet_name"`
	Sheets    SheetsTabularConfig `yaml:"sheets"`
	DynamoDB  DynamoDBTableConfig `yaml:"dynamodb"`
}

type SheetsTabularConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type DynamoDBTableConfig struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type FingerprintConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	HashKey  string `yaml:"hash_key"`
}

type PollerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Schedule   string `yaml:"schedule"`
	DaysBack   int    `yaml:"days_back"`
	ActiveOnly bool   `yaml:"active_only"`
	// Filter is an expr expression over the call; empty exports everything.
	Filter string `yaml:"filter"`
}

// HistoryConfig stores the record of each polling batch.
type HistoryConfig struct {
	Backend  string              `yaml:"backend"`
	Capacity int                 `yaml:"capacity"`
	DynamoDB DynamoDBTableConfig `yaml:"dynamodb"`
}

type ListenerConfig struct {
	// Port serves the listener's health and export API.
	Port    string              `yaml:"port"`
	Backend string              `yaml:"backend"`
	SQS     SQSListenerConfig   `yaml:"sqs"`
	Kafka   KafkaListenerConfig `yaml:"kafka"`
}

type SQSListenerConfig struct {
	QueueURL          string `yaml:"queue_url"`
	Region            string `yaml:"region"`
	Endpoint          string `yaml:"endpoint"`
	WaitTimeSeconds   int32  `yaml:"wait_time_seconds"`
	VisibilityTimeout int32  `yaml:"visibility_timeout"`
}

type KafkaListenerConfig struct {
	Brokers     []string      `yaml:"brokers"`
	Topic       string        `yaml:"topic"`
	GroupID     string        `yaml:"group_id"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

type CoordinationConfig struct {
	Backend        string        `yaml:"backend"`
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	LockPath       string        `yaml:"lock_path"`
	// Owner is written on the lock node; defaults to the host name.
	Owner string `yaml:"owner"`
}

// DefaultAppConfig is a local development setup: local file transfer, no sheet, in-memory
// fingerprints, no coordination.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Service: ServiceConfig{Name: "cadbridge", Version: "v1", LogLevel: "info"},
		Server:  ServerConfig{Port: "8090", WriteTimeout: 10 * time.Minute},
		Source: SourceConfig{
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 5,
			Burst:             2,
			RefreshMargin:     60 * time.Second,
		},
		Mapping: MappingConfig{NonEmergencyPriorityIDs: []string{"1561"}},
		Delivery: DeliveryConfig{
			Naming:     string(delivery.NamingStable),
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
			MaxElapsed: 2 * time.Minute,
		},
		Transfer: TransferConfig{
			Backend: TransferLocal,
			Local:   LocalTransferConfig{Directory: "./outbox"},
			S3:      S3TransferConfig{Region: "us-east-1"},
			Minio:   MinioTransferConfig{Region: "us-east-1"},
		},
		Tabular: TabularConfig{
			Backend:   TabularNone,
			SheetName: "Call Data",
			DynamoDB:  DynamoDBTableConfig{Table: "sheet_rows", Region: "us-east-1"},
		},
		Fingerprints: FingerprintConfig{
			Backend: FingerprintsMemory,
			Redis:   RedisConfig{Addr: "localhost:6379", HashKey: delivery.DefaultRedisHashKey},
		},
		Poller: PollerConfig{Enabled: true, Schedule: "0 */5 * * * *", DaysBack: 1},
		History: HistoryConfig{
			Backend:  HistoryMemory,
			Capacity: 100,
			DynamoDB: DynamoDBTableConfig{Table: "sync_runs", Region: "us-east-1"},
		},
		Listener: ListenerConfig{
			Port:    "8091",
			Backend: ListenerSQS,
			SQS:     SQSListenerConfig{Region: "us-east-1", WaitTimeSeconds: 20, VisibilityTimeout: 300},
			Kafka:   KafkaListenerConfig{Topic: "cad-incidents", GroupID: "cadbridge", MaxAttempts: 3, RetryDelay: 5 * time.Second},
		},
		Coordination: CoordinationConfig{
			Backend:        CoordinationNone,
			Servers:        []string{"localhost:2181"},
			SessionTimeout: 30 * time.Second,
			LockPath:       coordinator.DefaultWriterLockPath,
		},
	}
}

// LoadAppConfig reads defaults, then the YAML file named by CADBRIDGE_CONFIG, then CADBRIDGE_*
// environment overrides, and validates the result.
func LoadAppConfig() (*AppConfig, error) {
	return loadAppConfig(os.Getenv(ConfigPathEnv), os.LookupEnv)
}

func loadAppConfig(path string, lookup func(string) (string, bool)) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, lookup); err != nil {
		return nil, err
	}

	if cfg.Coordination.Owner == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = cfg.Service.Name
		}
		cfg.Coordination.Owner = host
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type envOverride struct {
	key   string
	apply func(cfg *AppConfig, value string) error
}

func setString(target func(*AppConfig) *string) func(*AppConfig, string) error {
	return func(cfg *AppConfig, value string) error {
		*target(cfg) = value
		return nil
	}
}

func setInt(target func(*AppConfig) *int) func(*AppConfig, string) error {
	return func(cfg *AppConfig, value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*target(cfg) = v
		return nil
	}
}

func setBool(target func(*AppConfig) *bool) func(*AppConfig, string) error {
	return func(cfg *AppConfig, value string) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*target(cfg) = v
		return nil
	}
}

func setList(target func(*AppConfig) *[]string) func(*AppConfig, string) error {
	return func(cfg *AppConfig, value string) error {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*target(cfg) = out
		return nil
	}
}

var envOverrides = []envOverride{
	{"CADBRIDGE_LOG_LEVEL", setString(func(c *AppConfig) *string { return &c.Service.LogLevel })},
	{"CADBRIDGE_DEVELOPMENT", setBool(func(c *AppConfig) *bool { return &c.Service.Development })},
	{"CADBRIDGE_PORT", setString(func(c *AppConfig) *string { return &c.Server.Port })},

	{"CADBRIDGE_SOURCE_BASE_URL", setString(func(c *AppConfig) *string { return &c.Source.BaseURL })},
	{"CADBRIDGE_SOURCE_CLIENT_ID", setString(func(c *AppConfig) *string { return &c.Source.ClientID })},
	{"CADBRIDGE_SOURCE_CLIENT_SECRET", setString(func(c *AppConfig) *string { return &c.Source.ClientSecret })},

	{"CADBRIDGE_NON_EMERGENCY_PRIORITY_IDS", setList(func(c *AppConfig) *[]string { return &c.Mapping.NonEmergencyPriorityIDs })},
	{"CADBRIDGE_SELECTED_UNIT", setString(func(c *AppConfig) *string { return &c.Mapping.SelectedUnit })},
	{"CADBRIDGE_SORT_ACTIVITY", setBool(func(c *AppConfig) *bool { return &c.Mapping.SortActivity })},
	{"CADBRIDGE_XML_INCLUDE_GUID", setBool(func(c *AppConfig) *bool { return &c.XML.IncludeGUID })},
	{"CADBRIDGE_XML_GUID", setString(func(c *AppConfig) *string { return &c.XML.GUID })},

	{"CADBRIDGE_DELIVERY_NAMING", setString(func(c *AppConfig) *string { return &c.Delivery.Naming })},
	{"CADBRIDGE_DELIVERY_DIRECTORY", setString(func(c *AppConfig) *string { return &c.Delivery.Directory })},
	{"CADBRIDGE_DELIVERY_MAX_RETRIES", setInt(func(c *AppConfig) *int { return &c.Delivery.MaxRetries })},

	{"CADBRIDGE_TRANSFER_BACKEND", setString(func(c *AppConfig) *string { return &c.Transfer.Backend })},
	{"CADBRIDGE_TRANSFER_LOCAL_DIRECTORY", setString(func(c *AppConfig) *string { return &c.Transfer.Local.Directory })},
	{"CADBRIDGE_TRANSFER_S3_BUCKET", setString(func(c *AppConfig) *string { return &c.Transfer.S3.Bucket })},
	{"CADBRIDGE_TRANSFER_S3_ENDPOINT", setString(func(c *AppConfig) *string { return &c.Transfer.S3.Endpoint })},
	{"CADBRIDGE_TRANSFER_MINIO_ENDPOINT", setString(func(c *AppConfig) *string { return &c.Transfer.Minio.Endpoint })},
	{"CADBRIDGE_TRANSFER_MINIO_ACCESS_KEY_ID", setString(func(c *AppConfig) *string { return &c.Transfer.Minio.AccessKeyID })},
	{"CADBRIDGE_TRANSFER_MINIO_SECRET_ACCESS_KEY", setString(func(c *AppConfig) *string { return &c.Transfer.Minio.SecretAccessKey })},
	{"CADBRIDGE_TRANSFER_MINIO_BUCKET", setString(func(c *AppConfig) *string { return &c.Transfer.Minio.Bucket })},

	{"CADBRIDGE_TABULAR_BACKEND", setString(func(c *AppConfig) *string { return &c.Tabular.Backend })},
	{"CADBRIDGE_SHEETS_SPREADSHEET_ID", setString(func(c *AppConfig) *string { return &c.Tabular.Sheets.SpreadsheetID })},
	{"CADBRIDGE_SHEETS_CREDENTIALS_FILE", setString(func(c *AppConfig) *string { return &c.Tabular.Sheets.CredentialsFile })},
	{"CADBRIDGE_DYNAMODB_ENDPOINT", setString(func(c *AppConfig) *string { return &c.Tabular.DynamoDB.Endpoint })},

	{"CADBRIDGE_FINGERPRINTS_BACKEND", setString(func(c *AppConfig) *string { return &c.Fingerprints.Backend })},
	{"CADBRIDGE_REDIS_ADDR", setString(func(c *AppConfig) *string { return &c.Fingerprints.Redis.Addr })},
	{"CADBRIDGE_REDIS_PASSWORD", setString(func(c *AppConfig) *string { return &c.Fingerprints.Redis.Password })},

	{"CADBRIDGE_POLLER_ENABLED", setBool(func(c *AppConfig) *bool { return &c.Poller.Enabled })},
	{"CADBRIDGE_POLLER_SCHEDULE", setString(func(c *AppConfig) *string { return &c.Poller.Schedule })},
	{"CADBRIDGE_POLLER_DAYS_BACK", setInt(func(c *AppConfig) *int { return &c.Poller.DaysBack })},
	{"CADBRIDGE_POLLER_ACTIVE_ONLY", setBool(func(c *AppConfig) *bool { return &c.Poller.ActiveOnly })},
	{"CADBRIDGE_POLLER_FILTER", setString(func(c *AppConfig) *string { return &c.Poller.Filter })},

	{"CADBRIDGE_HISTORY_BACKEND", setString(func(c *AppConfig) *string { return &c.History.Backend })},
	{"CADBRIDGE_LISTENER_PORT", setString(func(c *AppConfig) *string { return &c.Listener.Port })},
	{"CADBRIDGE_LISTENER_BACKEND", setString(func(c *AppConfig) *string { return &c.Listener.Backend })},
	{"CADBRIDGE_SQS_QUEUE_URL", setString(func(c *AppConfig) *string { return &c.Listener.SQS.QueueURL })},
	{"CADBRIDGE_SQS_ENDPOINT", setString(func(c *AppConfig) *string { return &c.Listener.SQS.Endpoint })},
	{"CADBRIDGE_KAFKA_BROKERS", setList(func(c *AppConfig) *[]string { return &c.Listener.Kafka.Brokers })},
	{"CADBRIDGE_KAFKA_TOPIC", setString(func(c *AppConfig) *string { return &c.Listener.Kafka.Topic })},

	{"CADBRIDGE_COORDINATION_BACKEND", setString(func(c *AppConfig) *string { return &c.Coordination.Backend })},
	{"CADBRIDGE_ZOOKEEPER_SERVERS", setList(func(c *AppConfig) *[]string { return &c.Coordination.Servers })},
	{"CADBRIDGE_LOCK_OWNER", setString(func(c *AppConfig) *string { return &c.Coordination.Owner })},
}

func applyEnvOverrides(cfg *AppConfig, lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		value, ok := lookup(o.key)
		if !ok {
			continue
		}
		if err := o.apply(cfg, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s: %w", o.key, err)
		}
	}
	return nil
}

// Validate reports every problem at once.
func (c *AppConfig) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Source.BaseURL == "" {
		fail("source.base_url is required")
	}
	if c.XML.IncludeGUID {
		if _, err := uuid.Parse(c.XML.GUID); err != nil {
			fail("xml.guid must be a UUID when xml.include_guid is set: %v", err)
		}
	}
	if !delivery.NamingPolicy(c.Delivery.Naming).Valid() {
		fail("delivery.naming must be %q or %q", delivery.NamingStable, delivery.NamingUnique)
	}
	if c.Delivery.MaxRetries < 0 {
		fail("delivery.max_retries must not be negative")
	}
	if c.Delivery.BaseDelay <= 0 {
		fail("delivery.base_delay must be positive")
	}
	if c.Delivery.MaxDelay < c.Delivery.BaseDelay {
		fail("delivery.max_delay must be at least delivery.base_delay")
	}

	switch c.Transfer.Backend {
	case TransferLocal:
		if c.Transfer.Local.Directory == "" {
			fail("transfer.local.directory is required")
		}
	case TransferS3:
		if c.Transfer.S3.Bucket == "" {
			fail("transfer.s3.bucket is required")
		}
	case TransferMinio:
		if c.Transfer.Minio.Endpoint == "" || c.Transfer.Minio.Bucket == "" {
			fail("transfer.minio.endpoint and transfer.minio.bucket are required")
		}
	default:
		fail("unknown transfer.backend %q", c.Transfer.Backend)
	}

	switch c.Tabular.Backend {
	case TabularNone:
	case TabularSheets:
		if c.Tabular.Sheets.SpreadsheetID == "" {
			fail("tabular.sheets.spreadsheet_id is required")
		}
	case TabularDynamoDB:
		if c.Tabular.DynamoDB.Table == "" {
			fail("tabular.dynamodb.table is required")
		}
	default:
		fail("unknown tabular.backend %q", c.Tabular.Backend)
	}

	switch c.Fingerprints.Backend {
	case FingerprintsMemory:
	case FingerprintsRedis:
		if c.Fingerprints.Redis.Addr == "" {
			fail("fingerprints.redis.addr is required")
		}
	default:
		fail("unknown fingerprints.backend %q", c.Fingerprints.Backend)
	}

	if c.Poller.DaysBack <= 0 {
		fail("poller.days_back must be positive")
	}

	switch c.History.Backend {
	case HistoryMemory:
	case HistoryDynamoDB:
		if c.History.DynamoDB.Table == "" {
			fail("history.dynamodb.table is required")
		}
	default:
		fail("unknown history.backend %q", c.History.Backend)
	}

	switch c.Listener.Backend {
	case ListenerSQS, ListenerKafka:
	default:
		fail("unknown listener.backend %q", c.Listener.Backend)
	}

	switch c.Coordination.Backend {
	case CoordinationNone:
	case CoordinationZooKeeper:
		if len(c.Coordination.Servers) == 0 {
			fail("coordination.servers is required for zookeeper")
		}
	default:
		fail("unknown coordination.backend %q", c.Coordination.Backend)
	}

	return errors.Join(errs...)
}

// ValidateListener checks the settings only the listener binary needs.
func (c *AppConfig) ValidateListener() error {
	switch c.Listener.Backend {
	case ListenerSQS:
		if c.Listener.SQS.QueueURL == "" {
			return fmt.Errorf("listener.sqs.queue_url is required")
		}
	case ListenerKafka:
		if len(c.Listener.Kafka.Brokers) == 0 || c.Listener.Kafka.Topic == "" {
			return fmt.Errorf("listener.kafka.brokers and listener.kafka.topic are required")
		}
	}
	return nil
}

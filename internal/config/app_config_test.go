package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	coordinator "cadbridge/internal/coordinator/iface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cadbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppConfig_Defaults(t *testing.T) {
	cfg, err := loadAppConfig("", envMap(map[string]string{
		"CADBRIDGE_SOURCE_BASE_URL": "https://cad.example.com/api",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, []string{"1561"}, cfg.Mapping.NonEmergencyPriorityIDs)
	assert.Equal(t, "stable", cfg.Delivery.Naming)
	assert.Equal(t, TransferLocal, cfg.Transfer.Backend)
	assert.Equal(t, TabularNone, cfg.Tabular.Backend)
	assert.Equal(t, "Call Data", cfg.Tabular.SheetName)
	assert.Equal(t, FingerprintsMemory, cfg.Fingerprints.Backend)
	assert.Equal(t, "0 */5 * * * *", cfg.Poller.Schedule)
	assert.Equal(t, coordinator.DefaultWriterLockPath, cfg.Coordination.LockPath)
	assert.NotEmpty(t, cfg.Coordination.Owner)
}

func TestLoadAppConfig_File(t *testing.T) {
	path := writeConfig(t, `
source:
  base_url: https://cad.example.com/api
  client_id: bridge
  client_secret: s3cret
  timeout: 10s
mapping:
  selected_unit: M12
  non_emergency_priority_ids: ["1561", "1562"]
delivery:
  naming: unique
  directory: inbound/cad
  base_delay: 250ms
transfer:
  backend: minio
  minio:
    endpoint: localhost:9000
    bucket: cad-exports
tabular:
  backend: dynamodb
  dynamodb:
    table: call_rows
    endpoint: http://localhost:8000
coordination:
  backend: zookeeper
  servers: ["zk1:2181", "zk2:2181"]
  owner: bridge-a
`)

	cfg, err := loadAppConfig(path, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "bridge", cfg.Source.ClientID)
	assert.Equal(t, 10*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 3, cfg.Source.MaxRetries)
	assert.Equal(t, "M12", cfg.Mapping.SelectedUnit)
	assert.Equal(t, []string{"1561", "1562"}, cfg.Mapping.NonEmergencyPriorityIDs)
	assert.Equal(t, "unique", cfg.Delivery.Naming)
	assert.Equal(t, 250*time.Millisecond, cfg.Delivery.BaseDelay)
	assert.Equal(t, "cad-exports", cfg.Transfer.Minio.Bucket)
	assert.Equal(t, "call_rows", cfg.Tabular.DynamoDB.Table)
	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, cfg.Coordination.Servers)
	assert.Equal(t, "bridge-a", cfg.Coordination.Owner)
}

func TestLoadAppConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
source:
  base_url: https://cad.example.com/api
poller:
  days_back: 2
`)

	cfg, err := loadAppConfig(path, envMap(map[string]string{
		"CADBRIDGE_POLLER_DAYS_BACK":           "7",
		"CADBRIDGE_POLLER_ACTIVE_ONLY":         "true",
		"CADBRIDGE_NON_EMERGENCY_PRIORITY_IDS": "10, 11,,12",
		"CADBRIDGE_KAFKA_BROKERS":              "k1:9092,k2:9092",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Poller.DaysBack)
	assert.True(t, cfg.Poller.ActiveOnly)
	assert.Equal(t, []string{"10", "11", "12"}, cfg.Mapping.NonEmergencyPriorityIDs)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Listener.Kafka.Brokers)
}

func TestLoadAppConfig_BadEnvValue(t *testing.T) {
	_, err := loadAppConfig("", envMap(map[string]string{
		"CADBRIDGE_SOURCE_BASE_URL":  "https://cad.example.com/api",
		"CADBRIDGE_POLLER_DAYS_BACK": "several",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CADBRIDGE_POLLER_DAYS_BACK")
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	_, err := loadAppConfig(filepath.Join(t.TempDir(), "absent.yaml"), envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		cfg := DefaultAppConfig()
		cfg.Source.BaseURL = "https://cad.example.com/api"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{
			name:    "missing base url",
			mutate:  func(c *AppConfig) { c.Source.BaseURL = "" },
			wantErr: "source.base_url is required",
		},
		{
			name: "guid required when included",
			mutate: func(c *AppConfig) {
				c.XML.IncludeGUID = true
				c.XML.GUID = "not-a-guid"
			},
			wantErr: "xml.guid must be a UUID",
		},
		{
			name: "valid guid",
			mutate: func(c *AppConfig) {
				c.XML.IncludeGUID = true
				c.XML.GUID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
			},
		},
		{
			name:    "unknown naming",
			mutate:  func(c *AppConfig) { c.Delivery.Naming = "random" },
			wantErr: "delivery.naming",
		},
		{
			name:    "max delay unset",
			mutate:  func(c *AppConfig) { c.Delivery.MaxDelay = 0 },
			wantErr: "delivery.max_delay must be at least delivery.base_delay",
		},
		{
			name: "max delay below base delay",
			mutate: func(c *AppConfig) {
				c.Delivery.BaseDelay = 5 * time.Second
				c.Delivery.MaxDelay = time.Second
			},
			wantErr: "delivery.max_delay",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *AppConfig) { c.Transfer.Backend = TransferS3 },
			wantErr: "transfer.s3.bucket is required",
		},
		{
			name:    "sheets without spreadsheet",
			mutate:  func(c *AppConfig) { c.Tabular.Backend = TabularSheets },
			wantErr: "tabular.sheets.spreadsheet_id is required",
		},
		{
			name:    "unknown fingerprint backend",
			mutate:  func(c *AppConfig) { c.Fingerprints.Backend = "etcd" },
			wantErr: `unknown fingerprints.backend "etcd"`,
		},
		{
			name: "zookeeper without servers",
			mutate: func(c *AppConfig) {
				c.Coordination.Backend = CoordinationZooKeeper
				c.Coordination.Servers = nil
			},
			wantErr: "coordination.servers is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.Transfer.Backend = "ftp"
	cfg.Poller.DaysBack = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.base_url is required")
	assert.Contains(t, err.Error(), `unknown transfer.backend "ftp"`)
	assert.Contains(t, err.Error(), "poller.days_back must be positive")
}

func TestValidateListener(t *testing.T) {
	cfg := DefaultAppConfig()
	assert.Error(t, cfg.ValidateListener())

	cfg.Listener.SQS.QueueURL = "http://localhost:4566/000000000000/cad-incidents"
	assert.NoError(t, cfg.ValidateListener())

	cfg.Listener.Backend = ListenerKafka
	assert.Error(t, cfg.ValidateListener())
	cfg.Listener.Kafka.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.ValidateListener())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath
}

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
  read_timeout: 20
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
chain:
  rpc_url: "http://localhost:8545"
  chain_id: "eip155:11155111"
  marketplace_address: "0x2222222222222222222222222222222222222222"
  start_block: 18000000
  retry_max_attempts: 3
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  connection_name: "test-connection"
reconciler:
  pending_staleness: "20m"
  conflict_retries: 5
  freshness_threshold: "2m"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 20, cfg.Server.ReadTimeout)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "testuser", cfg.Database.User)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "http://localhost:8545", cfg.Chain.RPCURL)
				assert.Equal(t, "eip155:11155111", string(cfg.Chain.ChainID))
				assert.Equal(t, "0x2222222222222222222222222222222222222222", cfg.Chain.MarketplaceAddress)
				assert.Equal(t, uint64(18000000), cfg.Chain.StartBlock)
				assert.Equal(t, 3, cfg.Chain.RetryMaxAttempts)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, 20*time.Minute, cfg.Reconciler.PendingStaleness)
				assert.Equal(t, 5, cfg.Reconciler.ConflictRetries)
				assert.Equal(t, 2*time.Minute, cfg.Reconciler.FreshnessThreshold)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
chain:
  rpc_url: "http://localhost:8545"
  marketplace_address: "0x2222222222222222222222222222222222222222"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				// Check defaults
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15, cfg.Server.ReadTimeout)
				assert.Equal(t, 30, cfg.Server.WriteTimeout)
				assert.Equal(t, 60, cfg.Server.IdleTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, "eip155:1", string(cfg.Chain.ChainID))
				assert.Equal(t, 500*time.Millisecond, cfg.Chain.RetryInitialInterval)
				assert.Equal(t, 5, cfg.Chain.RetryMaxAttempts)
				assert.Equal(t, uint64(100000), cfg.Chain.LogChunkSize)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "2s", cfg.NATS.ReconnectWait.String())
				assert.Equal(t, "RECONCILER_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, 15*time.Minute, cfg.Reconciler.PendingStaleness)
				assert.Equal(t, 3, cfg.Reconciler.ConflictRetries)
				assert.Equal(t, 5*time.Minute, cfg.Reconciler.FreshnessThreshold)
			},
		},
		{
			name:        "invalid yaml",
			configFile:  "database: [not a map",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfigFile(t, tt.configFile)

			cfg, err := LoadAPIConfig(configPath, t.TempDir())

			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadDaemonConfig(t *testing.T) {
	configPath := writeConfigFile(t, `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
chain:
  rpc_url: "http://localhost:8545"
  marketplace_address: "0x2222222222222222222222222222222222222222"
sweeper:
  cycle_interval: "30m"
  worker_pool_size: 8
`)

	cfg, err := LoadDaemonConfig(configPath, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Sweeper.CycleInterval)
	assert.Equal(t, 8, cfg.Sweeper.WorkerPoolSize)
	assert.Equal(t, "eip155:1", string(cfg.Chain.ChainID))
	assert.Equal(t, 15*time.Minute, cfg.Reconciler.PendingStaleness)
}

func TestLoadDaemonConfig_SweeperDefaults(t *testing.T) {
	configPath := writeConfigFile(t, `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`)

	cfg, err := LoadDaemonConfig(configPath, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Sweeper.CycleInterval)
	assert.Equal(t, 4, cfg.Sweeper.WorkerPoolSize)
}

func TestLoadAPIConfig_EnvironmentOverride(t *testing.T) {
	configPath := writeConfigFile(t, `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`)

	t.Setenv("FF_RECONCILER_DATABASE_HOST", "db.internal")
	t.Setenv("FF_RECONCILER_SERVER_PORT", "9999")
	t.Setenv("FF_RECONCILER_CHAIN_RPC_URL", "http://rpc.internal:8545")

	cfg, err := LoadAPIConfig(configPath, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "http://rpc.internal:8545", cfg.Chain.RPCURL)
}

func TestLoadAPIConfig_DotEnvFile(t *testing.T) {
	envDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env"),
		[]byte("FF_RECONCILER_DATABASE_PASSWORD=from-dotenv\n"), 0600))
	t.Cleanup(func() {
		// godotenv loads into the process environment, undo it
		_ = os.Unsetenv("FF_RECONCILER_DATABASE_PASSWORD")
	})

	configPath := writeConfigFile(t, `
database:
  host: localhost
  user: testuser
  dbname: testdb
`)

	cfg, err := LoadAPIConfig(configPath, envDir)

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Database.Password)
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		DBName:   "reconciler",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=reconciler sslmode=disable",
		cfg.DSN())
}

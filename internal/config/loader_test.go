package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[server]
host = "127.0.0.1"
port = 9000

[database]
url = "file:testharbor.db"
max_connections = 4

[writers.test_result]
batch_size = 50
flush_interval_ms = 200

[auth]
enabled = true
algorithm = "HS256"
secret_path = "/etc/testharbor/secret.key"

[data_retention.test_result]
enabled = true
period_in_day = 30
cron = "0 0 3 * * Sun"

[execution_suggest]
enabled = true
min_query_len = 2
max_query_len = 16
max_candidates = 10
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_FromExplicitConfigPath(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	t.Setenv(envVarConfig, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "file:testharbor.db", cfg.Database.URL)
	assert.Equal(t, 4, cfg.Database.MaxConnections)
	assert.True(t, cfg.Database.WAL, "wal should default true")

	w := cfg.WriterOrDefault("test_result")
	assert.Equal(t, 50, w.BatchSize)
	assert.Equal(t, 200, w.FlushIntervalMS)

	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)

	r := cfg.RetentionOrDefault("test_result")
	assert.Equal(t, 30, r.PeriodInDays)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	t.Setenv(envVarConfig, path)
	t.Setenv("APP_SERVER_PORT", "9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_ExplicitOverridesWinOverEnv(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	t.Setenv(envVarConfig, path)
	t.Setenv("APP_SERVER_PORT", "9999")

	cfg, err := Load(map[string]any{"server.port": 7000})
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_MissingExplicitConfigFileFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envVarConfig, filepath.Join(dir, "does-not-exist.toml"))

	_, err := Load()
	// viper.SetConfigFile + ReadInConfig returns a generic *fs.PathError
	// for an explicit missing path rather than ConfigFileNotFoundError,
	// so Load fails before defaults or overrides are considered.
	require.Error(t, err)
}

func TestLoad_DefaultsAppliedWithoutConfigFile(t *testing.T) {
	t.Setenv(envVarEnv, "doesnotexist")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load(map[string]any{"database.url": ":memory:"})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.True(t, cfg.ExecutionSuggest.Enabled)
	assert.Equal(t, 2, cfg.ExecutionSuggest.MinQueryLen)
}

func TestConfig_ValidateRejectsBadAuthAlgorithm(t *testing.T) {
	cfg := Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{URL: ":memory:"},
		Auth:     AuthConfig{Enabled: true, Algorithm: "MD5", SecretPath: "x"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "algorithm")
}

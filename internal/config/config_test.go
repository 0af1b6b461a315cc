package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into file-based tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "LEDGER_STORE", "LEDGER_SQLITE_PATH", "DATABASE_URL", "REDIS_URL",
		"LEDGER_CACHE_TTL", "GEMINI_API_KEY", "LEDGER_ANALYSIS_MODEL",
		"LEDGER_ANALYSIS_INTERVAL", "LEDGER_SEED",
	} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.True(t, cfg.Seed)
	assert.Equal(t, "gemini-2.0-flash", cfg.Analysis.Model)

	ttl, err := cfg.Store.CacheTTLDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ttl)
	iv, err := cfg.Analysis.IntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, iv)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "mongo" },
			wantErr: true,
			errMsg:  "store.driver must be memory, sqlite or postgres",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Store.Driver = DriverSQLite
				c.Store.SQLitePath = ""
			},
			wantErr: true,
			errMsg:  "store.sqlite_path is required",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Store.Driver = DriverPostgres },
			wantErr: true,
			errMsg:  "store.database_url is required",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Analysis.Interval = "0s" },
			wantErr: true,
			errMsg:  "analysis.interval must be a positive duration",
		},
		{
			name:    "unparsable ttl",
			mutate:  func(c *Config) { c.Store.CacheTTL = "soon" },
			wantErr: true,
			errMsg:  "store.cache_ttl must be a positive duration",
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: true,
			errMsg:  "server.port is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"PORT":               "9090",
		"LEDGER_STORE":       DriverPostgres,
		"DATABASE_URL":       "postgres://ledger@localhost/ledger",
		"REDIS_URL":          "redis://localhost:6379/0",
		"GEMINI_API_KEY":     "secret",
		"LEDGER_SEED":        "false",
		"LEDGER_SQLITE_PATH": "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://ledger@localhost/ledger", cfg.Store.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
	assert.Equal(t, "secret", cfg.Analysis.APIKey)
	assert.Equal(t, "ledger.db", cfg.Store.SQLitePath, "empty variables keep the current value")
	assert.False(t, cfg.Seed)
	assert.NoError(t, cfg.Validate())

	assert.Error(t, Default().ApplyEnv(env(map[string]string{"LEDGER_SEED": "maybe"})))
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
store:
  driver: sqlite
  sqlite_path: /var/lib/ledger/ledger.db
analysis:
  interval: 2s
seed: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/ledger/ledger.db", cfg.Store.SQLitePath)
	assert.Equal(t, "30s", cfg.Store.CacheTTL, "unset keys keep their defaults")
	assert.Equal(t, "2s", cfg.Analysis.Interval)
	assert.False(t, cfg.Seed)
}

func TestLoadJSONFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store": {"driver": "sqlite", "sqlite_path": "x.db"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x.db", cfg.Store.SQLitePath)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: cassandra\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

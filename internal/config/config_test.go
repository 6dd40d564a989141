package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.DefaultTake)
	assert.Equal(t, 1000, cfg.MaxTake)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, "@hourly", cfg.AuditCron)
	assert.False(t, cfg.IsProduction())
}

func TestYAMLOverridesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\nmax_take: 200\ndb_conn_max_lifetime: 5m\n"), 0o600))

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("MAX_TAKE", "500")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 200, cfg.MaxTake)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			LogLevel:           "info",
			StoreDriver:        DriverPostgres,
			DBConnStr:          "postgres://localhost/floor",
			DBMaxOpenConns:     10,
			DBMaxIdleConns:     2,
			DBConnectRetries:   1,
			DefaultTake:        10,
			MaxTake:            1000,
			PasswordSaltLength: 16,
			PasswordHashLength: 32,
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }},
		{"missing dsn", func(c *Config) { c.DBConnStr = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"idle above open", func(c *Config) { c.DBMaxIdleConns = 20 }},
		{"default above max", func(c *Config) { c.DefaultTake = 2000 }},
		{"short salt", func(c *Config) { c.PasswordSaltLength = 4 }},
		{"no retries", func(c *Config) { c.DBConnectRetries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

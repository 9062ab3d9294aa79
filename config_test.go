package gifp4

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gifp4.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv hides any configuration from the environment running the tests.
func clearEnv(t *testing.T) {
	for _, key := range []string{"GIFP4_ADDR", "GIFP4_STORE", "GIFP4_SQLITE_PATH", "DATABASE_URL", "REDIS_ADDR", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	c, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:4312", c.Server.Addr)
	assert.Equal(t, 5*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Equal(t, "gifp4.sqlite", c.Store.SQLite.Path)
	assert.Equal(t, "gifp4:", c.Store.Redis.KeyPrefix)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 0.0.0.0:8080
  read_timeout: 2s
  shutdown_timeout: 1m
store:
  driver: postgres
  postgres:
    dsn: postgres://gifp4:secret@db:5432/gifp4
    max_conns: 8
log:
  level: debug
`)
	clearEnv(t)

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", c.Server.Addr)
	assert.Equal(t, 2*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, c.Server.WriteTimeout, "unset keys keep their defaults")
	assert.Equal(t, time.Minute, c.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", c.Store.Driver)
	assert.Equal(t, "postgres://gifp4:secret@db:5432/gifp4", c.Store.Postgres.DSN)
	assert.Equal(t, int32(8), c.Store.Postgres.MaxConns)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadConfigEnv(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite
  sqlite:
    path: from-file.sqlite
`)

	t.Setenv("GIFP4_ADDR", ":9999")
	t.Setenv("GIFP4_STORE", "redis")
	t.Setenv("GIFP4_SQLITE_PATH", "from-env.sqlite")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DATABASE_URL", "postgres://localhost/gifp4")
	t.Setenv("LOG_LEVEL", "warn")

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", c.Server.Addr)
	assert.Equal(t, "redis", c.Store.Driver)
	assert.Equal(t, "from-env.sqlite", c.Store.SQLite.Path)
	assert.Equal(t, "redis:6379", c.Store.Redis.Addr)
	assert.Equal(t, "postgres://localhost/gifp4", c.Store.Postgres.DSN)
	assert.Equal(t, "warn", c.Log.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server:\n  read_timeout: soon\n"))
		assert.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"memory", func(c *Config) { c.Store.Driver = "memory" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sled" }, false},
		{"empty address", func(c *Config) { c.Server.Addr = "" }, false},
		{"sqlite without path", func(c *Config) { c.Store.SQLite.Path = "" }, false},
		{"postgres without DSN", func(c *Config) { c.Store.Driver = "postgres" }, false},
		{"postgres", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.Postgres.DSN = "postgres://localhost/gifp4"
		}, true},
		{"redis without address", func(c *Config) { c.Store.Driver = "redis" }, false},
		{"redis", func(c *Config) {
			c.Store.Driver = "redis"
			c.Store.Redis.Addr = "localhost:6379"
		}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.modify(&c)
			err := c.Validate()
			if test.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

package gifp4

import (
	"os"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of the whole service.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Store StoreConfig `yaml:"store"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// StoreConfig selects and parameterizes the Store engine.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres, redis or memory

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	Postgres struct {
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"postgres"`

	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`
}

// DefaultConfig returns a configuration serving on localhost from a SQLite file
// in the working directory.
func DefaultConfig() Config {
	var c Config
	c.Server.Addr = "127.0.0.1:4312"
	c.Server.ReadTimeout = 5 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Store.Driver = "sqlite"
	c.Store.SQLite.Path = "gifp4.sqlite"
	c.Store.Redis.KeyPrefix = "gifp4:"
	c.Log.Level = "info"
	return c
}

// LoadConfig starts from DefaultConfig, applies the YAML file at path (skipped
// if path is empty), then the environment, and validates the result.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, xerrors.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, xerrors.Errorf("could not parse config file %s: %w", path, err)
		}
	}

	c.parseEnv()

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) parseEnv() {
	if addr := os.Getenv("GIFP4_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if driver := os.Getenv("GIFP4_STORE"); driver != "" {
		c.Store.Driver = driver
	}
	if path := os.Getenv("GIFP4_SQLITE_PATH"); path != "" {
		c.Store.SQLite.Path = path
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Store.Postgres.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Store.Redis.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate checks that the selected store driver is known and has what it needs to connect.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return xerrors.New("server address must not be empty")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return xerrors.New("sqlite store needs a path")
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return xerrors.New("postgres store needs a DSN")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return xerrors.New("redis store needs an address")
		}
	case "memory":
	default:
		return xerrors.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

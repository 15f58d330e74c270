package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Config is the full runtime configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Store   StoreConfig   `mapstructure:"store"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Server  ServerConfig  `mapstructure:"server"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects where the session document lives.
type StoreConfig struct {
	Driver string   `mapstructure:"driver"`
	Key    string   `mapstructure:"key"`
	Path   string   `mapstructure:"path"`
	DSN    string   `mapstructure:"dsn"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	PathStyle bool   `mapstructure:"path_style"`
}

type CatalogConfig struct {
	Paths []string `mapstructure:"paths"`
}

type EngineConfig struct {
	StrictAdapterDetection bool   `mapstructure:"strict_adapter_detection"`
	SheetType              string `mapstructure:"sheet_type"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	cfg, _ := decode(newViper())
	return cfg
}

// Load reads the YAML file at path (if it exists), applies RELIC_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RELIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.key", "default")
	v.SetDefault("store.path", "data")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.region", "us-east-1")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("store.s3.prefix", "relic/")
	v.SetDefault("store.s3.path_style", false)
	v.SetDefault("catalog.paths", []string{})
	v.SetDefault("engine.strict_adapter_detection", false)
	v.SetDefault("engine.sheet_type", "")
	v.SetDefault("server.address", ":8080")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	return &cfg, nil
}

// Validate checks driver prerequisites.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Key) == "" {
		return fmt.Errorf("store.key is required")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case DriverS3:
		if strings.TrimSpace(c.Store.S3.Bucket) == "" {
			return fmt.Errorf("store.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format: %q", c.Logging.Format)
	}
	return nil
}

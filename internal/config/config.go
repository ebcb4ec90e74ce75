// Package config loads service settings from defaults, an optional YAML file
// and SHELF_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"Shelf/internal/kvstore"
)

const (
	envPrefix         = "SHELF"
	configFileEnvName = "SHELF_CONFIG_FILE"
)

type Remote struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Storage struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	RedisURL    string `mapstructure:"redis_url"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Namespace   string `mapstructure:"namespace"`
}

func (s Storage) Backend() kvstore.BackendConfig {
	return kvstore.BackendConfig{
		Driver:      s.Driver,
		Path:        s.Path,
		RedisURL:    s.RedisURL,
		PostgresDSN: s.PostgresDSN,
	}
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

type Config struct {
	HTTPAddr     string  `mapstructure:"http_addr"`
	LogLevel     string  `mapstructure:"log_level"`
	FetchOnStart bool    `mapstructure:"fetch_on_start"`
	Remote       Remote  `mapstructure:"remote"`
	Storage      Storage `mapstructure:"storage"`
	Metrics      Metrics `mapstructure:"metrics"`
}

var defaults = map[string]any{
	"http_addr":            ":8080",
	"log_level":            "info",
	"fetch_on_start":       true,
	"remote.base_url":      "https://fakestoreapi.com",
	"remote.timeout":       10 * time.Second,
	"storage.driver":       kvstore.DriverLevelDB,
	"storage.path":         "data/shelf",
	"storage.redis_url":    "",
	"storage.postgres_dsn": "",
	"storage.namespace":    "",
	"metrics.enabled":      true,
	"metrics.token":        "",
}

// Load reads configuration for a process started with args (without the
// program name). lookupEnv is usually os.LookupEnv.
func Load(args []string, lookupEnv func(string) (string, bool)) (Config, error) {
	path, err := configFilepath(args, lookupEnv)
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// overrides win over the file
	for k := range defaults {
		if val, ok := lookupEnv(envName(k)); ok {
			v.Set(k, val)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envName maps a key such as storage.redis_url to SHELF_STORAGE_REDIS_URL.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configFilepath(args []string, lookupEnv func(string) (string, bool)) (string, error) {
	cmdLine := pflag.NewFlagSet("shelf", pflag.ContinueOnError)
	arg := cmdLine.String("config", "", "config file")
	if err := cmdLine.Parse(args); err != nil {
		return "", fmt.Errorf("parse flags: %w", err)
	}
	if env, ok := lookupEnv(configFileEnvName); ok && env != "" {
		return env, nil
	}
	return *arg, nil
}

var ErrInvalid = errors.New("invalid config")

func (c Config) validate() error {
	switch c.Storage.Driver {
	case kvstore.DriverMemory, kvstore.DriverLevelDB, kvstore.DriverRedis, kvstore.DriverPostgres:
	default:
		return fmt.Errorf("%w: storage.driver %q", ErrInvalid, c.Storage.Driver)
	}
	if c.Storage.Driver == kvstore.DriverRedis && c.Storage.RedisURL == "" {
		return fmt.Errorf("%w: storage.redis_url is required for redis", ErrInvalid)
	}
	if c.Storage.Driver == kvstore.DriverPostgres && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: storage.postgres_dsn is required for postgres", ErrInvalid)
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("%w: remote.base_url is empty", ErrInvalid)
	}
	return nil
}

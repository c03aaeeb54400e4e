// Package config loads service configuration from defaults, an optional
// YAML file and FILX_ environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/prokemal2012/Filx/internal/explore"
	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/validation"
)

// EnvPrefix prefixes every environment override. Nested keys are joined
// with a double underscore, e.g. FILX_SERVER__PORT.
const EnvPrefix = "FILX_"

// ConfigPathEnvVar overrides the config file location
const ConfigPathEnvVar = "FILX_CONFIG"

// DefaultConfigPaths are tried in order when FILX_CONFIG is unset
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// MemoryDriver keeps all data in process memory
const MemoryDriver = "memory"

// Config is the full service configuration
type Config struct {
	Server    ServerConfig         `koanf:"server"`
	Storage   StorageConfig        `koanf:"storage"`
	Auth      AuthConfig           `koanf:"auth"`
	Logging   logging.Config       `koanf:"logging"`
	Ranking   ranking.Weights      `koanf:"ranking"`
	Trending  explore.Config       `koanf:"trending"`
	Explore   explore.SectionSizes `koanf:"explore"`
	Index     IndexConfig          `koanf:"index"`
	RateLimit RateLimitConfig      `koanf:"rate_limit"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig locates the database and search index
type StorageConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=sqlite memory"`
	DataDir  string `koanf:"data_dir" validate:"required"`
	DBFile   string `koanf:"db_file" validate:"required"`
	IndexDir string `koanf:"index_dir" validate:"required"`
}

// DBPath returns the SQLite database path
func (s StorageConfig) DBPath() string {
	return filepath.Join(s.DataDir, s.DBFile)
}

// IndexPath returns the bleve index directory
func (s StorageConfig) IndexPath() string {
	return filepath.Join(s.DataDir, s.IndexDir)
}

// AuthConfig configures session tokens
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret" validate:"omitempty,min=32"`
	CookieName string        `koanf:"cookie_name" validate:"required"`
	Issuer     string        `koanf:"issuer"`
	TokenTTL   time.Duration `koanf:"token_ttl" validate:"gt=0"`
}

// IndexConfig configures background index reconciliation
type IndexConfig struct {
	SyncInterval time.Duration `koanf:"sync_interval" validate:"gte=0"` // 0 disables the background loop
	Concurrency  int           `koanf:"concurrency" validate:"gte=1,lte=64"`
}

// RateLimitConfig limits requests per client IP
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"gte=1"`
	Window   time.Duration `koanf:"window" validate:"gt=0"`
}

// Aggregation returns the trending and explore settings as one value
func (c *Config) Aggregation() explore.Config {
	cfg := c.Trending
	cfg.Sections = c.Explore
	return cfg
}

// Default returns the built-in configuration
func Default() *Config {
	agg := explore.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:   "sqlite",
			DataDir:  "data",
			DBFile:   "filx.db",
			IndexDir: "filx.bleve",
		},
		Auth: AuthConfig{
			CookieName: "auth",
			Issuer:     "filx",
			TokenTTL:   7 * 24 * time.Hour,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
		Ranking:  ranking.DefaultWeights(),
		Trending: agg,
		Explore:  agg.Sections,
		Index: IndexConfig{
			SyncInterval: 5 * time.Minute,
			Concurrency:  5,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   time.Minute,
		},
	}
}

// Load builds the configuration. path overrides FILX_CONFIG and the
// default search paths when non-empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validation.Struct("Invalid configuration", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		return envPath
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envKey maps FILX_SERVER__PORT to server.port. FILX_CONFIG itself is not
// a config key.
func envKey(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

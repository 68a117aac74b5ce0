package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/botbridge/routecore/internal/breaker"
	"github.com/botbridge/routecore/internal/core/services"
	"github.com/botbridge/routecore/internal/invoker"
)

// SchemaVersion is the config schema this build understands. Config
// files declaring a newer major version are rejected at startup.
const SchemaVersion = "1.0.0"

type Config struct {
	SchemaVersion string `mapstructure:"schema_version"`

	Server    ServerConfig           `mapstructure:"server"`
	Store     StoreConfig            `mapstructure:"store"`
	Redis     RedisConfig            `mapstructure:"redis"`
	RateLimit RateLimitConfig        `mapstructure:"rate_limit"`
	Breaker   breaker.Config         `mapstructure:"breaker"`
	Routing   RoutingConfig          `mapstructure:"routing"`
	Upstream  invoker.Config         `mapstructure:"upstream"`
	Chain     services.ChainDefaults `mapstructure:"chain_defaults"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// APIKeys are the static keys clients authenticate with. Values
	// prefixed with ENV: resolve from the environment.
	APIKeys []string `mapstructure:"api_keys"`
	Tracing bool     `mapstructure:"tracing"`
}

type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
	// SeedFile, when set, is applied on startup.
	SeedFile string `mapstructure:"seed_file"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type RoutingConfig struct {
	DefaultStrategy string        `mapstructure:"default_strategy"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("schema_version", SchemaVersion)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("store.dsn", "file:routecore.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("routing.default_strategy", "default")
	v.SetDefault("routing.cache_ttl", 30*time.Second)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := checkSchemaVersion(cfg.SchemaVersion); err != nil {
		return nil, err
	}

	// Resolve secrets declared as ENV: references.
	for i, key := range cfg.Server.APIKeys {
		cfg.Server.APIKeys[i] = resolveEnv(key)
	}
	for name, ep := range cfg.Upstream.Endpoints {
		ep.APIKey = resolveEnv(ep.APIKey)
		cfg.Upstream.Endpoints[name] = ep
	}
	cfg.Redis.Password = resolveEnv(cfg.Redis.Password)

	return &cfg, nil
}

func resolveEnv(value string) string {
	if !strings.HasPrefix(value, "ENV:") {
		return value
	}
	return os.Getenv(strings.TrimPrefix(value, "ENV:"))
}

func checkSchemaVersion(declared string) error {
	if declared == "" {
		return nil
	}
	have, err := goversion.NewVersion(SchemaVersion)
	if err != nil {
		return err
	}
	got, err := goversion.NewVersion(declared)
	if err != nil {
		return fmt.Errorf("invalid schema_version %q: %w", declared, err)
	}
	if got.Segments()[0] > have.Segments()[0] {
		return fmt.Errorf("config schema_version %s is newer than supported %s", declared, SchemaVersion)
	}
	return nil
}

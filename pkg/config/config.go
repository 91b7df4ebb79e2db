package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/developer-mesh/task-manager/pkg/cache"
	"github.com/developer-mesh/task-manager/pkg/observability"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. TASKS_API_LISTEN_ADDRESS
const EnvPrefix = "TASKS"

// DefaultConfigFile is read when neither an explicit path nor TASKS_CONFIG_FILE is given
const DefaultConfigFile = "configs/config.yaml"

// RateLimitConfig configures the per-client request limiter
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Limit   float64 `mapstructure:"limit"`
	Burst   int     `mapstructure:"burst"`
}

// APIConfig defines the API server configuration
type APIConfig struct {
	ListenAddress string          `mapstructure:"listen_address"`
	ReadTimeout   time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration   `mapstructure:"idle_timeout"`
	EnableCORS    bool            `mapstructure:"enable_cors"`
	CORSOrigins   []string        `mapstructure:"cors_origins"`
	LogRequests   bool            `mapstructure:"log_requests"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
}

// Config holds the complete application configuration
type Config struct {
	Environment string                      `mapstructure:"environment"`
	API         APIConfig                   `mapstructure:"api"`
	Database    DatabaseConfig              `mapstructure:"database"`
	Cache       cache.RedisConfig           `mapstructure:"cache"`
	Metrics     observability.MetricsConfig `mapstructure:"metrics"`
	Logging     observability.LoggingConfig `mapstructure:"logging"`
	Tracing     observability.TracingConfig `mapstructure:"tracing"`
}

// Load loads configuration from defaults, an optional YAML file and the environment.
// An empty path falls back to TASKS_CONFIG_FILE and then DefaultConfigFile; only an
// explicitly requested file has to exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFile
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional container variables
	_ = v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("cache.address", EnvPrefix+"_CACHE_ADDRESS", "REDIS_ADDR")

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	// ${VAR} and ${VAR:-default} in file values
	processEnvExpansion(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func processEnvExpansion(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		value, ok := v.Get(key).(string)
		if !ok || value == "" {
			continue
		}

		if strings.Contains(value, "${") && strings.Contains(value, "}") {
			if expanded := expandEnvVars(value); expanded != value {
				v.Set(key, expanded)
			}
		}
	}
}

// expandEnvVars expands environment variables in a string
// Supports ${VAR} and ${VAR:-default} syntax
func expandEnvVars(value string) string {
	result := value

	for {
		start := strings.Index(result, "${")
		if start == -1 {
			break
		}

		rel := strings.Index(result[start:], "}")
		if rel == -1 {
			break
		}
		end := start + rel

		varRef := result[start+2 : end]

		envVar, defaultVal, _ := strings.Cut(varRef, ":-")

		envVal := os.Getenv(envVar)
		if envVal == "" {
			envVal = defaultVal
		}

		result = result[:start] + envVal + result[end+1:]
	}

	return result
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Environment (dev, staging, prod)
	v.SetDefault("environment", "dev")

	// API defaults
	v.SetDefault("api.listen_address", ":8080")
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("api.write_timeout", 30*time.Second)
	v.SetDefault("api.idle_timeout", 90*time.Second)
	v.SetDefault("api.enable_cors", true)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.log_requests", true)
	v.SetDefault("api.rate_limit.enabled", false)
	v.SetDefault("api.rate_limit.limit", 100)
	v.SetDefault("api.rate_limit.burst", 150)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "tasks")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.retry.max_retries", 5)
	v.SetDefault("database.retry.initial_interval", time.Second)
	v.SetDefault("database.retry.max_interval", 30*time.Second)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.type", "redis")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.username", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.database", 0)
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.dial_timeout", 5*time.Second)
	v.SetDefault("cache.read_timeout", 3*time.Second)
	v.SetDefault("cache.write_timeout", 3*time.Second)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.circuit_breaker.enabled", true)
	v.SetDefault("cache.circuit_breaker.max_requests", 5)
	v.SetDefault("cache.circuit_breaker.interval", 30*time.Second)
	v.SetDefault("cache.circuit_breaker.timeout", 60*time.Second)
	v.SetDefault("cache.circuit_breaker.failure_ratio", 0.5)
	v.SetDefault("cache.circuit_breaker.min_requests", 5)

	// Observability defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "tasks")
	v.SetDefault("logging.level", "info")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "task-manager")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "dev" || c.Environment == "development"
}

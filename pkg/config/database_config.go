package config

import (
	"time"

	"github.com/developer-mesh/task-manager/pkg/database"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	Username        string        `yaml:"username" mapstructure:"username"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	Retry           RetryConfig   `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig controls how startup retries the initial database connection
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries" mapstructure:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
}

// ToDatabaseConfig converts the loaded section into a database.Config,
// keeping database package defaults for anything left unset.
func (c DatabaseConfig) ToDatabaseConfig() database.Config {
	cfg := database.NewConfig()

	if c.Driver != "" {
		cfg.Driver = c.Driver
	}
	cfg.DSN = c.DSN
	if c.Host != "" {
		cfg.Host = c.Host
	}
	if c.Port > 0 {
		cfg.Port = c.Port
	}
	if c.Database != "" {
		cfg.Database = c.Database
	}
	cfg.Username = c.Username
	cfg.Password = c.Password
	if c.SSLMode != "" {
		cfg.SSLMode = c.SSLMode
	}
	if c.MaxOpenConns > 0 {
		cfg.MaxOpenConns = c.MaxOpenConns
	}
	if c.MaxIdleConns > 0 {
		cfg.MaxIdleConns = c.MaxIdleConns
	}
	if c.ConnMaxLifetime > 0 {
		cfg.ConnMaxLifetime = c.ConnMaxLifetime
	}
	if c.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.ConnectTimeout
	}
	if c.Retry.MaxRetries != 0 {
		cfg.MaxRetries = c.Retry.MaxRetries
	}
	if c.Retry.InitialInterval > 0 {
		cfg.InitialInterval = c.Retry.InitialInterval
	}
	if c.Retry.MaxInterval > 0 {
		cfg.MaxInterval = c.Retry.MaxInterval
	}

	return *cfg
}

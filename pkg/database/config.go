// Package database manages the lifecycle of the task manager's SQL connection.
package database

import (
	"fmt"
	"net/url"
	"time"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config defines what the database package needs - no external imports!
type Config struct {
	Driver          string
	DSN             string
	Host            string
	Port            int
	Database        string
	Username        string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	ConnectTimeout time.Duration

	// Connect retry settings; a negative MaxRetries retries until ctx is done
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// NewConfig creates config with sensible defaults
func NewConfig() *Config {
	return &Config{
		Driver:          DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		Database:        "tasks",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// GetDSN returns the connection string for the database
func (c *Config) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == DriverSQLite {
		return c.Database
	}
	return buildPostgresDSN(c)
}

// buildPostgresDSN constructs a PostgreSQL connection URL
func buildPostgresDSN(c *Config) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	return u.String()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}

	switch c.Driver {
	case DriverPostgres:
		if c.DSN == "" && (c.Host == "" || c.Database == "") {
			return ErrInvalidDatabaseConfig
		}
	case DriverSQLite:
		if c.DSN == "" && c.Database == "" {
			return ErrInvalidDatabaseConfig
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}

	return nil
}

package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	"github.com/developer-mesh/task-manager/pkg/observability"

	// Import PostgreSQL driver
	_ "github.com/lib/pq"
	// Import SQLite driver for embedded deployments and tests
	_ "github.com/mattn/go-sqlite3"
)

// Common errors
var (
	ErrInvalidDatabaseConfig = errors.New("invalid database configuration: missing required fields")
	ErrUnsupportedDriver     = errors.New("unsupported database driver")
)

// sanitizeDSN removes sensitive information from a DSN for safe logging
func sanitizeDSN(dsn string) string {
	// key=value format
	if strings.Contains(dsn, "password=") {
		parts := strings.Split(dsn, " ")
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	}
	// URL format
	if idx := strings.Index(dsn, "://"); idx != -1 {
		if atIdx := strings.Index(dsn[idx:], "@"); atIdx != -1 {
			return dsn[:idx+3] + "***:***" + dsn[idx+atIdx:]
		}
	}
	return dsn
}

// Database represents the database access layer
type Database struct {
	db     *sqlx.DB
	config Config
}

// NewDatabase opens and verifies a database connection
func NewDatabase(ctx context.Context, cfg Config) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	db, err := sqlx.ConnectContext(connectCtx, cfg.Driver, cfg.GetDSN())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect to %s", sanitizeDSN(cfg.GetDSN()))
	}

	if cfg.Driver == DriverSQLite {
		// SQLite serializes writers; a single connection also keeps in-memory databases shared
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	return &Database{db: db, config: cfg}, nil
}

// ConnectWithRetry establishes a database connection, retrying with exponential backoff
func ConnectWithRetry(ctx context.Context, cfg Config, logger observability.Logger) (*Database, error) {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	b.MaxElapsedTime = 0

	var policy backoff.BackOff = b
	if cfg.MaxRetries >= 0 {
		policy = backoff.WithMaxRetries(b, uint64(cfg.MaxRetries))
	}

	attempt := 0
	var database *Database
	operation := func() error {
		attempt++
		db, err := NewDatabase(ctx, cfg)
		if err != nil {
			if errors.Is(err, ErrInvalidDatabaseConfig) || errors.Is(err, ErrUnsupportedDriver) {
				return backoff.Permanent(err)
			}
			return err
		}
		database = db
		return nil
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("Database connection failed, retrying", map[string]any{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to connect to database after %d attempts", attempt)
	}

	logger.Info("Database connection established", map[string]any{
		"driver":  cfg.Driver,
		"attempt": attempt,
	})
	return database, nil
}

// NewDatabaseWithConnection wraps an existing connection
func NewDatabaseWithConnection(db *sqlx.DB) *Database {
	return &Database{
		db:     db,
		config: Config{Driver: db.DriverName()},
	}
}

// Ping verifies the connection is alive
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// GetDB returns the underlying sqlx handle
func (d *Database) GetDB() *sqlx.DB {
	return d.db
}

// Driver returns the driver name the connection was opened with
func (d *Database) Driver() string {
	return d.db.DriverName()
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

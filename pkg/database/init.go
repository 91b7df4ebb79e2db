package database

import (
	"context"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// TasksTable is the name of the table holding task rows
const TasksTable = "tasks"

var tableDefinitions = map[string]string{
	DriverPostgres: `CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	DriverSQLite: `CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT 0
	)`,
}

// InitializeTables creates the tasks table when it does not exist yet
func (d *Database) InitializeTables(ctx context.Context) error {
	ddl, ok := tableDefinitions[d.Driver()]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, d.Driver())
	}

	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return pkgerrors.Wrap(err, "failed to create tasks table")
	}
	return nil
}

package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/Simplici0/panelpro/internal/db"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var sqlFS embed.FS

// Up runs all pending embedded SQL migrations for the database driver.
func Up(ctx context.Context, database *db.DB) error {
	dialect, dir, err := dialectFor(database.Driver)
	if err != nil {
		return err
	}

	fsys, err := fs.Sub(sqlFS, dir)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, database.DB, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	return nil
}

func dialectFor(driver string) (goose.Dialect, string, error) {
	switch driver {
	case db.DriverSQLite:
		return goose.DialectSQLite3, "sql/sqlite", nil
	case db.DriverPostgres:
		return goose.DialectPostgres, "sql/postgres", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

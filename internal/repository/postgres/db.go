package postgres

import (
	"context"
	_ "embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// New opens a pool using either the "pgx" or the "postgres" (lib/pq) driver.
func New(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "pgx", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return sqlx.Connect(driver, dsn)
}

// Migrate applies the idempotent account schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

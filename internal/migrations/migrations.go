// Package migrations embeds the goose schema migrations for both supported
// dialects and applies them.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// Dialect names a supported database flavour.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) gooseDialect() (string, error) {
	switch d {
	case DialectSQLite:
		return "sqlite3", nil
	case DialectPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", d)
	}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Up applies every pending migration for dialect d.
func Up(ctx context.Context, db *sql.DB, d Dialect) error {
	gd, err := d.gooseDialect()
	if err != nil {
		return err
	}
	goose.SetBaseFS(Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gd); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, string(d)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

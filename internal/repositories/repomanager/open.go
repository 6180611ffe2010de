package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/filex"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=FULL",
	"PRAGMA foreign_keys=ON",
}

// Open connects to the configured database, applies connection settings
// and migrations, and returns the matching RepositoryManager. busyTimeout
// only applies to SQLite.
func Open(ctx context.Context, driver, dsn string, busyTimeout time.Duration) (*sql.DB, RepositoryManager, error) {
	switch driver {
	case DriverSQLite:
		return openSQLite(ctx, dsn, busyTimeout)
	case DriverPostgres:
		return openPostgres(ctx, dsn)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func openSQLite(ctx context.Context, dsn string, busyTimeout time.Duration) (*sql.DB, RepositoryManager, error) {
	if path, ok := sqliteFilePath(dsn); ok {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, nil, fmt.Errorf("failed to prepare database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers and keeps :memory: databases whole.
	db.SetMaxOpenConns(1)

	pragmas := append(slices.Clone(sqlitePragmas), fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()))
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	m := NewSQLiteRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, m, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	m := NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, m, nil
}

// sqliteFilePath extracts the on-disk path from a SQLite DSN. In-memory
// databases have none.
func sqliteFilePath(dsn string) (string, bool) {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return "", false
	}
	return path, true
}

package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/nidkeeper/internal/migrations"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/audit"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/citizens"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFactories_ReturnDialectRepos(t *testing.T) {
	db := newMockDB(t)

	pg := NewPostgresRepositoryManager()
	assert.Equal(t, migrations.DialectPostgres, pg.Dialect())
	assert.IsType(t, &credentials.PostgresRepository{}, pg.Credentials(db))
	assert.IsType(t, &audit.PostgresRepository{}, pg.Audit(db))
	assert.IsType(t, &citizens.PostgresRepository{}, pg.Citizens(db))

	lite := NewSQLiteRepositoryManager()
	assert.Equal(t, migrations.DialectSQLite, lite.Dialect())
	assert.IsType(t, &credentials.SQLiteRepository{}, lite.Credentials(db))
	assert.IsType(t, &audit.SQLiteRepository{}, lite.Audit(db))
	assert.IsType(t, &citizens.SQLiteRepository{}, lite.Citizens(db))

	var _ RepositoryManager = pg
	var _ RepositoryManager = lite
}

func TestRunMigrations_PassesDialect(t *testing.T) {
	db := newMockDB(t)

	var got []migrations.Dialect
	orig := migrate
	migrate = func(ctx context.Context, db *sql.DB, d migrations.Dialect) error {
		got = append(got, d)
		return nil
	}
	defer func() { migrate = orig }()

	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	require.NoError(t, NewSQLiteRepositoryManager().RunMigrations(context.Background(), db))
	assert.Equal(t, []migrations.Dialect{migrations.DialectPostgres, migrations.DialectSQLite}, got)
}

func TestRunMigrations_Error(t *testing.T) {
	db := newMockDB(t)

	orig := migrate
	migrate = func(context.Context, *sql.DB, migrations.Dialect) error { return errors.New("boom") }
	defer func() { migrate = orig }()

	assert.EqualError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db), "boom")
}

func TestOpen_SQLiteFileCreatesDirAndSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "nidkeeper.db")

	db, m, err := Open(ctx, DriverSQLite, path, time.Second)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, migrations.DialectSQLite, m.Dialect())
	_, err = os.Stat(path)
	require.NoError(t, err)

	n, err := m.Credentials(db).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 1000, timeout)
}

func TestOpen_SQLiteMemory(t *testing.T) {
	db, m, err := Open(context.Background(), DriverSQLite, ":memory:", 0)
	require.NoError(t, err)
	defer db.Close()

	n, err := m.Audit(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, _, err := Open(context.Background(), "oracle", "x", 0)
	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
}

func TestOpen_MigrationFailureClosesDB(t *testing.T) {
	orig := migrate
	migrate = func(context.Context, *sql.DB, migrations.Dialect) error { return errors.New("boom") }
	defer func() { migrate = orig }()

	_, _, err := Open(context.Background(), DriverSQLite, ":memory:", 0)
	assert.EqualError(t, err, "boom")
}

func TestSQLiteFilePath(t *testing.T) {
	tests := []struct {
		dsn  string
		path string
		ok   bool
	}{
		{":memory:", "", false},
		{"file::memory:?cache=shared", "", false},
		{"", "", false},
		{"data/nid.db", "data/nid.db", true},
		{"file:data/nid.db?_pragma=busy_timeout(100)", "data/nid.db", true},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			path, ok := sqliteFilePath(tt.dsn)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.path, path)
		})
	}
}

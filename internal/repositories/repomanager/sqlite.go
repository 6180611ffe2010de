package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/migrations"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/audit"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/citizens"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/credentials"
)

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

// NewSQLiteRepositoryManager constructs a SQLite-backed RepositoryManager.
func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Dialect() migrations.Dialect {
	return migrations.DialectSQLite
}

func (m *SQLiteRepositoryManager) Credentials(db dbx.DBTX) credentials.Repository {
	return credentials.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Citizens(db dbx.DBTX) citizens.Repository {
	return citizens.NewSQLiteRepository(db)
}

// RunMigrations applies the embedded SQLite migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, migrations.DialectSQLite)
}

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

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Dialect() migrations.Dialect {
	return migrations.DialectPostgres
}

// Credentials returns a credentials.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Credentials(db dbx.DBTX) credentials.Repository {
	return credentials.NewPostgresRepository(db)
}

// Audit returns an audit.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewPostgresRepository(db)
}

// Citizens returns a citizens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Citizens(db dbx.DBTX) citizens.Repository {
	return citizens.NewPostgresRepository(db)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, migrations.DialectPostgres)
}

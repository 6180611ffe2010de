// Package repomanager vends dialect-specific repositories bound to a
// dbx.DBTX and runs the embedded migrations. Services obtain repositories
// through it so the same code works against the process-wide *sql.DB and
// a transaction alike.
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

type RepositoryManager interface {
	Dialect() migrations.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Credentials(db dbx.DBTX) credentials.Repository
	Audit(db dbx.DBTX) audit.Repository
	Citizens(db dbx.DBTX) citizens.Repository
}

// migrate is a seam for testing migrations.Up.
var migrate = migrations.Up

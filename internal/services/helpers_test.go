package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/config"
	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/logging"
	"github.com/dmitrijs2005/nidkeeper/internal/metrics"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/audit"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/credentials"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	ctx     context.Context
	db      *sql.DB
	rm      repomanager.RepositoryManager
	cfg     *config.Config
	metrics *metrics.Metrics
	audit   *AuditService
	creds   *CredentialService
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.KDFIterations = 1000
	return cfg
}

func newEnv(t *testing.T) *testEnv {
	return newEnvWith(t, testConfig(), nil)
}

// newEnvWith opens a fresh in-memory store. wrap, when set, decorates the
// repository manager handed to the services.
func newEnvWith(t *testing.T, cfg *config.Config, wrap func(repomanager.RepositoryManager) repomanager.RepositoryManager) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, rm, err := repomanager.Open(ctx, repomanager.DriverSQLite, ":memory:", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if wrap != nil {
		rm = wrap(rm)
	}

	met := metrics.New()
	log := logging.Discard()
	as := NewAuditService(db, rm, cfg, log, met)
	cs, err := NewCredentialService(db, rm, cfg, as, log, met)
	require.NoError(t, err)

	return &testEnv{ctx: ctx, db: db, rm: rm, cfg: cfg, metrics: met, audit: as, creds: cs}
}

func (e *testEnv) session() *Session {
	return NewSession(e.rm, e.creds, e.audit, logging.Discard())
}

func (e *testEnv) createUser(t *testing.T, username, password string, mustChange bool) {
	t.Helper()
	_, err := e.creds.Create(e.ctx, username, []byte(password), models.RoleOfficer, mustChange)
	require.NoError(t, err)
}

func (e *testEnv) credential(t *testing.T, username string) *models.Credential {
	t.Helper()
	c, err := e.creds.Get(e.ctx, username)
	require.NoError(t, err)
	return c
}

// entries returns the audit trail newest first.
func (e *testEnv) entries(t *testing.T) []models.AuditEntry {
	t.Helper()
	var out []models.AuditEntry
	for entry, err := range e.audit.ListDescending(e.ctx) {
		require.NoError(t, err)
		out = append(out, entry)
	}
	return out
}

func (e *testEnv) actions(t *testing.T) []models.Action {
	t.Helper()
	var out []models.Action
	for _, entry := range e.entries(t) {
		out = append(out, entry.Action)
	}
	return out
}

// failingAuditManager hands out audit repositories whose Insert fails.
type failingAuditManager struct {
	repomanager.RepositoryManager
	fail *bool
}

func (m failingAuditManager) Audit(db dbx.DBTX) audit.Repository {
	return failingAuditRepo{Repository: m.RepositoryManager.Audit(db), fail: m.fail}
}

type failingAuditRepo struct {
	audit.Repository
	fail *bool
}

var errDiskFull = errors.New("disk full")

func (r failingAuditRepo) Insert(ctx context.Context, e *models.AuditEntry) (int64, error) {
	if *r.fail {
		return 0, errDiskFull
	}
	return r.Repository.Insert(ctx, e)
}

// countingCredentialsManager counts RecordFailure calls per username.
type countingCredentialsManager struct {
	repomanager.RepositoryManager
	failures map[string]int
}

func (m countingCredentialsManager) Credentials(db dbx.DBTX) credentials.Repository {
	return countingCredentialsRepo{Repository: m.RepositoryManager.Credentials(db), failures: m.failures}
}

type countingCredentialsRepo struct {
	credentials.Repository
	failures map[string]int
}

func (r countingCredentialsRepo) RecordFailure(ctx context.Context, username string) (int, error) {
	r.failures[username]++
	return r.Repository.RecordFailure(ctx, username)
}

package credentials

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

var credentialColumns = []string{"username", "salt", "verifier", "kdf", "role", "failed_attempts", "last_login", "must_change_password", "created_at"}

func TestPostgresCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	c := &models.Credential{
		Username: "alice", Salt: []byte("salt"), Verifier: []byte("verifier"),
		KDF: "pbkdf2-sha256$i=10000", Role: models.RoleAdmin, CreatedAt: time.Unix(1700000000, 0),
	}
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+credentials\s*\(.+\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7,\s*\$8,\s*\$9\)$`).
		WithArgs("alice", []byte("salt"), []byte("verifier"), "pbkdf2-sha256$i=10000", "ADMIN", 0, nil, false, int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), c))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_UniqueViolation(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO credentials`).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &models.Credential{Username: "alice"})
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO credentials`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Credential{Username: "alice"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestPostgresGetByUsername(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .+ FROM credentials WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(credentialColumns).
			AddRow("alice", []byte("s"), []byte("v"), "pbkdf2-sha256$i=10000", "OFFICER", 2, int64(1700000500), true, int64(1700000000)))

	c, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOfficer, c.Role)
	assert.Equal(t, 2, c.FailedAttempts)
	assert.Equal(t, int64(1700000500), c.LastLogin.Unix())
	assert.True(t, c.MustChangePassword)
}

func TestPostgresGetByUsername_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .+ FROM credentials`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresRecordFailure(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)UPDATE credentials SET failed_attempts = failed_attempts \+ 1\s+WHERE username = \$1\s+RETURNING failed_attempts`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts"}).AddRow(3))

	n, err := repo.RecordFailure(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPostgresRecordSuccess(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	at := time.Unix(1700000900, 0)

	mock.ExpectExec(`(?s)UPDATE credentials SET failed_attempts = 0, last_login = GREATEST\(COALESCE\(last_login, 0\), \$1\)\s+WHERE username = \$2 AND failed_attempts < \$3`).
		WithArgs(at.Unix(), "alice", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.RecordSuccess(context.Background(), "alice", at, 3)
	require.NoError(t, err)
	assert.False(t, ok, "no rows affected means the counter was locked")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResetFailures_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE credentials SET failed_attempts = 0 WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.ResetFailures(context.Background(), "ghost"), common.ErrorNotFound)
}

func TestPostgresUpdatePassword(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`(?s)UPDATE credentials SET salt = \$1, verifier = \$2, kdf = \$3, must_change_password = \$4\s+WHERE username = \$5`).
		WithArgs([]byte("s"), []byte("v"), "k", false, "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), "alice", []byte("s"), []byte("v"), "k", false))
}

func TestPostgresCountAndList(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM credentials`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM credentials ORDER BY username`).
		WillReturnRows(sqlmock.NewRows(credentialColumns).
			AddRow("alice", []byte("s"), []byte("v"), "k", "ADMIN", 0, nil, false, int64(1700000000)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].LastLogin.IsZero())
}

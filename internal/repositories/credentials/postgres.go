package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// PostgresRepository implements Repository for PostgreSQL.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Credential) error {
	query :=
		`INSERT INTO credentials (username, salt, verifier, kdf, role, failed_attempts, last_login, must_change_password, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		c.Username, c.Salt, c.Verifier, c.KDF, string(c.Role), c.FailedAttempts,
		nullableUnix(c.LastLogin), c.MustChangePassword, c.CreatedAt.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM credentials WHERE username = $1`, username)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) RecordFailure(ctx context.Context, username string) (int, error) {
	query :=
		`UPDATE credentials SET failed_attempts = failed_attempts + 1
		 WHERE username = $1
		 RETURNING failed_attempts`
	var n int
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) RecordSuccess(ctx context.Context, username string, at time.Time, threshold int) (bool, error) {
	query :=
		`UPDATE credentials SET failed_attempts = 0, last_login = GREATEST(COALESCE(last_login, 0), $1)
		 WHERE username = $2 AND failed_attempts < $3`
	res, err := r.db.ExecContext(ctx, query, at.Unix(), username, threshold)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ra == 1, nil
}

func (r *PostgresRepository) ResetFailures(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE credentials SET failed_attempts = 0 WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, username string, salt, verifier []byte, kdf string, mustChange bool) error {
	query :=
		`UPDATE credentials SET salt = $1, verifier = $2, kdf = $3, must_change_password = $4
		 WHERE username = $5`
	res, err := r.db.ExecContext(ctx, query, salt, verifier, kdf, mustChange, username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Credential, error) {
	return list(ctx, r.db, `SELECT `+selectColumns+` FROM credentials ORDER BY username`)
}

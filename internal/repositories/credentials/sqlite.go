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

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, c *models.Credential) error {
	query := `INSERT INTO credentials (username, salt, verifier, kdf, role, failed_attempts, last_login, must_change_password, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.Username, c.Salt, c.Verifier, c.KDF, string(c.Role), c.FailedAttempts,
		nullableUnix(c.LastLogin), c.MustChangePassword, c.CreatedAt.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*models.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM credentials WHERE username = ?`, username)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) RecordFailure(ctx context.Context, username string) (int, error) {
	query := `UPDATE credentials SET failed_attempts = failed_attempts + 1
		WHERE username = ?
		RETURNING failed_attempts`
	var n int
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("failed to record failure: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) RecordSuccess(ctx context.Context, username string, at time.Time, threshold int) (bool, error) {
	query := `UPDATE credentials SET failed_attempts = 0, last_login = MAX(COALESCE(last_login, 0), ?)
		WHERE username = ? AND failed_attempts < ?`
	res, err := r.db.ExecContext(ctx, query, at.Unix(), username, threshold)
	if err != nil {
		return false, fmt.Errorf("failed to record success: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) ResetFailures(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE credentials SET failed_attempts = 0 WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to reset failures: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, username string, salt, verifier []byte, kdf string, mustChange bool) error {
	query := `UPDATE credentials SET salt = ?, verifier = ?, kdf = ?, must_change_password = ?
		WHERE username = ?`
	res, err := r.db.ExecContext(ctx, query, salt, verifier, kdf, mustChange, username)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Credential, error) {
	return list(ctx, r.db, `SELECT `+selectColumns+` FROM credentials ORDER BY username`)
}

func list(ctx context.Context, db dbx.DBTX, query string) ([]models.Credential, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var result []models.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credentials: %w", err)
	}
	return result, nil
}

func expectOneRow(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

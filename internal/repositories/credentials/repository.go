// Package credentials persists operator credentials.
//
// Counter mutations are single conditional UPDATE statements so concurrent
// writers cannot lose increments, and a success can never clear a counter
// that already reached the lockout threshold.
package credentials

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// Repository describes credential storage.
type Repository interface {
	// Create inserts c. A taken username yields common.ErrConflict.
	Create(ctx context.Context, c *models.Credential) error

	// GetByUsername returns common.ErrorNotFound when absent.
	GetByUsername(ctx context.Context, username string) (*models.Credential, error)

	// RecordFailure increments failed_attempts and returns the new value.
	RecordFailure(ctx context.Context, username string) (int, error)

	// RecordSuccess resets failed_attempts and advances last_login, but only
	// while failed_attempts < threshold. It reports whether a row changed.
	RecordSuccess(ctx context.Context, username string, at time.Time, threshold int) (bool, error)

	// ResetFailures zeroes failed_attempts unconditionally.
	ResetFailures(ctx context.Context, username string) error

	// UpdatePassword replaces salt, verifier and kdf and sets the
	// must-change flag.
	UpdatePassword(ctx context.Context, username string, salt, verifier []byte, kdf string, mustChange bool) error

	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]models.Credential, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const selectColumns = `username, salt, verifier, kdf, role, failed_attempts, last_login, must_change_password, created_at`

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		c         models.Credential
		role      string
		lastLogin *int64
		createdAt int64
	)
	if err := row.Scan(&c.Username, &c.Salt, &c.Verifier, &c.KDF, &role, &c.FailedAttempts, &lastLogin, &c.MustChangePassword, &createdAt); err != nil {
		return nil, err
	}
	c.Role = models.Role(role)
	if lastLogin != nil {
		c.LastLogin = time.Unix(*lastLogin, 0).UTC()
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &c, nil
}

func nullableUnix(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	v := t.Unix()
	return &v
}

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Insert(ctx context.Context, e *models.AuditEntry) (int64, error) {
	query :=
		`INSERT INTO audit_log (subject_id, actor, action, timestamp, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		e.SubjectID, e.Actor, string(e.Action), e.Timestamp.Unix(), nullableBytes(e.PrevHash), e.Hash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) Last(ctx context.Context) (*models.AuditEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM audit_log ORDER BY id DESC LIMIT 1`)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) MaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM audit_log`).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) PageDescending(ctx context.Context, maxID int64, after *Cursor, limit int) ([]models.AuditEntry, error) {
	if after == nil {
		query :=
			`SELECT ` + selectColumns + ` FROM audit_log
			 WHERE id <= $1
			 ORDER BY timestamp DESC, id DESC
			 LIMIT $2`
		return pgPage(ctx, r.db, query, maxID, limit)
	}
	query :=
		`SELECT ` + selectColumns + ` FROM audit_log
		 WHERE id <= $1 AND (timestamp, id) < ($2, $3)
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $4`
	return pgPage(ctx, r.db, query, maxID, after.Timestamp.Unix(), after.ID, limit)
}

func (r *PostgresRepository) PageAscending(ctx context.Context, afterID int64, limit int) ([]models.AuditEntry, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_log WHERE id > $1 ORDER BY id LIMIT $2`
	return pgPage(ctx, r.db, query, afterID, limit)
}

func pgPage(ctx context.Context, db dbx.DBTX, query string, args ...any) ([]models.AuditEntry, error) {
	entries, err := page(ctx, db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}

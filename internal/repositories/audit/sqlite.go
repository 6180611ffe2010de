package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// SQLiteRepository implements Repository for SQLite.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.AuditEntry) (int64, error) {
	query := `INSERT INTO audit_log (subject_id, actor, action, timestamp, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		e.SubjectID, e.Actor, string(e.Action), e.Timestamp.Unix(), nullableBytes(e.PrevHash), e.Hash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Last(ctx context.Context) (*models.AuditEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM audit_log ORDER BY id DESC LIMIT 1`)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last audit entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) MaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM audit_log`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get max audit id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) PageDescending(ctx context.Context, maxID int64, after *Cursor, limit int) ([]models.AuditEntry, error) {
	if after == nil {
		query := `SELECT ` + selectColumns + ` FROM audit_log
			WHERE id <= ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?`
		return page(ctx, r.db, query, maxID, limit)
	}
	ts := after.Timestamp.Unix()
	query := `SELECT ` + selectColumns + ` FROM audit_log
		WHERE id <= ? AND (timestamp < ? OR (timestamp = ? AND id < ?))
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`
	return page(ctx, r.db, query, maxID, ts, ts, after.ID, limit)
}

func (r *SQLiteRepository) PageAscending(ctx context.Context, afterID int64, limit int) ([]models.AuditEntry, error) {
	query := `SELECT ` + selectColumns + ` FROM audit_log WHERE id > ? ORDER BY id LIMIT ?`
	return page(ctx, r.db, query, afterID, limit)
}

func page(ctx context.Context, db dbx.DBTX, query string, args ...any) ([]models.AuditEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var result []models.AuditEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return result, nil
}

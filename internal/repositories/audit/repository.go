// Package audit persists the append-only audit trail. The table carries
// triggers that reject UPDATE and DELETE, so the repository exposes no
// way to change a stored entry.
package audit

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// Cursor marks the last entry of a descending page.
type Cursor struct {
	Timestamp time.Time
	ID        int64
}

// Repository describes audit storage.
type Repository interface {
	// Insert stores e and returns the assigned id.
	Insert(ctx context.Context, e *models.AuditEntry) (int64, error)

	// Last returns the most recently appended entry, or nil when empty.
	Last(ctx context.Context) (*models.AuditEntry, error)

	// MaxID returns the highest id, 0 when empty.
	MaxID(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int, error)

	// PageDescending returns up to limit entries with id <= maxID ordered by
	// timestamp DESC, id DESC, strictly after the cursor when one is given.
	PageDescending(ctx context.Context, maxID int64, after *Cursor, limit int) ([]models.AuditEntry, error)

	// PageAscending returns up to limit entries with id > afterID in id
	// order. Used by chain verification.
	PageAscending(ctx context.Context, afterID int64, limit int) ([]models.AuditEntry, error)
}

const selectColumns = `id, subject_id, actor, action, timestamp, prev_hash, hash`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.AuditEntry, error) {
	var (
		e      models.AuditEntry
		action string
		ts     int64
	)
	if err := row.Scan(&e.ID, &e.SubjectID, &e.Actor, &action, &ts, &e.PrevHash, &e.Hash); err != nil {
		return nil, err
	}
	e.Action = models.Action(action)
	e.Timestamp = time.Unix(ts, 0).UTC()
	return &e, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/config"
	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/logging"
	"github.com/dmitrijs2005/nidkeeper/internal/metrics"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/audit"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/repomanager"
)

// AuditService appends to and reads the hash-chained audit trail.
//
// Every append happens inside a transaction opened by WithTx, so a state
// change and the entry describing it commit or roll back together.
// Appends from this process are serialized; that keeps the chain linear
// and timestamps non-decreasing.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	metrics     *metrics.Metrics
	pageSize    int
	now         func() time.Time

	mu sync.Mutex
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger, met *metrics.Metrics) *AuditService {
	return &AuditService{
		db:          db,
		repomanager: m,
		log:         log,
		metrics:     met,
		pageSize:    cfg.AuditPageSize,
		now:         time.Now,
	}
}

// Recorder appends entries within one transaction.
type Recorder struct {
	s        *AuditService
	repo     audit.Repository
	last     *models.AuditEntry
	loaded   bool
	appended []models.Action
}

// Append writes one entry for subjectID. The actor comes from ctx (see
// WithActor). The timestamp is the later of now and the previous entry's.
func (r *Recorder) Append(ctx context.Context, subjectID string, action models.Action) (*models.AuditEntry, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown audit action %q", action)
	}
	if !r.loaded {
		last, err := r.repo.Last(ctx)
		if err != nil {
			return nil, persistence("read audit tail", err)
		}
		r.last, r.loaded = last, true
	}

	e := &models.AuditEntry{
		SubjectID: subjectID,
		Actor:     ActorFrom(ctx),
		Action:    action,
		Timestamp: time.Unix(r.s.now().Unix(), 0).UTC(),
	}
	if r.last != nil {
		if e.Timestamp.Before(r.last.Timestamp) {
			e.Timestamp = r.last.Timestamp
		}
		e.PrevHash = r.last.Hash
	}
	e.Hash = e.ComputeHash()

	id, err := r.repo.Insert(ctx, e)
	if err != nil {
		return nil, persistence("append audit entry", err)
	}
	e.ID = id
	r.last = e
	r.appended = append(r.appended, action)
	return e, nil
}

// WithTx runs fn in a transaction together with a Recorder bound to it.
// Errors returned by fn come back unchanged. Begin and commit failures
// are reported as common.ErrPersistence.
func (s *AuditService) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX, rec *Recorder) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		rec   *Recorder
		fnErr error
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec = &Recorder{s: s, repo: s.repomanager.Audit(tx)}
		fnErr = fn(ctx, tx, rec)
		return fnErr
	})
	if err != nil {
		if fnErr != nil {
			return fnErr
		}
		return persistence("commit", err)
	}

	for _, a := range rec.appended {
		s.metrics.IncrementAudit(a)
	}
	return nil
}

// Append records a single event in its own transaction.
func (s *AuditService) Append(ctx context.Context, subjectID, actor string, action models.Action) (*models.AuditEntry, error) {
	var entry *models.AuditEntry
	err := s.WithTx(WithActor(ctx, actor), func(ctx context.Context, _ dbx.DBTX, rec *Recorder) error {
		var err error
		entry, err = rec.Append(ctx, subjectID, action)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "audit append failed", "action", action, "subject", subjectID, "error", err)
		return nil, err
	}
	return entry, nil
}

// ListDescending yields entries newest first: timestamp descending, then
// id descending. The sequence covers entries that existed when iteration
// started; later appends are not yielded. Pages are fetched lazily and no
// database connection is held while the consumer runs.
func (s *AuditService) ListDescending(ctx context.Context) iter.Seq2[models.AuditEntry, error] {
	return func(yield func(models.AuditEntry, error) bool) {
		repo := s.repomanager.Audit(s.db)

		maxID, err := repo.MaxID(ctx)
		if err != nil {
			yield(models.AuditEntry{}, persistence("read audit snapshot", err))
			return
		}
		if maxID == 0 {
			return
		}

		var cursor *audit.Cursor
		for {
			page, err := repo.PageDescending(ctx, maxID, cursor, s.pageSize)
			if err != nil {
				yield(models.AuditEntry{}, persistence("read audit page", err))
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			tail := page[len(page)-1]
			cursor = &audit.Cursor{Timestamp: tail.Timestamp, ID: tail.ID}
		}
	}
}

func (s *AuditService) Count(ctx context.Context) (int, error) {
	n, err := s.repomanager.Audit(s.db).Count(ctx)
	if err != nil {
		return 0, persistence("count audit entries", err)
	}
	return n, nil
}

// VerifyChain walks the trail in append order and checks every hash link
// and timestamp. A mismatch yields common.ErrAuditTampered naming the
// first bad entry.
func (s *AuditService) VerifyChain(ctx context.Context) error {
	repo := s.repomanager.Audit(s.db)

	var (
		afterID int64
		prev    *models.AuditEntry
		checked int
	)
	for {
		page, err := repo.PageAscending(ctx, afterID, s.pageSize)
		if err != nil {
			return persistence("read audit page", err)
		}
		for i := range page {
			e := &page[i]
			var prevHash []byte
			if prev != nil {
				prevHash = prev.Hash
				if e.Timestamp.Before(prev.Timestamp) {
					return fmt.Errorf("%w: entry %d is older than entry %d", common.ErrAuditTampered, e.ID, prev.ID)
				}
			}
			if !bytes.Equal(e.PrevHash, prevHash) {
				return fmt.Errorf("%w: entry %d does not link to its predecessor", common.ErrAuditTampered, e.ID)
			}
			if !bytes.Equal(e.ComputeHash(), e.Hash) {
				return fmt.Errorf("%w: entry %d content does not match its hash", common.ErrAuditTampered, e.ID)
			}
			prev = e
			checked++
		}
		if len(page) < s.pageSize {
			break
		}
		afterID = page[len(page)-1].ID
	}

	s.log.Info(ctx, "audit chain verified", "entries", checked)
	return nil
}

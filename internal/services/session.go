package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/cryptox"
	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/logging"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/citizens"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/repomanager"
	"github.com/google/uuid"
)

// State is the login state of a Session.
type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged in"
	}
	return "logged out"
}

// maxNIDAttempts bounds NID regeneration on collisions.
const maxNIDAttempts = 5

// Session is one operator's login state and the entry point for record
// operations. Every record operation runs its repository call and audit
// append in one transaction.
type Session struct {
	id string

	repomanager repomanager.RepositoryManager
	creds       *CredentialService
	audit       *AuditService
	log         logging.Logger
	now         func() time.Time

	mu         sync.Mutex
	state      State
	username   string
	mustChange bool
}

func NewSession(m repomanager.RepositoryManager, creds *CredentialService, audit *AuditService, log logging.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:          id,
		repomanager: m,
		creds:       creds,
		audit:       audit,
		log:         log.With("session_id", id),
		now:         time.Now,
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Username returns the logged-in operator, or "".
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// MustChangePassword reports whether record access waits for a new password.
func (s *Session) MustChangePassword() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mustChange
}

// Login moves the session to LoggedIn when the password verifies. Any
// error leaves it LoggedOut.
func (s *Session) Login(ctx context.Context, username string, password []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == LoggedIn {
		return common.ErrAlreadyLoggedIn
	}

	cred, err := s.creds.authenticate(ctx, username, password)
	if err != nil {
		return err
	}

	s.state = LoggedIn
	s.username = cred.Username
	s.mustChange = cred.MustChangePassword
	s.log.Info(ctx, "session started", "username", cred.Username, "must_change_password", cred.MustChangePassword)
	return nil
}

// Logout returns the session to LoggedOut.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == LoggedIn {
		s.log.Info(ctx, "session ended", "username", s.username)
	}
	s.state = LoggedOut
	s.username = ""
	s.mustChange = false
}

// operator returns the logged-in username.
func (s *Session) operator() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LoggedIn {
		return "", common.ErrNotLoggedIn
	}
	return s.username, nil
}

// ready is operator plus the must-change-password gate.
func (s *Session) ready() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LoggedIn {
		return "", common.ErrNotLoggedIn
	}
	if s.mustChange {
		return "", common.ErrPasswordChangeRequired
	}
	return s.username, nil
}

// MutateRecord runs fn against the record store and appends action for
// subjectID in the same transaction. If fn fails nothing is audited; if
// the append fails fn's changes roll back.
func (s *Session) MutateRecord(ctx context.Context, action models.Action, subjectID string, fn func(ctx context.Context, repo citizens.Repository) error) error {
	user, err := s.ready()
	if err != nil {
		return err
	}
	ctx = WithActor(ctx, user)

	err = s.audit.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, rec *Recorder) error {
		if err := fn(ctx, s.repomanager.Citizens(tx)); err != nil {
			return err
		}
		_, err := rec.Append(ctx, subjectID, action)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrPersistence) {
			s.log.Error(ctx, "record operation failed", "action", action, "subject", subjectID, "error", err)
		}
		return err
	}
	s.log.Debug(ctx, "record operation", "action", action, "subject", subjectID, "username", user)
	return nil
}

// Register stores c. When c.NID is empty a random NID is assigned,
// regenerating on collision; a caller-supplied NID that is taken yields
// common.ErrConflict.
func (s *Session) Register(ctx context.Context, c *models.Citizen) (*models.Citizen, error) {
	rec := *c
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	supplied := rec.NID != ""
	if supplied && !models.ValidNID(rec.NID) {
		return nil, fmt.Errorf("%w: NID must be %d digits", common.ErrValidation, models.NIDLen)
	}
	ts := time.Unix(s.now().Unix(), 0).UTC()
	rec.CreatedAt, rec.UpdatedAt = ts, ts

	for attempt := 0; attempt < maxNIDAttempts; attempt++ {
		if !supplied {
			nid, err := cryptox.RandomDigits(models.NIDLen)
			if err != nil {
				return nil, err
			}
			rec.NID = nid
		}

		err := s.MutateRecord(ctx, models.ActionRegistered, rec.NID, func(ctx context.Context, repo citizens.Repository) error {
			exists, err := repo.Exists(ctx, rec.NID)
			if err != nil {
				return persistence("check nid", err)
			}
			if exists {
				return common.ErrConflict
			}
			return repoErr("create citizen", repo.Create(ctx, &rec))
		})
		switch {
		case err == nil:
			return &rec, nil
		case errors.Is(err, common.ErrConflict) && !supplied:
			continue
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: no free NID after %d attempts", common.ErrConflict, maxNIDAttempts)
}

// Search looks up nid. The lookup is audited whether or not it hits; a
// miss returns common.ErrorNotFound.
func (s *Session) Search(ctx context.Context, nid string) (*models.Citizen, error) {
	if !models.ValidNID(nid) {
		return nil, fmt.Errorf("%w: NID must be %d digits", common.ErrValidation, models.NIDLen)
	}

	var found *models.Citizen
	err := s.MutateRecord(ctx, models.ActionSearched, nid, func(ctx context.Context, repo citizens.Repository) error {
		c, err := repo.GetByID(ctx, nid)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return persistence("get citizen", err)
		}
		found = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, common.ErrorNotFound
	}
	return found, nil
}

// Update overwrites the record c.NID. A miss returns common.ErrorNotFound
// and is not audited.
func (s *Session) Update(ctx context.Context, c *models.Citizen) error {
	rec := *c
	rec.Normalize()
	if !models.ValidNID(rec.NID) {
		return fmt.Errorf("%w: NID must be %d digits", common.ErrValidation, models.NIDLen)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.UpdatedAt = time.Unix(s.now().Unix(), 0).UTC()

	err := s.MutateRecord(ctx, models.ActionUpdated, rec.NID, func(ctx context.Context, repo citizens.Repository) error {
		return repoErr("update citizen", repo.Update(ctx, &rec))
	})
	if err != nil {
		return err
	}
	*c = rec
	return nil
}

// Delete removes the record nid. A miss returns common.ErrorNotFound and
// is not audited.
func (s *Session) Delete(ctx context.Context, nid string) error {
	if !models.ValidNID(nid) {
		return fmt.Errorf("%w: NID must be %d digits", common.ErrValidation, models.NIDLen)
	}
	return s.MutateRecord(ctx, models.ActionDeleted, nid, func(ctx context.Context, repo citizens.Repository) error {
		return repoErr("delete citizen", repo.Delete(ctx, nid))
	})
}

// List returns every record ordered by NID and audits one LISTED entry.
func (s *Session) List(ctx context.Context) ([]models.Citizen, error) {
	var all []models.Citizen
	err := s.MutateRecord(ctx, models.ActionListed, models.ListedSubject, func(ctx context.Context, repo citizens.Repository) error {
		var err error
		all, err = repo.List(ctx)
		return repoErr("list citizens", err)
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// ChangePassword replaces the logged-in operator's password. It is the
// one credential operation allowed while a change is pending.
func (s *Session) ChangePassword(ctx context.Context, newPassword []byte) error {
	user, err := s.operator()
	if err != nil {
		return err
	}
	if err := s.creds.ChangePassword(WithActor(ctx, user), user, newPassword); err != nil {
		return err
	}

	s.mu.Lock()
	if s.username == user {
		s.mustChange = false
	}
	s.mu.Unlock()
	return nil
}

// CreateOperator adds a credential that must change its password at first
// login.
func (s *Session) CreateOperator(ctx context.Context, username string, password []byte, role models.Role) (*models.Credential, error) {
	user, err := s.ready()
	if err != nil {
		return nil, err
	}
	return s.creds.Create(WithActor(ctx, user), username, password, role, true)
}

// Unlock resets the failure counter of username.
func (s *Session) Unlock(ctx context.Context, username string) error {
	user, err := s.ready()
	if err != nil {
		return err
	}
	return s.creds.Unlock(WithActor(ctx, user), username)
}

// AuditTrail yields the audit log newest first.
func (s *Session) AuditTrail(ctx context.Context) iter.Seq2[models.AuditEntry, error] {
	if _, err := s.ready(); err != nil {
		return func(yield func(models.AuditEntry, error) bool) {
			yield(models.AuditEntry{}, err)
		}
	}
	return s.audit.ListDescending(ctx)
}

// VerifyAudit checks the audit hash chain.
func (s *Session) VerifyAudit(ctx context.Context) error {
	if _, err := s.ready(); err != nil {
		return err
	}
	return s.audit.VerifyChain(ctx)
}

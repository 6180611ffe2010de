// Package services holds the business logic of nidkeeper: credential
// storage with lockout, the audit trail, the operator session and the
// first-run bootstrap.
//
// Services own no global state. Each is constructed with the shared *sql.DB
// and a repomanager.RepositoryManager and obtains repositories bound to
// either the database or an open transaction.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/config"
	"github.com/dmitrijs2005/nidkeeper/internal/cryptox"
	"github.com/dmitrijs2005/nidkeeper/internal/dbx"
	"github.com/dmitrijs2005/nidkeeper/internal/logging"
	"github.com/dmitrijs2005/nidkeeper/internal/metrics"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/repomanager"
)

// CredentialService creates and verifies operator credentials and applies
// the lockout policy. Every state change is audited in the same
// transaction as the change itself.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audit       *AuditService
	log         logging.Logger
	metrics     *metrics.Metrics

	kdf       cryptox.KDF
	threshold int
	now       func() time.Time

	locks *keyedMutex

	// dummySalt and dummyVerifier stand in for unknown usernames so the
	// miss path costs one derivation like the hit path.
	dummySalt     []byte
	dummyVerifier []byte
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, audit *AuditService, log logging.Logger, met *metrics.Metrics) (*CredentialService, error) {
	kdf, err := cryptox.FromConfig(cfg.KDF, cfg.KDFIterations)
	if err != nil {
		return nil, err
	}
	dummySalt, err := cryptox.NewSalt()
	if err != nil {
		return nil, err
	}
	dummyVerifier, err := common.RandBytes(cryptox.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCryptoFailure, err)
	}
	return &CredentialService{
		db:            db,
		repomanager:   m,
		audit:         audit,
		log:           log,
		metrics:       met,
		kdf:           kdf,
		threshold:     cfg.LockoutThreshold,
		now:           time.Now,
		locks:         newKeyedMutex(),
		dummySalt:     dummySalt,
		dummyVerifier: dummyVerifier,
	}, nil
}

func (s *CredentialService) derive(kdf cryptox.KDF, password, salt []byte) ([]byte, error) {
	defer s.metrics.ObserveKDF(time.Now())
	v, err := kdf.Derive(password, salt)
	if err != nil {
		return nil, fmt.Errorf("derive verifier: %w", err)
	}
	return v, nil
}

// Create stores a new credential with a fresh salt and the configured KDF.
// A taken username yields common.ErrDuplicateUser.
func (s *CredentialService) Create(ctx context.Context, username string, password []byte, role models.Role, mustChange bool) (*models.Credential, error) {
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password is empty", common.ErrValidation)
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	salt, err := cryptox.NewSalt()
	if err != nil {
		return nil, err
	}
	verifier, err := s.derive(s.kdf, password, salt)
	if err != nil {
		return nil, err
	}

	cred := &models.Credential{
		Username:           username,
		Salt:               salt,
		Verifier:           verifier,
		KDF:                s.kdf.String(),
		Role:               role,
		MustChangePassword: mustChange,
		CreatedAt:          time.Unix(s.now().Unix(), 0).UTC(),
	}

	err = s.audit.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, rec *Recorder) error {
		repo := s.repomanager.Credentials(tx)

		_, err := repo.GetByUsername(ctx, username)
		switch {
		case err == nil:
			return common.ErrDuplicateUser
		case !errors.Is(err, common.ErrorNotFound):
			return persistence("look up credential", err)
		}

		if err := repo.Create(ctx, cred); err != nil {
			if errors.Is(err, common.ErrConflict) {
				return common.ErrDuplicateUser
			}
			return persistence("create credential", err)
		}
		_, err = rec.Append(ctx, username, models.ActionCredentialCreated)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "credential created", "username", username, "role", role, "must_change_password", mustChange)
	return cred, nil
}

// Verify checks password for username and updates its counters.
//
// It returns nil on success, common.ErrInvalidCredentials for a wrong
// password or unknown user, and common.ErrAccountLocked once the failure
// count has reached the threshold, whatever the password. A locked
// account's counter is left as is.
func (s *CredentialService) Verify(ctx context.Context, username string, password []byte) error {
	_, err := s.authenticate(ctx, username, password)
	return err
}

// authenticate is Verify returning the credential on success.
func (s *CredentialService) authenticate(ctx context.Context, username string, password []byte) (*models.Credential, error) {
	unlock := s.locks.Lock(username)
	defer unlock()

	cred, err := s.repomanager.Credentials(s.db).GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.metrics.IncrementLogin(metrics.OutcomeError)
		return nil, persistence("look up credential", err)
	}

	if cred == nil {
		// Burn one derivation so a miss is as slow as a hit.
		v, err := s.derive(s.kdf, password, s.dummySalt)
		if err != nil {
			s.metrics.IncrementLogin(metrics.OutcomeError)
			return nil, err
		}
		subtle.ConstantTimeCompare(v, s.dummyVerifier)
		common.WipeByteArray(v)
		// Same UPDATE as a wrong password; it matches no row.
		return nil, s.deny(ctx, username, common.ErrInvalidCredentials, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
			_, err := s.repomanager.Credentials(tx).RecordFailure(ctx, username)
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return false, persistence("record failure", err)
			}
			return false, nil
		})
	}

	if cred.IsLocked(s.threshold) {
		return nil, s.deny(ctx, username, common.ErrAccountLocked, func(context.Context, dbx.DBTX) (bool, error) {
			return false, nil
		})
	}

	kdf, err := cryptox.ParseKDF(cred.KDF)
	if err != nil {
		s.metrics.IncrementLogin(metrics.OutcomeError)
		return nil, err
	}
	v, err := s.derive(kdf, password, cred.Salt)
	if err != nil {
		s.metrics.IncrementLogin(metrics.OutcomeError)
		return nil, err
	}
	match := subtle.ConstantTimeCompare(v, cred.Verifier) == 1
	common.WipeByteArray(v)

	if !match {
		return nil, s.deny(ctx, username, common.ErrInvalidCredentials, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
			n, err := s.repomanager.Credentials(tx).RecordFailure(ctx, username)
			if err != nil {
				return false, persistence("record failure", err)
			}
			return n == s.threshold, nil
		})
	}

	at := s.now()
	locked := false
	err = s.audit.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, rec *Recorder) error {
		ok, err := s.repomanager.Credentials(tx).RecordSuccess(ctx, username, at, s.threshold)
		if err != nil {
			return persistence("record success", err)
		}
		if !ok {
			// Locked by a concurrent writer after we read the counter.
			locked = true
			_, err = rec.Append(ctx, username, models.ActionLoginFailed)
			return err
		}
		_, err = rec.Append(ctx, username, models.ActionLoginSuccess)
		return err
	})
	if err != nil {
		s.metrics.IncrementLogin(metrics.OutcomeError)
		return nil, err
	}
	if locked {
		s.metrics.IncrementLogin(metrics.OutcomeLocked)
		s.log.Warn(ctx, "login denied", "username", username, "reason", "locked")
		return nil, common.ErrAccountLocked
	}

	s.metrics.IncrementLogin(metrics.OutcomeSuccess)
	s.log.Info(ctx, "login succeeded", "username", username)
	cred.FailedAttempts = 0
	if at.After(cred.LastLogin) {
		cred.LastLogin = time.Unix(at.Unix(), 0).UTC()
	}
	return cred, nil
}

// deny runs update, then audits LOGIN_FAILED, plus ACCOUNT_LOCKED when
// update reports that this failure reached the threshold. It returns
// outcome once everything committed.
func (s *CredentialService) deny(ctx context.Context, username string, outcome error, update func(context.Context, dbx.DBTX) (bool, error)) error {
	justLocked := false
	err := s.audit.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, rec *Recorder) error {
		var err error
		if justLocked, err = update(ctx, tx); err != nil {
			return err
		}
		if _, err := rec.Append(ctx, username, models.ActionLoginFailed); err != nil {
			return err
		}
		if justLocked {
			_, err := rec.Append(ctx, username, models.ActionAccountLocked)
			return err
		}
		return nil
	})
	if err != nil {
		s.metrics.IncrementLogin(metrics.OutcomeError)
		return err
	}

	reason := "invalid"
	if errors.Is(outcome, common.ErrAccountLocked) {
		reason = "locked"
		s.metrics.IncrementLogin(metrics.OutcomeLocked)
	} else {
		s.metrics.IncrementLogin(metrics.OutcomeInvalid)
	}
	s.log.Warn(ctx, "login denied", "username", username, "reason", reason)

	if justLocked {
		s.metrics.IncrementLockout()
		s.log.Warn(ctx, "account locked", "username", username, "threshold", s.threshold)
	}
	return outcome
}

// IsLocked reports whether username reached the failure threshold.
func (s *CredentialService) IsLocked(ctx context.Context, username string) (bool, error) {
	cred, err := s.Get(ctx, username)
	if err != nil {
		return false, err
	}
	return cred.IsLocked(s.threshold), nil
}

// Unlock zeroes the failure counter of username.
func (s *CredentialService) Unlock(ctx context.Context, username string) error {
	unlock := s.locks.Lock(username)
	defer unlock()

	err := s.audit.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, rec *Recorder) error {
		if err := s.repomanager.Credentials(tx).ResetFailures(ctx, username); err != nil {
			return repoErr("reset failures", err)
		}
		_, err := rec.Append(ctx, username, models.ActionAccountUnlocked)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "account unlocked", "username", username, "by", ActorFrom(ctx))
	return nil
}

// ChangePassword stores a new salt and verifier for username under the
// configured KDF and clears the must-change flag.
func (s *CredentialService) ChangePassword(ctx context.Context, username string, newPassword []byte) error {
	if len(newPassword) == 0 {
		return fmt.Errorf("%w: password is empty", common.ErrValidation)
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	salt, err := cryptox.NewSalt()
	if err != nil {
		return err
	}
	verifier, err := s.derive(s.kdf, newPassword, salt)
	if err != nil {
		return err
	}

	err = s.audit.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, rec *Recorder) error {
		if err := s.repomanager.Credentials(tx).UpdatePassword(ctx, username, salt, verifier, s.kdf.String(), false); err != nil {
			return repoErr("update password", err)
		}
		_, err := rec.Append(ctx, username, models.ActionPasswordChanged)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "password changed", "username", username)
	return nil
}

// Get returns the stored credential or common.ErrorNotFound.
func (s *CredentialService) Get(ctx context.Context, username string) (*models.Credential, error) {
	cred, err := s.repomanager.Credentials(s.db).GetByUsername(ctx, username)
	if err != nil {
		return nil, repoErr("get credential", err)
	}
	return cred, nil
}

func (s *CredentialService) Count(ctx context.Context) (int, error) {
	n, err := s.repomanager.Credentials(s.db).Count(ctx)
	if err != nil {
		return 0, persistence("count credentials", err)
	}
	return n, nil
}

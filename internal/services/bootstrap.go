package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/logging"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// Bootstrap creates the first administrative credential. Nothing ships
// with a default password: the operator either types one at the setup
// prompt or provides it out of band, in which case it must be changed at
// first login.
type Bootstrap struct {
	creds *CredentialService
	log   logging.Logger
}

func NewBootstrap(creds *CredentialService, log logging.Logger) *Bootstrap {
	return &Bootstrap{creds: creds, log: log}
}

// Needed reports whether no credential exists yet.
func (b *Bootstrap) Needed(ctx context.Context) (bool, error) {
	n, err := b.creds.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// CreateAdmin creates the ADMIN credential. interactive is true when the
// operator chose the password at the prompt; otherwise the password came
// from the environment and must be replaced at first login.
func (b *Bootstrap) CreateAdmin(ctx context.Context, username string, password []byte, interactive bool) (*models.Credential, error) {
	needed, err := b.Needed(ctx)
	if err != nil {
		return nil, err
	}
	if !needed {
		return nil, fmt.Errorf("%w: setup already completed", common.ErrConflict)
	}

	cred, err := b.creds.Create(ctx, username, password, models.RoleAdmin, !interactive)
	if err != nil {
		return nil, err
	}
	b.log.Info(ctx, "initial administrator created", "username", username, "interactive", interactive)
	return cred, nil
}

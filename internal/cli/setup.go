package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/config"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// getSetupPassword is a test seam for config.SetupPassword.
var getSetupPassword = config.SetupPassword

// ErrSetupUnavailable is returned when no credential exists and neither a
// terminal nor a non-interactive setup is available.
var ErrSetupUnavailable = errors.New("no credential exists: run interactively, or set -setup-user and " + config.SetupPasswordEnv)

// Setup creates the first administrator when the store has no
// credentials. With -setup-user and the setup password in the environment
// it runs without prompting; otherwise it asks on the terminal.
func (a *App) Setup(ctx context.Context) error {
	needed, err := a.bootstrap.Needed(ctx)
	if err != nil {
		return err
	}
	if !needed {
		return nil
	}

	if a.config.SetupUser != "" {
		if password, ok := getSetupPassword(); ok {
			defer common.WipeByteArray(password)
			if _, err := a.bootstrap.CreateAdmin(ctx, a.config.SetupUser, password, false); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created administrator %s; the password must be changed at first login\n", a.config.SetupUser)
			return nil
		}
	}

	if !isTerminal() {
		return ErrSetupUnavailable
	}

	fmt.Fprintln(a.out, "No operator exists yet. Create the administrator account.")
	username, err := getTextWithDefault(a.reader, "Administrator username", a.config.SetupUser, a.out)
	if err != nil {
		return err
	}
	if err := models.ValidateUsername(username); err != nil {
		return err
	}
	password, err := a.readNewPassword("administrator password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.bootstrap.CreateAdmin(ctx, username, password, true); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created administrator %s\n", username)
	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
)

// ChangePassword replaces the logged-in operator's password.
func (a *App) ChangePassword(ctx context.Context) error {
	password, err := a.readNewPassword("new password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.ChangePassword(ctx, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

// AddUser creates an operator credential. The new operator must change
// the password at first login.
func (a *App) AddUser(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter new username", a.out)
	if err != nil {
		return err
	}
	if err := models.ValidateUsername(username); err != nil {
		return err
	}
	roleText, err := getTextWithDefault(a.reader, "Role (ADMIN, OFFICER, AUDITOR)", string(models.RoleOfficer), a.out)
	if err != nil {
		return err
	}
	role, err := models.ParseRole(roleText)
	if err != nil {
		return err
	}

	password, err := a.readNewPassword("initial password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	cred, err := a.session.CreateOperator(ctx, username, password, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s %s\n", cred.Role, cred.Username)
	return nil
}

func (a *App) Unlock(ctx context.Context, username string) error {
	if username == "" {
		var err error
		username, err = getSimpleText(a.reader, "Enter username to unlock", a.out)
		if err != nil {
			return err
		}
	}
	if err := a.session.Unlock(ctx, username); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Unlocked %s\n", username)
	return nil
}

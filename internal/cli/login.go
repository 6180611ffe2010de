package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
)

// Login prompts for a username and password and starts the session.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Login(ctx, username, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Login successful")
	if a.session.MustChangePassword() {
		fmt.Fprintln(a.out, "Your password must be changed before records can be accessed: run 'passwd'")
	}
	return nil
}

// Logout ends the session.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

var errPasswordMismatch = errors.New("passwords do not match")

// readNewPassword asks for a password twice. The caller wipes the result.
func (a *App) readNewPassword(what string) ([]byte, error) {
	first, err := getPassword("Enter "+what, a.out)
	if err != nil {
		return nil, err
	}
	second, err := getPassword("Repeat "+what, a.out)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if len(first) == 0 {
		return nil, fmt.Errorf("%w: password is empty", common.ErrValidation)
	}
	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}

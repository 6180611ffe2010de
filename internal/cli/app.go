package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"github.com/dmitrijs2005/nidkeeper/internal/config"
	"github.com/dmitrijs2005/nidkeeper/internal/logging"
	"github.com/dmitrijs2005/nidkeeper/internal/services"
)

// getSimpleText, getTextWithDefault and getPassword are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText      = GetSimpleText
	getTextWithDefault = GetTextWithDefault
	getPassword        = GetPassword
)

type App struct {
	config    *config.Config
	session   *services.Session
	bootstrap *services.Bootstrap
	log       logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config, session *services.Session, bootstrap *services.Bootstrap, log logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:    c,
		session:   session,
		bootstrap: bootstrap,
		log:       log,
		reader:    bufio.NewReader(in),
		out:       out,
	}
}

// Run performs first-time setup when needed, prompts for a login and
// serves commands until the user exits. It returns only setup failures;
// command errors are reported and the loop continues.
func (a *App) Run(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Welcome to NIDKeeper (type 'help' for commands)")
	a.report(ctx, a.Login(ctx))

	runREPL(ctx, a, a.getStatus, a.reader)
	a.session.Logout(ctx)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == services.LoggedIn
}

func (a *App) getStatus() string {
	user := a.session.Username()
	switch {
	case user == "":
		return ""
	case a.session.MustChangePassword():
		return fmt.Sprintf(" (%s, password change required)", user)
	default:
		return fmt.Sprintf(" (%s)", user)
	}
}

// report prints err in operator terms. Storage failures are logged with
// their cause and shown without it.
func (a *App) report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		fmt.Fprintln(a.out, "Login failed: invalid username or password")
	case errors.Is(err, common.ErrAccountLocked):
		fmt.Fprintln(a.out, "Account is locked. Ask an administrator to unlock it.")
	case errors.Is(err, common.ErrPasswordChangeRequired):
		fmt.Fprintln(a.out, "You must change your password first: run 'passwd'")
	case errors.Is(err, common.ErrNotLoggedIn):
		fmt.Fprintln(a.out, "Not logged in")
	case errors.Is(err, common.ErrorNotFound):
		fmt.Fprintln(a.out, "No such record")
	case errors.Is(err, common.ErrDuplicateUser):
		fmt.Fprintln(a.out, "A user with that name already exists")
	case errors.Is(err, common.ErrConflict):
		fmt.Fprintln(a.out, "A record with that NID already exists")
	case errors.Is(err, common.ErrAuditTampered):
		fmt.Fprintln(a.out, "AUDIT LOG INTEGRITY CHECK FAILED:", err)
		a.log.Error(ctx, "audit verification failed", "error", err)
	case errors.Is(err, common.ErrPersistence), errors.Is(err, common.ErrCryptoFailure):
		fmt.Fprintln(a.out, "Operation failed, see log for details")
		a.log.Error(ctx, "operation failed", "error", err)
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}
}

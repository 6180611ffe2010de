package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	Register(ctx context.Context) error
	Search(ctx context.Context, nid string) error
	Update(ctx context.Context, nid string) error
	Delete(ctx context.Context, nid string) error
	List(ctx context.Context) error

	Audit(ctx context.Context) error
	Verify(ctx context.Context) error

	ChangePassword(ctx context.Context) error
	AddUser(ctx context.Context) error
	Unlock(ctx context.Context, username string) error

	// report shows a command failure to the operator.
	report(ctx context.Context, err error)
}

const (
	helpLoggedOut = "Available commands: login, help, exit"
	helpLoggedIn  = "Available commands: register, search <nid>, update <nid>, delete <nid>, (l)ist, " +
		"audit, verify, passwd, adduser, unlock <username>, logout, help, exit"
)

// runREPL starts a read-eval-print loop for the NIDKeeper terminal.
//
// It reads a line, parses the first token as the command and an optional
// second token as its argument, and dispatches to methods on a. Handlers
// prompt for a missing argument. The loop exits on EOF or when the user
// types "exit" or "quit".
//
//	Not logged in:
//	  - help           - show available commands
//	  - login          - authenticate
//	  - exit | quit    - leave the program
//
//	Logged in:
//	  - register       - add a citizen record
//	  - search <nid>   - show one record
//	  - update <nid>   - edit one record
//	  - delete <nid>   - remove one record
//	  - list | l       - list every record
//	  - audit          - print the audit trail, newest first
//	  - verify         - check the audit hash chain
//	  - passwd         - change own password
//	  - adduser        - create an operator credential
//	  - unlock <user>  - reset a locked account
//	  - logout         - end the session
//
// Handler errors are passed to a.report and never stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("nid%s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.report(ctx, err)
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		}

		if !a.isLoggedIn() {
			switch cmd {
			case "login":
				a.report(ctx, a.Login(ctx))
			default:
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "register":
			a.report(ctx, a.Register(ctx))
		case "search":
			a.report(ctx, a.Search(ctx, arg))
		case "update":
			a.report(ctx, a.Update(ctx, arg))
		case "delete":
			a.report(ctx, a.Delete(ctx, arg))
		case "l", "list":
			a.report(ctx, a.List(ctx))
		case "audit":
			a.report(ctx, a.Audit(ctx))
		case "verify":
			a.report(ctx, a.Verify(ctx))
		case "passwd":
			a.report(ctx, a.ChangePassword(ctx))
		case "adduser":
			a.report(ctx, a.AddUser(ctx))
		case "unlock":
			a.report(ctx, a.Unlock(ctx, arg))
		case "logout":
			a.report(ctx, a.Logout(ctx))
		case "login":
			printlnFn("Already logged in; logout first")
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

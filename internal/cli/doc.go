// Package cli provides the interactive NIDKeeper terminal.
//
// App wires a services.Session and a services.Bootstrap to a line-based
// REPL. On start it runs first-time setup when no credential exists, then
// prompts for a login. After login the operator can register, search,
// update, delete and list citizen records, inspect and verify the audit
// trail, and manage operator credentials.
//
// Passwords are read without echo through golang.org/x/term and wiped
// once handed to the services.
package cli

// Package common defines sentinel errors and small helpers shared by the
// NIDKeeper services, repositories and CLI. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// Environment failures. These abort the enclosing operation.
	ErrCryptoFailure = errors.New("crypto failure")
	ErrPersistence   = errors.New("persistence failure")

	// Credential outcomes.
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account locked")

	// Session errors.
	ErrNotLoggedIn            = errors.New("not logged in")
	ErrAlreadyLoggedIn        = errors.New("already logged in")
	ErrPasswordChangeRequired = errors.New("password change required")

	// Audit integrity.
	ErrAuditTampered = errors.New("audit log tampered")

	// Boundary validation of user input.
	ErrValidation = errors.New("validation error")
)

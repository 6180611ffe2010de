package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
)

// Role is stored with every credential. Nothing enforces it.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleOfficer Role = "OFFICER"
	RoleAuditor Role = "AUDITOR"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleOfficer, RoleAuditor:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", common.ErrValidation, s)
	}
}

// MaxUsernameLen caps usernames in runes.
const MaxUsernameLen = 64

// Credential is one operator login.
type Credential struct {
	// Username is the immutable primary key.
	Username string

	// Salt is random per credential and never leaves the store.
	Salt []byte
	// Verifier is KDF(password, Salt).
	Verifier []byte
	// KDF is the parameter string of the KDF that produced Verifier.
	KDF string

	Role Role

	// FailedAttempts counts consecutive failures since the last success.
	FailedAttempts int
	// LastLogin is zero until the first successful login.
	LastLogin time.Time

	// MustChangePassword blocks record access until a new password is set.
	MustChangePassword bool

	CreatedAt time.Time
}

// IsLocked reports whether the failure count reached threshold.
func (c *Credential) IsLocked(threshold int) bool {
	return c.FailedAttempts >= threshold
}

// ValidateUsername checks a username at the input boundary.
func ValidateUsername(u string) error {
	if u == "" {
		return fmt.Errorf("%w: username is empty", common.ErrValidation)
	}
	if utf8.RuneCountInString(u) > MaxUsernameLen {
		return fmt.Errorf("%w: username longer than %d characters", common.ErrValidation, MaxUsernameLen)
	}
	for _, r := range u {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: username contains whitespace or control characters", common.ErrValidation)
		}
	}
	return nil
}

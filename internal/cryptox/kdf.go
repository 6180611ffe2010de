// Package cryptox holds the key-derivation functions used to turn operator
// passwords into stored verifiers, plus salt and identifier generation from
// a cryptographically secure source.
package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLen is the length of every per-credential salt.
	SaltLen = 32
	// KeyLen is the verifier length produced by every KDF.
	KeyLen = sha256.Size

	// DefaultPBKDF2Iterations is the reference work factor.
	DefaultPBKDF2Iterations = 10000
)

// KDF derives a fixed-length verifier from a password and a salt.
//
// Implementations are deterministic and free of side effects. String
// returns the parameter string persisted with a credential; ParseKDF turns
// it back into an equivalent KDF.
type KDF interface {
	Derive(password, salt []byte) ([]byte, error)
	String() string
}

// PBKDF2 is PBKDF2-HMAC-SHA256.
type PBKDF2 struct {
	Iterations int
}

// NewPBKDF2 returns PBKDF2 with the given iteration count, or the default
// when iterations is zero.
func NewPBKDF2(iterations int) PBKDF2 {
	if iterations == 0 {
		iterations = DefaultPBKDF2Iterations
	}
	return PBKDF2{Iterations: iterations}
}

func (k PBKDF2) Derive(password, salt []byte) ([]byte, error) {
	if err := checkSalt(salt); err != nil {
		return nil, err
	}
	if k.Iterations <= 0 {
		return nil, fmt.Errorf("%w: pbkdf2 iterations must be positive, got %d", common.ErrCryptoFailure, k.Iterations)
	}
	return pbkdf2.Key(password, salt, k.Iterations, KeyLen, sha256.New), nil
}

func (k PBKDF2) String() string {
	return "pbkdf2-sha256$i=" + strconv.Itoa(k.Iterations)
}

// Argon2id is the memory-hard alternative. Memory is in KiB.
type Argon2id struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultArgon2id mirrors the vault client parameters: one pass, 64 MiB,
// four lanes.
func DefaultArgon2id() Argon2id {
	return Argon2id{Time: 1, Memory: 64 * 1024, Threads: 4}
}

func (k Argon2id) Derive(password, salt []byte) ([]byte, error) {
	if err := checkSalt(salt); err != nil {
		return nil, err
	}
	if k.Time == 0 || k.Memory == 0 || k.Threads == 0 {
		return nil, fmt.Errorf("%w: argon2id parameters must be positive", common.ErrCryptoFailure)
	}
	return argon2.IDKey(password, salt, k.Time, k.Memory, k.Threads, KeyLen), nil
}

func (k Argon2id) String() string {
	return fmt.Sprintf("argon2id$t=%d,m=%d,p=%d", k.Time, k.Memory, k.Threads)
}

func checkSalt(salt []byte) error {
	if len(salt) != SaltLen {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", common.ErrCryptoFailure, SaltLen, len(salt))
	}
	return nil
}

var errBadKDFSpec = errors.New("malformed kdf parameters")

// ParseKDF reconstructs a KDF from the string produced by its String method.
func ParseKDF(spec string) (KDF, error) {
	name, params, ok := strings.Cut(spec, "$")
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", common.ErrCryptoFailure, errBadKDFSpec, spec)
	}

	values := map[string]string{}
	for _, kv := range strings.Split(params, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %w %q", common.ErrCryptoFailure, errBadKDFSpec, spec)
		}
		values[k] = v
	}

	switch name {
	case "pbkdf2-sha256":
		i, err := strconv.Atoi(values["i"])
		if err != nil || i <= 0 {
			return nil, fmt.Errorf("%w: %w %q", common.ErrCryptoFailure, errBadKDFSpec, spec)
		}
		return PBKDF2{Iterations: i}, nil
	case "argon2id":
		t, errT := strconv.ParseUint(values["t"], 10, 32)
		m, errM := strconv.ParseUint(values["m"], 10, 32)
		p, errP := strconv.ParseUint(values["p"], 10, 8)
		if err := errors.Join(errT, errM, errP); err != nil {
			return nil, fmt.Errorf("%w: %w %q", common.ErrCryptoFailure, errBadKDFSpec, spec)
		}
		return Argon2id{Time: uint32(t), Memory: uint32(m), Threads: uint8(p)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kdf %q", common.ErrCryptoFailure, name)
	}
}

// FromConfig builds the KDF named in configuration ("pbkdf2" or
// "argon2id"). iterations only applies to pbkdf2.
func FromConfig(name string, iterations int) (KDF, error) {
	switch strings.ToLower(name) {
	case "", "pbkdf2", "pbkdf2-sha256":
		return NewPBKDF2(iterations), nil
	case "argon2id":
		return DefaultArgon2id(), nil
	default:
		return nil, fmt.Errorf("unknown kdf %q", name)
	}
}

package cryptox

import (
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
)

// NewSalt returns SaltLen fresh bytes from the secure entropy source.
func NewSalt() ([]byte, error) {
	salt, err := common.RandBytes(SaltLen)
	if err != nil {
		return nil, fmt.Errorf("%w: generating salt: %w", common.ErrCryptoFailure, err)
	}
	return salt, nil
}

// RandomDigits returns a uniformly distributed string of n decimal digits.
// Bytes >= 250 are rejected so every digit is equally likely.
func RandomDigits(n int) (string, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		buf, err := common.RandBytes(n - len(out))
		if err != nil {
			return "", fmt.Errorf("%w: generating digits: %w", common.ErrCryptoFailure, err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
		}
	}
	return string(out), nil
}

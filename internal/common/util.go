package common

import (
	"crypto/rand"
	"io"
)

// randReader is the entropy source for this package; tests replace it to
// simulate an unavailable source.
var randReader io.Reader = rand.Reader

// SetRandReader swaps the entropy source and returns a function restoring
// the previous one. Intended for tests.
func SetRandReader(r io.Reader) (restore func()) {
	prev := randReader
	randReader = r
	return func() { randReader = prev }
}

// RandBytes returns size bytes read from the cryptographically secure
// entropy source.
func RandBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WipeByteArray overwrites b with zeros. Use it on passwords and derived
// keys once they are no longer needed. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

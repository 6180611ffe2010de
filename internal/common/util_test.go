package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestRandBytes_Length(t *testing.T) {
	b, err := RandBytes(24)
	require.NoError(t, err)
	assert.Len(t, b, 24)
}

func TestRandBytes_EntropyHint(t *testing.T) {
	a, err := RandBytes(32)
	require.NoError(t, err)
	b, err := RandBytes(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRandBytes_SourceFailure(t *testing.T) {
	restore := SetRandReader(failingReader{})
	defer restore()

	_, err := RandBytes(8)
	require.Error(t, err)
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, buf)
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

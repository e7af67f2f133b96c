package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomNonce(t *testing.T) {
	n, err := RandomNonce(32)
	require.NoError(t, err)
	assert.Len(t, n, 32)
	for _, r := range n {
		assert.True(t, strings.ContainsRune(nonceCharset, r), "unexpected rune %q", r)
	}

	other, err := RandomNonce(32)
	require.NoError(t, err)
	assert.NotEqual(t, n, other)

	_, err = RandomNonce(0)
	assert.Error(t, err)
}

func TestNonceCharsetIsUniformUnderModulo(t *testing.T) {
	assert.Len(t, nonceCharset, 64)
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SHA256Hex("abc"))
}

package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", 10*time.Minute)

	token, expiresAt, err := signer.Sign("assignments/S001_essay.pdf")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	key, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "assignments/S001_essay.pdf", key)
}

func TestSignRequiresKeyAndSecret(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	_, _, err := signer.Sign("")
	require.Error(t, err)

	unsigned := NewSignedURLSigner("", time.Minute)
	_, _, err = unsigned.Sign("some/key")
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	signer := &SignedURLSigner{secret: []byte("secret"), ttl: -time.Minute}

	token, _, err := signer.Sign("assignments/S001_essay.pdf")
	require.NoError(t, err)

	_, err = signer.Verify(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Sign("assignments/S001_essay.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// Swap in a different key while keeping the signature.
	other, _, err := signer.Sign("assignments/S002_other.pdf")
	require.NoError(t, err)
	forged := strings.Split(other, ".")[0] + "." + parts[1] + "." + parts[2]

	_, err = signer.Verify(forged)
	require.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := NewSignedURLSigner("secret-a", time.Minute).Sign("k")
	require.NoError(t, err)

	_, err = NewSignedURLSigner("secret-b", time.Minute).Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	for _, token := range []string{"", "one.two", "a.b.c.d", "!!!.12x.sig"} {
		_, err := signer.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestTokenIsURLSafe(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Sign("assignments/S001_research+notes.pdf")
	require.NoError(t, err)
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "=")
}

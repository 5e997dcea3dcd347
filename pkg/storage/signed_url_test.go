package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("top-secret", time.Hour)

	token, expiresAt, err := signer.Generate("doc-1", "certificate/u1/doc-1.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	docID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", docID)
	assert.Equal(t, "certificate/u1/doc-1.pdf", relPath)
	assert.Equal(t, expiresAt.Unix(), parsedExpiry.Unix())
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("top-secret", time.Hour)
	token, _, err := signer.Generate("doc-1", "certificate/u1/doc-1.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)
	parts[0] = "doc-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestSignedURLRejectsForeignSecret(t *testing.T) {
	signer := NewSignedURLSigner("top-secret", time.Hour)
	token, _, err := signer.Generate("doc-1", "certificate/u1/doc-1.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("different", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("top-secret", -1)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("doc-1", "certificate/u1/doc-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	docID, _, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", docID)
}

func TestSignedURLRejectsMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("top-secret", time.Hour)

	_, _, _, err := signer.Parse("not-a-token", false)
	require.Error(t, err)
}

func TestSignedURLRequiresArguments(t *testing.T) {
	signer := NewSignedURLSigner("top-secret", time.Hour)

	_, _, err := signer.Generate("", "path")
	require.Error(t, err)
	_, _, err = signer.Generate("doc-1", "")
	require.Error(t, err)
}

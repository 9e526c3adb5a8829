package controller

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyHashStableAndCorrectLength(t *testing.T) {
	h1, err := keyHash("sk-abc123")
	require.NoError(t, err)
	assert.Len(t, h1, 20)

	h2, err := keyHash("sk-abc123")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	sum := sha256.Sum256([]byte("sk-abc123"))
	assert.Equal(t, hex.EncodeToString(sum[:])[:20], h1)
}

func TestKeyHashDifferentKeysDiffer(t *testing.T) {
	h1, err := keyHash("sk-one")
	require.NoError(t, err)
	h2, err := keyHash("sk-two")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestKeyHashRejectsMissingPrefix(t *testing.T) {
	_, err := keyHash("not-a-key")
	assert.Error(t, err)
}

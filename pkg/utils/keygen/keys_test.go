package keygen

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecretKey(t *testing.T) {
	key, err := GenerateSecretKey(48)
	require.NoError(t, err)
	assert.Len(t, key, 48)
	for _, r := range key {
		assert.Contains(t, secretCharset, string(r))
	}

	other, err := GenerateSecretKey(48)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = GenerateSecretKey(0)
	assert.Error(t, err)
}

func TestGenerateCookieKey(t *testing.T) {
	key, err := GenerateCookieKey()
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

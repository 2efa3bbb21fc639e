package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	tok, err := NewSessionToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64) // 32 bytes hex-encoded

	other, err := NewSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestNewClassAccessToken(t *testing.T) {
	tok, err := NewClassAccessToken()
	require.NoError(t, err)
	assert.Len(t, tok, 12)
	for _, r := range tok {
		assert.Contains(t, classTokenAlphabet, string(r))
	}
	assert.NotContains(t, tok, "0")
	assert.NotContains(t, tok, "O")
	assert.NotContains(t, tok, "1")
}

func TestResetTokenRoundTrip(t *testing.T) {
	tok, err := NewResetToken("secret", 42, time.Minute)
	require.NoError(t, err)

	uid, err := ParseResetToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestResetTokenWrongSecret(t *testing.T) {
	tok, err := NewResetToken("secret", 42, time.Minute)
	require.NoError(t, err)

	_, err = ParseResetToken("other-secret", tok)
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetTokenExpired(t *testing.T) {
	tok, err := NewResetToken("secret", 42, -time.Minute)
	require.NoError(t, err)

	_, err = ParseResetToken("secret", tok)
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetTokenGarbage(t *testing.T) {
	_, err := ParseResetToken("secret", "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"))
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestPasswordHashClampsBadCost(t *testing.T) {
	hash, err := HashPassword("hunter22", 99)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
}

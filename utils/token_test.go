package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(7, "worker")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "worker", claims.Role)
	assert.NotEmpty(t, claims.ID)

	other, err := GenerateToken(7, "worker")
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestRevokeToken(t *testing.T) {
	token, err := GenerateToken(8, "admin")
	require.NoError(t, err)

	RevokeToken(token, time.Now().Add(time.Hour))
	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	expired, err := GenerateToken(9, "admin")
	require.NoError(t, err)
	RevokeToken(expired, time.Now().Add(-time.Second))
	assert.False(t, IsTokenRevoked(expired))

	RevokeToken("stale", time.Now().Add(-time.Minute))
	PurgeRevokedTokens()
	_, ok := revoked.Load("stale")
	assert.False(t, ok)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, err := GenerateToken(1, "admin")
	require.NoError(t, err)

	ConfigureJWT("another-secret", 0)
	defer ConfigureJWT("cleanshift-dev-secret", 0)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

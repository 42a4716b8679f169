package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager := newTestManager()

	token, err := manager.GenerateToken("user-123", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "alva-backend", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	manager := newTestManager()
	other := NewJWTManager("different-secret", "refresh-secret", time.Hour, 24*time.Hour)

	token, err := manager.GenerateToken("user-123", "user@example.com")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	manager := NewJWTManager("access-secret", "refresh-secret", -time.Minute, 24*time.Hour)

	token, err := manager.GenerateToken("user-123", "user@example.com")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	manager := newTestManager()

	_, err := manager.ValidateToken("not-a-token")
	assert.Error(t, err)

	_, err = manager.ValidateToken("")
	assert.Error(t, err)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	manager := newTestManager()

	refresh, err := manager.GenerateRefreshToken("user-123")
	require.NoError(t, err)

	userID, err := manager.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)

	// An access token signed with the access secret is not a refresh token
	access, err := manager.GenerateToken("user-123", "user@example.com")
	require.NoError(t, err)
	_, err = manager.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestRefreshTokenIssuesNewAccessToken(t *testing.T) {
	manager := newTestManager()

	refresh, err := manager.GenerateRefreshToken("user-123")
	require.NoError(t, err)

	access, err := manager.RefreshToken(refresh, "user@example.com")
	require.NoError(t, err)

	claims, err := manager.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestGenerateTokenPair(t *testing.T) {
	manager := newTestManager()

	pair, err := manager.GenerateTokenPair("user-123", "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := manager.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)

	userID, err := manager.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := ExtractTokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = ExtractTokenFromHeader("")
	assert.Error(t, err)

	_, err = ExtractTokenFromHeader("Basic abc")
	assert.Error(t, err)

	_, err = ExtractTokenFromHeader("bearer abc")
	assert.Error(t, err)
}

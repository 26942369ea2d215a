package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        2,
	})
}

func newTestSubject() TokenSubject {
	return TokenSubject{UserID: uuid.New(), Username: "picker", Role: identity.RoleWarehouseStaff}
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, []byte("test-secret"), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	subject := newTestSubject()

	pair, err := svc.GenerateTokenPair(subject)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, subject.UserID.String(), claims.UserID)
	assert.Equal(t, "picker", claims.Username)
	assert.Equal(t, identity.RoleWarehouseStaff, claims.GetRole())
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.GetRemainingTTL() > 14*time.Minute)

	userID, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, subject.UserID, userID)

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Zero(t, refresh.RefreshCount)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestValidateAccessToken_Failures(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh token used as access token", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		// signed with the refresh secret, so the signature check fails first
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("access token used as refresh token with shared secret", func(t *testing.T) {
		shared := NewJWTService(config.JWTConfig{Secret: "shared-secret-at-least-32-characters", AccessTokenExpiration: time.Minute, RefreshTokenExpiration: time.Hour})
		p, err := shared.GenerateTokenPair(newTestSubject())
		require.NoError(t, err)
		_, err = shared.ValidateRefreshToken(p.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", AccessTokenExpiration: -time.Minute, RefreshTokenExpiration: time.Hour})
		p, err := expired.GenerateTokenPair(newTestSubject())
		require.NoError(t, err)
		_, err = expired.ValidateAccessToken(p.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-32-characters!", AccessTokenExpiration: time.Minute})
		_, err := other.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.NewString(), TokenType: TokenTypeAccess})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRefreshTokenPair(t *testing.T) {
	svc := newTestJWTService()
	subject := newTestSubject()
	pair, err := svc.GenerateTokenPair(subject)
	require.NoError(t, err)

	subject.Role = identity.RoleWarehouseManager
	refreshed, err := svc.RefreshTokenPair(pair.RefreshToken, subject)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleWarehouseManager, claims.GetRole())

	refreshClaims, err := svc.ValidateRefreshToken(refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshClaims.RefreshCount)

	second, err := svc.RefreshTokenPair(refreshed.RefreshToken, subject)
	require.NoError(t, err)
	_, err = svc.RefreshTokenPair(second.RefreshToken, subject)
	assert.ErrorIs(t, err, ErrMaxRefreshExceeded)

	_, err = svc.RefreshTokenPair(pair.RefreshToken, newTestSubject())
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = svc.RefreshTokenPair(pair.AccessToken, subject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

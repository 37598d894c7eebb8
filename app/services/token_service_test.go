// Package services provides technical concerns like tokens and captcha challenges
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		secretKey   string
		expectError bool
	}{
		{
			name:        "valid symmetric key configuration",
			useRSAKeys:  false,
			secretKey:   "test-secret-key-for-jwt-signing-32-chars",
			expectError: false,
		},
		{
			name:        "missing secret key",
			useRSAKeys:  false,
			secretKey:   "",
			expectError: true,
		},
		{
			name:        "rsa mode without keys",
			useRSAKeys:  true,
			secretKey:   "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(
				15*time.Minute,
				7*24*time.Hour,
				"test-issuer",
				"test-audience",
				tt.useRSAKeys,
				"",
				"",
				tt.secretKey,
			)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateAdminTokens(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateAdminTokens(123)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)

	t.Run("UniquePerCall", func(t *testing.T) {
		a2, r2, err := service.GenerateAdminTokens(123)
		require.NoError(t, err)
		assert.NotEqual(t, accessToken, a2)
		assert.NotEqual(t, refreshToken, r2)
	})
}

func TestValidateAdminToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateAdminTokens(42)
	require.NoError(t, err)

	t.Run("ValidAccessToken", func(t *testing.T) {
		claims, err := service.ValidateAdminToken(accessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.AdminID)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)
		assert.True(t, claims.ExpiresAt.After(time.Now()))
	})

	t.Run("ValidRefreshToken", func(t *testing.T) {
		claims, err := service.ValidateAdminToken(refreshToken)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.AdminID)
		assert.Equal(t, "refresh", claims.TokenType)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		claims, err := service.ValidateAdminToken("not.a.token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("EmptyToken", func(t *testing.T) {
		claims, err := service.ValidateAdminToken("")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("WrongSignature", func(t *testing.T) {
		other, err := NewTokenService(
			15*time.Minute,
			7*24*time.Hour,
			"test-issuer",
			"test-audience",
			false,
			"",
			"",
			"a-completely-different-secret-key-32char",
		)
		require.NoError(t, err)

		claims, err := other.ValidateAdminToken(accessToken)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		shortLived, err := NewTokenService(
			-time.Minute,
			7*24*time.Hour,
			"test-issuer",
			"test-audience",
			false,
			"",
			"",
			"test-secret-key-for-jwt-signing-32-chars",
		)
		require.NoError(t, err)

		expired, _, err := shortLived.GenerateAdminTokens(1)
		require.NoError(t, err)

		claims, err := shortLived.ValidateAdminToken(expired)
		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.Nil(t, claims)
	})
}

func TestRefreshAdminToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateAdminTokens(7)
	require.NoError(t, err)

	t.Run("IssuesNewPair", func(t *testing.T) {
		newAccess, newRefresh, err := service.RefreshAdminToken(refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEmpty(t, newRefresh)
		assert.NotEqual(t, refreshToken, newRefresh)

		claims, err := service.ValidateAdminToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.AdminID)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("UsedRefreshTokenIsRevoked", func(t *testing.T) {
		_, _, err := service.RefreshAdminToken(refreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("AccessTokenRejected", func(t *testing.T) {
		_, _, err := service.RefreshAdminToken(accessToken)
		assert.Error(t, err)
	})
}

func TestRevokeToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, _, err := service.GenerateAdminTokens(9)
	require.NoError(t, err)

	claims, err := service.ValidateAdminToken(accessToken)
	require.NoError(t, err)
	require.False(t, service.IsTokenRevoked(claims.TokenID))

	require.NoError(t, service.RevokeToken(accessToken))
	assert.True(t, service.IsTokenRevoked(claims.TokenID))

	_, err = service.ValidateAdminToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
}

func TestNewTokenVerifierDisabled(t *testing.T) {
	assert.Nil(t, NewTokenVerifier(""))
	assert.Nil(t, NewTokenVerifier("   "))
}

func TestVerifyValidToken(t *testing.T) {
	token, err := SignToken(testSecret, "peer-1", validClaims())
	require.NoError(t, err)

	claims, err := NewTokenVerifier(testSecret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "peer-1", claims.Subject)
}

func TestVerifyRejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expiredToken, err := SignToken(testSecret, "peer", expired)
	require.NoError(t, err)

	wrongSecret, err := SignToken("other-secret", "peer", validClaims())
	require.NoError(t, err)

	noExpiry, err := SignToken(testSecret, "peer", jwt.RegisteredClaims{})
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	verifier := NewTokenVerifier(testSecret)
	for name, token := range map[string]string{
		"expired":      expiredToken,
		"wrong secret": wrongSecret,
		"no expiry":    noExpiry,
		"alg none":     unsigned,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestAuthenticateTokenSources(t *testing.T) {
	token, err := SignToken(testSecret, "peer-2", validClaims())
	require.NoError(t, err)
	verifier := NewTokenVerifier(testSecret)

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/socket", http.NoBody)
		r.Header.Set("Authorization", "Bearer "+token)
		claims, err := verifier.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "peer-2", claims.Subject)
	})

	t.Run("query parameter", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/socket?token="+token, http.NoBody)
		claims, err := verifier.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "peer-2", claims.Subject)
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/socket", http.NoBody)
		_, err := verifier.Authenticate(r)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/socket", http.NoBody)
		r.Header.Set("Authorization", "Basic "+token)
		_, err := verifier.Authenticate(r)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

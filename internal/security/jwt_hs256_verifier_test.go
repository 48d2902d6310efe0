package security_test

import (
	"testing"
	"time"

	"github.com/citymeet/eventhub/internal/security"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHS256(t *testing.T, secret []byte, uid, role string, exp time.Time) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  uid,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  exp.Unix(),
		"iss":  "auth-service",
	})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestHS256Verifier_VerifyAccessToken(t *testing.T) {
	secret := []byte("supersecret")
	v := security.NewHS256Verifier(string(secret))

	t.Run("valid_token", func(t *testing.T) {
		token := signHS256(t, secret, "u1", security.RoleUser, time.Now().Add(time.Hour))

		claims, err := v.VerifyAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
		assert.Equal(t, security.RoleUser, claims.Role)
		assert.False(t, claims.IsAdmin())
	})

	t.Run("admin_role", func(t *testing.T) {
		token := signHS256(t, secret, "a1", security.RoleAdmin, time.Now().Add(time.Hour))

		claims, err := v.VerifyAccessToken(token)
		require.NoError(t, err)
		assert.True(t, claims.IsAdmin())
	})

	t.Run("expired", func(t *testing.T) {
		token := signHS256(t, secret, "u1", security.RoleUser, time.Now().Add(-time.Minute))

		_, err := v.VerifyAccessToken(token)
		assert.ErrorIs(t, err, security.ErrTokenExpired)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		token := signHS256(t, []byte("other"), "u1", security.RoleUser, time.Now().Add(time.Hour))

		_, err := v.VerifyAccessToken(token)
		assert.ErrorIs(t, err, security.ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.VerifyAccessToken("not.a.token")
		assert.ErrorIs(t, err, security.ErrTokenInvalid)
	})

	t.Run("none_alg_rejected", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"uid": "u1", "role": security.RoleUser,
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = v.VerifyAccessToken(s)
		assert.ErrorIs(t, err, security.ErrTokenInvalid)
	})
}

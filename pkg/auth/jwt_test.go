package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("s3cret", "care-admin-api", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateAccessToken("admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWTService_Rejects(t *testing.T) {
	svc, err := NewJWTService("s3cret", "care-admin-api", time.Hour)
	require.NoError(t, err)
	other, err := NewJWTService("other", "care-admin-api", time.Hour)
	require.NoError(t, err)

	token, _, err := other.GenerateAccessToken("admin")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := svc.(*hmacService)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.GenerateAccessToken("admin")
	require.NoError(t, err)
	expired.now = time.Now
	_, err = svc.ValidateToken(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "admin", "iss": "care-admin-api"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTService("", "x", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateAccessToken(testSecret, userID, "tenant-1", "manager", "m@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, "m@example.com", claims.Email)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, uuid.New(), "", "cashier", "", time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken("other-secret", token)
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, uuid.New(), "", "cashier", "", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(testSecret, token)
	assert.Error(t, err)
}

func TestDecodeExpiry(t *testing.T) {
	exp := time.Now().Add(45 * time.Minute)
	token, err := GenerateAccessToken(testSecret, uuid.New(), "", "cashier", "", 45*time.Minute)
	require.NoError(t, err)

	decoded, err := DecodeExpiry(token)
	require.NoError(t, err)
	assert.WithinDuration(t, exp, decoded, 2*time.Second)
}

func TestDecodeExpiryMalformed(t *testing.T) {
	cases := []string{
		"",
		"only-one-segment",
		"two.segments",
		"a.%%%.c",
		"a." + base64.RawURLEncoding.EncodeToString([]byte("plain text")) + ".c",
		"a." + base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"soon"}`)) + ".c",
		"a." + base64.RawURLEncoding.EncodeToString([]byte(`{"iat":123}`)) + ".c",
	}

	for _, token := range cases {
		_, err := DecodeExpiry(token)
		assert.ErrorIs(t, err, ErrNoExpiry, "token %q", token)
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	token, err := NewRefreshToken()
	require.NoError(t, err)
	other, err := NewRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, token, other)
	assert.Equal(t, HashToken(token), HashToken(token))
	assert.NotEqual(t, HashToken(token), HashToken(other))
	assert.NotEqual(t, token, HashToken(token))
}

package token

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavechat/messaging-gateway/internal/domain"
)

func TestVerifyRoundtrip(t *testing.T) {
	v := NewVerifier("test-secret")

	signed, err := v.Sign("user-1", "user@example.com", "member", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "member", claims.UserType)
}

func TestVerifyEmptyToken(t *testing.T) {
	v := NewVerifier("test-secret")

	_, err := v.Verify("")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestVerifyWrongSecret(t *testing.T) {
	signed, err := NewVerifier("other-secret").Sign("user-1", "user@example.com", "", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("test-secret").Verify(signed)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret")

	signed, err := v.Sign("user-1", "user@example.com", "", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyGarbageToken(t *testing.T) {
	v := NewVerifier("test-secret")

	_, err := v.Verify("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyMissingUserID(t *testing.T) {
	v := NewVerifier("test-secret")

	signed, err := v.Sign("", "user@example.com", "", time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", FromRequest(r))

	r = httptest.NewRequest("GET", "/ws?token=query-token", nil)
	assert.Equal(t, "query-token", FromRequest(r))

	r = httptest.NewRequest("GET", "/ws?token=query-token", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", FromRequest(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	assert.Equal(t, "", FromRequest(r))
}

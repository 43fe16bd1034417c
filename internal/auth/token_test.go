package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *TokenManager {
	return NewTokenManager("test-secret-at-least-32-characters!!", "skillswap-api", "skillswap-client", time.Hour)
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	token, issued, err := m.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestTokenManager_DefaultTTLIsSevenDays(t *testing.T) {
	t.Parallel()
	m := NewTokenManager("secret", "iss", "aud", 0)
	assert.Equal(t, 7*24*time.Hour, m.TTL())
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue(1)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	sign := func(secret string, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign("other-secret", jwt.MapClaims{"sub": "1", "iss": "skillswap-api", "aud": "skillswap-client", "exp": exp})},
		{"wrong issuer", sign("test-secret-at-least-32-characters!!", jwt.MapClaims{"sub": "1", "iss": "someone-else", "aud": "skillswap-client", "exp": exp})},
		{"wrong audience", sign("test-secret-at-least-32-characters!!", jwt.MapClaims{"sub": "1", "iss": "skillswap-api", "aud": "other", "exp": exp})},
		{"missing exp", sign("test-secret-at-least-32-characters!!", jwt.MapClaims{"sub": "1", "iss": "skillswap-api", "aud": "skillswap-client"})},
		{"numeric subject", sign("test-secret-at-least-32-characters!!", jwt.MapClaims{"sub": 1, "iss": "skillswap-api", "aud": "skillswap-client", "exp": exp})},
		{"zero subject", sign("test-secret-at-least-32-characters!!", jwt.MapClaims{"sub": "0", "iss": "skillswap-api", "aud": "skillswap-client", "exp": exp})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

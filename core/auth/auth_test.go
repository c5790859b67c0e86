package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VidTube/config"
	"VidTube/model"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(config.TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    24 * time.Hour,
		Issuer:        "vidtube-test",
	})
	require.NoError(t, err)
	return svc
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("p1")
	require.NoError(t, err)
	assert.NotEqual(t, "p1", hash)
	assert.True(t, CheckPasswordHash("p1", hash))
	assert.False(t, CheckPasswordHash("p2", hash))

	_, err = HashPassword(strings.Repeat("x", 100))
	assert.True(t, IsPasswordTooLong(err))
}

func TestNewTokenServiceRequiresSecrets(t *testing.T) {
	_, err := NewTokenService(config.TokenConfig{AccessTTL: time.Minute, RefreshTTL: time.Minute})
	assert.Error(t, err)

	_, err = NewTokenService(config.TokenConfig{AccessSecret: "a", RefreshSecret: "r"})
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)
	user := &model.User{ID: "u-1", Username: "alice", Email: "a@x.com", FullName: "Alice A"}

	token, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "vidtube-test", claims.Issuer)

	// an access token is not a refresh token
	_, err = svc.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc := newTestTokenService(t)

	first, err := svc.IssueRefreshToken("u-1")
	require.NoError(t, err)
	second, err := svc.IssueRefreshToken("u-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	id, err := svc.VerifyRefreshToken(second)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)
}

func TestVerifyRefreshTokenRejects(t *testing.T) {
	svc := newTestTokenService(t)
	valid, err := svc.IssueRefreshToken("u-1")
	require.NoError(t, err)

	expiredSvc := newTestTokenService(t)
	expiredSvc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := expiredSvc.IssueRefreshToken("u-1")
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("someone-else"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, RefreshClaims{UserID: "u-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"truncated": valid[:len(valid)-4],
		"expired":   expired,
		"forged":    forged,
		"alg none":  none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyRefreshToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	svc, err := NewTokenService(config.TokenConfig{
		AccessSecret:  "same",
		AccessTTL:     time.Minute,
		RefreshSecret: "same",
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	refresh, err := svc.IssueRefreshToken("u-1")
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := svc.IssueAccessToken(&model.User{ID: "u-1"})
	require.NoError(t, err)
	_, err = svc.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// untyped tokens signed with the right secret are rejected too
	untyped, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("same"))
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(untyped)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.VerifyRefreshToken(untyped)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuePair(t *testing.T) {
	svc := newTestTokenService(t)
	access, refresh, err := svc.IssuePair(&model.User{ID: "u-9"})
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.Equal(t, 15*time.Minute, svc.AccessTTL())
	assert.Equal(t, 24*time.Hour, svc.RefreshTTL())
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"VidTube/config"
	"VidTube/model"
)

// ErrInvalidToken is returned for every verification failure. Callers must not tell
// malformed, forged and expired tokens apart.
var ErrInvalidToken = errors.New("invalid token")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID    string `json:"_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"fullname"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	UserID    string `json:"_id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies access and refresh tokens. It holds no mutable state.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService validates the signing configuration once so issuing never fails on it later.
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets are not configured")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

func (s *TokenService) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(), // makes two tokens minted in the same second distinct
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueAccessToken signs a short-lived token describing the user.
func (s *TokenService) IssueAccessToken(user *model.User) (string, error) {
	claims := AccessClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Username:         user.Username,
		FullName:         user.FullName,
		TokenType:        tokenTypeAccess,
		RegisteredClaims: s.registered(user.ID, s.accessTTL),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken signs a long-lived token carrying only the user id.
func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	claims := RefreshClaims{
		UserID:           userID,
		TokenType:        tokenTypeRefresh,
		RegisteredClaims: s.registered(userID, s.refreshTTL),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, nil
}

// IssuePair issues an access token and a refresh token for user.
func (s *TokenService) IssuePair(user *model.User) (accessToken, refreshToken string, err error) {
	if accessToken, err = s.IssueAccessToken(user); err != nil {
		return "", "", err
	}
	if refreshToken, err = s.IssueRefreshToken(user.ID); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// VerifyAccessToken validates signature, expiry and token type and returns the claims.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims, s.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.TokenType != tokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken validates signature, expiry and token type and returns the embedded user id.
func (s *TokenService) VerifyRefreshToken(tokenString string) (string, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims, s.refreshSecret); err != nil {
		return "", err
	}
	if claims.UserID == "" || claims.TokenType != tokenTypeRefresh {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// AccessTTL is exposed for cookie max-age.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is exposed for cookie max-age.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

package main

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// TokenService issues and verifies access/refresh tokens. Access tokens are
// stateless; refresh tokens are additionally recorded in the injected store
// and usable only while present there.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	store         RefreshTokenStore
}

func NewTokenService(accessSecret, refreshSecret string, store RefreshTokenStore) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		store:         store,
	}
}

func signToken(subject, role string, ttl time.Duration, secret []byte) (string, error) {
	claims := jwt.MapClaims{"userID": subject, "role": role, "exp": time.Now().Add(ttl).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenStr string, secret []byte) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	subject, _ := claims["userID"].(string)
	role, _ := claims["role"].(string)
	if subject == "" || role == "" {
		return nil, ErrInvalidToken
	}
	return &TokenClaims{Subject: subject, Role: role}, nil
}

func (t *TokenService) IssueAccessToken(subject, role string) (string, error) {
	return signToken(subject, role, accessTokenTTL, t.accessSecret)
}

// IssueRefreshToken signs a refresh token and records it in the store keyed
// by the token string itself.
func (t *TokenService) IssueRefreshToken(subject, role string) (string, error) {
	token, err := signToken(subject, role, refreshTokenTTL, t.refreshSecret)
	if err != nil {
		return "", err
	}
	if err := t.store.Put(token, subject); err != nil {
		return "", err
	}
	return token, nil
}

func (t *TokenService) VerifyAccessToken(tokenStr string) (*TokenClaims, error) {
	return parseToken(tokenStr, t.accessSecret)
}

// Refresh exchanges a live refresh token for a fresh access token. The
// refresh token itself is not rotated; it stays valid until its own expiry.
// A token that fails verification is removed from the store first, so a
// second exchange attempt fails as unknown.
func (t *TokenService) Refresh(tokenStr string) (string, error) {
	if _, ok, err := t.store.Get(tokenStr); err != nil {
		return "", err
	} else if !ok {
		return "", ErrUnknownRefreshToken
	}
	claims, err := parseToken(tokenStr, t.refreshSecret)
	if err != nil {
		if delErr := t.store.Delete(tokenStr); delErr != nil {
			return "", delErr
		}
		return "", ErrExpiredRefreshToken
	}
	return t.IssueAccessToken(claims.Subject, claims.Role)
}

// RequireRole gates role-restricted endpoints. Role mismatch is Forbidden
// regardless of how valid the token otherwise is.
func (t *TokenService) RequireRole(claims *TokenClaims, role string) error {
	if claims.Role != role {
		return ErrForbidden
	}
	return nil
}

func genSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSecret is applied to voter secrets before they are recorded as the
// ledger-side profile placeholder. The plaintext never reaches the ledger.
func hashSecret(s string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
	return string(b), err
}

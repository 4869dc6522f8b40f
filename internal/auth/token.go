// Package auth verifies the credentials issued by the identity subsystem.
// Token issuance lives with registration/OTP; chat only needs to generate
// tokens for its own tests and to verify what clients present.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/apperr"
)

// Claims is the payload carried inside a signed token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret   []byte
	duration time.Duration
}

func NewTokenManager(secret string, duration time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), duration: duration}
}

// Generate creates a signed token for the given user.
func (m *TokenManager) Generate(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "campusxchange",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses tokenString and validates its signature and expiry. Every
// failure collapses into a single authentication error so callers cannot
// leak why a credential was rejected.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, apperr.Authentication("invalid or expired token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, apperr.Authentication("invalid or expired token")
	}
	return claims, nil
}

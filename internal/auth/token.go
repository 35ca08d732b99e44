// Package auth verifies principal tokens presented on the HTTP and
// WebSocket surfaces. Token issuance lives with the identity service;
// this side only signs for tooling and tests.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/david0ql/helpdeskd/internal/apperr"
)

// Claims is the principal payload carried in a token.
type Claims struct {
	UserID  int64  `json:"id"`
	Profile string `json:"profile"`
	jwt.RegisteredClaims
}

// Verifier checks token signatures against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the principal id.
func (v *Verifier) Verify(token string) (int64, error) {
	if token == "" {
		return 0, apperr.Auth("missing token")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Auth("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, apperr.Auth("invalid or expired token")
	}
	return claims.UserID, nil
}

// Sign issues a token for the principal. Used by tests and tooling.
func (v *Verifier) Sign(userID int64, profile string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:  userID,
		Profile: profile,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

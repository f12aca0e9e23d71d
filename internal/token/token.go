package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification: bad
// signature, malformed input, or expiry. Callers get one error kind and no
// detail about which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// Service issues and validates signed bearer tokens. The subject claim
// carries the account email. Tokens are valid for ttl from issuance and
// cannot be revoked before natural expiry.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time // injectable clock for testing
}

// NewService creates a token service signing with the given secret. ttl is
// the token lifetime (24h in the default configuration).
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a signed HS256 token with subject=email, issued now and
// expiring after the configured ttl.
func (s *Service) Issue(email string) (string, error) {
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})

	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning the subject email.
func (s *Service) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !t.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

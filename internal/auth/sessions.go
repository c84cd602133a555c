package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/desertthunder/groupchat/internal/shared"
)

// Sessions issues and verifies HS256 session tokens whose subject is an account ID.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates [Sessions] signed with secret. Tokens expire after ttl.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: session secret is required", shared.ErrInvalidConfig)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: session ttl must be positive", shared.ErrInvalidConfig)
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a token for accountID and returns it with its expiry.
func (s *Sessions) Issue(accountID string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, fmt.Errorf("%w: account id is required", shared.ErrInvalidInput)
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Parse verifies token and returns the account ID it was issued for.
//
// Any invalid, expired or tampered token is [shared.ErrNotAuthenticated].
func (s *Sessions) Parse(token string) (string, error) {
	if token == "" {
		return "", shared.ErrNotAuthenticated
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: session expired", shared.ErrNotAuthenticated)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", shared.ErrNotAuthenticated)
	}
	return claims.Subject, nil
}

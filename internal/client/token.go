package client

import (
	"fmt"
	"time"

	"resumeform/internal/config"
	"resumeform/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenSigner issues short-lived HS256 bearer tokens for the endpoint
type TokenSigner struct {
	secret   []byte
	issuer   string
	audience string
	subject  string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenSigner returns nil when JWT signing is disabled
func NewTokenSigner(cfg config.JWTConfig) (*TokenSigner, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Secret == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "JWT signing is enabled but no secret is configured", nil)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenSigner{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		subject:  cfg.Subject,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Sign creates a token for one request
func (s *TokenSigner) Sign() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign request token: %w", err)
	}
	return token, nil
}

package client

import (
	"testing"
	"time"

	"resumeform/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenSigner_Disabled(t *testing.T) {
	s, err := NewTokenSigner(config.JWTConfig{Enabled: false, Secret: "x"})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestTokenSigner_Claims(t *testing.T) {
	s, err := NewTokenSigner(config.JWTConfig{Enabled: true, Secret: "s3cret", Issuer: "resumeform", Subject: "cli"})
	require.NoError(t, err)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	first, err := s.Sign()
	require.NoError(t, err)
	second, err := s.Sign()
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "every token has its own id")

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(first, claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return fixed.Add(time.Minute) }))
	require.NoError(t, err)

	assert.Equal(t, "resumeform", claims.Issuer)
	assert.Equal(t, "cli", claims.Subject)
	assert.Empty(t, claims.Audience)
	assert.Equal(t, fixed.Add(5*time.Minute), claims.ExpiresAt.Time.UTC(), "default ttl")
}

func TestTokenSigner_Expired(t *testing.T) {
	s, err := NewTokenSigner(config.JWTConfig{Enabled: true, Secret: "s3cret", TTL: time.Minute})
	require.NoError(t, err)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	token, err := s.Sign()
	require.NoError(t, err)

	_, err = jwt.Parse(token, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return fixed.Add(2 * time.Minute) }))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

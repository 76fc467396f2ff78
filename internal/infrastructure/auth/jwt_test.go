package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/invest/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-ledger-tokens-32b"

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:   testSecret,
		Issuer:   "identity-service",
		Audience: "investment-ledger",
	}
}

func validClaims() *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       "jti-1",
			Subject:  "admin-42",
			Issuer:   "identity-service",
			Audience: jwt.ClaimStrings{"investment-ledger"},
		},
		Name:  "Finance Admin",
		Roles: []string{"finance"},
	}
}

func sign(t *testing.T, claims *Claims, secret string, ttl time.Duration) string {
	t.Helper()
	token, err := SignHS256(claims, secret, ttl)
	require.NoError(t, err)
	return token
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(testConfig())
	token := sign(t, validClaims(), testSecret, time.Hour)

	claims, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "admin-42", claims.ActorID())
	assert.Equal(t, "Finance Admin", claims.Name)
	assert.True(t, claims.HasRole("finance"))
	assert.False(t, claims.HasRole("root"))
}

func TestVerifier_Rejections(t *testing.T) {
	v := NewVerifier(testConfig())
	past := time.Now().Add(-2 * time.Hour)

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{
			name:    "empty",
			token:   func() string { return "" },
			wantErr: ErrMissingToken,
		},
		{
			name:    "garbage",
			token:   func() string { return "not.a.jwt" },
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong secret",
			token:   func() string { return sign(t, validClaims(), "another-secret-another-secret-xx", time.Hour) },
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: func() string {
				c := validClaims()
				c.ExpiresAt = jwt.NewNumericDate(past)
				return sign(t, c, testSecret, 0)
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			token: func() string {
				c := validClaims()
				c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
				return sign(t, c, testSecret, 2*time.Hour)
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "wrong issuer",
			token: func() string {
				c := validClaims()
				c.Issuer = "someone-else"
				return sign(t, c, testSecret, time.Hour)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong audience",
			token: func() string {
				c := validClaims()
				c.Audience = jwt.ClaimStrings{"storefront"}
				return sign(t, c, testSecret, time.Hour)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing subject",
			token: func() string {
				c := validClaims()
				c.Subject = ""
				return sign(t, c, testSecret, time.Hour)
			},
			wantErr: ErrMissingSubject,
		},
		{
			name: "unsigned",
			token: func() string {
				s, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return s
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(context.Background(), tt.token())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}
}

func TestVerifier_Leeway(t *testing.T) {
	cfg := testConfig()
	cfg.Leeway = time.Minute
	c := validClaims()
	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-10 * time.Second))
	token := sign(t, c, testSecret, 0)

	_, err := NewVerifier(cfg).Verify(context.Background(), token)
	assert.NoError(t, err)
	_, err = NewVerifier(testConfig()).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifier_OptionalIssuerAndAudience(t *testing.T) {
	v := NewVerifier(config.JWTConfig{Secret: testSecret})
	c := validClaims()
	c.Issuer = ""
	c.Audience = nil

	claims, err := v.Verify(context.Background(), sign(t, c, testSecret, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "admin-42", claims.ActorID())
}

func TestVerifier_Revocations(t *testing.T) {
	ctx := context.Background()
	list := NewInMemoryRevocationList()
	v := NewVerifier(testConfig(), WithRevocations(list))
	token := sign(t, validClaims(), testSecret, time.Hour)

	_, err := v.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Hour))
	_, err = v.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestVerifier_VerifyHeader(t *testing.T) {
	v := NewVerifier(testConfig())
	token := sign(t, validClaims(), testSecret, time.Hour)

	claims, err := v.VerifyHeader(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "admin-42", claims.ActorID())

	claims, err = v.VerifyHeader(context.Background(), "bearer  "+token)
	require.NoError(t, err)
	assert.Equal(t, "admin-42", claims.ActorID())

	for _, header := range []string{"", "Bearer", "Basic abc", token} {
		_, err := v.VerifyHeader(context.Background(), header)
		assert.ErrorIs(t, err, ErrMissingToken, "header %q", header)
	}
}

func TestInMemoryRevocationList_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	list := NewInMemoryRevocationList()
	list.now = func() time.Time { return now }

	require.NoError(t, list.Revoke(ctx, "jti-9", time.Minute))
	revoked, err := list.IsRevoked(ctx, "jti-9")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(time.Minute)
	revoked, err = list.IsRevoked(ctx, "jti-9")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = list.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}

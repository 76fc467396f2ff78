// Package auth verifies bearer tokens issued by the identity service and
// yields the actor ID recorded on every ledger mutation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/invest/ledger/internal/infrastructure/config"
)

// Verification errors
var (
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSubject   = errors.New("missing subject in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the claims the ledger reads from an access token. The subject
// is the actor ID.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// ActorID returns the principal that made the request
func (c *Claims) ActorID() string {
	return c.Subject
}

// HasRole reports whether the token carries role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Verifier validates HS256 access tokens
type Verifier struct {
	secret      []byte
	parser      *jwt.Parser
	revocations RevocationList
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithRevocations rejects tokens whose ID is on list
func WithRevocations(list RevocationList) VerifierOption {
	return func(v *Verifier) {
		v.revocations = list
	}
}

// NewVerifier creates a Verifier. Issuer and audience are checked only when
// configured.
func NewVerifier(cfg config.JWTConfig, opts ...VerifierOption) *Verifier {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}

	v := &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(parserOpts...),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify parses and validates tokenString
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}

	if v.revocations != nil && claims.ID != "" {
		revoked, err := v.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// VerifyHeader extracts the token from an "Authorization: Bearer <token>" value
func (v *Verifier) VerifyHeader(ctx context.Context, header string) (*Claims, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, ErrMissingToken
	}
	return v.Verify(ctx, strings.TrimSpace(token))
}

// SignHS256 signs claims with secret. The ledger never issues tokens in
// production; this serves local tooling and tests.
func SignHS256(claims *Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/invest/ledger/internal/infrastructure/auth"
	"github.com/invest/ledger/internal/infrastructure/logger"
	"github.com/invest/ledger/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const claimsKey = "auth_claims"

// TokenVerifier validates the Authorization header of a request
type TokenVerifier interface {
	VerifyHeader(ctx context.Context, header string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token. The actor ID is stored in the
// request context so every log line and ledger mutation carries it.
func Authenticate(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		claims, err := verifier.VerifyHeader(ctx, c.GetHeader("Authorization"))
		if err != nil {
			code, message := authErrorCode(err)
			reqLog := logger.For(ctx, log).With(zap.String("path", c.Request.URL.Path), zap.Error(err))
			if code == dto.ErrCodeUnavailable {
				reqLog.Error("Token revocation check failed")
			} else {
				reqLog.Debug("Authentication rejected", zap.String("code", code))
			}
			c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
				dto.NewErrorResponse(code, message, logger.RequestID(ctx)))
			return
		}

		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithActorID(ctx, claims.ActorID()))
		c.Next()
	}
}

func authErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return dto.ErrCodeUnauthorized, "Authentication required"
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingSubject):
		return dto.ErrCodeTokenInvalid, "Invalid token"
	default:
		return dto.ErrCodeUnavailable, "Authentication is temporarily unavailable"
	}
}

// RequireRole allows the request when the token carries any of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims != nil {
			for _, role := range roles {
				if claims.HasRole(role) {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeForbidden),
			dto.NewErrorResponse(dto.ErrCodeForbidden, "Insufficient role", logger.RequestID(c.Request.Context())))
	}
}

// GetClaims returns the verified claims, or nil on unauthenticated routes
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// ActorID returns the authenticated actor, or "" on unauthenticated routes
func ActorID(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.ActorID()
	}
	return ""
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Auth context keys
const (
	TokenClaimsKey   = "token_claims"
	TokenShopUUIDKey = "token_shop_uuid"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// TokenValidator validates a bearer token; *auth.ShopTokenService implements it
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// AuthMiddlewareConfig holds configuration for the shop token middleware
type AuthMiddlewareConfig struct {
	// Validator is required
	Validator TokenValidator
	// Revocations is optional for checking revoked tokens
	Revocations auth.RevocationList
	// RequiredScope rejects tokens that do not grant it when set
	RequiredScope string
	Logger        *zap.Logger
}

// ShopAuth authenticates the bearer token of a request and pins the request
// to the shop named in the token. Shop reads the pinned shop.
func ShopAuth(cfg AuthMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortAuth(c, cfg, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			abortAuth(c, cfg, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}

		claims, err := cfg.Validator.Validate(strings.TrimSpace(token))
		if err != nil {
			abortAuth(c, cfg, err, "Token validation failed")
			return
		}

		if cfg.Revocations != nil && claims.ID != "" {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// fail open, the revocation store is not a hard dependency
				authLogger(c, cfg).Error("Failed to check token revocation",
					zap.String("jti", claims.ID),
					zap.Error(err))
			} else if revoked {
				abortAuth(c, cfg, auth.ErrTokenRevoked, "Token has been revoked")
				return
			}
		}

		if cfg.RequiredScope != "" && !claims.HasScope(cfg.RequiredScope) {
			authLogger(c, cfg).Warn("Token lacks required scope",
				zap.String("client_id", claims.ClientID),
				zap.String("scope", cfg.RequiredScope))
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Token does not grant "+cfg.RequiredScope, GetRequestID(c),
			))
			return
		}

		c.Set(TokenClaimsKey, claims)
		c.Set(TokenShopUUIDKey, claims.ShopUUID)

		authLogger(c, cfg).Debug("Token authentication successful",
			zap.String("client_id", claims.ClientID),
			zap.String("shop_uuid", claims.ShopUUID),
		)
		c.Next()
	}
}

func authLogger(c *gin.Context, cfg AuthMiddlewareConfig) *zap.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return logger.FromContext(c.Request.Context())
}

func abortAuth(c *gin.Context, cfg AuthMiddlewareConfig, err error, message string) {
	authLogger(c, cfg).Warn("Token authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, msg = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		msg = "Token is not yet valid"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingShopUUID), errors.Is(err, auth.ErrMissingClientID):
		msg = "Invalid token"
	}

	c.Header("WWW-Authenticate", `Bearer realm="storefront"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, msg, GetRequestID(c)))
}

// GetTokenClaims retrieves the claims stored by ShopAuth
func GetTokenClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(TokenClaimsKey); exists {
		if tokenClaims, ok := claims.(*auth.Claims); ok {
			return tokenClaims
		}
	}
	return nil
}

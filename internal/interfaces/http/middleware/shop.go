package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/storefront/backend/internal/domain/write"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Header and context keys for the shop scope
const (
	ShopHeaderKey = "X-Shop-ID"
	ShopUUIDKey   = "shop_uuid"
)

// MaxShopIDLength bounds the X-Shop-ID header
const MaxShopIDLength = 64

// shopIDTag validates slug-style shop IDs: an ASCII letter or digit,
// followed by letters, digits, '_', '.' or '-'
const shopIDTag = "shopid"

var (
	shopIDValidate = newShopIDValidator()
	shopIDRules    = "required,max=" + strconv.Itoa(MaxShopIDLength) + ",uuid|" + shopIDTag
)

func newShopIDValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation(shopIDTag, validateShopID); err != nil {
		panic(err)
	}
	return v
}

func validateShopID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case i > 0 && (r == '_' || r == '.' || r == '-'):
		default:
			return false
		}
	}
	return id != ""
}

// ShopValidator checks that a shop exists and accepts writes
type ShopValidator interface {
	ValidateShop(ctx context.Context, shopUUID string) error
}

// ShopMiddlewareConfig holds configuration for the shop middleware
type ShopMiddlewareConfig struct {
	// SkipPaths are paths that carry no shop scope (e.g., health check)
	SkipPaths []string
	// Validator is an optional check that the shop exists
	Validator ShopValidator
	Logger    *zap.Logger
}

// DefaultShopConfig returns default shop middleware configuration
func DefaultShopConfig() ShopMiddlewareConfig {
	return ShopMiddlewareConfig{
		SkipPaths: []string{"/health", "/ping", "/metrics"},
	}
}

// Shop resolves the storefront a request writes to. Requests authenticated by
// ShopAuth use the shop of their token, others the X-Shop-ID header. Requests
// with neither are scoped to the default shop.
func Shop(cfg ShopMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		shopUUID := strings.TrimSpace(c.GetHeader(ShopHeaderKey))
		tokenShop := c.GetString(TokenShopUUIDKey)
		switch {
		case tokenShop != "":
			// an authenticated request writes into the shop of its token
			if shopUUID != "" && shopUUID != tokenShop {
				c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeShopMismatch, "X-Shop-ID does not match the token", GetRequestID(c),
				))
				return
			}
			shopUUID = tokenShop
		case shopUUID == "":
			shopUUID = write.DefaultShopUUID
		}
		if err := ValidateShopIDFormat(shopUUID); err != nil {
			respondInvalidShop(c, "Invalid shop ID format")
			return
		}

		if cfg.Validator != nil {
			if err := cfg.Validator.ValidateShop(c.Request.Context(), shopUUID); err != nil {
				log := cfg.Logger
				if log == nil {
					log = logger.FromContext(c.Request.Context())
				}
				log.Warn("Shop validation failed",
					zap.String("shop_uuid", shopUUID),
					zap.Error(err),
				)
				respondInvalidShop(c, "Unknown or inactive shop")
				return
			}
		}

		c.Set(ShopUUIDKey, shopUUID)
		c.Request = c.Request.WithContext(logger.WithShopUUID(c.Request.Context(), shopUUID))
		c.Next()
	}
}

// ValidateShopIDFormat accepts UUIDs and short slug-style shop IDs
func ValidateShopIDFormat(shopID string) error {
	if err := shopIDValidate.Var(shopID, shopIDRules); err != nil {
		return errInvalidShopID
	}
	return nil
}

var errInvalidShopID = errors.New("invalid shop id")

func respondInvalidShop(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInvalidShop, message, GetRequestID(c),
	))
}

// GetShopUUID returns the shop resolved by Shop, or the default shop when the
// middleware did not run.
func GetShopUUID(c *gin.Context) string {
	if shopUUID := c.GetString(ShopUUIDKey); shopUUID != "" {
		return shopUUID
	}
	return write.DefaultShopUUID
}

package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// Scopes granted to shop tokens
const (
	ScopeProductsWrite = "products:write"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingShopUUID  = errors.New("missing shop_uuid in claims")
	ErrMissingClientID  = errors.New("missing client_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the claims of a shop access token. A token authorizes one
// client to write into one shop.
type Claims struct {
	jwt.RegisteredClaims
	ShopUUID string   `json:"shop_uuid"`
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes,omitempty"`
}

// IssuedToken is a signed token with its expiry
type IssuedToken struct {
	Token     string    `json:"token"`
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"` // Bearer
}

// IssueTokenInput contains input for token generation
type IssueTokenInput struct {
	ShopUUID string
	ClientID string
	Scopes   []string
	// TTL overrides the configured expiration when positive
	TTL time.Duration
}

// ShopTokenService signs and validates shop access tokens
type ShopTokenService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewShopTokenService creates a new ShopTokenService
func NewShopTokenService(cfg config.AuthConfig) *ShopTokenService {
	return &ShopTokenService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.TokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// Issue signs a token for the given shop and client
func (s *ShopTokenService) Issue(input IssueTokenInput) (*IssuedToken, error) {
	if input.ShopUUID == "" {
		return nil, ErrMissingShopUUID
	}
	if input.ClientID == "" {
		return nil, ErrMissingClientID
	}

	ttl := s.expiration
	if input.TTL > 0 {
		ttl = input.TTL
	}
	scopes := input.Scopes
	if len(scopes) == 0 {
		scopes = []string{ScopeProductsWrite}
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.ClientID,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		ShopUUID: input.ShopUUID,
		ClientID: input.ClientID,
		Scopes:   scopes,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		Token:     token,
		ID:        claims.ID,
		ExpiresAt: expiresAt,
		TokenType: "Bearer",
	}, nil
}

// Validate checks signature, issuer and lifetime of a token and returns its claims
func (s *ShopTokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.ShopUUID == "" {
		return nil, ErrMissingShopUUID
	}
	if claims.ClientID == "" {
		return nil, ErrMissingClientID
	}

	return claims, nil
}

// HasScope checks if the claims grant a scope
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// GetRemainingTTL returns the remaining time until the token expires
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestService() *ShopTokenService {
	return NewShopTokenService(config.AuthConfig{
		Secret:          testSecret,
		Issuer:          "test-issuer",
		TokenExpiration: time.Hour,
	})
}

func TestShopTokenService_IssueAndValidate(t *testing.T) {
	svc := newTestService()

	issued, err := svc.Issue(IssueTokenInput{ShopUUID: "shop-1", ClientID: "erp-sync"})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.Validate(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "shop-1", claims.ShopUUID)
	assert.Equal(t, "erp-sync", claims.ClientID)
	assert.Equal(t, "erp-sync", claims.Subject)
	assert.Equal(t, issued.ID, claims.ID)
	assert.True(t, claims.HasScope(ScopeProductsWrite))
	assert.False(t, claims.HasScope("products:delete"))
	assert.Greater(t, claims.GetRemainingTTL(), 59*time.Minute)
}

func TestShopTokenService_Issue(t *testing.T) {
	svc := newTestService()

	t.Run("requires a shop", func(t *testing.T) {
		_, err := svc.Issue(IssueTokenInput{ClientID: "c"})
		assert.ErrorIs(t, err, ErrMissingShopUUID)
	})

	t.Run("requires a client", func(t *testing.T) {
		_, err := svc.Issue(IssueTokenInput{ShopUUID: "s"})
		assert.ErrorIs(t, err, ErrMissingClientID)
	})

	t.Run("custom ttl and scopes", func(t *testing.T) {
		issued, err := svc.Issue(IssueTokenInput{
			ShopUUID: "s",
			ClientID: "c",
			Scopes:   []string{"products:read"},
			TTL:      time.Minute,
		})
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Minute), issued.ExpiresAt, 5*time.Second)

		claims, err := svc.Validate(issued.Token)
		require.NoError(t, err)
		assert.False(t, claims.HasScope(ScopeProductsWrite))
	})
}

func TestShopTokenService_Validate(t *testing.T) {
	svc := newTestService()

	sign := func(t *testing.T, claims *Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	validClaims := func() *Claims {
		now := time.Now()
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			ShopUUID: "shop-1",
			ClientID: "client-1",
		}
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := sign(t, validClaims(), jwt.SigningMethodHS256, []byte("another-secret-key-of-32-characters"))
		_, err := svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token := sign(t, validClaims(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)
		_, err := svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := svc.Validate(sign(t, claims, jwt.SigningMethodHS256, []byte(testSecret)))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		claims := validClaims()
		claims.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
		_, err := svc.Validate(sign(t, claims, jwt.SigningMethodHS256, []byte(testSecret)))
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("other issuer", func(t *testing.T) {
		claims := validClaims()
		claims.Issuer = "someone-else"
		_, err := svc.Validate(sign(t, claims, jwt.SigningMethodHS256, []byte(testSecret)))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing shop", func(t *testing.T) {
		claims := validClaims()
		claims.ShopUUID = ""
		_, err := svc.Validate(sign(t, claims, jwt.SigningMethodHS256, []byte(testSecret)))
		assert.ErrorIs(t, err, ErrMissingShopUUID)
	})

	t.Run("missing client", func(t *testing.T) {
		claims := validClaims()
		claims.ClientID = ""
		_, err := svc.Validate(sign(t, claims, jwt.SigningMethodHS256, []byte(testSecret)))
		assert.ErrorIs(t, err, ErrMissingClientID)
	})
}

func TestClaims_GetRemainingTTL(t *testing.T) {
	assert.Zero(t, (&Claims{}).GetRemainingTTL())

	expired := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	assert.Zero(t, expired.GetRemainingTTL())
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func serveDocs(t *testing.T, cfg APIDocsConfig, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.GET("/swagger/*any", APIDocsProtection(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIDocsProtection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("disabled hides the docs", func(t *testing.T) {
		w := serveDocs(t, APIDocsConfig{}, "10.0.0.1:5000")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, errorCode(t, w))
	})

	t.Run("enabled without restrictions", func(t *testing.T) {
		w := serveDocs(t, APIDocsConfig{Enabled: true}, "10.0.0.1:5000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "docs", w.Body.String())
	})

	allow := []string{"192.168.1.10", "10.1.0.0/16", "not-an-ip", "10.9.0.0/99"}
	tests := []struct {
		name       string
		remote     string
		wantStatus int
	}{
		{"exact address", "192.168.1.10:1234", http.StatusOK},
		{"inside range", "10.1.42.7:1234", http.StatusOK},
		{"outside range", "10.2.0.1:1234", http.StatusForbidden},
		{"other address", "192.168.1.11:1234", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run("allowlist "+tt.name, func(t *testing.T) {
			w := serveDocs(t, APIDocsConfig{Enabled: true, AllowedIPs: allow}, tt.remote)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w))
			}
		})
	}

	t.Run("auth handler can reject", func(t *testing.T) {
		cfg := APIDocsConfig{Enabled: true, Auth: func(c *gin.Context) {
			c.AbortWithStatus(http.StatusUnauthorized)
		}}
		w := serveDocs(t, cfg, "10.0.0.1:5000")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("auth handler that passes", func(t *testing.T) {
		called := false
		cfg := APIDocsConfig{Enabled: true, Auth: func(c *gin.Context) { called = true }}
		w := serveDocs(t, cfg, "10.0.0.1:5000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})
}

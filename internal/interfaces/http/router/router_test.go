package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/write"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWriteMethod(t *testing.T) {
	assert.Equal(t, http.MethodPost, WriteMethod(write.ModeCreate))
	assert.Equal(t, http.MethodPatch, WriteMethod(write.ModeUpdate))
	assert.Equal(t, http.MethodPut, WriteMethod(write.ModeUpsert))
	assert.Empty(t, WriteMethod(write.Mode("delete")))
}

func TestMount(t *testing.T) {
	respond := func(body string) gin.HandlerFunc {
		return func(c *gin.Context) { c.String(http.StatusOK, body) }
	}

	t.Run("write modes share the path", func(t *testing.T) {
		engine := gin.New()
		products := NewRouteGroup("catalog", "/products").
			Write(write.ModeCreate, "", respond("create")).
			Write(write.ModeUpdate, "", respond("update")).
			Write(write.ModeUpsert, "", respond("upsert"))
		system := NewRouteGroup("system", "/system").GET("/info", respond("info"))

		mounted := Mount(engine, system, products)

		assert.Equal(t, []RouteInfo{
			{Group: "catalog", Method: http.MethodPatch, Path: "/api/v1/products"},
			{Group: "catalog", Method: http.MethodPost, Path: "/api/v1/products"},
			{Group: "catalog", Method: http.MethodPut, Path: "/api/v1/products"},
			{Group: "system", Method: http.MethodGet, Path: "/api/v1/system/info"},
		}, mounted)

		for method, body := range map[string]string{
			http.MethodPost:  "create",
			http.MethodPatch: "update",
			http.MethodPut:   "upsert",
		} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(method, "/api/v1/products", nil))
			assert.Equal(t, http.StatusOK, w.Code, method)
			assert.Equal(t, body, w.Body.String(), method)
		}
	})

	t.Run("group middleware runs before the route", func(t *testing.T) {
		engine := gin.New()
		g := NewRouteGroup("catalog", "/products").
			Use(func(c *gin.Context) {
				c.Header("X-Shop-Scoped", "yes")
				c.Next()
			}).
			Write(write.ModeCreate, "", respond("ok"))
		Mount(engine, g)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/products", nil))
		assert.Equal(t, "yes", w.Header().Get("X-Shop-Scoped"))
	})

	t.Run("unknown write mode panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewRouteGroup("catalog", "/products").Write(write.Mode("delete"), "", respond("x"))
		})
	})
}

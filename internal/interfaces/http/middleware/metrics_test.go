package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMeter sets up a test meter provider and reader.
func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(t.Context())
	})
	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	return rm
}

func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	for name, cfg := range map[string]HTTPMetricsConfig{
		"disabled":           {Enabled: false},
		"nil meter provider": {Enabled: true},
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(HTTPMetrics(cfg))
			router.GET("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "ok")
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHTTPMetrics_DisabledMeterProvider(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(t.Context(), telemetry.MetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)

	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: true, MeterProvider: mp}))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetricsWithMeter_RequestCounter(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.POST("/api/v1/products", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	router.PUT("/api/v1/products", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
	})

	for _, method := range []string{http.MethodPost, http.MethodPost, http.MethodPut} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, "/api/v1/products", nil))
	}

	rm := collectMetrics(t, reader)
	requestTotal := findMetricByName(rm, "http_server_request_total")
	require.NotNil(t, requestTotal)

	sumData, ok := requestTotal.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data for counter")
	require.Len(t, sumData.DataPoints, 2)

	var total int64
	for _, dp := range sumData.DataPoints {
		total += dp.Value
		route, ok := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		require.True(t, ok)
		assert.Equal(t, "/api/v1/products", route.AsString())
	}
	assert.Equal(t, int64(3), total)
}

func TestHTTPMetricsWithMeter_ShopAttribute(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true), Shop(DefaultShopConfig()))
	router.POST("/api/v1/products", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	req.Header.Set(ShopHeaderKey, "shop-1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	rm := collectMetrics(t, reader)
	sumData := findMetricByName(rm, "http_server_request_total").Data.(metricdata.Sum[int64])
	require.Len(t, sumData.DataPoints, 1)

	shop, ok := sumData.DataPoints[0].Attributes.Value(telemetry.AttrShopUUID)
	require.True(t, ok, "shop_uuid attribute not found in metrics")
	assert.Equal(t, "shop-1", shop.AsString())
}

func TestHTTPMetricsWithMeter_Sizes(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.POST("/api/v1/products", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "this is a response body"})
	})

	body := `[{"product_uuid":"p-1","name":"Desk"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	router.ServeHTTP(httptest.NewRecorder(), req)

	rm := collectMetrics(t, reader)
	for _, name := range []string{"http_server_request_size_bytes", "http_server_response_size_bytes", "http_server_request_duration_seconds"} {
		m := findMetricByName(rm, name)
		require.NotNil(t, m, name)
		hist, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok, name)
		require.Len(t, hist.DataPoints, 1, name)
		assert.Equal(t, uint64(1), hist.DataPoints[0].Count, name)
	}

	reqSize := findMetricByName(rm, "http_server_request_size_bytes").Data.(metricdata.Histogram[float64])
	assert.Equal(t, float64(len(body)), reqSize.DataPoints[0].Sum)
}

func TestHTTPMetricsWithMeter_ActiveRequests(t *testing.T) {
	mp, reader := setupTestMeter(t)

	var inFlight int64
	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/test", func(c *gin.Context) {
		rm := collectMetrics(t, reader)
		if m := findMetricByName(rm, "http_server_active_requests"); m != nil {
			inFlight = m.Data.(metricdata.Sum[int64]).DataPoints[0].Value
		}
		c.String(http.StatusOK, "ok")
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, int64(1), inFlight)

	rm := collectMetrics(t, reader)
	sumData := findMetricByName(rm, "http_server_active_requests").Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(0), sumData.DataPoints[0].Value)
}

func TestGetRoutePattern(t *testing.T) {
	var matched string
	router := gin.New()
	router.GET("/api/v1/products/:id", func(c *gin.Context) {
		matched = getRoutePattern(c)
	})
	router.NoRoute(func(c *gin.Context) {
		matched = getRoutePattern(c)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products/p-1", nil))
	assert.Equal(t, "/api/v1/products/:id", matched)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, "unknown", matched)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/write"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductWriteService implements ProductWriteService for testing
type MockProductWriteService struct {
	mock.Mock
}

func (m *MockProductWriteService) call(method string, ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error) {
	args := m.MethodCalled(method, ctx, batch, shopUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*write.WrittenEvent), args.Error(1)
}

func (m *MockProductWriteService) Create(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error) {
	return m.call("Create", ctx, batch, shopUUID)
}

func (m *MockProductWriteService) Update(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error) {
	return m.call("Update", ctx, batch, shopUUID)
}

func (m *MockProductWriteService) Upsert(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error) {
	return m.call("Upsert", ctx, batch, shopUUID)
}

func setupProductWriteRouter(svc ProductWriteService, maxBatchSize int) *gin.Engine {
	h := NewProductWriteHandler(svc, maxBatchSize)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Shop(middleware.DefaultShopConfig()))
	router.POST("/api/v1/products", h.Create)
	router.PATCH("/api/v1/products", h.Update)
	router.PUT("/api/v1/products", h.Upsert)
	return router
}

func doJSON(router *gin.Engine, method, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func writtenEvent(mode write.Mode, shop string, batch write.Batch, errs []write.RowWriteError) *write.WrittenEvent {
	rec := write.NewRecord()
	rec.Append("product", map[string]any{"product_uuid": "p-1", "name": "Desk"})
	return write.NewWrittenEvent("product", mode, shop, rec, batch, errs)
}

func TestProductWriteHandler_Modes(t *testing.T) {
	tests := []struct {
		httpMethod string
		svcMethod  string
		mode       write.Mode
	}{
		{http.MethodPost, "Create", write.ModeCreate},
		{http.MethodPatch, "Update", write.ModeUpdate},
		{http.MethodPut, "Upsert", write.ModeUpsert},
	}

	for _, tt := range tests {
		t.Run(tt.svcMethod, func(t *testing.T) {
			svc := new(MockProductWriteService)
			router := setupProductWriteRouter(svc, 0)

			batch := write.Batch{write.Row{"product_uuid": "p-1", "name": "Desk"}}
			event := writtenEvent(tt.mode, "shop-1", batch, nil)
			svc.On(tt.svcMethod, mock.Anything, batch, "shop-1").Return(event, nil).Once()

			w := doJSON(router, tt.httpMethod, `[{"product_uuid":"p-1","name":"Desk"}]`,
				map[string]string{middleware.ShopHeaderKey: "shop-1"})

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var body struct {
				Success bool            `json:"success"`
				Data    json.RawMessage `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.True(t, body.Success)

			var data map[string]any
			require.NoError(t, json.Unmarshal(body.Data, &data))
			assert.Equal(t, string(tt.mode), data["mode"])
			assert.Equal(t, "shop-1", data["shop_uuid"])
			assert.Equal(t, "product", data["resource"])
			assert.Empty(t, data["errors"])
			svc.AssertExpectations(t)
		})
	}
}

func TestProductWriteHandler_DefaultShop(t *testing.T) {
	svc := new(MockProductWriteService)
	router := setupProductWriteRouter(svc, 0)

	svc.On("Create", mock.Anything, mock.Anything, write.DefaultShopUUID).
		Return(writtenEvent(write.ModeCreate, write.DefaultShopUUID, write.Batch{}, nil), nil).Once()

	w := doJSON(router, http.MethodPost, `[]`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestProductWriteHandler_RowErrorsStillSucceed(t *testing.T) {
	svc := new(MockProductWriteService)
	router := setupProductWriteRouter(svc, 0)

	rowErr := write.NewRowWriteError("product", write.ErrCodeDuplicate, "Product already exists")
	rowErr.Index = 1
	batch := write.Batch{
		write.Row{"product_uuid": "p-1"},
		write.Row{"product_uuid": "p-1"},
	}
	svc.On("Create", mock.Anything, batch, write.DefaultShopUUID).
		Return(writtenEvent(write.ModeCreate, write.DefaultShopUUID, batch, []write.RowWriteError{*rowErr}), nil)

	w := doJSON(router, http.MethodPost, `[{"product_uuid":"p-1"},{"product_uuid":"p-1"}]`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Errors []map[string]any `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Errors, 1)
	assert.Equal(t, float64(1), body.Data.Errors[0]["index"])
	assert.Equal(t, write.ErrCodeDuplicate, body.Data.Errors[0]["code"])
}

func TestProductWriteHandler_InvalidRows(t *testing.T) {
	svc := new(MockProductWriteService)
	router := setupProductWriteRouter(svc, 0)

	svc.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &write.InvalidInputError{Indices: []int{1, 2}})

	w := doJSON(router, http.MethodPost, `[{"product_uuid":"p-1"}, 42, "x"]`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
	assert.Equal(t, []int{1, 2}, resp.Error.Indices)
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestProductWriteHandler_BodyErrors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		maxBatchSize int
		expectedCode int
		expectedErr  string
	}{
		{"object instead of array", `{"product_uuid":"p-1"}`, 0, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"empty body", ``, 0, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"broken json", `[{"product_uuid":`, 0, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"trailing data", `[] []`, 0, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"batch too large", `[{},{},{}]`, 2, http.StatusRequestEntityTooLarge, dto.ErrCodeBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockProductWriteService)
			router := setupProductWriteRouter(svc, tt.maxBatchSize)

			w := doJSON(router, http.MethodPost, tt.body, nil)

			assert.Equal(t, tt.expectedCode, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestProductWriteHandler_ServiceFailure(t *testing.T) {
	svc := new(MockProductWriteService)
	router := setupProductWriteRouter(svc, 0)

	svc.On("Upsert", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	w := doJSON(router, http.MethodPut, `[{"product_uuid":"p-1"}]`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "connection refused")
}

func TestProductWriteHandler_BodyLimit(t *testing.T) {
	svc := new(MockProductWriteService)
	h := NewProductWriteHandler(svc, 0)
	router := gin.New()
	router.POST("/api/v1/products", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 8)
		c.Next()
	}, h.Create)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`[{"product_uuid":"p-1"}]`))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDecodeBatch(t *testing.T) {
	batch, err := decodeBatch(strings.NewReader(` [{"price": 19.99, "tags": ["a"]}, null, 3] `))
	require.NoError(t, err)
	require.Len(t, batch, 3)

	row, ok := batch[0].(write.Row)
	require.True(t, ok)
	assert.Equal(t, json.Number("19.99"), row["price"])
	assert.Nil(t, batch[1])
	assert.Equal(t, json.Number("3"), batch[2])
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/write"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// ProductWriteService is the application service behind ProductWriteHandler
type ProductWriteService interface {
	Create(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error)
	Update(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error)
	Upsert(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error)
}

// ProductWriteHandler accepts batches of product rows. The body is a JSON
// array; every element is one row. Row failures are part of the 200 response,
// only a malformed batch fails the whole request.
type ProductWriteHandler struct {
	BaseHandler
	service      ProductWriteService
	maxBatchSize int
}

// NewProductWriteHandler creates a new ProductWriteHandler. A maxBatchSize of
// zero or less disables the row limit.
func NewProductWriteHandler(service ProductWriteService, maxBatchSize int) *ProductWriteHandler {
	return &ProductWriteHandler{
		service:      service,
		maxBatchSize: maxBatchSize,
	}
}

// Create handles POST /products
func (h *ProductWriteHandler) Create(c *gin.Context) {
	h.handle(c, h.service.Create)
}

// Update handles PATCH /products
func (h *ProductWriteHandler) Update(c *gin.Context) {
	h.handle(c, h.service.Update)
}

// Upsert handles PUT /products
func (h *ProductWriteHandler) Upsert(c *gin.Context) {
	h.handle(c, h.service.Upsert)
}

type writeFunc func(ctx context.Context, batch write.Batch, shopUUID string) (*write.WrittenEvent, error)

func (h *ProductWriteHandler) handle(c *gin.Context, fn writeFunc) {
	batch, err := decodeBatch(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, err.Error())
		return
	}
	if h.maxBatchSize > 0 && len(batch) > h.maxBatchSize {
		h.ErrorWithCode(c, dto.ErrCodeBatchTooLarge,
			fmt.Sprintf("Batch has %d rows, at most %d are allowed", len(batch), h.maxBatchSize))
		return
	}

	event, err := fn(c.Request.Context(), batch, middleware.GetShopUUID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, event)
}

// decodeBatch reads a JSON array. Numbers stay json.Number so decimal
// columns keep their precision. Element shapes are checked by the writer.
func decodeBatch(body io.Reader) (write.Batch, error) {
	if body == nil {
		return nil, errors.New("request body must be a JSON array")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.New("request body must be a JSON array")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var elems []any
	if err := dec.Decode(&elems); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON: unexpected data after the array")
	}

	batch := make(write.Batch, len(elems))
	for i, elem := range elems {
		if m, ok := elem.(map[string]any); ok {
			batch[i] = write.Row(m)
			continue
		}
		batch[i] = elem
	}
	return batch, nil
}

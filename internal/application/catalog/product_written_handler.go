package catalog

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/write"
	"go.uber.org/zap"
)

// ProductWrittenHandler handles the WrittenEvent of product writes
// and notifies other contexts about the stored products
type ProductWrittenHandler struct {
	logger   *zap.Logger
	notifier ProductWrittenNotifier
}

// ProductWrittenNotifier is the interface for notifying about written products
type ProductWrittenNotifier interface {
	NotifyProductsWritten(ctx context.Context, notification ProductWrittenNotification) error
}

// ProductWrittenNotification summarises a product write call
type ProductWrittenNotification struct {
	EventID      string   `json:"event_id"`
	ShopUUID     string   `json:"shop_uuid"`
	Mode         string   `json:"mode"`
	ProductUUIDs []string `json:"product_uuids"`
	FailedRows   []int    `json:"failed_rows,omitempty"`
}

// NewProductWrittenHandler creates a new handler for product written events
func NewProductWrittenHandler(logger *zap.Logger) *ProductWrittenHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductWrittenHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for sending notifications
func (h *ProductWrittenHandler) WithNotifier(notifier ProductWrittenNotifier) *ProductWrittenHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *ProductWrittenHandler) EventTypes() []string {
	return []string{catalog.ProductWrittenEvent}
}

// Handle processes a product WrittenEvent
func (h *ProductWrittenHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	written, ok := event.(*write.WrittenEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", catalog.ProductWrittenEvent),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			catalog.ProductWrittenEvent, event.EventType())
	}

	notification := ProductWrittenNotification{
		EventID:      written.EventID().String(),
		ShopUUID:     written.ShopUUID(),
		Mode:         written.Mode().String(),
		ProductUUIDs: writtenUUIDs(written.Written(), catalog.ProductResource),
	}
	for _, rowErr := range written.Errors() {
		notification.FailedRows = append(notification.FailedRows, rowErr.Index)
	}

	h.logger.Info("products written",
		zap.String("event_id", notification.EventID),
		zap.String("shop_uuid", notification.ShopUUID),
		zap.String("mode", notification.Mode),
		zap.Strings("product_uuids", notification.ProductUUIDs),
		zap.Ints("failed_rows", notification.FailedRows),
	)

	if h.notifier == nil || len(notification.ProductUUIDs) == 0 {
		return nil
	}
	if err := h.notifier.NotifyProductsWritten(ctx, notification); err != nil {
		h.logger.Error("failed to send products written notification",
			zap.String("event_id", notification.EventID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

var _ shared.EventHandler = (*ProductWrittenHandler)(nil)

func writtenUUIDs(record write.Record, resource string) []string {
	var out []string
	for _, item := range record.List(resource) {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := row["uuid"].(string); ok {
			out = append(out, id)
		}
	}
	return out
}

// LoggingProductWrittenNotifier is a notifier that only logs
type LoggingProductWrittenNotifier struct {
	logger *zap.Logger
}

// NewLoggingProductWrittenNotifier creates a new logging notifier
func NewLoggingProductWrittenNotifier(logger *zap.Logger) *LoggingProductWrittenNotifier {
	return &LoggingProductWrittenNotifier{
		logger: logger,
	}
}

// NotifyProductsWritten logs the notification
func (n *LoggingProductWrittenNotifier) NotifyProductsWritten(_ context.Context, notification ProductWrittenNotification) error {
	n.logger.Info("PRODUCTS WRITTEN",
		zap.String("shop_uuid", notification.ShopUUID),
		zap.Int("count", len(notification.ProductUUIDs)),
	)
	return nil
}

var _ ProductWrittenNotifier = (*LoggingProductWrittenNotifier)(nil)

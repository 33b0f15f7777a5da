package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/write"
	"go.uber.org/zap"
)

// ObjectArchive stores an immutable object under a key;
// storage.S3ObjectArchive implements it
type ObjectArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// WrittenArchiveHandler keeps a JSON copy of every product WrittenEvent,
// keyed by shop and day, for audits and replays.
type WrittenArchiveHandler struct {
	archive ObjectArchive
	logger  *zap.Logger
}

// NewWrittenArchiveHandler creates a new archive handler
func NewWrittenArchiveHandler(archive ObjectArchive, logger *zap.Logger) *WrittenArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WrittenArchiveHandler{
		archive: archive,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *WrittenArchiveHandler) EventTypes() []string {
	return []string{catalog.ProductWrittenEvent}
}

// Handle archives the event. Calls that wrote nothing are skipped.
func (h *WrittenArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	written, ok := event.(*write.WrittenEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			catalog.ProductWrittenEvent, event.EventType())
	}
	if written.Written().IsEmpty() {
		return nil
	}

	data, err := json.Marshal(written)
	if err != nil {
		return fmt.Errorf("failed to encode written event: %w", err)
	}

	key := ArchiveKey(written)
	if err := h.archive.Put(ctx, key, data, "application/json"); err != nil {
		h.logger.Error("failed to archive written event",
			zap.String("event_id", written.EventID().String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// ArchiveKey returns <shop>/<yyyy>/<mm>/<dd>/<mode>-<event id>.json
func ArchiveKey(written *write.WrittenEvent) string {
	return fmt.Sprintf("%s/%s/%s-%s.json",
		written.ShopUUID(),
		written.OccurredAt().UTC().Format("2006/01/02"),
		written.Mode().String(),
		written.EventID().String(),
	)
}

var _ shared.EventHandler = (*WrittenArchiveHandler)(nil)

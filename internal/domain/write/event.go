package write

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
)

// ExtenderEventName returns the name of the event broadcast while the
// extender collection of a resource write is built
func ExtenderEventName(resource string) string {
	return resource + ".write.extender"
}

// WrittenEventName returns the event type of a resource's WrittenEvent
func WrittenEventName(resource string) string {
	return resource + ".written"
}

// ExtenderEvent carries the mutable extender collection of a write call to
// event bus listeners. Listeners add extenders with Add.
type ExtenderEvent struct {
	shared.BaseDomainEvent
	collection *FieldExtenderCollection
}

// NewExtenderEvent creates the broadcast event for a resource write
func NewExtenderEvent(resource, shopUUID string, collection *FieldExtenderCollection) *ExtenderEvent {
	return &ExtenderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(ExtenderEventName(resource), resource, shopUUID),
		collection:      collection,
	}
}

// Collection returns the collection being built
func (e *ExtenderEvent) Collection() *FieldExtenderCollection {
	return e.collection
}

// Add appends an extender to the collection being built
func (e *ExtenderEvent) Add(ext FieldExtender) error {
	return e.collection.Add(ext)
}

// EventExtenderProvider broadcasts an ExtenderEvent through a synchronous
// publisher so that bus listeners can contribute extenders
type EventExtenderProvider struct {
	resource  string
	publisher shared.EventPublisher
}

// NewEventExtenderProvider creates a provider broadcasting for the resource
func NewEventExtenderProvider(resource string, publisher shared.EventPublisher) *EventExtenderProvider {
	return &EventExtenderProvider{
		resource:  resource,
		publisher: publisher,
	}
}

// ProvideExtenders implements ExtenderProvider
func (p *EventExtenderProvider) ProvideExtenders(ctx context.Context, wctx *WriteContext, collection *FieldExtenderCollection) error {
	event := NewExtenderEvent(p.resource, wctx.ShopUUID(), collection)
	if err := p.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("broadcast %s: %w", event.EventType(), err)
	}
	return nil
}

var _ ExtenderProvider = (*EventExtenderProvider)(nil)

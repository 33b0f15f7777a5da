package catalog

import (
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/write"
)

// ProductWriter writes batches of product rows
type ProductWriter struct {
	*write.EntityWriter
}

// NewProductWriter creates the product writer. When a publisher is given,
// event bus listeners of ProductWriteExtenderEvent may contribute extenders
// to every call, after the providers passed in opts.
func NewProductWriter(
	registry *write.ResourceRegistry,
	storage write.ResourceWriter,
	publisher shared.EventPublisher,
	opts ...write.Option,
) *ProductWriter {
	if publisher != nil {
		opts = append(opts, write.WithExtenderProviders(write.NewEventExtenderProvider(ProductResource, publisher)))
	}
	return &ProductWriter{
		EntityWriter: write.NewEntityWriter(ProductResource, write.NewDefaultExtender(registry), storage, opts...),
	}
}

package catalog

import "github.com/storefront/backend/internal/domain/write"

// Event type constants
var (
	// ProductWriteExtenderEvent is broadcast while the extenders of a product
	// write are collected
	ProductWriteExtenderEvent = write.ExtenderEventName(ProductResource)
	// ProductWrittenEvent is published after every product write call
	ProductWrittenEvent = write.WrittenEventName(ProductResource)
)

package write

import (
	"encoding/json"

	"github.com/storefront/backend/internal/domain/shared"
)

// WrittenEvent is the result of a write call: the aggregated written data,
// the batch as received, and the failed rows in input order. A WrittenEvent
// is returned even when every row failed.
type WrittenEvent struct {
	shared.BaseDomainEvent
	resource string
	mode     Mode
	written  Record
	input    Batch
	errors   []RowWriteError
}

// NewWrittenEvent creates the written event of a call
func NewWrittenEvent(resource string, mode Mode, shopUUID string, written Record, input Batch, errs []RowWriteError) *WrittenEvent {
	rowErrors := make([]RowWriteError, len(errs))
	copy(rowErrors, errs)
	return &WrittenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(WrittenEventName(resource), resource, shopUUID),
		resource:        resource,
		mode:            mode,
		written:         written,
		input:           input,
		errors:          rowErrors,
	}
}

// Resource returns the written resource
func (e *WrittenEvent) Resource() string {
	return e.resource
}

// Mode returns the mode of the call
func (e *WrittenEvent) Mode() Mode {
	return e.mode
}

// Written returns the aggregated result of the successful rows
func (e *WrittenEvent) Written() Record {
	return e.written.Clone()
}

// Input returns the batch as it was received
func (e *WrittenEvent) Input() Batch {
	return e.input
}

// Errors returns the failed rows in input order
func (e *WrittenEvent) Errors() []RowWriteError {
	out := make([]RowWriteError, len(e.errors))
	copy(out, e.errors)
	return out
}

// HasErrors reports whether any row failed
func (e *WrittenEvent) HasErrors() bool {
	return len(e.errors) > 0
}

// ErrorMaps returns the row errors in their JSON-compatible form
func (e *WrittenEvent) ErrorMaps() []map[string]any {
	out := make([]map[string]any, len(e.errors))
	for i := range e.errors {
		out[i] = e.errors[i].ToMap()
	}
	return out
}

type writtenEventJSON struct {
	EventID  string           `json:"event_id"`
	Type     string           `json:"type"`
	Resource string           `json:"resource"`
	Mode     Mode             `json:"mode"`
	ShopUUID string           `json:"shop_uuid"`
	Written  Record           `json:"written"`
	Input    Batch            `json:"input"`
	Errors   []map[string]any `json:"errors"`
}

// MarshalJSON encodes the event for API responses
func (e *WrittenEvent) MarshalJSON() ([]byte, error) {
	input := e.input
	if input == nil {
		input = Batch{}
	}
	return json.Marshal(writtenEventJSON{
		EventID:  e.ID.String(),
		Type:     e.Type,
		Resource: e.resource,
		Mode:     e.mode,
		ShopUUID: e.Shop,
		Written:  e.written,
		Input:    input,
		Errors:   e.ErrorMaps(),
	})
}

var _ shared.DomainEvent = (*WrittenEvent)(nil)

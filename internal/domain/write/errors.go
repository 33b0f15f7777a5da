package write

import (
	"errors"
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// Row error codes
const (
	ErrCodeValidation   = "VALIDATION_FAILED"
	ErrCodeRequired     = "REQUIRED"
	ErrCodeInvalidType  = "INVALID_TYPE"
	ErrCodeInvalidValue = "INVALID_VALUE"
	ErrCodeUnknownField = "UNKNOWN_FIELD"
	ErrCodeReadOnly     = "READ_ONLY"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeDuplicate    = "DUPLICATE"
	ErrCodeConstraint   = "CONSTRAINT_VIOLATION"
	ErrCodeExtension    = "EXTENSION_FAILED"
)

// ErrCollectionFrozen is returned when an extender is added after the
// collection was handed to the row writes
var ErrCollectionFrozen = errors.New("extender collection is frozen")

// InvalidInputError reports batch elements that are not mappings
type InvalidInputError struct {
	Indices []int `json:"indices"`
}

// Error implements the error interface
func (e *InvalidInputError) Error() string {
	parts := make([]string, len(e.Indices))
	for i, idx := range e.Indices {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return fmt.Sprintf("expected every row to be a mapping, malformed rows at index %s", strings.Join(parts, ", "))
}

// Unwrap lets errors.Is match shared.ErrInvalidInput
func (e *InvalidInputError) Unwrap() error {
	return shared.ErrInvalidInput
}

// FieldError describes why a single field of a row was rejected
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// RowWriteError is a recoverable failure of a single row. The pipeline records
// it in the WrittenEvent and continues with the next row.
type RowWriteError struct {
	Index    int          `json:"index"`
	Resource string       `json:"resource"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Row      Row          `json:"row,omitempty"`
	Fields   []FieldError `json:"fields,omitempty"`
}

// NewRowWriteError creates a row error for the resource
func NewRowWriteError(resource, code, message string) *RowWriteError {
	return &RowWriteError{
		Resource: resource,
		Code:     code,
		Message:  message,
	}
}

// NewFieldValidationError creates a validation error carrying field errors
func NewFieldValidationError(resource string, fields []FieldError) *RowWriteError {
	return &RowWriteError{
		Resource: resource,
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%d field(s) failed validation", len(fields)),
		Fields:   fields,
	}
}

// WithField appends a field error and returns the receiver
func (e *RowWriteError) WithField(field, code, message string, value any) *RowWriteError {
	e.Fields = append(e.Fields, FieldError{
		Field:   field,
		Code:    code,
		Message: message,
		Value:   value,
	})
	return e
}

// Error implements the error interface
func (e *RowWriteError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s row %d: %s", e.Resource, e.Index, e.Message)
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return fmt.Sprintf("%s row %d: %s (%s)", e.Resource, e.Index, e.Message, strings.Join(msgs, "; "))
}

// ToMap returns a JSON-compatible representation of the error
func (e *RowWriteError) ToMap() map[string]any {
	fields := make([]map[string]any, len(e.Fields))
	for i, f := range e.Fields {
		m := map[string]any{
			"field":   f.Field,
			"code":    f.Code,
			"message": f.Message,
		}
		if f.Value != nil {
			m["value"] = f.Value
		}
		fields[i] = m
	}
	out := map[string]any{
		"index":    e.Index,
		"resource": e.Resource,
		"code":     e.Code,
		"message":  e.Message,
		"fields":   fields,
	}
	if e.Row != nil {
		out["row"] = map[string]any(e.Row)
	}
	return out
}

// AsRowWriteError reports whether err is a row-level failure
func AsRowWriteError(err error) (*RowWriteError, bool) {
	var rowErr *RowWriteError
	if errors.As(err, &rowErr) {
		return rowErr, true
	}
	return nil, false
}

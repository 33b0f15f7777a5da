package write

import (
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
)

// FieldExtender customises a row before it is handed to storage. It may add,
// remove or rewrite fields of the row it receives; the row is always a copy
// owned by the current row write.
type FieldExtender interface {
	// Name identifies the extender in logs and errors
	Name() string
	// Extend adjusts the row of the given resource
	Extend(resource string, row Row, wctx *WriteContext) error
}

type funcExtender struct {
	name string
	fn   func(resource string, row Row, wctx *WriteContext) error
}

func (f *funcExtender) Name() string { return f.name }

func (f *funcExtender) Extend(resource string, row Row, wctx *WriteContext) error {
	return f.fn(resource, row, wctx)
}

// NewFieldExtender wraps a function as a named FieldExtender
func NewFieldExtender(name string, fn func(resource string, row Row, wctx *WriteContext) error) FieldExtender {
	return &funcExtender{name: name, fn: fn}
}

// FieldExtenderCollection is the ordered set of extenders applied to every
// row of one write call. It is built fresh per call and frozen before the
// first row write.
type FieldExtenderCollection struct {
	extenders []FieldExtender
	frozen    bool
}

// NewFieldExtenderCollection creates a collection seeded with the given extenders
func NewFieldExtenderCollection(extenders ...FieldExtender) *FieldExtenderCollection {
	c := &FieldExtenderCollection{extenders: make([]FieldExtender, 0, len(extenders)+2)}
	for _, ext := range extenders {
		if ext != nil {
			c.extenders = append(c.extenders, ext)
		}
	}
	return c
}

// Add appends an extender
func (c *FieldExtenderCollection) Add(ext FieldExtender) error {
	if ext == nil {
		return fmt.Errorf("%w: extender cannot be nil", shared.ErrInvalidInput)
	}
	if c.frozen {
		return fmt.Errorf("add %q: %w", ext.Name(), ErrCollectionFrozen)
	}
	c.extenders = append(c.extenders, ext)
	return nil
}

// Extenders returns the extenders in application order
func (c *FieldExtenderCollection) Extenders() []FieldExtender {
	out := make([]FieldExtender, len(c.extenders))
	copy(out, c.extenders)
	return out
}

// Names returns the extender names in application order
func (c *FieldExtenderCollection) Names() []string {
	names := make([]string, len(c.extenders))
	for i, ext := range c.extenders {
		names[i] = ext.Name()
	}
	return names
}

// Len returns the number of extenders
func (c *FieldExtenderCollection) Len() int {
	return len(c.extenders)
}

// Freeze prevents further additions
func (c *FieldExtenderCollection) Freeze() {
	c.frozen = true
}

// Frozen reports whether the collection accepts additions
func (c *FieldExtenderCollection) Frozen() bool {
	return c.frozen
}

// Extend runs every extender in order against the row
func (c *FieldExtenderCollection) Extend(resource string, row Row, wctx *WriteContext) error {
	if c == nil {
		return nil
	}
	for _, ext := range c.extenders {
		if err := ext.Extend(resource, row, wctx); err != nil {
			return fmt.Errorf("extender %s: %w", ext.Name(), err)
		}
	}
	return nil
}

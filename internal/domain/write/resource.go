package write

import (
	"fmt"
	"sort"
	"sync"

	"github.com/storefront/backend/internal/domain/shared"
)

// FieldKind is the storage type of a resource field
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindInt     FieldKind = "int"
	KindDecimal FieldKind = "decimal"
	KindBool    FieldKind = "bool"
	KindUUID    FieldKind = "uuid"
	KindTime    FieldKind = "time"
)

// FieldDefinition describes one writable column of a resource
type FieldDefinition struct {
	Name string
	Kind FieldKind
	// Required fields must be present on insert
	Required bool
	// ReadOnly fields are maintained by storage and rejected in input
	ReadOnly bool
	// Rules is a go-playground/validator tag applied to the converted value
	Rules string
}

// ChildCollection describes a list field whose elements are written as rows
// of another resource, linked back through ForeignKey
type ChildCollection struct {
	Field      string
	Resource   string
	ForeignKey string
}

// ResourceDefinition describes how rows of a resource are stored
type ResourceDefinition struct {
	Name       string
	Table      string
	PrimaryKey string
	Fields     []FieldDefinition
	Children   []ChildCollection
}

// Field returns the definition of a field
func (d *ResourceDefinition) Field(name string) (FieldDefinition, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// HasField reports whether the resource declares the field
func (d *ResourceDefinition) HasField(name string) bool {
	_, ok := d.Field(name)
	return ok
}

// Child returns the child collection stored under the field
func (d *ResourceDefinition) Child(field string) (ChildCollection, bool) {
	for _, c := range d.Children {
		if c.Field == field {
			return c, true
		}
	}
	return ChildCollection{}, false
}

// Validate checks the definition for consistency
func (d *ResourceDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: resource name cannot be empty", shared.ErrInvalidInput)
	}
	if d.Table == "" {
		return fmt.Errorf("%w: resource %q has no table", shared.ErrInvalidInput, d.Name)
	}
	if !d.HasField(d.PrimaryKey) {
		return fmt.Errorf("%w: resource %q does not declare its primary key %q", shared.ErrInvalidInput, d.Name, d.PrimaryKey)
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if seen[f.Name] {
			return fmt.Errorf("%w: resource %q declares field %q twice", shared.ErrInvalidInput, d.Name, f.Name)
		}
		seen[f.Name] = true
	}
	for _, c := range d.Children {
		if seen[c.Field] {
			return fmt.Errorf("%w: resource %q uses %q as field and child collection", shared.ErrInvalidInput, d.Name, c.Field)
		}
	}
	return nil
}

// ResourceRegistry holds the resource definitions known to the storage layer
type ResourceRegistry struct {
	mu   sync.RWMutex
	defs map[string]*ResourceDefinition
}

// NewResourceRegistry creates an empty registry
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{defs: make(map[string]*ResourceDefinition)}
}

// Register adds a resource definition
func (r *ResourceRegistry) Register(def *ResourceDefinition) error {
	if def == nil {
		return fmt.Errorf("%w: resource definition cannot be nil", shared.ErrInvalidInput)
	}
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: resource '%s' already registered", shared.ErrAlreadyExists, def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup returns the definition of a resource
func (r *ResourceRegistry) Lookup(name string) (*ResourceDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	return def, ok
}

// Names returns all registered resource names
func (r *ResourceRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package write

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ShopUUIDColumn is the column that scopes a row to a shop
const ShopUUIDColumn = "shop_uuid"

// DefaultExtender is the extender every write call starts with. For rows of
// registered resources it
//   - drops read-only fields maintained by storage
//   - trims string fields and normalises them to Unicode NFC
//   - assigns the shop of the write context to the shop_uuid column
type DefaultExtender struct {
	registry *ResourceRegistry
}

// NewDefaultExtender creates the default extender for the registry
func NewDefaultExtender(registry *ResourceRegistry) *DefaultExtender {
	return &DefaultExtender{registry: registry}
}

// Name implements FieldExtender
func (e *DefaultExtender) Name() string {
	return "default"
}

// Extend implements FieldExtender
func (e *DefaultExtender) Extend(resource string, row Row, wctx *WriteContext) error {
	def, ok := e.registry.Lookup(resource)
	if !ok {
		return nil
	}

	for _, f := range def.Fields {
		if f.ReadOnly {
			delete(row, f.Name)
			continue
		}
		if f.Kind != KindString {
			continue
		}
		if s, ok := row[f.Name].(string); ok {
			row[f.Name] = norm.NFC.String(strings.TrimSpace(s))
		}
	}

	if def.HasField(ShopUUIDColumn) {
		if shop := wctx.ShopUUID(); shop != "" {
			row[ShopUUIDColumn] = shop
		}
	}
	return nil
}

var _ FieldExtender = (*DefaultExtender)(nil)

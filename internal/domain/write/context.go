package write

const (
	// ShopResource is the resource name under which the shop scope is stored
	ShopResource = "shop"
	// ShopUUIDField is the field name of the shop identifier
	ShopUUIDField = "uuid"
)

type contextKey struct {
	resource string
	field    string
}

// WriteContext carries values scoped to a single write call, keyed by
// resource and field. The shop identifier lives in the (shop, uuid) slot.
//
// A WriteContext is not safe for concurrent use. The pipeline hands every
// row write its own Clone.
type WriteContext struct {
	values map[contextKey]any
}

// NewWriteContext creates a context scoped to the given shop
func NewWriteContext(shopUUID string) *WriteContext {
	c := &WriteContext{values: make(map[contextKey]any)}
	c.Set(ShopResource, ShopUUIDField, shopUUID)
	return c
}

// Set stores a value for the resource field
func (c *WriteContext) Set(resource, field string, value any) {
	if c.values == nil {
		c.values = make(map[contextKey]any)
	}
	c.values[contextKey{resource: resource, field: field}] = value
}

// Get returns the value stored for the resource field
func (c *WriteContext) Get(resource, field string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[contextKey{resource: resource, field: field}]
	return v, ok
}

// Has reports whether a value is stored for the resource field
func (c *WriteContext) Has(resource, field string) bool {
	_, ok := c.Get(resource, field)
	return ok
}

// ShopUUID returns the shop the write belongs to
func (c *WriteContext) ShopUUID() string {
	v, _ := c.Get(ShopResource, ShopUUIDField)
	s, _ := v.(string)
	return s
}

// Len returns the number of stored values
func (c *WriteContext) Len() int {
	if c == nil {
		return 0
	}
	return len(c.values)
}

// Clone returns an independent copy of the context
func (c *WriteContext) Clone() *WriteContext {
	out := &WriteContext{values: make(map[contextKey]any, c.Len())}
	if c == nil {
		return out
	}
	for k, v := range c.values {
		out.values[k] = v
	}
	return out
}

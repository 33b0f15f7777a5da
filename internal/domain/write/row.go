package write

// Mode selects the storage operation applied to every row of a batch
type Mode string

const (
	// ModeCreate inserts every row
	ModeCreate Mode = "create"
	// ModeUpdate updates existing rows only
	ModeUpdate Mode = "update"
	// ModeUpsert inserts or updates depending on the row's primary key
	ModeUpsert Mode = "upsert"
)

// IsValid reports whether the mode is one of the known modes
func (m Mode) IsValid() bool {
	switch m {
	case ModeCreate, ModeUpdate, ModeUpsert:
		return true
	}
	return false
}

// String returns the mode name
func (m Mode) String() string {
	return string(m)
}

// Batch is the raw input of one write call, usually a decoded JSON array.
// Every element is expected to be a mapping.
type Batch []any

// Row is the field mapping of a single entity
type Row map[string]any

// AsRow converts a batch element into a Row. It returns false when the
// element is not a mapping.
func AsRow(v any) (Row, bool) {
	switch t := v.(type) {
	case Row:
		return t, true
	case map[string]any:
		return Row(t), true
	}
	return nil, false
}

// Has reports whether the field is present, even with a nil value
func (r Row) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String returns the field as a string when it holds one
func (r Row) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// Clone returns a deep copy of the row. Nested mappings and lists are copied
// so that changes to the clone never reach the original input.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Row:
		return t.Clone()
	case map[string]any:
		return map[string]any(Row(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = map[string]any(Row(item).Clone())
		}
		return out
	case []Row:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item.Clone()
		}
		return out
	default:
		return v
	}
}

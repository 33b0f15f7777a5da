package write

import (
	"encoding/json"
	"sort"
)

// Record is the storage representation of written data. Scalars, lists and
// nested records live in separate namespaces so that merging never has to
// guess a key's cardinality:
//   - Scalars: single values, the later record wins on merge
//   - Lists: collections, concatenated in input order on merge
//   - Nested: sub-records, merged recursively
type Record struct {
	Scalars map[string]any
	Lists   map[string][]any
	Nested  map[string]Record
}

// NewRecord creates an empty record
func NewRecord() Record {
	return Record{
		Scalars: make(map[string]any),
		Lists:   make(map[string][]any),
		Nested:  make(map[string]Record),
	}
}

// SetScalar stores a scalar value
func (r *Record) SetScalar(key string, value any) {
	if r.Scalars == nil {
		r.Scalars = make(map[string]any)
	}
	r.Scalars[key] = value
}

// Append adds values to a list
func (r *Record) Append(key string, values ...any) {
	if r.Lists == nil {
		r.Lists = make(map[string][]any)
	}
	r.Lists[key] = append(r.Lists[key], values...)
}

// SetNested stores a sub-record
func (r *Record) SetNested(key string, nested Record) {
	if r.Nested == nil {
		r.Nested = make(map[string]Record)
	}
	r.Nested[key] = nested
}

// Scalar returns a scalar value
func (r Record) Scalar(key string) (any, bool) {
	v, ok := r.Scalars[key]
	return v, ok
}

// List returns a list, nil when absent
func (r Record) List(key string) []any {
	return r.Lists[key]
}

// IsEmpty reports whether the record holds no data
func (r Record) IsEmpty() bool {
	return len(r.Scalars) == 0 && len(r.Lists) == 0 && len(r.Nested) == 0
}

// Keys returns every key of the record in sorted order
func (r Record) Keys() []string {
	seen := make(map[string]struct{}, len(r.Scalars)+len(r.Lists)+len(r.Nested))
	for k := range r.Scalars {
		seen[k] = struct{}{}
	}
	for k := range r.Lists {
		seen[k] = struct{}{}
	}
	for k := range r.Nested {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy whose maps and lists can be changed independently
func (r Record) Clone() Record {
	out := Record{}
	if r.Scalars != nil {
		out.Scalars = make(map[string]any, len(r.Scalars))
		for k, v := range r.Scalars {
			out.Scalars[k] = v
		}
	}
	if r.Lists != nil {
		out.Lists = make(map[string][]any, len(r.Lists))
		for k, v := range r.Lists {
			out.Lists[k] = append([]any(nil), v...)
		}
	}
	if r.Nested != nil {
		out.Nested = make(map[string]Record, len(r.Nested))
		for k, v := range r.Nested {
			out.Nested[k] = v.Clone()
		}
	}
	return out
}

// Merge combines two records into a new one. Scalars of next overwrite those
// of base, lists are concatenated base first, nested records merge recursively.
func Merge(base, next Record) Record {
	out := base.Clone()
	for k, v := range next.Scalars {
		out.SetScalar(k, v)
	}
	for k, v := range next.Lists {
		out.Append(k, v...)
	}
	for k, v := range next.Nested {
		if existing, ok := out.Nested[k]; ok {
			out.Nested[k] = Merge(existing, v)
			continue
		}
		out.SetNested(k, v.Clone())
	}
	return out
}

// ToMap flattens the record into a single mapping. When a key exists in more
// than one namespace, nested wins over list and list wins over scalar.
func (r Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.Scalars)+len(r.Lists)+len(r.Nested))
	for k, v := range r.Scalars {
		out[k] = v
	}
	for k, v := range r.Lists {
		out[k] = v
	}
	for k, v := range r.Nested {
		out[k] = v.ToMap()
	}
	return out
}

// MarshalJSON encodes the flattened record
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}

// Package table defines the row model shared by the loader, the
// normalization pipeline and the analysis pass. A Row maps header names to
// primitive values (string, float64, bool or nil) and remembers the order in
// which headers were first set.
package table

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row is an insertion-ordered mapping from header to primitive value.
type Row struct {
	fields *orderedmap.OrderedMap[string, any]
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{fields: orderedmap.New[string, any]()}
}

// RowOf builds a row from alternating key/value arguments. It is a
// convenience for fixtures; odd trailing keys are ignored.
func RowOf(kv ...any) *Row {
	r := NewRow()
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		r.Set(k, kv[i+1])
	}
	return r
}

// Get returns the value stored under key and whether the key is present.
func (r *Row) Get(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Value returns the value under key, or nil when absent.
func (r *Row) Value(key string) any {
	v, _ := r.Get(key)
	return v
}

// Has reports whether key is present.
func (r *Row) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set stores v under key. Re-setting an existing key keeps its position.
func (r *Row) Set(key string, v any) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
	r.fields.Set(key, v)
}

// Keys returns headers in insertion order.
func (r *Row) Keys() []string {
	if r == nil || r.fields == nil {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Len returns the number of fields.
func (r *Row) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Each visits fields in insertion order until fn returns false.
func (r *Row) Each(fn func(key string, v any) bool) {
	if r == nil || r.fields == nil {
		return
	}
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Equal reports whether both rows hold the same keys in the same order with
// strictly equal values.
func (r *Row) Equal(o *Row) bool {
	if r.Len() != o.Len() {
		return false
	}
	ka, kb := r.Keys(), o.Keys()
	for i := range ka {
		if ka[i] != kb[i] || !StrictEqual(r.Value(ka[i]), o.Value(kb[i])) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the row as a JSON object in insertion order.
func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (r *Row) UnmarshalJSON(b []byte) error {
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(b); err != nil {
		return err
	}
	r.fields = m
	return nil
}

// Dataset is an ordered sequence of rows.
type Dataset []*Row

// Columns returns the header set of the first row, which is what every
// analysis heuristic keys on. An empty dataset has no columns.
func (d Dataset) Columns() []string {
	if len(d) == 0 {
		return nil
	}
	return d[0].Keys()
}

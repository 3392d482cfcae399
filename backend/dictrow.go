package backend

import (
	"fmt"
	"strings"
)

// DictRow is one row of a result set: an insertion-ordered mapping from
// column name to value that is additionally addressable by zero-based
// position. Positional access resolves to the key at that insertion
// index, not to a separate array, so setting by position updates the
// value under the corresponding key.
//
// Result sets can legally repeat a column name (joins selecting `id`
// twice); name-based access then resolves to the first occurrence while
// positional access reaches every value.
type DictRow struct {
	keys   []string
	values []any
	index  map[string]int
}

// NewDictRow builds a row from parallel key and value slices.
func NewDictRow(keys []string, values []any) (*DictRow, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("backend: dict row: %d keys but %d values", len(keys), len(values))
	}
	r := &DictRow{
		keys:   make([]string, len(keys)),
		values: make([]any, len(values)),
		index:  make(map[string]int, len(keys)),
	}
	copy(r.keys, keys)
	copy(r.values, values)
	for i, k := range keys {
		if _, dup := r.index[k]; !dup {
			r.index[k] = i
		}
	}
	return r, nil
}

// Len returns the number of columns in the row.
func (r *DictRow) Len() int { return len(r.keys) }

// Keys returns the column names in insertion order.
func (r *DictRow) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns the values in insertion order.
func (r *DictRow) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value under the named column.
func (r *DictRow) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// At returns the value at a zero-based position.
func (r *DictRow) At(i int) (any, error) {
	if i < 0 || i >= len(r.values) {
		return nil, fmt.Errorf("backend: dict row: position %d out of range [0,%d)", i, len(r.values))
	}
	return r.values[i], nil
}

// Set replaces the value under the named column and reports whether the
// column exists.
func (r *DictRow) Set(name string, v any) bool {
	i, ok := r.index[name]
	if !ok {
		return false
	}
	r.values[i] = v
	return true
}

// SetAt replaces the value at a zero-based position; the key at that
// position keeps its name.
func (r *DictRow) SetAt(i int, v any) error {
	if i < 0 || i >= len(r.values) {
		return fmt.Errorf("backend: dict row: position %d out of range [0,%d)", i, len(r.values))
	}
	r.values[i] = v
	return nil
}

func (r *DictRow) String() string {
	var b strings.Builder
	b.WriteString("DictRow{")
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, r.values[i])
	}
	b.WriteString("}")
	return b.String()
}

package schema

import (
	"fmt"
	"strings"
)

// TableRow is a live, change-tracked instance of one table's data.
//
// A row tracks the current value per column and, separately, the value a
// column held before its first change since the row was last fetched or
// flushed. Only that first pre-change value is kept; later writes to the
// same column do not overwrite it. Update generation diffs against this
// baseline.
//
// Rows are not safe for concurrent mutation; callers sharing a row across
// goroutines must serialize access.
type TableRow struct {
	tbl     *Table
	existed bool
	session any

	values   map[*Column]any
	previous map[*Column]any
	touched  map[*Column]bool
}

// Table returns the table this row belongs to.
func (r *TableRow) Table() *Table { return r.tbl }

// Existed reports whether the row was materialized from a query result.
// Freshly constructed rows report false until MarkPersisted.
func (r *TableRow) Existed() bool { return r.existed }

// AttachSession records a non-owning reference to the session that loaded
// the row. The row never calls into it; it exists for lazy fetch and
// flush layers above this package.
func (r *TableRow) AttachSession(s any) { r.session = s }

// Session returns the attached session reference, nil if none.
func (r *TableRow) Session() any { return r.session }

func (r *TableRow) check(c *Column) error {
	if c == nil {
		return fmt.Errorf("%w: nil column on table %q", ErrNoSuchColumn, r.tbl.name)
	}
	if c.tbl != r.tbl {
		return fmt.Errorf("%w: column %q is not on table %q", ErrTableMismatch, c.name, r.tbl.name)
	}
	return nil
}

// Get returns the current value of the column, falling back to the
// column's declared default when the row holds no value for it.
func (r *TableRow) Get(c *Column) (any, error) {
	if err := r.check(c); err != nil {
		return nil, err
	}
	if v, ok := r.values[c]; ok {
		return v, nil
	}
	return c.defaultValue, nil
}

// Value looks the column up by name and returns its current value.
func (r *TableRow) Value(name string) (any, error) {
	c, err := r.tbl.Column(name)
	if err != nil {
		return nil, err
	}
	return r.Get(c)
}

// UpdateColumn sets the column to a new value. The first change to a
// column since the last fetch/flush snapshots the pre-change value, if
// the column had one, into the previous-value map.
func (r *TableRow) UpdateColumn(c *Column, v any) error {
	if err := r.check(c); err != nil {
		return err
	}
	if v != nil {
		if err := c.typ.Validate(v); err != nil {
			return fmt.Errorf("schema: column %q: %w", c.name, err)
		}
	}
	if !r.touched[c] {
		if prev, ok := r.values[c]; ok {
			r.previous[c] = prev
		}
		r.touched[c] = true
	}
	r.values[c] = v
	return nil
}

// Set looks the column up by name and updates it.
func (r *TableRow) Set(name string, v any) error {
	c, err := r.tbl.Column(name)
	if err != nil {
		return err
	}
	return r.UpdateColumn(c, v)
}

// PreviousValue returns the value the column held before its first change
// since the last fetch/flush. ok is false when the column has not changed
// or had no value to snapshot.
func (r *TableRow) PreviousValue(c *Column) (v any, ok bool, err error) {
	if err := r.check(c); err != nil {
		return nil, false, err
	}
	v, ok = r.previous[c]
	return v, ok, nil
}

// PrimaryKey returns the row's key value: a scalar when the key has one
// column, otherwise a []any in the key's declaration order.
func (r *TableRow) PrimaryKey() (any, error) {
	pk := r.tbl.pk
	if pk == nil {
		return nil, fmt.Errorf("schema: table %q has no primary key", r.tbl.name)
	}
	vals := make([]any, len(pk.columns))
	for i, c := range pk.columns {
		v, err := r.Get(c)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	if len(vals) == 1 {
		return vals[0], nil
	}
	return vals, nil
}

// MarkPersisted records that the row reflects database state: the existed
// flag is set and the previous-value baseline is cleared, so subsequent
// changes diff against the just-materialized values.
func (r *TableRow) MarkPersisted() {
	r.existed = true
	r.previous = make(map[*Column]any)
	r.touched = make(map[*Column]bool)
}

// String lists name=value for every declared column in declaration order,
// using the same default fallback as Get.
func (r *TableRow) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s", r.tbl.name)
	for _, c := range r.tbl.columns {
		v, ok := r.values[c]
		if !ok {
			v = c.defaultValue
		}
		fmt.Fprintf(&b, " %s=%v", c.name, v)
	}
	b.WriteString(">")
	return b.String()
}

package schema

import (
	"fmt"
	"log/slog"
	"strings"
)

// ColumnDef pairs a declared name with the column it names. Define
// consumes these in declaration order.
type ColumnDef struct {
	Name   string
	Column *Column
}

// Table is an ordered container of bound columns with a computed primary
// key. Tables are created by Define and are immutable afterwards.
type Table struct {
	name    string
	columns []*Column
	byName  map[string]*Column
	pk      *PrimaryKey
}

// PrimaryKey is the ordered set of columns identifying a row of one table
// uniquely. Column order follows declaration order, so composite key
// tuples are stable across runs.
type PrimaryKey struct {
	tbl     *Table
	columns []*Column
}

// Table returns the table this key belongs to.
func (pk *PrimaryKey) Table() *Table { return pk.tbl }

// Columns returns the key's columns in declaration order.
func (pk *PrimaryKey) Columns() []*Column {
	out := make([]*Column, len(pk.columns))
	copy(out, pk.columns)
	return out
}

func (pk *PrimaryKey) String() string {
	names := make([]string, len(pk.columns))
	for i, c := range pk.columns {
		names[i] = c.name
	}
	return fmt.Sprintf("<PrimaryKey table=%q columns=%s>", pk.tbl.name, strings.Join(names, ","))
}

// Define builds a table from ordered column definitions: it binds each
// column's name and table exactly once, computes the primary key from
// columns flagged PrimaryKey, and registers the table in reg. A nil
// registry skips registration, which is useful for throwaway tables in
// tests.
func Define(reg *Registry, name string, defs []ColumnDef) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("schema: table name must not be empty")
	}
	tbl := &Table{
		name:    name,
		columns: make([]*Column, 0, len(defs)),
		byName:  make(map[string]*Column, len(defs)),
	}
	for _, def := range defs {
		if def.Name == "" || def.Column == nil {
			return nil, fmt.Errorf("schema: table %q: column definition needs a name and a column", name)
		}
		if _, dup := tbl.byName[def.Name]; dup {
			return nil, fmt.Errorf("schema: table %q: duplicate column %q", name, def.Name)
		}
		if err := def.Column.bind(def.Name, tbl); err != nil {
			return nil, fmt.Errorf("schema: table %q: %w", name, err)
		}
		tbl.columns = append(tbl.columns, def.Column)
		tbl.byName[def.Name] = def.Column
	}
	tbl.pk = computePrimaryKey(tbl)

	if reg != nil {
		if err := reg.Register(tbl); err != nil {
			return nil, err
		}
	}
	slog.Debug("defined table", "table", name, "columns", len(defs))
	return tbl, nil
}

// computePrimaryKey collects columns flagged primary, in declaration
// order. A table with no flagged columns has no primary key.
func computePrimaryKey(tbl *Table) *PrimaryKey {
	var cols []*Column
	for _, c := range tbl.columns {
		if c.primaryKey {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil
	}
	return &PrimaryKey{tbl: tbl, columns: cols}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Columns returns the table's columns in declaration order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, error) {
	c, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on table %q", ErrNoSuchColumn, name, t.name)
	}
	return c, nil
}

// C is the must-variant of Column for use in query expressions; it panics
// on an undeclared name, which is a programming error at the call site.
func (t *Table) C(name string) *Column {
	c, err := t.Column(name)
	if err != nil {
		panic(err)
	}
	return c
}

// PrimaryKey returns the computed key, nil when no column is flagged
// primary.
func (t *Table) PrimaryKey() *PrimaryKey { return t.pk }

// Row constructs a fresh, unpersisted row of this table.
func (t *Table) Row() *TableRow {
	return &TableRow{
		tbl:      t,
		values:   make(map[*Column]any),
		previous: make(map[*Column]any),
		touched:  make(map[*Column]bool),
	}
}

func (t *Table) String() string {
	return fmt.Sprintf("<Table %q columns=%d>", t.name, len(t.columns))
}

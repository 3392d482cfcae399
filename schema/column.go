package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchColumn is returned when a table or row is addressed with a
	// column name that was never declared on the table.
	ErrNoSuchColumn = errors.New("schema: no such column")

	// ErrTableMismatch is returned when a column bound to one table is
	// applied to a row or key of a different table.
	ErrTableMismatch = errors.New("schema: column belongs to a different table")

	// ErrColumnBound is returned when a column that is already part of a
	// table is passed to Define a second time.
	ErrColumnBound = errors.New("schema: column already bound to a table")
)

// ColumnConfig carries the declarative flags for a column. The zero value
// declares a non-null, non-indexed plain column.
type ColumnConfig struct {
	PrimaryKey    bool
	Nullable      bool
	AutoIncrement bool
	Indexed       bool
	Unique        bool

	// Default is the client-side default returned by TableRow.Get when no
	// value has been set for the column.
	Default any
}

// Column is a named, typed attribute descriptor bound to exactly one
// Table. The name and table binding are assigned by Define and never
// change afterwards.
type Column struct {
	typ  ColumnType
	name string
	tbl  *Table

	primaryKey    bool
	nullable      bool
	autoIncrement bool
	indexed       bool
	unique        bool
	defaultValue  any
}

// NewColumn creates an unbound column of the given type. The column
// becomes usable once Define attaches it to a table.
func NewColumn(t ColumnType, cfg ColumnConfig) *Column {
	return &Column{
		typ:           t,
		primaryKey:    cfg.PrimaryKey,
		nullable:      cfg.Nullable,
		autoIncrement: cfg.AutoIncrement,
		indexed:       cfg.Indexed,
		unique:        cfg.Unique,
		defaultValue:  cfg.Default,
	}
}

// bind attaches the column to its table. Called once, by Define.
func (c *Column) bind(name string, tbl *Table) error {
	if c.tbl != nil {
		return fmt.Errorf("%w: %q on table %q", ErrColumnBound, c.name, c.tbl.name)
	}
	c.name = name
	c.tbl = tbl
	return nil
}

// Name returns the column name, empty until the column is bound.
func (c *Column) Name() string { return c.name }

// Table returns the owning table, nil until the column is bound.
func (c *Column) Table() *Table { return c.tbl }

// Type returns the column's ColumnType.
func (c *Column) Type() ColumnType { return c.typ }

func (c *Column) IsPrimaryKey() bool  { return c.primaryKey }
func (c *Column) Nullable() bool      { return c.nullable }
func (c *Column) AutoIncrement() bool { return c.autoIncrement }
func (c *Column) Indexed() bool       { return c.indexed }
func (c *Column) Unique() bool        { return c.unique }

// Default returns the client-side default value, nil if none was declared.
func (c *Column) Default() any { return c.defaultValue }

// QualifiedName returns the column in `"table"."column"` form, as emitted
// in generated field lists and conditions.
func (c *Column) QualifiedName() string {
	if c.tbl == nil {
		return fmt.Sprintf("%q", c.name)
	}
	return fmt.Sprintf("%q.%q", c.tbl.name, c.name)
}

func (c *Column) String() string {
	if c.tbl == nil {
		return fmt.Sprintf("<Column unbound type=%s>", c.typ.Name())
	}
	return fmt.Sprintf("<Column %s type=%s>", c.QualifiedName(), c.typ.Name())
}

// Package schema provides the table metadata model for relata.
//
// The package turns explicit column declarations into bound column
// descriptors, a computed primary key, and a registered table. Tables are
// built with Define, which binds each column exactly once:
//
//	reg := schema.NewRegistry()
//	users, err := schema.Define(reg, "users", []schema.ColumnDef{
//	    {Name: "id", Column: schema.NewColumn(schema.Integer(), schema.ColumnConfig{
//	        PrimaryKey:    true,
//	        AutoIncrement: true,
//	    })},
//	    {Name: "name", Column: schema.NewColumn(schema.Text(64), schema.ColumnConfig{
//	        Default: "anonymous",
//	    })},
//	})
//
// Declaration order is significant: generated field lists and composite
// primary key tuples follow the order of the ColumnDef slice.
//
// # Rows
//
// A Table produces change-tracked TableRow values:
//
//	row := users.Row()
//	row.UpdateColumn(users.C("name"), "Alice")
//	v, _ := row.Get(users.C("id"))
//
// Each row remembers the value a column held before its first change since
// the row was last fetched or flushed, which is what update generation
// diffs against.
package schema

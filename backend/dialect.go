package backend

import "strconv"

// Placeholder selects the positional parameter style a driver expects.
type Placeholder int

const (
	// PlaceholderQuestion is `?` (MySQL, SQLite, DuckDB).
	PlaceholderQuestion Placeholder = iota
	// PlaceholderDollar is `$1, $2, …` (PostgreSQL).
	PlaceholderDollar
)

// Dialect describes what a specific SQL engine can do. Feature code gates
// on these flags before relying on dialect-dependent behavior; invoking a
// gated feature on a dialect lacking it fails with ErrNotSupported.
//
// The zero value claims no capabilities.
type Dialect struct {
	Name        string
	Placeholder Placeholder

	// Checkpoints reports savepoint support (SAVEPOINT / RELEASE /
	// ROLLBACK TO).
	Checkpoints bool
	// Serial reports support for the SERIAL auto-increment datatype.
	Serial bool
	// Returns reports support for RETURNING clauses.
	Returns bool
	// ILike reports support for the case-insensitive ILIKE operator.
	ILike bool
	// Default reports support for DEFAULT in value lists.
	Default bool
	// Truncate reports support for TRUNCATE TABLE.
	Truncate bool
}

// EmitParam returns the dialect's placeholder text for the named
// parameter at the given 1-based position.
func (d Dialect) EmitParam(name string, ordinal int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(ordinal)
	default:
		return "?"
	}
}

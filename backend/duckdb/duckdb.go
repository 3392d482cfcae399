// Package duckdb provides the DuckDB backend over database/sql.
// Importing the package registers it for the "duckdb" locator scheme;
// the locator's database segment is the file path, empty for an
// in-memory database:
//
//	import _ "github.com/relatadb/relata/backend/duckdb"
//
//	conn, err := backend.Open("duckdb:///var/data/analytics.db")
//	mem, err := backend.Open("duckdb://")
package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/relatadb/relata/backend"
)

func init() {
	backend.Register("duckdb", New)
}

// DuckDB has no savepoints and no SERIAL; sequences cover
// auto-increment.
var dialect = backend.Dialect{
	Name:        "duckdb",
	Placeholder: backend.PlaceholderQuestion,
	Returns:     true,
	ILike:       true,
	Default:     true,
	Truncate:    true,
}

// Dialect returns the DuckDB capability set.
func Dialect() backend.Dialect { return dialect }

// Connector connects to an embedded DuckDB database.
type Connector struct {
	dsn *backend.DSN
	db  *sql.DB
}

// New builds an unconnected connector from a parsed locator.
func New(dsn *backend.DSN) backend.Connector {
	return &Connector{dsn: dsn}
}

// Connect opens the database file, or an in-memory database when the
// locator names none.
func (c *Connector) Connect(ctx context.Context) error {
	db, err := sql.Open("duckdb", c.dsn.Database)
	if err != nil {
		return fmt.Errorf("duckdb: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("duckdb: connect %q: %w", c.dsn.Database, err)
	}
	c.db = db
	return nil
}

// Close releases the database.
func (c *Connector) Close(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// NewTransaction returns a fresh, not-yet-begun transaction.
func (c *Connector) NewTransaction() backend.Transaction {
	return backend.NewSQLTransaction(c.db, dialect)
}

// Dialect reports the DuckDB capability set.
func (c *Connector) Dialect() backend.Dialect { return dialect }

// EmitParam returns the ? placeholder.
func (c *Connector) EmitParam(name string, ordinal int) string {
	return dialect.EmitParam(name, ordinal)
}

// ServerVersion reports the engine version.
func (c *Connector) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("duckdb: version: %w", err)
	}
	return version, nil
}

// DSN returns the locator this connector was built from.
func (c *Connector) DSN() *backend.DSN { return c.dsn }

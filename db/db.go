package db

import (
	"context"
	"fmt"

	"github.com/relatadb/relata/backend"
	"github.com/relatadb/relata/schema"
)

// DB is the database interface object: one connector plus the registry
// of tables bound to it.
type DB struct {
	connector backend.Connector
	registry  *schema.Registry
}

// Open resolves the locator's scheme against the registered backends,
// connects, and returns the interface object.
func Open(ctx context.Context, locator string) (*DB, error) {
	c, err := backend.Open(locator)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return New(c), nil
}

// New wraps an already constructed connector. The connector must be
// connected before the first session runs a query.
func New(c backend.Connector) *DB {
	return &DB{
		connector: c,
		registry:  schema.NewRegistry(),
	}
}

// Define builds and registers a table in this database's registry.
func (d *DB) Define(name string, defs []schema.ColumnDef) (*schema.Table, error) {
	return schema.Define(d.registry, name, defs)
}

// Table returns a previously defined table by name.
func (d *DB) Table(name string) (*schema.Table, error) {
	t, ok := d.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("db: table %q is not defined", name)
	}
	return t, nil
}

// Registry exposes the table registry for callers that manage schema
// binding themselves.
func (d *DB) Registry() *schema.Registry { return d.registry }

// Connector returns the underlying backend connector.
func (d *DB) Connector() backend.Connector { return d.connector }

// Session returns a new session over this database.
func (d *DB) Session() *Session {
	return &Session{db: d}
}

// ServerVersion reports the connected server's version string.
func (d *DB) ServerVersion(ctx context.Context) (string, error) {
	return d.connector.ServerVersion(ctx)
}

// Close releases the connector.
func (d *DB) Close(ctx context.Context) error {
	return d.connector.Close(ctx)
}

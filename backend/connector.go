package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownScheme is returned by Open when no backend is registered for
// the locator's scheme.
var ErrUnknownScheme = errors.New("backend: no backend registered for scheme")

// Connector is the network-connection abstraction to a database server.
// The underlying connection resource is exclusively owned by one
// transaction at a time; callers serialize transactions themselves.
type Connector interface {
	// Connect establishes the underlying connection. It must be called
	// before the first transaction.
	Connect(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error

	// NewTransaction returns a fresh, not-yet-begun transaction bound to
	// this connection.
	NewTransaction() Transaction

	// Dialect describes the connected engine's capabilities.
	Dialect() Dialect

	// EmitParam returns the dialect placeholder for the named parameter
	// at the given 1-based position.
	EmitParam(name string, ordinal int) string

	// ServerVersion reports the server's version string.
	ServerVersion(ctx context.Context) (string, error)

	// DSN returns the locator this connector was built from.
	DSN() *DSN
}

// Factory constructs a connector from a parsed locator.
type Factory func(dsn *DSN) Connector

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a backend available under a DSN scheme. Concrete
// backends call this from init, like database/sql drivers do.
func Register(scheme string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[scheme] = f
}

// Open parses a locator and constructs the connector registered for its
// scheme. The connector is not yet connected; call Connect on it.
func Open(locator string) (Connector, error) {
	dsn, err := ParseDSN(locator)
	if err != nil {
		return nil, err
	}
	factoriesMu.RLock()
	f, ok := factories[dsn.Scheme]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, dsn.Scheme)
	}
	return f(dsn), nil
}

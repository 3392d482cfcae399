package relata

import (
	"context"

	"github.com/relatadb/relata/db"
)

// Open connects to the database named by the locator and returns the
// interface object. The locator's scheme selects among the imported
// backends.
func Open(ctx context.Context, locator string) (*db.DB, error) {
	return db.Open(ctx, locator)
}

// Package backend defines the contract every concrete database backend
// satisfies: a Connector for the network connection, a Transaction for
// the guarded unit of work, and a ResultSet streaming DictRow values back
// out. The package also carries the pieces the contract implies: DSN
// parsing, dialect capability flags, named-parameter binding, and the
// scoped helpers that guarantee cleanup on every exit path.
//
// Backends register themselves by DSN scheme, database/sql-driver style:
//
//	import _ "github.com/relatadb/relata/backend/postgres"
//
//	conn, err := backend.Open("postgresql://user:pw@localhost:5432/app")
//	if err := conn.Connect(ctx); err != nil { ... }
//
// # Transactions
//
// A Transaction moves NotStarted → Active → {Committed, RolledBack} →
// Closed and rejects operations outside their valid state. RunInTransaction
// wraps the whole lifecycle: begin on entry, commit on normal return,
// rollback on error, and Close on every exit path, including panics and
// context cancellation:
//
//	err := backend.RunInTransaction(ctx, conn, func(tx backend.Transaction) error {
//	    _, err := tx.Execute(ctx, `DELETE FROM "sessions" WHERE "expired" = {v}`,
//	        map[string]any{"v": true})
//	    return err
//	})
//
// # Result sets
//
// ResultSets are forward-only and finite; FetchRow returns (nil, nil) at
// end-of-sequence. Flatten and Each consume a set and guarantee Close on
// completion and on early termination.
package backend

package backend

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
)

// SQLTransaction implements the Transaction contract over a dedicated
// database/sql connection. A connection is checked out of the pool at
// Begin and held until Close, so the transaction owns its network
// resource exclusively; BEGIN/COMMIT/ROLLBACK are issued as explicit
// statements to keep the state machine in this package's hands.
//
// Concrete backends embed or return this type directly and supply their
// Dialect.
type SQLTransaction struct {
	TxGuard

	db   *sql.DB
	d    Dialect
	conn *sql.Conn
}

// NewSQLTransaction builds a not-yet-begun transaction over db.
func NewSQLTransaction(db *sql.DB, d Dialect) *SQLTransaction {
	return &SQLTransaction{db: db, d: d}
}

// Dialect returns the dialect the transaction binds parameters for.
func (t *SQLTransaction) Dialect() Dialect { return t.d }

// Begin checks a connection out of the pool and issues BEGIN.
func (t *SQLTransaction) Begin(ctx context.Context) error {
	if err := t.EnterActive(); err != nil {
		return err
	}
	conn, err := t.db.Conn(ctx)
	if err != nil {
		t.SetClosed()
		return fmt.Errorf("backend: acquire connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN"); err != nil {
		_ = conn.Close()
		t.SetClosed()
		return fmt.Errorf("backend: begin: %w", err)
	}
	t.conn = conn
	return nil
}

// Execute binds params into the query and runs it on this transaction's
// connection.
func (t *SQLTransaction) Execute(ctx context.Context, query string, params map[string]any) (int64, error) {
	if err := t.RequireActive("execute"); err != nil {
		return 0, err
	}
	bound, args, err := Bind(query, params, t.d)
	if err != nil {
		return 0, err
	}
	res, err := t.conn.ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, fmt.Errorf("backend: execute: %w", err)
	}
	// Not every driver reports affected rows; treat that as zero.
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Cursor binds params into the query and returns its streaming results.
func (t *SQLTransaction) Cursor(ctx context.Context, query string, params map[string]any) (ResultSet, error) {
	if err := t.RequireActive("cursor"); err != nil {
		return nil, err
	}
	bound, args, err := Bind(query, params, t.d)
	if err != nil {
		return nil, err
	}
	rows, err := t.conn.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, fmt.Errorf("backend: query: %w", err)
	}
	return NewSQLResultSet(rows)
}

// Commit issues COMMIT and moves to Committed.
func (t *SQLTransaction) Commit(ctx context.Context) error {
	if err := t.RequireActive("commit"); err != nil {
		return err
	}
	if _, err := t.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("backend: commit: %w", err)
	}
	return t.SetCommitted()
}

// Rollback rolls back the whole transaction, or to a named savepoint
// when checkpoint is non-empty. A checkpoint rollback leaves the
// transaction Active.
func (t *SQLTransaction) Rollback(ctx context.Context, checkpoint string) error {
	if err := t.RequireActive("rollback"); err != nil {
		return err
	}
	if checkpoint != "" {
		if !t.d.Checkpoints {
			return fmt.Errorf("%w: savepoints on %s", ErrNotSupported, t.d.Name)
		}
		ident, err := savepointIdent(checkpoint)
		if err != nil {
			return err
		}
		if _, err := t.conn.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+ident); err != nil {
			return fmt.Errorf("backend: rollback to %s: %w", checkpoint, err)
		}
		return nil
	}
	if _, err := t.conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		return fmt.Errorf("backend: rollback: %w", err)
	}
	return t.SetRolledBack()
}

// Close releases the held connection: back to the pool after a clean
// commit or rollback, discarded entirely on an error path or while the
// transaction never settled. A connection that may still be inside a
// server-side transaction must never be pooled; the next checkout would
// inherit its open transaction. Repeated closes are no-ops.
func (t *SQLTransaction) Close(ctx context.Context, hasError bool) error {
	settled := t.State() == TxCommitted || t.State() == TxRolledBack
	if !t.SetClosed() {
		return nil
	}
	if t.conn == nil {
		return nil
	}
	conn := t.conn
	t.conn = nil
	if hasError || !settled {
		if _, rerr := conn.ExecContext(ctx, "ROLLBACK"); rerr != nil {
			slog.Debug("rollback on close failed", "error", rerr)
		}
		// Marking the driver connection bad makes the pool drop it
		// instead of handing it out again.
		if rerr := conn.Raw(func(any) error { return driver.ErrBadConn }); rerr != nil && !errors.Is(rerr, driver.ErrBadConn) {
			return fmt.Errorf("backend: discard connection: %w", rerr)
		}
		return nil
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("backend: close transaction: %w", err)
	}
	return nil
}

// CreateSavepoint issues SAVEPOINT name; requires Dialect().Checkpoints.
func (t *SQLTransaction) CreateSavepoint(ctx context.Context, name string) error {
	return t.savepoint(ctx, "SAVEPOINT", name)
}

// ReleaseSavepoint issues RELEASE SAVEPOINT name; requires
// Dialect().Checkpoints.
func (t *SQLTransaction) ReleaseSavepoint(ctx context.Context, name string) error {
	return t.savepoint(ctx, "RELEASE SAVEPOINT", name)
}

func (t *SQLTransaction) savepoint(ctx context.Context, verb, name string) error {
	if !t.d.Checkpoints {
		return fmt.Errorf("%w: savepoints on %s", ErrNotSupported, t.d.Name)
	}
	if err := t.RequireActive("savepoint"); err != nil {
		return err
	}
	ident, err := savepointIdent(name)
	if err != nil {
		return err
	}
	if _, err := t.conn.ExecContext(ctx, verb+" "+ident); err != nil {
		return fmt.Errorf("backend: %s %s: %w", verb, name, err)
	}
	return nil
}

// savepointIdent restricts savepoint names to plain identifiers; they are
// spliced into statements and must not carry quoting or whitespace.
func savepointIdent(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("backend: empty savepoint name")
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return "", fmt.Errorf("backend: savepoint name %q must not start with a digit", name)
			}
		default:
			return "", fmt.Errorf("backend: savepoint name %q contains %q", name, r)
		}
	}
	return name, nil
}

// SQLResultSet streams *sql.Rows into DictRow values.
type SQLResultSet struct {
	rows *sql.Rows
	keys []string
	done bool
}

// NewSQLResultSet wraps rows, capturing the result's column order.
func NewSQLResultSet(rows *sql.Rows) (*SQLResultSet, error) {
	keys, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("backend: result columns: %w", err)
	}
	return &SQLResultSet{rows: rows, keys: keys}, nil
}

// Keys returns the result's column names in emission order.
func (rs *SQLResultSet) Keys() []string {
	out := make([]string, len(rs.keys))
	copy(out, rs.keys)
	return out
}

// FetchRow scans the next row, or returns (nil, nil) at the end.
func (rs *SQLResultSet) FetchRow(ctx context.Context) (*DictRow, error) {
	if rs.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !rs.rows.Next() {
		rs.done = true
		if err := rs.rows.Err(); err != nil {
			return nil, fmt.Errorf("backend: fetch row: %w", err)
		}
		return nil, nil
	}
	vals := make([]any, len(rs.keys))
	ptrs := make([]any, len(rs.keys))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rs.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("backend: scan row: %w", err)
	}
	return NewDictRow(rs.keys, vals)
}

// FetchMany fetches up to n rows.
func (rs *SQLResultSet) FetchMany(ctx context.Context, n int) ([]*DictRow, error) {
	var out []*DictRow
	for len(out) < n {
		row, err := rs.FetchRow(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		out = append(out, row)
	}
	return out, nil
}

// Close releases the underlying cursor.
func (rs *SQLResultSet) Close() error {
	return rs.rows.Close()
}

package db

import (
	"context"
	"log/slog"

	"github.com/relatadb/relata/backend"
	"github.com/relatadb/relata/schema"
	"github.com/relatadb/relata/sql"
)

// Session executes queries against one transaction at a time and
// materializes result rows into TableRow instances. The transaction is
// begun lazily on the first statement and stays open until Commit,
// Rollback, or Close.
type Session struct {
	db *DB
	tx backend.Transaction
}

// Begin starts the session's transaction explicitly. Calling Begin with
// a transaction already open is a no-op; the open transaction is reused.
func (s *Session) Begin(ctx context.Context) error {
	_, err := s.transaction(ctx)
	return err
}

// Transaction returns the session's live transaction, nil when none is
// open.
func (s *Session) Transaction() backend.Transaction { return s.tx }

func (s *Session) transaction(ctx context.Context) (backend.Transaction, error) {
	if s.tx != nil && s.tx.State() == backend.TxActive {
		return s.tx, nil
	}
	tx := s.db.connector.NewTransaction()
	if err := tx.Begin(ctx); err != nil {
		return nil, err
	}
	s.tx = tx
	return tx, nil
}

// Select compiles the query, executes it on the session's transaction,
// and materializes every result row as a TableRow of the query's primary
// table.
func (s *Session) Select(ctx context.Context, q *sql.Query) ([]*schema.TableRow, error) {
	dicts, table, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := make([]*schema.TableRow, 0, len(dicts))
	for _, dr := range dicts {
		row, err := s.materialize(table, dr)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// First returns the first matching row, or nil when nothing matches.
func (s *Session) First(ctx context.Context, q *sql.Query) (*schema.TableRow, error) {
	rows, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *Session) fetch(ctx context.Context, q *sql.Query) ([]*backend.DictRow, *schema.Table, error) {
	tok, params, err := q.Compile()
	if err != nil {
		return nil, nil, err
	}
	tx, err := s.transaction(ctx)
	if err != nil {
		return nil, nil, err
	}
	stmt := tok.SQL()
	slog.Debug("session select", "sql", stmt, "params", len(params))
	rs, err := tx.Cursor(ctx, stmt, params)
	if err != nil {
		return nil, nil, err
	}
	dicts, err := backend.Flatten(ctx, rs)
	if err != nil {
		return nil, nil, err
	}
	return dicts, q.From(), nil
}

// materialize writes each returned column value through UpdateColumn,
// running the column type's reverse transform first, then marks the row
// persisted: existed becomes true and the previous-value baseline resets
// to the fetched state.
func (s *Session) materialize(table *schema.Table, dr *backend.DictRow) (*schema.TableRow, error) {
	row := table.Row()
	for _, col := range table.Columns() {
		raw, ok := dr.Get(col.Name())
		if !ok {
			continue
		}
		v, err := col.Type().Deserialize(raw)
		if err != nil {
			return nil, err
		}
		if err := row.UpdateColumn(col, v); err != nil {
			return nil, err
		}
	}
	row.MarkPersisted()
	row.AttachSession(s)
	return row, nil
}

// Fetch runs a raw query with {name} brace placeholders on the
// session's transaction and drains the result into DictRows, without
// table materialization.
func (s *Session) Fetch(ctx context.Context, stmt string, params map[string]any) ([]*backend.DictRow, error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := tx.Cursor(ctx, stmt, params)
	if err != nil {
		return nil, err
	}
	return backend.Flatten(ctx, rs)
}

// Execute runs a raw statement with {name} brace placeholders on the
// session's transaction.
func (s *Session) Execute(ctx context.Context, stmt string, params map[string]any) (int64, error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return 0, err
	}
	return tx.Execute(ctx, stmt, params)
}

// Commit commits and closes the session's transaction.
func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(ctx); err != nil {
		if rerr := tx.Rollback(ctx, ""); rerr != nil {
			slog.Warn("rollback after failed commit failed", "error", rerr)
		}
		if cerr := tx.Close(ctx, true); cerr != nil {
			slog.Warn("transaction close failed", "error", cerr)
		}
		return err
	}
	return tx.Close(ctx, false)
}

// Rollback rolls back and closes the session's transaction.
func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(ctx, ""); err != nil {
		if cerr := tx.Close(ctx, true); cerr != nil {
			slog.Warn("transaction close failed", "error", cerr)
		}
		return err
	}
	return tx.Close(ctx, false)
}

// Close abandons the session. An open transaction is rolled back; the
// error path close guarantee of the backend contract applies.
func (s *Session) Close(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	return s.Rollback(ctx)
}

// Run executes fn inside this session's transaction with the scoped
// guarantee: commit on a normal return, rollback on error, close on
// every exit path.
func (s *Session) Run(ctx context.Context, fn func(s *Session) error) (err error) {
	if _, err := s.transaction(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			if rerr := s.Rollback(ctx); rerr != nil {
				slog.Warn("rollback during panic failed", "error", rerr)
			}
			panic(p)
		}
	}()
	if ferr := fn(s); ferr != nil {
		if rerr := s.Rollback(ctx); rerr != nil {
			slog.Warn("rollback failed", "error", rerr)
		}
		return ferr
	}
	return s.Commit(ctx)
}

package db

import (
	"context"
	"errors"
	"testing"

	"github.com/relatadb/relata/backend"
	"github.com/relatadb/relata/schema"
	"github.com/relatadb/relata/sql"
)

// memResultSet serves canned rows followed by the end sentinel.
type memResultSet struct {
	rows []*backend.DictRow
	pos  int
}

func (m *memResultSet) Keys() []string {
	if len(m.rows) == 0 {
		return nil
	}
	return m.rows[0].Keys()
}

func (m *memResultSet) FetchRow(ctx context.Context) (*backend.DictRow, error) {
	if m.pos >= len(m.rows) {
		return nil, nil
	}
	row := m.rows[m.pos]
	m.pos++
	return row, nil
}

func (m *memResultSet) FetchMany(ctx context.Context, n int) ([]*backend.DictRow, error) {
	var out []*backend.DictRow
	for len(out) < n {
		row, _ := m.FetchRow(ctx)
		if row == nil {
			break
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *memResultSet) Close() error { return nil }

// memTx is an in-memory transaction that replays canned result rows and
// records executed statements.
type memTx struct {
	backend.TxGuard

	results   []*backend.DictRow
	commitErr error
	stmts     []string
	params    []map[string]any
	rollbacks int
	closes    int
}

func (m *memTx) Begin(ctx context.Context) error { return m.EnterActive() }

func (m *memTx) Execute(ctx context.Context, query string, params map[string]any) (int64, error) {
	if err := m.RequireActive("execute"); err != nil {
		return 0, err
	}
	m.stmts = append(m.stmts, query)
	m.params = append(m.params, params)
	return 1, nil
}

func (m *memTx) Cursor(ctx context.Context, query string, params map[string]any) (backend.ResultSet, error) {
	if err := m.RequireActive("cursor"); err != nil {
		return nil, err
	}
	m.stmts = append(m.stmts, query)
	m.params = append(m.params, params)
	return &memResultSet{rows: m.results}, nil
}

func (m *memTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	return m.SetCommitted()
}

func (m *memTx) Rollback(ctx context.Context, checkpoint string) error {
	m.rollbacks++
	if checkpoint != "" {
		return m.RequireActive("rollback to savepoint")
	}
	return m.SetRolledBack()
}

func (m *memTx) Close(ctx context.Context, hasError bool) error {
	m.closes++
	m.SetClosed()
	return nil
}

func (m *memTx) CreateSavepoint(ctx context.Context, name string) error {
	return backend.ErrNotSupported
}

func (m *memTx) ReleaseSavepoint(ctx context.Context, name string) error {
	return backend.ErrNotSupported
}

type memConnector struct {
	txs []*memTx

	results   []*backend.DictRow
	commitErr error
}

func (m *memConnector) Connect(ctx context.Context) error { return nil }
func (m *memConnector) Close(ctx context.Context) error   { return nil }

func (m *memConnector) NewTransaction() backend.Transaction {
	tx := &memTx{results: m.results, commitErr: m.commitErr}
	m.txs = append(m.txs, tx)
	return tx
}

func (m *memConnector) Dialect() backend.Dialect {
	return backend.Dialect{Name: "mem", Placeholder: backend.PlaceholderQuestion}
}

func (m *memConnector) EmitParam(name string, ordinal int) string {
	return m.Dialect().EmitParam(name, ordinal)
}

func (m *memConnector) ServerVersion(ctx context.Context) (string, error) { return "mem 1.0", nil }
func (m *memConnector) DSN() *backend.DSN                                 { return &backend.DSN{Scheme: "mem"} }

func defineUsers(t *testing.T, d *DB) *schema.Table {
	t.Helper()
	tbl, err := d.Define("users", []schema.ColumnDef{
		{Name: "id", Column: schema.NewColumn(schema.Integer(), schema.ColumnConfig{PrimaryKey: true})},
		{Name: "name", Column: schema.NewColumn(schema.Text(0), schema.ColumnConfig{})},
	})
	if err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	return tbl
}

func dictRow(t *testing.T, keys []string, values []any) *backend.DictRow {
	t.Helper()
	row, err := backend.NewDictRow(keys, values)
	if err != nil {
		t.Fatalf("NewDictRow failed: %v", err)
	}
	return row
}

func TestSessionSelectMaterializesRows(t *testing.T) {
	conn := &memConnector{}
	d := New(conn)
	users := defineUsers(t, d)

	conn.results = []*backend.DictRow{
		dictRow(t, []string{"id", "name"}, []any{int64(1), []byte("ann")}),
		dictRow(t, []string{"id", "name"}, []any{int64(2), []byte("bob")}),
	}

	s := d.Session()
	rows, err := s.Select(context.Background(), sql.NewQuery(users))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	row := rows[0]
	if !row.Existed() {
		t.Error("Materialized rows must report existed")
	}
	if v, _ := row.Value("id"); v != int64(1) {
		t.Errorf("Expected id 1, got %v", v)
	}
	// The text column's reverse transform restores string from the
	// driver's []byte.
	if v, _ := row.Value("name"); v != "ann" {
		t.Errorf("Expected deserialized name, got %T(%v)", v, v)
	}
	if row.Session() != s {
		t.Error("Expected the loading session to be attached")
	}

	// The baseline resets at materialization, so a fresh row has no
	// previous value until it changes.
	if _, ok, _ := row.PreviousValue(users.C("name")); ok {
		t.Error("Expected a clean change baseline after materialization")
	}
	if err := row.Set("name", "anne"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if prev, ok, _ := row.PreviousValue(users.C("name")); !ok || prev != "ann" {
		t.Errorf("Expected previous value \"ann\", got %v (ok=%v)", prev, ok)
	}
}

func TestSessionSelectSendsCompiledSQL(t *testing.T) {
	conn := &memConnector{}
	d := New(conn)
	users := defineUsers(t, d)

	s := d.Session()
	q := sql.NewQuery(users).Where(sql.Eq(users.C("id"), 7))
	if _, err := s.Select(context.Background(), q); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	tx := conn.txs[0]
	want := `SELECT "users"."id", "users"."name" FROM "users" WHERE "users"."id" = {param_0}`
	if len(tx.stmts) != 1 || tx.stmts[0] != want {
		t.Errorf("Expected statement\n  %s\ngot\n  %v", want, tx.stmts)
	}
	if tx.params[0]["param_0"] != int64(7) {
		t.Errorf("Expected param_0 == 7, got %v", tx.params[0])
	}
}

func TestSessionReusesActiveTransaction(t *testing.T) {
	conn := &memConnector{}
	d := New(conn)
	users := defineUsers(t, d)

	s := d.Session()
	ctx := context.Background()
	if _, err := s.Select(ctx, sql.NewQuery(users)); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if _, err := s.Execute(ctx, `DELETE FROM "users"`, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(conn.txs) != 1 {
		t.Errorf("Expected one transaction for consecutive statements, got %d", len(conn.txs))
	}

	// Commit closes the transaction; the next statement begins a new one.
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, err := s.Execute(ctx, `DELETE FROM "users"`, nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(conn.txs) != 2 {
		t.Errorf("Expected a fresh transaction after commit, got %d", len(conn.txs))
	}
}

func TestSessionFetchReturnsRawRows(t *testing.T) {
	conn := &memConnector{results: []*backend.DictRow{
		dictRow(t, []string{"n"}, []any{int64(3)}),
	}}
	d := New(conn)

	s := d.Session()
	rows, err := s.Fetch(context.Background(), `SELECT count(*) AS "n" FROM "users"`, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected one row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("n"); v != int64(3) {
		t.Errorf("Expected raw driver value back, got %v", v)
	}
}

func TestSessionCommitAndRollbackClose(t *testing.T) {
	conn := &memConnector{}
	d := New(conn)
	ctx := context.Background()

	s := d.Session()
	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	tx := conn.txs[0]
	if tx.State() != backend.TxClosed || tx.closes != 1 {
		t.Errorf("Expected committed transaction closed once, state %v closes %d", tx.State(), tx.closes)
	}
	if s.Transaction() != nil {
		t.Error("Expected the session to drop its transaction after commit")
	}

	s2 := d.Session()
	if err := s2.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s2.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	tx2 := conn.txs[1]
	if tx2.State() != backend.TxClosed || tx2.closes != 1 {
		t.Errorf("Expected rolled back transaction closed once, state %v closes %d", tx2.State(), tx2.closes)
	}

	// Commit and Rollback with no open transaction are no-ops.
	if err := s2.Commit(ctx); err != nil {
		t.Errorf("Commit without a transaction must be a no-op, got %v", err)
	}
	if err := s2.Rollback(ctx); err != nil {
		t.Errorf("Rollback without a transaction must be a no-op, got %v", err)
	}
}

func TestSessionCommitFailureRollsBackAndCloses(t *testing.T) {
	cerr := errors.New("commit broke")
	conn := &memConnector{commitErr: cerr}
	d := New(conn)
	ctx := context.Background()

	s := d.Session()
	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s.Commit(ctx); !errors.Is(err, cerr) {
		t.Fatalf("Expected the commit error back, got %v", err)
	}

	tx := conn.txs[0]
	if tx.rollbacks != 1 {
		t.Errorf("Expected rollback after the failed commit, got %d", tx.rollbacks)
	}
	if tx.closes != 1 || tx.State() != backend.TxClosed {
		t.Errorf("Expected one close, got %d in state %v", tx.closes, tx.State())
	}
	if s.Transaction() != nil {
		t.Error("Expected the session to drop its transaction after the failed commit")
	}
}

func TestSessionCloseRollsBack(t *testing.T) {
	conn := &memConnector{}
	d := New(conn)
	ctx := context.Background()

	s := d.Session()
	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if conn.txs[0].State() != backend.TxClosed {
		t.Errorf("Expected abandoned transaction closed, got %v", conn.txs[0].State())
	}
}

func TestSessionRunCommitsOnSuccess(t *testing.T) {
	conn := &memConnector{}
	d := New(conn)

	s := d.Session()
	err := s.Run(context.Background(), func(s *Session) error {
		_, err := s.Execute(context.Background(), `DELETE FROM "users"`, nil)
		return err
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(conn.txs) != 1 || conn.txs[0].State() != backend.TxClosed {
		t.Errorf("Expected one committed and closed transaction, got %v", conn.txs)
	}
}

func TestSessionRunRollsBackOnError(t *testing.T) {
	conn := &memConnector{}
	d := New(conn)
	boom := errors.New("boom")

	s := d.Session()
	err := s.Run(context.Background(), func(s *Session) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the body error back, got %v", err)
	}
	if s.Transaction() != nil {
		t.Error("Expected the session to drop its transaction after rollback")
	}
	if conn.txs[0].closes != 1 {
		t.Errorf("Expected exactly one close, got %d", conn.txs[0].closes)
	}
}

func TestDBTableLookup(t *testing.T) {
	d := New(&memConnector{})
	users := defineUsers(t, d)

	got, err := d.Table("users")
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if got != users {
		t.Error("Expected the defined table back")
	}
	if _, err := d.Table("ghosts"); err == nil {
		t.Error("Expected error for an undefined table")
	}
}

func TestDBServerVersion(t *testing.T) {
	d := New(&memConnector{})
	v, err := d.ServerVersion(context.Background())
	if err != nil {
		t.Fatalf("ServerVersion failed: %v", err)
	}
	if v != "mem 1.0" {
		t.Errorf("Expected mem 1.0, got %q", v)
	}
}

package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrTransactionState is returned when a transaction operation is
	// invoked outside its valid state, such as Execute before Begin.
	ErrTransactionState = errors.New("backend: invalid transaction state")

	// ErrNotSupported is returned when a dialect-gated feature is invoked
	// on a dialect lacking it. Check the Dialect flags first.
	ErrNotSupported = errors.New("backend: not supported by dialect")
)

// TxState is a transaction's lifecycle position.
type TxState int

const (
	TxNotStarted TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
	TxClosed
)

func (s TxState) String() string {
	switch s {
	case TxNotStarted:
		return "not started"
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	case TxClosed:
		return "closed"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// Transaction is a guarded unit of work: BEGIN, one or more statement
// executions, then COMMIT or ROLLBACK, then Close. Statements execute in
// the order Execute calls were issued. A transaction is not safe for
// concurrent use from multiple goroutines.
type Transaction interface {
	// Begin moves NotStarted to Active and issues a BEGIN.
	Begin(ctx context.Context) error

	// Execute runs a statement with {name} brace placeholders bound from
	// params. Valid only while Active. Returns the affected row count
	// when the driver reports one.
	Execute(ctx context.Context, query string, params map[string]any) (int64, error)

	// Cursor runs a query and returns its streaming result set. The set
	// is owned by this transaction and must be closed before or alongside
	// the transaction's Close.
	Cursor(ctx context.Context, query string, params map[string]any) (ResultSet, error)

	// Commit moves Active to Committed.
	Commit(ctx context.Context) error

	// Rollback with an empty checkpoint rolls back the whole transaction
	// and moves Active to RolledBack. A non-empty checkpoint rolls back
	// to that savepoint and leaves the transaction Active; it requires
	// Dialect().Checkpoints.
	Rollback(ctx context.Context, checkpoint string) error

	// Close is terminal and idempotent-safe; it must run on every exit
	// path. hasError records whether the transaction ended on a failure
	// path.
	Close(ctx context.Context, hasError bool) error

	// CreateSavepoint and ReleaseSavepoint manage named checkpoints and
	// fail with ErrNotSupported unless Dialect().Checkpoints.
	CreateSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error

	// State reports the lifecycle position.
	State() TxState
}

// TxGuard is the shared state machine concrete transactions embed. The
// zero value is NotStarted.
type TxGuard struct {
	state TxState
}

// State reports the current lifecycle position.
func (g *TxGuard) State() TxState { return g.state }

// EnterActive moves NotStarted to Active.
func (g *TxGuard) EnterActive() error {
	if g.state != TxNotStarted {
		return fmt.Errorf("%w: begin in state %q", ErrTransactionState, g.state)
	}
	g.state = TxActive
	return nil
}

// RequireActive fails unless the transaction is Active; op names the
// attempted operation in the error.
func (g *TxGuard) RequireActive(op string) error {
	if g.state != TxActive {
		return fmt.Errorf("%w: %s in state %q", ErrTransactionState, op, g.state)
	}
	return nil
}

// SetCommitted moves Active to Committed.
func (g *TxGuard) SetCommitted() error {
	if err := g.RequireActive("commit"); err != nil {
		return err
	}
	g.state = TxCommitted
	return nil
}

// SetRolledBack moves Active to RolledBack.
func (g *TxGuard) SetRolledBack() error {
	if err := g.RequireActive("rollback"); err != nil {
		return err
	}
	g.state = TxRolledBack
	return nil
}

// SetClosed marks the transaction Closed and reports whether this call
// performed the transition; repeated closes are no-ops.
func (g *TxGuard) SetClosed() bool {
	if g.state == TxClosed {
		return false
	}
	g.state = TxClosed
	return true
}

// RunInTransaction runs fn inside a transaction obtained from c with the
// scoped-resource guarantee: Begin on entry; on a normal return, Commit
// then Close(hasError=false); on an error from fn, a failed commit, or a
// panic, Rollback then Close(hasError=true). Close runs on every exit
// path, even when commit or rollback itself fails, and the original
// error stays the one surfaced; secondary cleanup errors are logged and
// suppressed. Context cancellation surfaces as an error from fn or from
// the statement that observed it, and takes the rollback path.
func RunInTransaction(ctx context.Context, c Connector, fn func(tx Transaction) error) (err error) {
	tx := c.NewTransaction()
	if err := tx.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if rerr := tx.Rollback(ctx, ""); rerr != nil {
				slog.Warn("rollback during panic failed", "error", rerr)
			}
			if cerr := tx.Close(ctx, true); cerr != nil {
				slog.Warn("transaction close failed", "error", cerr)
			}
			panic(p)
		}
		if cerr := tx.Close(ctx, err != nil); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				slog.Warn("transaction close failed", "error", cerr)
			}
		}
	}()

	if ferr := fn(tx); ferr != nil {
		if rerr := tx.Rollback(ctx, ""); rerr != nil {
			slog.Warn("rollback failed", "error", rerr)
		}
		return ferr
	}
	if cerr := tx.Commit(ctx); cerr != nil {
		if rerr := tx.Rollback(ctx, ""); rerr != nil {
			slog.Warn("rollback after failed commit failed", "error", rerr)
		}
		return cerr
	}
	return nil
}

package repository

import (
    "context"
    "database/sql"
)

type txKey struct{}

// TxRunner executes a function inside a single database transaction. The
// open *sql.Tx travels in the context so that every repository method
// invoked from inside fn joins the same transaction; this is how the slot
// and booking mutations of one operation commit or roll back as a unit.
// Nested WithTx calls reuse the outer transaction.
type TxRunner struct {
    db *sql.DB
}

// NewTxRunner returns a TxRunner over the given database handle.
func NewTxRunner(db *sql.DB) *TxRunner {
    return &TxRunner{db: db}
}

// WithTx begins a transaction, runs fn with the transaction stashed in the
// context, and commits when fn returns nil. Any error from fn rolls the
// transaction back and is returned unchanged.
func (r *TxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    if txFromContext(ctx) != nil {
        return fn(ctx)
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return ErrUnavailable
    }
    txCtx := context.WithValue(ctx, txKey{}, tx)
    if err := fn(txCtx); err != nil {
        _ = tx.Rollback()
        return err
    }
    return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
    tx, _ := ctx.Value(txKey{}).(*sql.Tx)
    return tx
}

// executor is satisfied by both *sql.DB and *sql.Tx; repositories resolve
// it per call so the same method works inside and outside a transaction.
type executor interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func conn(ctx context.Context, db *sql.DB) executor {
    if tx := txFromContext(ctx); tx != nil {
        return tx
    }
    return db
}

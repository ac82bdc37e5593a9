package ormlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// Tx is a transaction on a DB. Operations on it are serialized; a Tx may be shared between
// goroutines but statements run one at a time.
type Tx struct {
	db   *DB
	tx   *sql.Tx
	mu   sync.Mutex
	done bool
}

func (db *DB) Begin(ctx context.Context, opts ...*sql.TxOptions) (*Tx, error) {
	var o *sql.TxOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	tx, err := db.SQL.BeginTx(ctx, o)
	if err != nil {
		return nil, err
	}
	return &Tx{db: db, tx: tx}, nil
}

func (t *Tx) database() *DB { return t.db }

func (t *Tx) session(context.Context) (Executor, func()) {
	t.mu.Lock()
	return t.tx, t.mu.Unlock
}

func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	return t.tx.Rollback()
}

// Close rolls back a transaction that was neither committed nor rolled back. A failing rollback
// is logged, never returned.
func (t *Tx) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		t.db.logger().Warnf("rollback on close failed: %v", err)
	}
	return nil
}

// InTransaction runs fn in a transaction committed when fn returns nil. ctx passed to fn carries
// the transaction, so operations on db inside fn join it.
func InTransaction(ctx context.Context, db *DB, fn func(ctx context.Context, tx *Tx) error) error {
	if tx := txFrom(ctx); tx != nil && tx.db == db {
		return fn(ctx, tx)
	}
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Close()
	if err := fn(WithTx(ctx, tx), tx); err != nil {
		return err
	}
	return tx.Commit()
}

package ormlite

import (
	"context"
	"sync"

	"github.com/golobby/ormlite/dialect"
)

type ctxKey int

const (
	dialectKey ctxKey = iota
	txKey
	filterKey
)

var (
	ambientMu      sync.RWMutex
	defaultDialect dialect.Provider = dialect.Dialects.SQLite
)

// UseDialect sets the dialect used by connections opened with neither a dialect nor a driver that
// has one registered. The returned func restores the previous dialect and is meant to be deferred.
func UseDialect(p dialect.Provider) (restore func()) {
	ambientMu.Lock()
	prev := defaultDialect
	defaultDialect = p
	ambientMu.Unlock()
	return func() {
		ambientMu.Lock()
		defaultDialect = prev
		ambientMu.Unlock()
	}
}

// WithDialect renders every statement run with ctx through p instead of the connection's dialect.
func WithDialect(ctx context.Context, p dialect.Provider) context.Context {
	return context.WithValue(ctx, dialectKey, p)
}

func dialectFor(ctx context.Context, db *DB) dialect.Provider {
	if p, ok := ctx.Value(dialectKey).(dialect.Provider); ok && p != nil {
		return p
	}
	return db.dialect
}

func ambientDialect() dialect.Provider {
	ambientMu.RLock()
	defer ambientMu.RUnlock()
	return defaultDialect
}

// WithTx makes tx the ambient transaction: operations run with ctx on tx's connection join it.
func WithTx(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

func txFrom(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txKey).(*Tx)
	return tx
}

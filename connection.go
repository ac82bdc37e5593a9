package ormlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/sqlexpr"
)

// Executor is the driver boundary, satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn is what every operation runs against, a *DB or a *Tx.
type Conn interface {
	database() *DB
	// session returns the executor to use and a release func that must be called when done.
	session(ctx context.Context) (Executor, func())
}

// DB is a named connection with its dialect and rendering settings.
type DB struct {
	Name           string
	SQL            *sql.DB
	CommandTimeout time.Duration

	dialect              dialect.Provider
	parameterized        bool
	disableGuessFallback bool
	log                  Logger
}

func (db *DB) Dialect() dialect.Provider { return db.dialect }

func (db *DB) Logger() Logger { return db.log }

func (db *DB) Close() error {
	return db.SQL.Close()
}

func (db *DB) database() *DB { return db }

func (db *DB) session(ctx context.Context) (Executor, func()) {
	if tx := txFrom(ctx); tx != nil && tx.db == db {
		return tx.session(ctx)
	}
	return db.SQL, func() {}
}

// Settings are the rendering settings for queries run on c within ctx.
func Settings(ctx context.Context, c Conn) sqlexpr.Settings {
	db := c.database()
	return sqlexpr.Settings{
		Dialect:              dialectFor(ctx, db),
		Parameterized:        db.parameterized,
		DisableGuessFallback: db.disableGuessFallback,
	}
}

// From starts a query over T rendered for c.
func From[T any](ctx context.Context, c Conn) *sqlexpr.Query[T] {
	return sqlexpr.From[T](Settings(ctx, c))
}

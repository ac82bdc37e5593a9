//go:build integration

package ormlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mssql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/golobby/ormlite"
	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/expr"
)

type Ticket struct {
	ID       int64
	Title    string
	Priority int
	Version  int64 `orm:"rowversion"`
	Notes    []TicketNote
}

type TicketNote struct {
	ID       int64
	TicketID int64
	Body     string
}

func startPostgres(t *testing.T) *ormlite.DB {
	t.Helper()
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:16-alpine",
		postgres.WithDatabase("ormlite_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := ormlite.Open(ormlite.ConnectionConfig{
		Driver:           "pgx",
		ConnectionString: dsn,
		Parameterized:    true,
		LogLevel:         ormlite.LogLevelNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func startSQLServer(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	container, err := mssql.Run(ctx,
		"mcr.microsoft.com/mssql/server:2022-latest",
		mssql.WithAcceptEULA(),
		mssql.WithPassword("Test@12345"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("SQL Server is now ready for client connections").
				WithStartupTimeout(120*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	sqlDB, err := sql.Open("sqlserver", dsn)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sqlDB.Ping() == nil }, time.Minute, time.Second)
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func exerciseBackend(t *testing.T, db *ormlite.DB) {
	ctx := context.Background()
	require.NoError(t, ormlite.CreateTable[Ticket](ctx, db, true))
	require.NoError(t, ormlite.CreateTable[TicketNote](ctx, db, true))

	tickets := []*Ticket{
		{Title: "first", Priority: 1},
		{Title: "second", Priority: 2},
		{Title: "third", Priority: 3},
		{Title: "fourth", Priority: 4},
	}
	require.NoError(t, ormlite.InsertAll(ctx, db, tickets...))
	for _, tk := range tickets {
		assert.NotZero(t, tk.ID)
		assert.NotZero(t, tk.Version)
	}

	t.Run("paging", func(t *testing.T) {
		page, err := ormlite.Select(ctx, db, ormlite.From[Ticket](ctx, db).OrderBy(expr.Col("ID")).Skip(1).Take(1))
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "second", page[0].Title)

		rest, err := ormlite.Select(ctx, db, ormlite.From[Ticket](ctx, db).OrderBy(expr.Col("ID")).Skip(2))
		require.NoError(t, err)
		require.Len(t, rest, 2)
		assert.Equal(t, "third", rest[0].Title)
	})

	t.Run("optimistic concurrency", func(t *testing.T) {
		stale := *tickets[0]
		tickets[0].Title = "renamed"
		require.NoError(t, ormlite.Update(ctx, db, tickets[0]))
		assert.NotEqual(t, stale.Version, tickets[0].Version)

		stale.Title = "lost"
		assert.ErrorIs(t, ormlite.Update(ctx, db, &stale), ormlite.ErrOptimisticConcurrency)
	})

	t.Run("references", func(t *testing.T) {
		require.NoError(t, ormlite.SaveReferences(ctx, db, tickets[1],
			&TicketNote{Body: "a"}, &TicketNote{Body: "b"}))
		require.NoError(t, ormlite.SaveReferences(ctx, db, tickets[2], &TicketNote{Body: "c"}))

		loaded, err := ormlite.LoadSelect(ctx, db, ormlite.From[Ticket](ctx, db).OrderBy(expr.Col("ID")))
		require.NoError(t, err)
		require.Len(t, loaded, 4)
		assert.Empty(t, loaded[0].Notes)
		assert.Len(t, loaded[1].Notes, 2)
		assert.Len(t, loaded[2].Notes, 1)
	})

	t.Run("scalars", func(t *testing.T) {
		n, err := ormlite.Count(ctx, db, ormlite.From[Ticket](ctx, db).Where(expr.Col("Priority").Gt(1)))
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		exists, err := ormlite.TableExists[TicketNote](ctx, db)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestPostgres(t *testing.T) {
	exerciseBackend(t, startPostgres(t))
}

func TestSQLServer(t *testing.T) {
	sqlDB := startSQLServer(t)
	for _, d := range []dialect.Provider{dialect.Dialects.SQLServer, dialect.Dialects.SQLServer2008} {
		t.Run(d.Name(), func(t *testing.T) {
			db, err := ormlite.Open(ormlite.ConnectionConfig{
				DB:            sqlDB,
				Dialect:       d,
				Parameterized: true,
				LogLevel:      ormlite.LogLevelNone,
			})
			require.NoError(t, err)
			exerciseBackend(t, db)
		})
	}
}

package ormlite_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golobby/ormlite"
	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
)

type User struct {
	Id   int64
	Name string
	Age  int
}

func (User) ConfigureModel(c *schema.ModelConfigurator) {
	c.Table("users")
}

type Customer struct {
	ID        int64
	Name      string
	Addresses []*Address
}

type Address struct {
	ID         int64
	CustomerID int64
	Content    string
}

func mockDB(t *testing.T, d dialect.Provider) (*ormlite.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := ormlite.Open(ormlite.ConnectionConfig{
		DB:            sqlDB,
		Dialect:       d,
		Parameterized: true,
		LogLevel:      ormlite.LogLevelNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func exactly(sql string) string {
	return "^" + regexp.QuoteMeta(sql) + "$"
}

func TestCRUDStatements(t *testing.T) {
	ctx := context.Background()
	db, mock := mockDB(t, dialect.Dialects.PostgreSQL)

	firstUser := &User{Name: "Amirreza"}
	mock.ExpectQuery(exactly(`INSERT INTO "users" ("Name","Age") VALUES ($1,$2) RETURNING "Id"`)).
		WithArgs("Amirreza", 0).
		WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(1))
	require.NoError(t, ormlite.Insert(ctx, db, firstUser))
	assert.Equal(t, int64(1), firstUser.Id)

	mock.ExpectQuery(exactly("SELECT \"Id\", \"Name\", \"Age\" \nFROM \"users\"\nWHERE (\"Id\" = $1)\nLIMIT 1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name", "Age"}).AddRow(2, "amirreza", 19))
	secondUser, err := ormlite.SingleByID[User](ctx, db, 2)
	require.NoError(t, err)
	assert.Equal(t, &User{Id: 2, Name: "amirreza", Age: 19}, secondUser)

	secondUser.Age = 11
	mock.ExpectExec(exactly(`UPDATE "users" SET "Name"=$1, "Age"=$2 WHERE "Id" = $3`)).
		WithArgs("amirreza", 11, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, ormlite.Update(ctx, db, secondUser))

	mock.ExpectExec(exactly(`DELETE FROM "users" WHERE ("Id" = $1)`)).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, ormlite.Delete(ctx, db, secondUser))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadSelectBatchesReferences(t *testing.T) {
	ctx := context.Background()
	db, mock := mockDB(t, dialect.Dialects.PostgreSQL)

	mock.ExpectQuery(exactly("SELECT \"ID\", \"Name\" \nFROM \"Customer\"")).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "Name"}).AddRow(1, "amirreza").AddRow(2, "milad"))
	mock.ExpectQuery(exactly("SELECT \"ID\", \"CustomerID\", \"Content\" \nFROM \"Address\"\nWHERE \"CustomerID\" IN ($1,$2)")).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "CustomerID", "Content"}).
			AddRow(1, 1, "ahvaz").
			AddRow(2, 2, "tehran").
			AddRow(3, 1, "shiraz"))

	customers, err := ormlite.LoadSelect[Customer](ctx, db, nil)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	require.Len(t, customers[0].Addresses, 2)
	assert.Equal(t, "ahvaz", customers[0].Addresses[0].Content)
	assert.Equal(t, "shiraz", customers[0].Addresses[1].Content)
	require.Len(t, customers[1].Addresses, 1)
	assert.Equal(t, "tehran", customers[1].Addresses[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAmbiguousReference(t *testing.T) {
	type Orphan struct {
		ID   int64
		Tags []Address
	}
	ctx := ormlite.WithResultsFilter(context.Background(), &ormlite.CaptureFilter{})
	db, _ := mockDB(t, dialect.Dialects.SQLite)
	err := ormlite.LoadReferences(ctx, db, &Orphan{ID: 1})
	assert.ErrorIs(t, err, ormlite.ErrAmbiguousRelation)
}

func TestWithDialect(t *testing.T) {
	capture := &ormlite.CaptureFilter{}
	db, _ := mockDB(t, dialect.Dialects.SQLite)

	for _, d := range []dialect.Provider{dialect.Dialects.SQLite, dialect.Dialects.MySQL, dialect.Dialects.SQLServer} {
		ctx := ormlite.WithDialect(ormlite.WithResultsFilter(context.Background(), capture), d)
		_, err := ormlite.SelectWhere[User](ctx, db, expr.Col("Age").Gt(40))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{
		"SELECT \"Id\", \"Name\", \"Age\" \nFROM \"users\"\nWHERE (\"Age\" > ?1)",
		"SELECT `Id`, `Name`, `Age` \nFROM `users`\nWHERE (`Age` > ?)",
		"SELECT \"Id\", \"Name\", \"Age\" \nFROM \"users\"\nWHERE (\"Age\" > @p1)",
	}, capture.SQL())
}

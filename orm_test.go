package ormlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golobby/ormlite"
	"github.com/golobby/ormlite/expr"
)

type Person struct {
	ID   int64
	Name string
	Age  int
}

type Post struct {
	ID       int64
	Body     string
	Comments []Comment
	Header   *HeaderPicture
}

type Comment struct {
	ID     int64
	PostID int64
	Body   string
	Post   *Post
	ormlite.Timestamps
}

type HeaderPicture struct {
	ID     int64
	PostID int64
	Link   string
}

type Account struct {
	ID      int64
	Owner   string
	Balance int
	Version int64 `orm:"rowversion"`
}

func setup(t *testing.T, parameterized bool) (context.Context, *ormlite.DB) {
	t.Helper()
	db, err := ormlite.Open(ormlite.ConnectionConfig{
		Name:             "default",
		Driver:           "sqlite3",
		ConnectionString: ":memory:",
		Parameterized:    parameterized,
		LogLevel:         ormlite.LogLevelNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	require.NoError(t, ormlite.CreateTable[Person](ctx, db, true))
	require.NoError(t, ormlite.CreateTable[Post](ctx, db, true))
	require.NoError(t, ormlite.CreateTable[Comment](ctx, db, true))
	require.NoError(t, ormlite.CreateTable[HeaderPicture](ctx, db, true))
	require.NoError(t, ormlite.CreateTable[Account](ctx, db, true))
	return ctx, db
}

func seedPeople(t *testing.T, ctx context.Context, db *ormlite.DB) {
	t.Helper()
	require.NoError(t, ormlite.InsertAll(ctx, db,
		&Person{Name: "A", Age: 20},
		&Person{Name: "B", Age: 30},
		&Person{Name: "B", Age: 40},
	))
}

func TestSelectWhere(t *testing.T) {
	for _, parameterized := range []bool{true, false} {
		t.Run(map[bool]string{true: "parameterized", false: "inline literals"}[parameterized], func(t *testing.T) {
			ctx, db := setup(t, parameterized)
			seedPeople(t, ctx, db)

			people, err := ormlite.SelectWhere[Person](ctx, db, expr.Col("Name").Eq("B"))
			require.NoError(t, err)
			require.Len(t, people, 2)
			for _, p := range people {
				assert.Equal(t, "B", p.Name)
			}
		})
	}
}

func TestInsert(t *testing.T) {
	ctx, db := setup(t, true)
	post := &Post{Body: "my body for insert"}
	require.NoError(t, ormlite.Insert(ctx, db, post))
	assert.Equal(t, int64(1), post.ID)

	var p Post
	require.NoError(t, db.SQL.QueryRow(`SELECT "ID", "Body" FROM "Post" WHERE "ID" = ?`, 1).Scan(&p.ID, &p.Body))
	assert.Equal(t, "my body for insert", p.Body)
}

func TestInsertAll(t *testing.T) {
	ctx, db := setup(t, true)
	seedPeople(t, ctx, db)

	n, err := ormlite.Count[Person](ctx, db, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestReads(t *testing.T) {
	ctx, db := setup(t, true)
	seedPeople(t, ctx, db)

	t.Run("single", func(t *testing.T) {
		p, err := ormlite.Single(ctx, db, ormlite.From[Person](ctx, db).Where(expr.Col("Age").Gt(25)).OrderBy(expr.Col("Age")))
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, 30, p.Age)

		none, err := ormlite.Single(ctx, db, ormlite.From[Person](ctx, db).Where(expr.Col("Age").Gt(99)))
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("single by id", func(t *testing.T) {
		p, err := ormlite.SingleByID[Person](ctx, db, 2)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, int64(2), p.ID)
	})

	t.Run("scalar", func(t *testing.T) {
		max, err := ormlite.Scalar[int](ctx, db, ormlite.From[Person](ctx, db).Select(expr.Max(expr.Col("Age"))))
		require.NoError(t, err)
		assert.Equal(t, 40, max)
	})

	t.Run("column", func(t *testing.T) {
		names, err := ormlite.Column[string](ctx, db, ormlite.From[Person](ctx, db).Select(expr.Col("Name")).OrderBy(expr.Col("ID")))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "B"}, names)

		distinct, err := ormlite.ColumnDistinct[string](ctx, db, ormlite.From[Person](ctx, db).Select(expr.Col("Name")).OrderBy(expr.Col("Name")))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, distinct)
	})

	t.Run("dictionary and lookup", func(t *testing.T) {
		ages, err := ormlite.Dictionary[int64, int](ctx, db, ormlite.From[Person](ctx, db).Select(expr.Col("ID"), expr.Col("Age")))
		require.NoError(t, err)
		assert.Equal(t, map[int64]int{1: 20, 2: 30, 3: 40}, ages)

		byName, err := ormlite.Lookup[string, int](ctx, db, ormlite.From[Person](ctx, db).Select(expr.Col("Name"), expr.Col("Age")).OrderBy(expr.Col("Age")))
		require.NoError(t, err)
		assert.Equal(t, map[string][]int{"A": {20}, "B": {30, 40}}, byName)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := ormlite.Exists(ctx, db, ormlite.From[Person](ctx, db).Where(expr.Col("Name").Eq("A")))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = ormlite.Exists(ctx, db, ormlite.From[Person](ctx, db).Where(expr.Col("Name").Eq("Z")))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("paging", func(t *testing.T) {
		page, err := ormlite.Select(ctx, db, ormlite.From[Person](ctx, db).OrderBy(expr.Col("Age")).Skip(1).Take(1))
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, 30, page[0].Age)
	})

	t.Run("raw sql", func(t *testing.T) {
		people, err := ormlite.SQLList[Person](ctx, db, `SELECT * FROM "Person" WHERE "Age" >= @age`, map[string]any{"age": 30})
		require.NoError(t, err)
		assert.Len(t, people, 2)

		n, err := ormlite.SQLScalar[int](ctx, db, `SELECT COUNT(*) FROM "Person" WHERE "Name" = @name`, map[string]any{"name": "B"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("maps", func(t *testing.T) {
		rows, err := ormlite.SelectMaps(ctx, db, ormlite.From[Person](ctx, db).Where(expr.Col("ID").Eq(1)))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "A", rows[0]["Name"])
	})
}

func TestUpdate(t *testing.T) {
	ctx, db := setup(t, true)
	post := &Post{Body: "my body for insert"}
	require.NoError(t, ormlite.Insert(ctx, db, post))

	post.Body += " update text"
	require.NoError(t, ormlite.Update(ctx, db, post))

	var body string
	require.NoError(t, db.SQL.QueryRow(`SELECT "Body" FROM "Post" WHERE "ID" = ?`, post.ID).Scan(&body))
	assert.Equal(t, "my body for insert update text", body)
}

func TestUpdateOnly(t *testing.T) {
	ctx, db := setup(t, true)
	seedPeople(t, ctx, db)

	n, err := ormlite.UpdateOnly(ctx, db, &Person{Name: "changed", Age: 99},
		ormlite.From[Person](ctx, db).UpdateFields("Age").Where(expr.Col("ID").Eq(2)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, err := ormlite.SingleByID[Person](ctx, db, 2)
	require.NoError(t, err)
	assert.Equal(t, Person{ID: 2, Name: "B", Age: 99}, *p)

	n, err = ormlite.UpdateNonDefaults(ctx, db, &Person{Name: "renamed"}, expr.Col("Name").Eq("A"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	p, err = ormlite.SingleByID[Person](ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, Person{ID: 1, Name: "renamed", Age: 20}, *p)
}

func TestDelete(t *testing.T) {
	ctx, db := setup(t, true)
	seedPeople(t, ctx, db)

	p, err := ormlite.SingleByID[Person](ctx, db, 1)
	require.NoError(t, err)
	require.NoError(t, ormlite.Delete(ctx, db, p))

	n, err := ormlite.DeleteByID[Person](ctx, db, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = ormlite.DeleteWhere[Person](ctx, db, expr.Col("Age").Gt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := ormlite.Count[Person](ctx, db, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSave(t *testing.T) {
	t.Run("save should insert", func(t *testing.T) {
		ctx, db := setup(t, true)
		post := &Post{Body: "1"}
		inserted, err := ormlite.Save(ctx, db, post)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, int64(1), post.ID)
	})

	t.Run("save should update", func(t *testing.T) {
		ctx, db := setup(t, true)
		post := &Post{Body: "1"}
		_, err := ormlite.Save(ctx, db, post)
		require.NoError(t, err)

		post.Body += "2"
		inserted, err := ormlite.Save(ctx, db, post)
		require.NoError(t, err)
		assert.False(t, inserted)

		myPost, err := ormlite.SingleByID[Post](ctx, db, 1)
		require.NoError(t, err)
		assert.Equal(t, "12", myPost.Body)
	})
}

func TestOptimisticConcurrency(t *testing.T) {
	ctx, db := setup(t, true)
	acc := &Account{Owner: "amirreza", Balance: 10}
	require.NoError(t, ormlite.Insert(ctx, db, acc))
	assert.Equal(t, int64(1), acc.Version)

	stale := *acc
	acc.Balance = 20
	require.NoError(t, ormlite.Update(ctx, db, acc))
	assert.Equal(t, int64(2), acc.Version)

	stale.Balance = 30
	assert.ErrorIs(t, ormlite.Update(ctx, db, &stale), ormlite.ErrOptimisticConcurrency)
	assert.ErrorIs(t, ormlite.Delete(ctx, db, &stale), ormlite.ErrOptimisticConcurrency)

	stored, err := ormlite.SingleByID[Account](ctx, db, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, stored.Balance)
	assert.Equal(t, int64(2), stored.Version)

	require.NoError(t, ormlite.Delete(ctx, db, acc))

	t.Run("unversioned update reads the stored version", func(t *testing.T) {
		acc := &Account{Owner: "milad", Balance: 1}
		require.NoError(t, ormlite.Insert(ctx, db, acc))
		acc.Balance = 2
		require.NoError(t, ormlite.Update(ctx, db, acc))
		acc.Balance = 3
		require.NoError(t, ormlite.Update(ctx, db, acc))
		require.Equal(t, int64(3), acc.Version)

		blind := &Account{ID: acc.ID, Owner: "milad", Balance: 4}
		require.NoError(t, ormlite.Update(ctx, db, blind))
		assert.Equal(t, int64(4), blind.Version)

		stored, err := ormlite.SingleByID[Account](ctx, db, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), stored.Version)
		assert.Equal(t, 4, stored.Balance)
	})
}

func TestTransactions(t *testing.T) {
	ctx, db := setup(t, true)

	err := ormlite.InTransaction(ctx, db, func(ctx context.Context, tx *ormlite.Tx) error {
		require.NoError(t, ormlite.Insert(ctx, db, &Person{Name: "rolled back"}))
		return sql.ErrNoRows
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	n, err := ormlite.Count[Person](ctx, db, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, ormlite.InTransaction(ctx, db, func(ctx context.Context, tx *ormlite.Tx) error {
		return ormlite.Insert(ctx, tx, &Person{Name: "committed"})
	}))
	n, err = ormlite.Count[Person](ctx, db, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, ormlite.Insert(ctx, tx, &Person{Name: "discarded"}))
	assert.NoError(t, tx.Close())
	assert.NoError(t, tx.Close())
}

func TestReferences(t *testing.T) {
	ctx, db := setup(t, true)
	first := &Post{Body: "first post"}
	second := &Post{Body: "second post"}
	require.NoError(t, ormlite.InsertAll(ctx, db, first, second))
	require.NoError(t, ormlite.SaveReferences(ctx, db, first, &Comment{Body: "comment 1"}, &Comment{Body: "comment 2"}))
	require.NoError(t, ormlite.SaveReferences(ctx, db, second, &Comment{Body: "comment 3"}))
	require.NoError(t, ormlite.Insert(ctx, db, &HeaderPicture{PostID: first.ID, Link: "google"}))

	t.Run("has many and has one", func(t *testing.T) {
		post, err := ormlite.SingleByID[Post](ctx, db, first.ID)
		require.NoError(t, err)
		require.NoError(t, ormlite.LoadReferences(ctx, db, post))
		assert.Len(t, post.Comments, 2)
		for _, c := range post.Comments {
			assert.Equal(t, first.ID, c.PostID)
		}
		require.NotNil(t, post.Header)
		assert.Equal(t, "google", post.Header.Link)
	})

	t.Run("belongs to", func(t *testing.T) {
		comments, err := ormlite.LoadSelect(ctx, db, ormlite.From[Comment](ctx, db).OrderBy(expr.Col("ID")))
		require.NoError(t, err)
		require.Len(t, comments, 3)
		assert.Equal(t, "first post", comments[0].Post.Body)
		assert.Equal(t, "second post", comments[2].Post.Body)
	})

	t.Run("every parent of a select", func(t *testing.T) {
		posts, err := ormlite.LoadSelect[Post](ctx, db, nil)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		counts := map[string]int{}
		for _, p := range posts {
			counts[p.Body] = len(p.Comments)
			if p.ID == second.ID {
				assert.Nil(t, p.Header)
			}
		}
		assert.Equal(t, map[string]int{"first post": 2, "second post": 1}, counts)
	})

	t.Run("soft deleted rows are filtered", func(t *testing.T) {
		_, err := ormlite.ExecSQL(ctx, db, `UPDATE "Comment" SET "DeletedAt" = @at WHERE "Body" = @body`,
			map[string]any{"at": time.Now().UTC(), "body": "comment 2"})
		require.NoError(t, err)

		restore := ormlite.UseReferenceFilter(ormlite.SoftDeleteFilter)
		defer restore()

		post, err := ormlite.SingleByID[Post](ctx, db, first.ID)
		require.NoError(t, err)
		require.NoError(t, ormlite.LoadReferences(ctx, db, post))
		require.Len(t, post.Comments, 1)
		assert.Equal(t, "comment 1", post.Comments[0].Body)
	})
}

func TestResultsFilter(t *testing.T) {
	ctx, db := setup(t, true)

	capture := &ormlite.CaptureFilter{
		Results:      []Person{{ID: 9, Name: "B"}},
		ScalarResult: int64(5),
		RowsAffected: 1,
	}
	fctx := ormlite.WithResultsFilter(ctx, capture)

	people, err := ormlite.SelectWhere[Person](fctx, db, expr.Col("Name").Eq("B"))
	require.NoError(t, err)
	assert.Equal(t, []Person{{ID: 9, Name: "B"}}, people)

	n, err := ormlite.Count[Person](fctx, db, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	affected, err := ormlite.DeleteByID[Person](fctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, []string{
		"SELECT \"ID\", \"Name\", \"Age\" \nFROM \"Person\"\nWHERE (\"Name\" = ?1)",
		"SELECT COUNT(*) \nFROM \"Person\"",
		"DELETE FROM \"Person\" WHERE (\"ID\" = ?1)",
	}, capture.SQL())
	assert.Equal(t, "B", capture.Commands[0].Params[0].Value)

	t.Run("process wide", func(t *testing.T) {
		restore := ormlite.UseResultsFilter(&ormlite.CaptureFilter{Results: []Person{}})
		people, err := ormlite.Select[Person](ctx, db, nil)
		restore()
		require.NoError(t, err)
		assert.Empty(t, people)
	})
}

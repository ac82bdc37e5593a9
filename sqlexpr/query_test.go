package sqlexpr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
	"github.com/golobby/ormlite/sqlexpr"
)

type Status int

const (
	Pending Status = iota
	Shipped
)

func (s Status) String() string {
	return [...]string{"Pending", "Shipped"}[s]
}

func init() {
	schema.RegisterEnum(Pending, Shipped)
}

type Customer struct {
	ID      int
	Name    string
	Active  bool
	Age     int
	Status  Status
	Version int64 `orm:"rowversion"`
}

type Order struct {
	ID         int
	CustomerID int
	Total      float64
}

type Tag struct {
	ID    int
	Label string
}

type CustomerTotal struct {
	Name    string
	Total   float64
	OrderID int
}

var (
	inline = sqlexpr.Settings{Dialect: dialect.Dialects.SQLite}
	params = sqlexpr.Settings{Dialect: dialect.Dialects.PostgreSQL, Parameterized: true}
)

const customerColumns = `SELECT "ID", "Name", "Active", "Age", "Status", "Version" ` + "\nFROM \"Customer\""

func where(t *testing.T, s sqlexpr.Settings, preds ...expr.Node) sqlexpr.Statement {
	t.Helper()
	stmt, err := sqlexpr.From[Customer](s).Where(preds...).ToSelectStatement()
	require.NoError(t, err)
	return stmt
}

func paramValues(ps []dialect.Param) []any {
	out := make([]any, len(ps))
	for i, p := range ps {
		out[i] = p.Value
	}
	return out
}

func TestPredicates(t *testing.T) {
	age := 30
	tests := []struct {
		name string
		pred expr.Node
		want string
	}{
		{"comparison", expr.Col("Age").Gt(40), `("Age" > 40)`},
		{"string literal", expr.Col("Name").Eq("O'Brien"), `("Name" = 'O''Brien')`},
		{"bare bool", expr.Col("Active"), `"Active" = 1`},
		{"negated bool", expr.Not(expr.Col("Active")), `NOT ("Active" = 1)`},
		{"bool comparison", expr.Col("Active").Eq(true), `("Active" = 1)`},
		{"is null", expr.Col("Name").IsNull(), `("Name" is null)`},
		{"is not null", expr.Col("Name").IsNotNull(), `("Name" is not null)`},
		{"null on the left", expr.Eq(nil, expr.Col("Name")), `("Name" is null)`},
		{"enum by name", expr.Col("Status").Eq(Shipped), `("Status" = 'Shipped')`},
		{"enum from text", expr.Col("Status").Eq("shipped"), `("Status" = 'Shipped')`},
		{"captured", expr.Col("Age").Ge(expr.Capture(func() any { return age })), `("Age" >= 30)`},
		{"constant folded", expr.Eq(expr.Add(1, 1), 2), `(1=1)`},
		{"constant false", expr.Gt(1, 2), `(1=0)`},
		{"in", expr.Col("ID").In(1, 2, 3), `"ID" IN (1,2,3)`},
		{"in spread", expr.Col("ID").In([]int{4, 5}), `"ID" IN (4,5)`},
		{"in empty", expr.Col("ID").In([]int{}), `"ID" IN (NULL)`},
		{"list contains", expr.ListContains([]string{"a", "b"}, expr.Col("Name")), `"Name" IN ('a','b')`},
		{"starts with", expr.Col("Name").StartsWith("J"), `"Name" LIKE 'J%'`},
		{"contains escaped", expr.Col("Name").Contains("50%"), `"Name" LIKE '%50^%%' ESCAPE '^'`},
		{"upper", expr.Col("Name").ToUpper().Eq("X"), `(upper("Name") = 'X')`},
		{"substring", expr.Col("Name").Substring(0, 2).Eq("ab"), `(substr("Name", 1, 2) = 'ab')`},
		{"substring wide ints", (&expr.Call{
			Method: expr.MethodSubstring,
			Target: expr.Col("Name"),
			Args:   []expr.Node{expr.V(int64(1)), expr.Capture(func() any { return uint16(3) })},
		}).Eq("bcd"), `(substr("Name", 2, 3) = 'bcd')`},
		{"arithmetic", expr.Gt(expr.Col("Age").Add(1), 18), `(("Age" + 1) > 18)`},
		{"concat", expr.Eq(expr.Col("Name").Add("!"), "a!"), `("Name" || '!' = 'a!')`},
		{"coalesce", expr.Eq(expr.Coalesce(expr.Col("Name"), "none"), "x"), `(COALESCE("Name", 'none') = 'x')`},
		{"equals method", expr.Col("Name").Equals("x"), `"Name" = 'x'`},
		{"logic", expr.Or(expr.Col("Age").Lt(18), expr.Col("Age").Gt(65)), `(("Age" < 18) OR ("Age" > 65))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := where(t, inline, tt.pred)
			assert.Equal(t, customerColumns+"\nWHERE "+tt.want, stmt.SQL)
			assert.Empty(t, stmt.Params)
		})
	}
}

func TestParameters(t *testing.T) {
	stmt := where(t, params, expr.Col("Age").Gt(40), expr.Col("Status").Eq(Pending), expr.Col("Name").StartsWith("J"))
	assert.Equal(t, customerColumns+`
WHERE ((("Age" > $1) AND ("Status" = $2)) AND "Name" LIKE $3)`, stmt.SQL)
	assert.Equal(t, []any{40, "Pending", "J%"}, paramValues(stmt.Params))

	enumAsInt := dialect.SQLite()
	require.NoError(t, enumAsInt.SetEnumAsInt(true))
	stmt = where(t, sqlexpr.Settings{Dialect: enumAsInt}, expr.Col("Status").Eq(Shipped))
	assert.Equal(t, customerColumns+"\nWHERE (\"Status\" = 1)", stmt.SQL)
}

func TestDeterminism(t *testing.T) {
	q := sqlexpr.From[Customer](params).Where(expr.Col("Age").Gt(40)).OrderBy(expr.Col("Name"))
	first, err := q.ToSelectStatement()
	require.NoError(t, err)
	second, err := q.Clone().ToSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	skipped, err := q.Clone().Skip(0).ToSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, first, skipped)

	branch, err := q.Clone().Where(expr.Col("Age").Lt(10)).ToSelectStatement()
	require.NoError(t, err)
	again, err := q.ToSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.NotEqual(t, first.SQL, branch.SQL)
	assert.Equal(t, []any{10}, paramValues(branch.Params))
}

func TestClauses(t *testing.T) {
	t.Run("order and page", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](inline).OrderByFields("-Age", "Name").Limit(10, 5).ToSelectStatement()
		require.NoError(t, err)
		assert.Equal(t, customerColumns+"\nORDER BY \"Age\" DESC, \"Name\"\nLIMIT 5 OFFSET 10", stmt.SQL)

		stmt, err = sqlexpr.From[Customer](inline).OrderBy(expr.Col("Age")).ThenByDescending(expr.Col("ID")).Take(3).ToSelectStatement()
		require.NoError(t, err)
		assert.Equal(t, customerColumns+"\nORDER BY \"Age\", \"ID\" DESC\nLIMIT 3", stmt.SQL)
	})

	t.Run("group by", func(t *testing.T) {
		stmt, err := sqlexpr.From[Order](inline).
			Select(expr.Col("CustomerID"), expr.Sum(expr.Col("Total")).As("Total")).
			GroupBy(expr.Col("CustomerID")).
			Having(expr.Sum(expr.Col("Total")).Gt(10)).
			ToSelectStatement()
		require.NoError(t, err)
		assert.Equal(t, "SELECT \"CustomerID\", SUM(\"Total\") AS \"Total\" \nFROM \"Order\"\nGROUP BY \"CustomerID\"\nHAVING (SUM(\"Total\") > 10)", stmt.SQL)
	})

	t.Run("distinct", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](inline).SelectDistinct(expr.Col("Name")).ToSelectStatement()
		require.NoError(t, err)
		assert.Equal(t, "SELECT DISTINCT \"Name\" \nFROM \"Customer\"", stmt.SQL)

		count, err := sqlexpr.From[Customer](inline).SelectDistinct(expr.Col("Name")).ToCountStatement()
		require.NoError(t, err)
		assert.Equal(t, "SELECT COUNT(*) FROM (SELECT DISTINCT \"Name\" \nFROM \"Customer\") AS \"sub\"", count.SQL)
	})

	t.Run("shape", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](inline).
			Select(expr.NewShape(expr.M("Name", expr.Col("Name")), expr.M("Years", expr.Col("Age")))).
			ToSelectStatement()
		require.NoError(t, err)
		assert.Equal(t, "SELECT \"Name\", \"Age\" AS \"Years\" \nFROM \"Customer\"", stmt.SQL)
	})

	t.Run("count and exists", func(t *testing.T) {
		q := sqlexpr.From[Customer](params).Where(expr.Col("Age").Lt(18)).OrderBy(expr.Col("Name")).Take(5)
		count, err := q.ToCountStatement()
		require.NoError(t, err)
		assert.Equal(t, "SELECT COUNT(*) \nFROM \"Customer\"\nWHERE (\"Age\" < $1)", count.SQL)

		exists, err := q.ToExistsStatement()
		require.NoError(t, err)
		assert.Equal(t, "SELECT EXISTS(SELECT 1 \nFROM \"Customer\"\nWHERE (\"Age\" < $1))", exists.SQL)
		assert.Equal(t, []any{18}, paramValues(exists.Params))
	})

	t.Run("or", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](inline).Where(expr.Col("Age").Lt(18)).Or(expr.Col("Active")).ToSelectStatement()
		require.NoError(t, err)
		assert.Equal(t, customerColumns+"\nWHERE (\"Age\" < 18) OR \"Active\" = 1", stmt.SQL)
	})
}

func TestJoins(t *testing.T) {
	q := sqlexpr.Join[Customer, Order](sqlexpr.From[Customer](params)).
		Where(expr.F[Order]("Total").Gt(100))
	stmt, err := q.ToSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "Customer"."ID", "Customer"."Name", "Customer"."Active", "Customer"."Age", "Customer"."Status", "Customer"."Version" `+
		"\nFROM \"Customer\" \nINNER JOIN \"Order\" ON \"Order\".\"CustomerID\" = \"Customer\".\"ID\"\nWHERE (\"Order\".\"Total\" > $1)", stmt.SQL)
	assert.Len(t, q.Tables(), 2)

	t.Run("select into", func(t *testing.T) {
		stmt, err := sqlexpr.SelectInto[CustomerTotal](sqlexpr.Join[Customer, Order](sqlexpr.From[Customer](inline)))
		require.NoError(t, err)
		assert.Equal(t, `SELECT "Customer"."Name", "Order"."Total", "Order"."ID" AS "OrderID" `+
			"\nFROM \"Customer\" \nINNER JOIN \"Order\" ON \"Order\".\"CustomerID\" = \"Customer\".\"ID\"", stmt.SQL)

		strict := inline
		strict.DisableGuessFallback = true
		stmt, err = sqlexpr.SelectInto[CustomerTotal](sqlexpr.Join[Customer, Order](sqlexpr.From[Customer](strict)))
		require.NoError(t, err)
		assert.NotContains(t, stmt.SQL, "OrderID")
	})

	t.Run("explicit condition", func(t *testing.T) {
		stmt, err := sqlexpr.LeftJoin[Customer, Tag](sqlexpr.From[Customer](inline), expr.Eq(expr.F[Tag]("Label"), expr.Col("Name"))).
			ToSelectStatement()
		require.NoError(t, err)
		assert.Contains(t, stmt.SQL, "\nLEFT JOIN \"Tag\" ON (\"Tag\".\"Label\" = \"Customer\".\"Name\")")
	})

	t.Run("no foreign key", func(t *testing.T) {
		_, err := sqlexpr.Join[Customer, Tag](sqlexpr.From[Customer](inline)).ToSelectStatement()
		assert.ErrorIs(t, err, schema.ErrAmbiguousRelation)
	})

	t.Run("not joined", func(t *testing.T) {
		_, err := sqlexpr.From[Customer](inline).Where(expr.F[Order]("Total").Gt(1)).ToSelectStatement()
		assert.ErrorIs(t, err, schema.ErrAmbiguousRelation)
	})

	t.Run("delete through join", func(t *testing.T) {
		stmt, err := sqlexpr.Join[Customer, Order](sqlexpr.From[Customer](inline)).
			Where(expr.F[Order]("Total").Eq(0)).
			ToDeleteRowStatement()
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "Customer" WHERE "ID" IN (SELECT "del"."ID" FROM (SELECT "Customer"."ID" `+
			"\nFROM \"Customer\" \nINNER JOIN \"Order\" ON \"Order\".\"CustomerID\" = \"Customer\".\"ID\"\nWHERE (\"Order\".\"Total\" = 0)) AS \"del\")", stmt.SQL)
	})
}

func TestSubQuery(t *testing.T) {
	big := sqlexpr.From[Order](params).Select(expr.Col("CustomerID")).Where(expr.Col("Total").Gt(100))
	stmt := where(t, params, expr.Col("Age").Gt(1), expr.InQuery(expr.Col("ID"), big))
	assert.Equal(t, customerColumns+"\nWHERE ((\"Age\" > $1) AND \"ID\" IN (SELECT \"CustomerID\" \nFROM \"Order\"\nWHERE (\"Total\" > $2)))", stmt.SQL)
	assert.Equal(t, []any{1, 100}, paramValues(stmt.Params))
}

func TestMutations(t *testing.T) {
	c := Customer{ID: 7, Name: "n", Age: 3, Status: Shipped, Version: 2}
	sqlite := sqlexpr.Settings{Dialect: dialect.Dialects.SQLite, Parameterized: true}

	t.Run("update", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](sqlite).ToUpdateStatement(c, false)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "Customer" SET "Name"=?1, "Active"=?2, "Age"=?3, "Status"=?4, "Version"="Version" + 1 WHERE "ID" = ?5 AND "Version" = ?6`, stmt.SQL)
		assert.Equal(t, []any{"n", false, 3, "Shipped", 7, int64(2)}, paramValues(stmt.Params))
	})

	t.Run("update fields", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](sqlite).UpdateFields("Name").ToUpdateStatement(c, false)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "Customer" SET "Name"=?1, "Version"="Version" + 1 WHERE "ID" = ?2 AND "Version" = ?3`, stmt.SQL)
	})

	t.Run("update non defaults with filter", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](sqlite).Where(expr.Col("Age").Lt(5)).
			ToUpdateStatement(Customer{Name: "x"}, true)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "Customer" SET "Name"=?1, "Version"="Version" + 1 WHERE ("Age" < ?2)`, stmt.SQL)
		assert.Equal(t, []any{"x", 5}, paramValues(stmt.Params))
	})

	t.Run("native row version", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](sqlexpr.Settings{Dialect: dialect.Dialects.SQLServer, Parameterized: true}).
			ToUpdateStatement(c, false)
		require.NoError(t, err)
		assert.NotContains(t, stmt.SQL, `"Version"="Version" + 1`)
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 2}, stmt.Params[len(stmt.Params)-1].Value)
	})

	t.Run("insert", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](params).ToInsertStatement(c)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "Customer" ("Name","Active","Age","Status") VALUES ($1,$2,$3,$4) RETURNING "ID"`, stmt.SQL)

		stmt, err = sqlexpr.From[Customer](params).InsertFields("Name").ToInsertStatement(c)
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "Customer" ("Name") VALUES ($1) RETURNING "ID"`, stmt.SQL)
	})

	t.Run("delete", func(t *testing.T) {
		stmt, err := sqlexpr.From[Customer](params).Where(expr.Col("Age").Lt(18)).ToDeleteRowStatement()
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "Customer" WHERE ("Age" < $1)`, stmt.SQL)
	})

	t.Run("wrong item", func(t *testing.T) {
		_, err := sqlexpr.FromModel(sqlite, schema.MustFor[Customer]()).ToInsertStatementFor(Order{})
		assert.ErrorIs(t, err, schema.ErrMalformedModel)
	})
}

func TestRawFragments(t *testing.T) {
	for _, ok := range []string{`"Name" = 'x'`, `"Age" > 3 AND "Active" = 1`, `"UpdatedAt" > now()`} {
		assert.NoError(t, sqlexpr.VerifyFragment(ok), ok)
	}
	for _, bad := range []string{"1; DROP TABLE x", "a -- comment", "/* x */ 1", "1 UNION SELECT 2", "exec sp_who"} {
		assert.ErrorIs(t, sqlexpr.VerifyFragment(bad), schema.ErrNotSupported, bad)
	}

	stmt, err := sqlexpr.From[Customer](params).WhereRaw(`"Age" > {0} AND "Name" <> {1}`, 5, "x").ToSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, customerColumns+"\nWHERE \"Age\" > $1 AND \"Name\" <> $2", stmt.SQL)
	assert.Equal(t, []any{5, "x"}, paramValues(stmt.Params))

	stmt, err = sqlexpr.From[Customer](inline).
		WhereRaw(`"Name" = {0} AND "Age" = {1}`, "{1}", "') OR 1=1 OR ('x'='").ToSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, customerColumns+"\nWHERE \"Name\" = '{1}' AND \"Age\" = ''') OR 1=1 OR (''x''='''", stmt.SQL)

	stmt, err = sqlexpr.From[Customer](params).WhereRaw(`"Age" > {0} OR "Age" < {0} - {1}`, 5, 2).ToSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, customerColumns+"\nWHERE \"Age\" > $1 OR \"Age\" < $1 - $2", stmt.SQL)
	assert.Equal(t, []any{5, 2}, paramValues(stmt.Params))

	stmt, err = sqlexpr.From[Customer](inline).SelectRaw(`SELECT "Name", "Age" * 2`).ToSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT \"Name\", \"Age\" * 2 \nFROM \"Customer\"", stmt.SQL)

	_, err = sqlexpr.From[Customer](inline).WhereRaw("1=1; delete from x").ToSelectStatement()
	assert.ErrorIs(t, err, schema.ErrNotSupported)
	_, err = sqlexpr.From[Customer](inline).OrderByRaw("1 --").ToSelectStatement()
	assert.ErrorIs(t, err, schema.ErrNotSupported)
}

func TestErrors(t *testing.T) {
	_, err := sqlexpr.From[Customer](inline).Where(expr.Col("Nope").Eq(1)).ToSelectStatement()
	assert.ErrorIs(t, err, schema.ErrMalformedModel)

	_, err = sqlexpr.From[Customer](inline).OrderByFields("Nope").ToSelectStatement()
	assert.ErrorIs(t, err, schema.ErrMalformedModel)

	_, err = sqlexpr.From[Customer](inline).Where(expr.V(5)).ToSelectStatement()
	assert.ErrorIs(t, err, schema.ErrNotSupported)

	_, err = sqlexpr.From[Customer](sqlexpr.Settings{}).ToSelectStatement()
	assert.Error(t, err)

	_, err = sqlexpr.From[Customer](sqlexpr.Settings{Dialect: dialect.Dialects.SQLServer2008}).
		SelectDistinct(expr.Col("Name")).Skip(1).Take(1).ToSelectStatement()
	assert.ErrorIs(t, err, schema.ErrNotSupported)
}

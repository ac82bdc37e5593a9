package ormlite

import (
	"reflect"
	"testing"
	"time"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
	"github.com/golobby/ormlite/sqlexpr"
)

func BenchmarkSelectStatement(b *testing.B) {
	s := sqlexpr.Settings{Dialect: dialect.Dialects.PostgreSQL, Parameterized: true}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		q := sqlexpr.From[bindUser](s).
			Where(expr.Col("Name").Eq("amirreza"), expr.Col("Active").Eq(true)).
			OrderByDescending(expr.Col("CreatedAt")).
			Limit(20, 10)
		if _, err := q.ToSelectStatement(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBindRow(b *testing.B) {
	d := dialect.Dialects.SQLite
	md := schema.MustFor[bindUser]()
	columns := []string{"ID", "Name", "Score", "Active", "Nick", "CreatedAt", "Version"}
	raw := []any{int64(1), []byte("amirreza"), 1.5, int64(1), nil, time.Now(), int64(3)}
	p := planFor(d, md, columns)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		item := reflect.New(md.Type)
		if err := bindRow(d, p, item.Elem(), raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPlanLookup(b *testing.B) {
	d := dialect.Dialects.SQLite
	md := schema.MustFor[bindUser]()
	columns := []string{"ID", "Name", "Score", "Active", "Nick", "CreatedAt", "Version"}
	for i := 0; i < b.N; i++ {
		planFor(d, md, columns)
	}
}

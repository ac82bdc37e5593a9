package ormlite

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
	"github.com/golobby/ormlite/sqlexpr"
)

var errTwoColumns = errors.New("dictionary and lookup queries need two columns")

func (db *DB) logger() Logger {
	if db.log == nil {
		return nopLogger
	}
	return db.log
}

func logCommand(c Conn, cmd *Command) {
	c.database().logger().Debugf("%s %v", cmd.Text, cmd.Args())
}

// queryRows runs cmd and hands the open rows to fn. Rows are closed and the session released
// before it returns, so fn must not run other statements on c.
func queryRows(ctx context.Context, c Conn, cmd *Command, fn func(rows *sql.Rows) error) error {
	ex, release := c.session(ctx)
	defer release()
	logCommand(c, cmd)
	rows, cancel, err := cmd.query(ctx, ex)
	if err != nil {
		return err
	}
	defer cancel()
	defer rows.Close()
	if err := fn(rows); err != nil {
		return err
	}
	return rows.Err()
}

func execCommand(ctx context.Context, c Conn, cmd *Command) (sql.Result, error) {
	ex, release := c.session(ctx)
	defer release()
	logCommand(c, cmd)
	return cmd.exec(ctx, ex)
}

// execRows runs a non-query and returns the affected row count.
func execRows(ctx context.Context, c Conn, cmd *Command) (int64, error) {
	if f := filterFor(ctx); f != nil {
		return f.ExecuteSQL(cmd)
	}
	res, err := execCommand(ctx, c, cmd)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// readScalar returns the first column of the first row, nil when there are no rows.
func readScalar(ctx context.Context, c Conn, cmd *Command, t reflect.Type) (any, error) {
	if f := filterFor(ctx); f != nil {
		return f.GetScalar(cmd, t)
	}
	var v any
	err := queryRows(ctx, c, cmd, func(rows *sql.Rows) error {
		return eachRow(rows, func(_ []string, raw []any) error {
			if v == nil {
				v = raw[0]
			}
			return nil
		})
	})
	return v, err
}

func scalarResult[V any](ctx context.Context, c Conn, cmd *Command) (V, error) {
	raw, err := readScalar(ctx, c, cmd, reflect.TypeOf((*V)(nil)).Elem())
	if err != nil {
		var zero V
		return zero, err
	}
	if filterFor(ctx) != nil {
		return filtered[V](raw)
	}
	return scalarOf[V](cmd.dialect, raw)
}

func selectModels[T any](ctx context.Context, c Conn, md *schema.ModelDefinition, stmt sqlexpr.Statement) ([]T, error) {
	cmd := newCommand(ctx, c, stmt)
	if f := filterFor(ctx); f != nil {
		v, err := f.GetList(cmd, reflect.TypeOf((*T)(nil)).Elem())
		if err != nil {
			return nil, err
		}
		return filtered[[]T](v)
	}
	var out []T
	err := queryRows(ctx, c, cmd, func(rows *sql.Rows) error {
		var err error
		out, err = bindModels[T](cmd.dialect, md, rows)
		return err
	})
	return out, err
}

func orDefault[T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) *sqlexpr.Query[T] {
	if q == nil {
		return From[T](ctx, c)
	}
	return q
}

// Select runs q and hydrates every row into a T. A nil q selects the whole table.
func Select[T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) ([]T, error) {
	q = orDefault(ctx, c, q)
	stmt, err := q.ToSelectStatement()
	if err != nil {
		return nil, err
	}
	return selectModels[T](ctx, c, q.Model(), stmt)
}

func SelectWhere[T any](ctx context.Context, c Conn, preds ...expr.Node) ([]T, error) {
	return Select(ctx, c, From[T](ctx, c).Where(preds...))
}

// Single returns the first row q matches, or nil when there is none.
func Single[T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) (*T, error) {
	q = orDefault(ctx, c, q).Clone().Take(1)
	stmt, err := q.ToSelectStatement()
	if err != nil {
		return nil, err
	}
	cmd := newCommand(ctx, c, stmt)
	if f := filterFor(ctx); f != nil {
		v, err := f.GetSingle(cmd, reflect.TypeOf((*T)(nil)).Elem())
		if err != nil || v == nil {
			return nil, err
		}
		if p, ok := v.(*T); ok {
			return p, nil
		}
		t, err := filtered[T](v)
		return &t, err
	}
	var out []*T
	err = queryRows(ctx, c, cmd, func(rows *sql.Rows) error {
		var err error
		out, err = bindModels[*T](cmd.dialect, q.Model(), rows)
		return err
	})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func SingleByID[T any](ctx context.Context, c Conn, id any) (*T, error) {
	md, err := schema.For[T]()
	if err != nil {
		return nil, err
	}
	pk, err := md.MustPrimaryKey("single by id")
	if err != nil {
		return nil, err
	}
	return Single(ctx, c, From[T](ctx, c).Where(expr.Col(pk.Name).Eq(id)))
}

// Scalar returns the first column of the first row, typically of an aggregate select.
func Scalar[V any, T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) (V, error) {
	stmt, err := q.ToSelectStatement()
	if err != nil {
		var zero V
		return zero, err
	}
	return scalarResult[V](ctx, c, newCommand(ctx, c, stmt))
}

// Column returns the first column of every row.
func Column[V any, T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) ([]V, error) {
	stmt, err := q.ToSelectStatement()
	if err != nil {
		return nil, err
	}
	cmd := newCommand(ctx, c, stmt)
	if f := filterFor(ctx); f != nil {
		v, err := f.GetColumn(cmd, reflect.TypeOf((*V)(nil)).Elem())
		if err != nil {
			return nil, err
		}
		return filtered[[]V](v)
	}
	var out []V
	err = queryRows(ctx, c, cmd, func(rows *sql.Rows) error {
		return eachRow(rows, func(_ []string, raw []any) error {
			v, err := scalarOf[V](cmd.dialect, raw[0])
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
	})
	return out, err
}

func ColumnDistinct[V any, T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) ([]V, error) {
	return Column[V](ctx, c, q.Clone().Distinct())
}

// Dictionary maps the first column of every row to the second.
func Dictionary[K comparable, V any, T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) (map[K]V, error) {
	stmt, err := q.ToSelectStatement()
	if err != nil {
		return nil, err
	}
	cmd := newCommand(ctx, c, stmt)
	if f := filterFor(ctx); f != nil {
		v, err := f.GetDictionary(cmd, reflect.TypeOf((*K)(nil)).Elem(), reflect.TypeOf((*V)(nil)).Elem())
		if err != nil {
			return nil, err
		}
		return filtered[map[K]V](v)
	}
	out := map[K]V{}
	err = queryRows(ctx, c, cmd, func(rows *sql.Rows) error {
		return eachRow(rows, func(_ []string, raw []any) error {
			k, v, err := pair[K, V](cmd.dialect, raw)
			if err != nil {
				return err
			}
			out[k] = v
			return nil
		})
	})
	return out, err
}

// Lookup groups the second column of every row by the first.
func Lookup[K comparable, V any, T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) (map[K][]V, error) {
	stmt, err := q.ToSelectStatement()
	if err != nil {
		return nil, err
	}
	cmd := newCommand(ctx, c, stmt)
	if f := filterFor(ctx); f != nil {
		v, err := f.GetLookup(cmd, reflect.TypeOf((*K)(nil)).Elem(), reflect.TypeOf((*V)(nil)).Elem())
		if err != nil {
			return nil, err
		}
		return filtered[map[K][]V](v)
	}
	out := map[K][]V{}
	err = queryRows(ctx, c, cmd, func(rows *sql.Rows) error {
		return eachRow(rows, func(_ []string, raw []any) error {
			k, v, err := pair[K, V](cmd.dialect, raw)
			if err != nil {
				return err
			}
			out[k] = append(out[k], v)
			return nil
		})
	})
	return out, err
}

func pair[K, V any](d dialect.Provider, raw []any) (K, V, error) {
	var (
		k K
		v V
	)
	if len(raw) < 2 {
		return k, v, errTwoColumns
	}
	k, err := scalarOf[K](d, raw[0])
	if err != nil {
		return k, v, err
	}
	v, err = scalarOf[V](d, raw[1])
	return k, v, err
}

// Count counts the rows q matches, ignoring its paging.
func Count[T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) (int64, error) {
	stmt, err := orDefault(ctx, c, q).ToCountStatement()
	if err != nil {
		return 0, err
	}
	return scalarResult[int64](ctx, c, newCommand(ctx, c, stmt))
}

func Exists[T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) (bool, error) {
	stmt, err := orDefault(ctx, c, q).ToExistsStatement()
	if err != nil {
		return false, err
	}
	return scalarResult[bool](ctx, c, newCommand(ctx, c, stmt))
}

// SelectInto runs q projected onto the shape of Into and hydrates Into values.
func SelectInto[Into any, T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) ([]Into, error) {
	into, err := schema.For[Into]()
	if err != nil {
		return nil, err
	}
	stmt, err := q.SelectIntoModel(into)
	if err != nil {
		return nil, err
	}
	return selectModels[Into](ctx, c, into, stmt)
}

// SelectMaps returns every row as a column name to value map.
func SelectMaps[T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) ([]map[string]any, error) {
	stmt, err := orDefault(ctx, c, q).ToSelectStatement()
	if err != nil {
		return nil, err
	}
	cmd := newCommand(ctx, c, stmt)
	if f := filterFor(ctx); f != nil {
		v, err := f.GetList(cmd, reflect.TypeOf((*map[string]any)(nil)).Elem())
		if err != nil {
			return nil, err
		}
		return filtered[[]map[string]any](v)
	}
	var out []map[string]any
	err = queryRows(ctx, c, cmd, func(rows *sql.Rows) error {
		var err error
		out, err = bindMaps(rows)
		return err
	})
	return out, err
}

func bindSQL(ctx context.Context, c Conn, text string, named map[string]any) (*Command, error) {
	d := dialectFor(ctx, c.database())
	query, params, err := d.BindNamed(text, named)
	if err != nil {
		return nil, err
	}
	return newCommand(ctx, c, sqlexpr.Statement{SQL: query, Params: params}), nil
}

// SQLList runs hand written SQL with @name parameters taken from named and hydrates T.
func SQLList[T any](ctx context.Context, c Conn, text string, named map[string]any) ([]T, error) {
	md, err := schema.For[T]()
	if err != nil {
		return nil, err
	}
	cmd, err := bindSQL(ctx, c, text, named)
	if err != nil {
		return nil, err
	}
	stmt := sqlexpr.Statement{SQL: cmd.Text, Params: cmd.Params}
	return selectModels[T](ctx, c, md, stmt)
}

func SQLScalar[V any](ctx context.Context, c Conn, text string, named map[string]any) (V, error) {
	cmd, err := bindSQL(ctx, c, text, named)
	if err != nil {
		var zero V
		return zero, err
	}
	return scalarResult[V](ctx, c, cmd)
}

// ExecSQL runs a hand written non-query and returns the affected row count.
func ExecSQL(ctx context.Context, c Conn, text string, named map[string]any) (int64, error) {
	cmd, err := bindSQL(ctx, c, text, named)
	if err != nil {
		return 0, err
	}
	return execRows(ctx, c, cmd)
}

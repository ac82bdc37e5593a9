package ormlite

import (
	"context"
	"fmt"
	"reflect"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
	"github.com/golobby/ormlite/sqlexpr"
)

// Insert writes item and sets its auto increment key and row version from the database.
// CreatedAt and UpdatedAt are stamped when unset.
func Insert[T any](ctx context.Context, c Conn, item *T) error {
	q := From[T](ctx, c)
	if err := q.Err(); err != nil {
		return err
	}
	md := q.Model()
	v := reflect.ValueOf(item).Elem()
	stampInsert(md, v)
	stmt, err := q.ToInsertStatement(*item)
	if err != nil {
		return err
	}
	cmd := newCommand(ctx, c, stmt)
	d := cmd.dialect

	if pk := md.PrimaryKey; pk != nil && pk.AutoIncrement {
		id, err := insertIdentity(ctx, c, cmd)
		if err != nil {
			return err
		}
		if id != nil {
			if err := assign(d, pk.Field(v), pk, id); err != nil {
				return fmt.Errorf("reading generated key: %w", err)
			}
		}
	} else if _, err := execRows(ctx, c, cmd); err != nil {
		return err
	}
	return refreshRowVersion(ctx, c, d, md, v, true)
}

func insertIdentity(ctx context.Context, c Conn, cmd *Command) (any, error) {
	if cmd.dialect.IdentityStrategy() != dialect.IdentityLastInsertID {
		return readScalar(ctx, c, cmd, reflect.TypeOf((*int64)(nil)).Elem())
	}
	if f := filterFor(ctx); f != nil {
		_, err := f.ExecuteSQL(cmd)
		return nil, err
	}
	res, err := execCommand(ctx, c, cmd)
	if err != nil {
		return nil, err
	}
	return res.LastInsertId()
}

// refreshRowVersion brings the row version on v in line with the stored row. Emulated versions
// start at 1 and are incremented by every versioned update. Native versions, and emulated ones
// after an update that did not carry a version, are read back.
func refreshRowVersion(ctx context.Context, c Conn, d dialect.Provider, md *schema.ModelDefinition, v reflect.Value, inserted bool) error {
	rv := md.RowVersion
	if rv == nil {
		return nil
	}
	if !d.RowVersionNative() && (inserted || !rv.IsZero(v)) {
		next := int64(1)
		if !inserted {
			cur, err := toInt64(reflect.Indirect(reflect.ValueOf(rv.Get(v))).Interface())
			if err != nil {
				return err
			}
			next = cur + 1
		}
		return assign(d, rv.Field(v), rv, next)
	}
	text, err := d.ToRowVersionStatement(md)
	if err != nil {
		return err
	}
	key, err := d.ToDBValue(md.PrimaryKey, md.PrimaryKey.Get(v))
	if err != nil {
		return err
	}
	query, params := d.Finalize(text, []dialect.Param{{Value: key}})
	raw, err := readScalar(ctx, c, newCommand(ctx, c, sqlexpr.Statement{SQL: query, Params: params}), rv.Type)
	if err != nil || raw == nil {
		return err
	}
	return assign(d, rv.Field(v), rv, raw)
}

// InsertAll inserts every item, in one transaction when c is a *DB.
func InsertAll[T any](ctx context.Context, c Conn, items ...*T) error {
	return inBatch(ctx, c, func(ctx context.Context, c Conn) error {
		for _, item := range items {
			if err := Insert(ctx, c, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func inBatch(ctx context.Context, c Conn, fn func(ctx context.Context, c Conn) error) error {
	db, ok := c.(*DB)
	if !ok || filterFor(ctx) != nil {
		return fn(ctx, c)
	}
	return InTransaction(ctx, db, func(ctx context.Context, tx *Tx) error {
		return fn(ctx, tx)
	})
}

// Update writes every updatable field of item, addressing the row by primary key and, when item
// carries one, its row version. A versioned update that matches nothing fails with
// ErrOptimisticConcurrency.
func Update[T any](ctx context.Context, c Conn, item *T) error {
	q := From[T](ctx, c)
	if err := q.Err(); err != nil {
		return err
	}
	md := q.Model()
	v := reflect.ValueOf(item).Elem()
	stampUpdate(md, v)
	stmt, err := q.ToUpdateStatement(*item, false)
	if err != nil {
		return err
	}
	cmd := newCommand(ctx, c, stmt)
	n, err := execRows(ctx, c, cmd)
	if err != nil {
		return err
	}
	if rv := md.RowVersion; rv != nil {
		if n == 0 && !rv.IsZero(v) {
			return fmt.Errorf("%w: %s", ErrOptimisticConcurrency, md.Name)
		}
		return refreshRowVersion(ctx, c, cmd.dialect, md, v, false)
	}
	return nil
}

func UpdateAll[T any](ctx context.Context, c Conn, items ...*T) error {
	return inBatch(ctx, c, func(ctx context.Context, c Conn) error {
		for _, item := range items {
			if err := Update(ctx, c, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateOnly writes the fields named by q.UpdateFields, every updatable field when none are named,
// to the rows q's filter matches, or to item's row without a filter.
func UpdateOnly[T any](ctx context.Context, c Conn, item *T, q *sqlexpr.Query[T]) (int64, error) {
	stmt, err := orDefault(ctx, c, q).ToUpdateStatement(*item, false)
	if err != nil {
		return 0, err
	}
	return execRows(ctx, c, newCommand(ctx, c, stmt))
}

// UpdateNonDefaults writes the fields of item that differ from their zero value to the rows preds
// match, or to item's row without preds.
func UpdateNonDefaults[T any](ctx context.Context, c Conn, item *T, preds ...expr.Node) (int64, error) {
	stmt, err := From[T](ctx, c).Where(preds...).ToUpdateStatement(*item, true)
	if err != nil {
		return 0, err
	}
	return execRows(ctx, c, newCommand(ctx, c, stmt))
}

// Save inserts item when its key is unset or no row has it, and updates it otherwise.
// It reports whether a row was inserted.
func Save[T any](ctx context.Context, c Conn, item *T) (bool, error) {
	md, err := schema.For[T]()
	if err != nil {
		return false, err
	}
	pk, err := md.MustPrimaryKey("save")
	if err != nil {
		return false, err
	}
	v := reflect.ValueOf(item).Elem()
	if !pk.IsZero(v) {
		exists, err := Exists(ctx, c, From[T](ctx, c).Where(expr.Col(pk.Name).Eq(pk.Get(v))))
		if err != nil {
			return false, err
		}
		if exists {
			return false, Update(ctx, c, item)
		}
	}
	return true, Insert(ctx, c, item)
}

// Delete removes item's row by primary key, and row version when it carries one.
func Delete[T any](ctx context.Context, c Conn, item *T) error {
	md, err := schema.For[T]()
	if err != nil {
		return err
	}
	pk, err := md.MustPrimaryKey("delete")
	if err != nil {
		return err
	}
	v := reflect.ValueOf(item).Elem()
	preds := []expr.Node{expr.Col(pk.Name).Eq(pk.Get(v))}
	rv := md.RowVersion
	versioned := rv != nil && !rv.IsZero(v)
	if versioned {
		preds = append(preds, expr.Col(rv.Name).Eq(rv.Get(v)))
	}
	n, err := DeleteWhere[T](ctx, c, preds...)
	if err != nil {
		return err
	}
	if versioned && n == 0 {
		return fmt.Errorf("%w: %s", ErrOptimisticConcurrency, md.Name)
	}
	return nil
}

func DeleteByID[T any](ctx context.Context, c Conn, id any) (int64, error) {
	md, err := schema.For[T]()
	if err != nil {
		return 0, err
	}
	pk, err := md.MustPrimaryKey("delete by id")
	if err != nil {
		return 0, err
	}
	return DeleteWhere[T](ctx, c, expr.Col(pk.Name).Eq(id))
}

// DeleteWhere deletes the rows preds match. Without preds it empties the table.
func DeleteWhere[T any](ctx context.Context, c Conn, preds ...expr.Node) (int64, error) {
	return DeleteQuery(ctx, c, From[T](ctx, c).Where(preds...))
}

// DeleteQuery deletes the rows q matches, joins included.
func DeleteQuery[T any](ctx context.Context, c Conn, q *sqlexpr.Query[T]) (int64, error) {
	stmt, err := q.ToDeleteRowStatement()
	if err != nil {
		return 0, err
	}
	return execRows(ctx, c, newCommand(ctx, c, stmt))
}

func ddl(ctx context.Context, c Conn, text string) error {
	_, err := execRows(ctx, c, newCommand(ctx, c, sqlexpr.Statement{SQL: text}))
	return err
}

// CreateTable creates T's table. An existing table is kept unless overwrite is set, in which
// case it is dropped first.
func CreateTable[T any](ctx context.Context, c Conn, overwrite bool) error {
	md, err := schema.For[T]()
	if err != nil {
		return err
	}
	exists, err := TableExists[T](ctx, c)
	if err != nil {
		return err
	}
	if exists {
		if !overwrite {
			return nil
		}
		if err := DropTable[T](ctx, c); err != nil {
			return err
		}
	}
	text, err := dialectFor(ctx, c.database()).ToCreateTableStatement(md)
	if err != nil {
		return err
	}
	return ddl(ctx, c, text)
}

func DropTable[T any](ctx context.Context, c Conn) error {
	md, err := schema.For[T]()
	if err != nil {
		return err
	}
	return ddl(ctx, c, dialectFor(ctx, c.database()).ToDropTableStatement(md))
}

func TableExists[T any](ctx context.Context, c Conn) (bool, error) {
	md, err := schema.For[T]()
	if err != nil {
		return false, err
	}
	d := dialectFor(ctx, c.database())
	text, params := d.ToTableExistsStatement(md)
	query, params := d.Finalize(text, params)
	n, err := scalarResult[int64](ctx, c, newCommand(ctx, c, sqlexpr.Statement{SQL: query, Params: params}))
	return n > 0, err
}

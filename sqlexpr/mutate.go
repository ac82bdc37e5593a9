package sqlexpr

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/schema"
)

func (s *state) fieldsNamed(names []string) ([]*schema.FieldDefinition, error) {
	fs := make([]*schema.FieldDefinition, 0, len(names))
	for _, name := range names {
		f := s.model.FieldByName(name)
		if f == nil {
			return nil, fmt.Errorf("%w: %s has no field %s", schema.ErrMalformedModel, s.model.Name, name)
		}
		fs = append(fs, f)
	}
	return fs, nil
}

func itemValue(item any) reflect.Value {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return v
}

// ToUpdateStatement renders an UPDATE of item. UpdateFields limits the written fields, otherwise
// every updatable field is written; excludeDefaults drops fields holding their zero value. Without
// a filter the row is addressed by primary key plus the row version item carries. An emulated row
// version is incremented by the statement itself.
func (q *Query[T]) ToUpdateStatement(item T, excludeDefaults bool) (Statement, error) {
	return q.updateStatement(item, excludeDefaults)
}

func (s *state) updateStatement(item any, excludeDefaults bool) (Statement, error) {
	if s.err != nil {
		return Statement{}, s.err
	}
	if len(s.tables) > 1 {
		return Statement{}, dialect.NewUnsupportedError(s.d.Name(), "UPDATE with joins")
	}
	v := itemValue(item)
	if !v.IsValid() || v.Type() != s.model.Type {
		return Statement{}, fmt.Errorf("%w: cannot update %T through a query on %s", schema.ErrMalformedModel, item, s.model.Name)
	}

	fields := s.model.FieldsForUpdate()
	if len(s.updateFields) > 0 {
		var err error
		if fields, err = s.fieldsNamed(s.updateFields); err != nil {
			return Statement{}, err
		}
	}
	var sets []string
	for _, f := range fields {
		if f.IsRowVersion || f.IsComputed {
			continue
		}
		if excludeDefaults && f.IsZero(v) {
			continue
		}
		sets = append(sets, s.d.QuoteColumn(s.d.ColumnName(f))+"="+s.value(f.Get(v), f))
	}
	if len(sets) == 0 {
		return Statement{}, fmt.Errorf("%w: nothing to update on %s", schema.ErrMalformedModel, s.model.Name)
	}
	rv := s.model.RowVersion
	if rv != nil && !s.d.RowVersionNative() {
		col := s.d.QuoteColumn(s.d.ColumnName(rv))
		sets = append(sets, col+"="+col+" + 1")
	}

	where := s.where
	if where == "" {
		pk, err := s.model.MustPrimaryKey("update by primary key")
		if err != nil {
			return Statement{}, err
		}
		where = s.d.QuoteColumn(s.d.ColumnName(pk)) + " = " + s.value(pk.Get(v), pk)
		if rv != nil && !rv.IsZero(v) {
			where += " AND " + s.d.QuoteColumn(s.d.ColumnName(rv)) + " = " + s.value(rv.Get(v), rv)
		}
	}
	if s.err != nil {
		return Statement{}, s.err
	}
	sql := "UPDATE " + s.d.QuoteTable(s.model) + " SET " + strings.Join(sets, ", ") + " WHERE " + where
	return s.finalize(sql), nil
}

// ToInsertStatement renders an INSERT of item. Auto increment keys are returned through the
// dialect's identity strategy; row versions are left to the column default.
func (q *Query[T]) ToInsertStatement(item T) (Statement, error) {
	return q.insertStatement(item)
}

func (s *state) insertStatement(item any) (Statement, error) {
	if s.err != nil {
		return Statement{}, s.err
	}
	v := itemValue(item)
	if !v.IsValid() || v.Type() != s.model.Type {
		return Statement{}, fmt.Errorf("%w: cannot insert %T through a query on %s", schema.ErrMalformedModel, item, s.model.Name)
	}
	fields := s.model.FieldsForInsert()
	if len(s.insertFields) > 0 {
		var err error
		if fields, err = s.fieldsNamed(s.insertFields); err != nil {
			return Statement{}, err
		}
	}
	var cols, vals []string
	for _, f := range fields {
		if f.IsRowVersion {
			continue
		}
		val := s.value(f.Get(v), f)
		if f.CustomInsert != "" {
			val = strings.ReplaceAll(f.CustomInsert, "{0}", val)
		}
		cols = append(cols, s.d.QuoteColumn(s.d.ColumnName(f)))
		vals = append(vals, val)
	}
	if s.err != nil {
		return Statement{}, s.err
	}
	var returning *schema.FieldDefinition
	if pk := s.model.PrimaryKey; pk != nil && pk.AutoIncrement {
		returning = pk
	}
	return s.finalize(s.d.ToInsertStatement(s.model, cols, vals, returning)), nil
}

// ToUpdateStatementFor and ToInsertStatementFor take items of any type, for queries built with FromModel.
func (q *Query[T]) ToUpdateStatementFor(item any, excludeDefaults bool) (Statement, error) {
	return q.updateStatement(item, excludeDefaults)
}

func (q *Query[T]) ToInsertStatementFor(item any) (Statement, error) {
	return q.insertStatement(item)
}

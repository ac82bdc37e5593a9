package sqlexpr

import (
	"fmt"
	"strings"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/schema"
)

// defaultSelectList lists every column of the root model, qualified once the query has joins.
func (s *state) defaultSelectList() string {
	cols := make([]string, 0, len(s.model.Fields))
	for _, f := range s.model.Fields {
		cols = append(cols, s.selectColumn(s.model, f, ""))
	}
	return strings.Join(cols, ", ")
}

// selectColumn renders a column for a select list, aliased when as differs from its name.
func (s *state) selectColumn(md *schema.ModelDefinition, f *schema.FieldDefinition, as string) string {
	name := s.d.ColumnName(f)
	if as == "" {
		as = name
	}
	if f.CustomSelect != "" {
		return f.CustomSelect + " AS " + s.d.QuoteColumn(as)
	}
	col := s.column(md, f)
	if as != name {
		col += " AS " + s.d.QuoteColumn(as)
	}
	return col
}

func (s *state) parts(selectList string) dialect.SelectParts {
	p := dialect.SelectParts{
		Model:    s.model,
		Distinct: s.distinct,
		From:     s.from,
		Where:    s.where,
		GroupBy:  s.groupBy,
		Having:   s.having,
		Offset:   s.offset,
		Rows:     s.rows,
	}
	p.Select = "SELECT "
	if s.distinct {
		p.Select += "DISTINCT "
	}
	p.Select += selectList
	if len(s.orderBy) > 0 {
		p.OrderBy = "ORDER BY " + strings.Join(s.orderBy, ", ")
	}
	return p
}

func (s *state) renderSelect(selectList string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if selectList == "" {
		selectList = s.selectExpr
	}
	if selectList == "" {
		selectList = s.defaultSelectList()
	}
	return s.d.ToSelectStatement(s.parts(selectList))
}

func (s *state) finalize(text string) Statement {
	sql, params := s.d.Finalize(text, s.params)
	return Statement{SQL: sql, Params: params}
}

// ToSelectStatement renders the SELECT with paging applied by the dialect.
func (q *Query[T]) ToSelectStatement() (Statement, error) {
	text, err := q.renderSelect("")
	if err != nil {
		return Statement{}, err
	}
	return q.finalize(text), nil
}

// RenderSubQuery renders the SELECT for nesting, placeholders still positional.
func (q *Query[T]) RenderSubQuery() (string, []any, error) {
	text, err := q.renderSelect("")
	if err != nil {
		return "", nil, err
	}
	values := make([]any, len(q.params))
	for i, p := range q.params {
		values[i] = p.Value
	}
	return text, values, nil
}

// ToCountStatement counts the rows the query matches, ignoring ordering and paging.
// Grouped and distinct queries are counted through a derived table.
func (q *Query[T]) ToCountStatement() (Statement, error) {
	if q.err != nil {
		return Statement{}, q.err
	}
	p := q.parts("COUNT(*)")
	p.OrderBy, p.Offset, p.Rows = "", nil, nil
	if q.groupBy != "" || q.distinct {
		list := q.selectExpr
		if list == "" {
			list = q.defaultSelectList()
		}
		inner := q.parts(list)
		inner.OrderBy, inner.Offset, inner.Rows = "", nil, nil
		sub, err := q.d.ToSelectStatement(inner)
		if err != nil {
			return Statement{}, err
		}
		return q.finalize("SELECT COUNT(*) FROM (" + sub + ") AS " + q.d.QuoteColumn("sub")), nil
	}
	p.Distinct = false
	text, err := q.d.ToSelectStatement(p)
	if err != nil {
		return Statement{}, err
	}
	return q.finalize(text), nil
}

// ToExistsStatement asks whether any row matches.
func (q *Query[T]) ToExistsStatement() (Statement, error) {
	if q.err != nil {
		return Statement{}, q.err
	}
	p := q.parts("1")
	p.Distinct, p.OrderBy, p.Offset, p.Rows = false, "", nil, nil
	text, err := q.d.ToSelectStatement(p)
	if err != nil {
		return Statement{}, err
	}
	return q.finalize(q.d.ToExistsStatement(text)), nil
}

// ToDeleteRowStatement deletes the rows the filter matches. With joins the rows are selected by
// primary key through a derived table.
func (q *Query[T]) ToDeleteRowStatement() (Statement, error) {
	if q.err != nil {
		return Statement{}, q.err
	}
	table := q.d.QuoteTable(q.model)
	if len(q.tables) == 1 {
		sql := "DELETE FROM " + table
		if q.where != "" {
			sql += " WHERE " + q.where
		}
		return q.finalize(sql), nil
	}
	pk, err := q.model.MustPrimaryKey("delete with joins")
	if err != nil {
		return Statement{}, err
	}
	p := q.parts(q.qualified(q.model, pk))
	p.OrderBy, p.Offset, p.Rows = "", nil, nil
	inner, err := q.d.ToSelectStatement(p)
	if err != nil {
		return Statement{}, err
	}
	pkCol := q.d.QuoteColumn(q.d.ColumnName(pk))
	alias := q.d.QuoteColumn("del")
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT %s.%s FROM (%s) AS %s)", table, pkCol, alias, pkCol, inner, alias)
	return q.finalize(sql), nil
}

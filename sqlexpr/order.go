package sqlexpr

import (
	"fmt"
	"strings"

	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
)

// OrderBy replaces the ordering. No nodes clears it.
func (q *Query[T]) OrderBy(nodes ...expr.Node) *Query[T] {
	q.orderBy = nil
	return q.ThenBy(nodes...)
}

func (q *Query[T]) OrderByDescending(nodes ...expr.Node) *Query[T] {
	q.orderBy = nil
	return q.ThenByDescending(nodes...)
}

func (q *Query[T]) ThenBy(nodes ...expr.Node) *Query[T] {
	for _, n := range nodes {
		q.orderBy = append(q.orderBy, q.compile(n))
	}
	return q
}

func (q *Query[T]) ThenByDescending(nodes ...expr.Node) *Query[T] {
	for _, n := range nodes {
		q.orderBy = append(q.orderBy, q.compile(n)+" DESC")
	}
	return q
}

// OrderByFields orders by field names, a leading - meaning descending.
func (q *Query[T]) OrderByFields(names ...string) *Query[T] {
	q.orderBy = nil
	for _, name := range names {
		name = strings.TrimSpace(name)
		desc := strings.HasPrefix(name, "-")
		name = strings.TrimPrefix(name, "-")
		md, fd := q.resolveField(name)
		if fd == nil {
			q.fail(fmt.Errorf("%w: no field %s to order %s by", schema.ErrMalformedModel, name, q.model.Name))
			return q
		}
		col := q.column(md, fd)
		if desc {
			col += " DESC"
		}
		q.orderBy = append(q.orderBy, col)
	}
	return q
}

func (q *Query[T]) OrderByRaw(sql string) *Query[T] {
	if err := VerifyFragment(sql); err != nil {
		q.fail(err)
		return q
	}
	q.orderBy = []string{sql}
	return q
}

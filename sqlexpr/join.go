package sqlexpr

import (
	"fmt"

	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
)

const (
	innerJoin = "INNER JOIN"
	leftJoin  = "LEFT JOIN"
	rightJoin = "RIGHT JOIN"
	fullJoin  = "FULL JOIN"
	crossJoin = "CROSS JOIN"
)

// Join adds an INNER JOIN between S and J. Without an on predicate the condition is inferred from
// a foreign key of S pointing at J or of J pointing at S. The joined table is J, or S when J is
// already part of the query.
func Join[S, J any, T any](q *Query[T], on ...expr.Node) *Query[T] {
	q.joinTypes(innerJoin, modelFor[S](&q.state), modelFor[J](&q.state), on)
	return q
}

func LeftJoin[S, J any, T any](q *Query[T], on ...expr.Node) *Query[T] {
	q.joinTypes(leftJoin, modelFor[S](&q.state), modelFor[J](&q.state), on)
	return q
}

func RightJoin[S, J any, T any](q *Query[T], on ...expr.Node) *Query[T] {
	q.joinTypes(rightJoin, modelFor[S](&q.state), modelFor[J](&q.state), on)
	return q
}

func FullJoin[S, J any, T any](q *Query[T], on ...expr.Node) *Query[T] {
	q.joinTypes(fullJoin, modelFor[S](&q.state), modelFor[J](&q.state), on)
	return q
}

// CrossJoin adds J without a condition.
func CrossJoin[J any, T any](q *Query[T]) *Query[T] {
	q.joinTypes(crossJoin, q.model, modelFor[J](&q.state), nil)
	return q
}

// JoinModels joins models only known at run time.
func (q *Query[T]) JoinModels(kind string, source, target *schema.ModelDefinition, on ...expr.Node) *Query[T] {
	q.joinTypes(kind, source, target, on)
	return q
}

func modelFor[M any](s *state) *schema.ModelDefinition {
	md, err := schema.For[M]()
	s.fail(err)
	return md
}

func (s *state) joinTypes(kind string, src, tgt *schema.ModelDefinition, on []expr.Node) {
	if s.err != nil || src == nil || tgt == nil {
		return
	}
	joined := tgt
	if s.hasTable(tgt) && !s.hasTable(src) {
		joined = src
	}
	if s.hasTable(joined) {
		s.fail(fmt.Errorf("%w: %s is already part of the query", schema.ErrAmbiguousRelation, joined.Name))
		return
	}
	s.prefixFieldWithTableName = true
	s.addTable(joined)

	clause := " \n" + kind + " " + s.d.QuoteTable(joined)
	if kind != crossJoin {
		var cond string
		if len(on) > 0 {
			cond = s.predicate(expr.And(on...))
		} else {
			var err error
			cond, err = s.inferJoin(src, tgt)
			s.fail(err)
		}
		clause += " ON " + cond
	}
	s.from += clause
}

func (s *state) inferJoin(src, tgt *schema.ModelDefinition) (string, error) {
	if cond, ok, err := s.foreignKeyCondition(src, tgt); ok || err != nil {
		return cond, err
	}
	if cond, ok, err := s.foreignKeyCondition(tgt, src); ok || err != nil {
		return cond, err
	}
	return "", fmt.Errorf("%w: cannot infer a join condition between %s and %s", schema.ErrAmbiguousRelation, src.Name, tgt.Name)
}

func (s *state) foreignKeyCondition(child, parent *schema.ModelDefinition) (string, bool, error) {
	fk := schema.FindForeignKey(child, parent)
	if fk == nil {
		return "", false, nil
	}
	ref := schema.ReferencedField(fk, parent)
	if ref == nil {
		_, err := parent.MustPrimaryKey("join inference")
		return "", false, err
	}
	return s.qualified(child, fk) + " = " + s.qualified(parent, ref), true, nil
}

package sqlexpr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
)

var (
	errNoDialect = errors.New("sqlexpr: no dialect configured")

	rawArgMarker = regexp.MustCompile(`\{(\d+)\}`)
)

type state struct {
	settings Settings
	d        dialect.Provider

	model  *schema.ModelDefinition
	tables []*schema.ModelDefinition

	selectExpr string
	distinct   bool
	from       string
	where      string
	groupBy    string
	having     string
	orderBy    []string
	offset     *int
	rows       *int

	updateFields []string
	insertFields []string
	params       []dialect.Param

	prefixFieldWithTableName bool
	err                      error
}

// Query accumulates the clauses of a statement over T. Builder methods mutate and return the
// same query; use Clone to branch. The first error met is kept and returned when rendering.
type Query[T any] struct {
	state
}

// From starts a query over T.
func From[T any](s Settings) *Query[T] {
	q := &Query[T]{}
	md, err := schema.For[T]()
	if err != nil {
		q.settings, q.d, q.err = s, s.Dialect, err
		return q
	}
	q.init(s, md)
	return q
}

// FromModel starts a query over a model only known at run time.
func FromModel(s Settings, md *schema.ModelDefinition) *Query[any] {
	q := &Query[any]{}
	q.init(s, md)
	return q
}

func (s *state) init(settings Settings, md *schema.ModelDefinition) {
	s.settings = settings
	s.d = settings.Dialect
	s.model = md
	s.tables = []*schema.ModelDefinition{md}
	if s.d == nil {
		s.err = errNoDialect
		return
	}
	s.from = "FROM " + s.d.QuoteTable(md)
}

func (s *state) fail(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

func (s *state) hasTable(md *schema.ModelDefinition) bool {
	for _, t := range s.tables {
		if t == md {
			return true
		}
	}
	return false
}

func (s *state) addTable(md *schema.ModelDefinition) {
	if !s.hasTable(md) {
		s.tables = append(s.tables, md)
	}
}

// compile renders a node for a clause that is not a condition.
func (s *state) compile(n expr.Node) string {
	if s.err != nil {
		return ""
	}
	v, err := s.visit(n)
	if err != nil {
		s.fail(err)
		return ""
	}
	return s.sql(v, nil)
}

func (s *state) predicate(n expr.Node) string {
	if s.err != nil {
		return ""
	}
	v, err := s.visit(n)
	if err != nil {
		s.fail(err)
		return ""
	}
	cond, err := s.condition(v)
	s.fail(err)
	return cond
}

func (s *state) compileList(nodes []expr.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, s.compile(n))
	}
	return strings.Join(parts, ", ")
}

// Model is the root model of the query.
func (q *Query[T]) Model() *schema.ModelDefinition { return q.model }

// Tables lists the root model followed by joined models in join order.
func (q *Query[T]) Tables() []*schema.ModelDefinition {
	return append([]*schema.ModelDefinition{}, q.tables...)
}

func (q *Query[T]) Dialect() dialect.Provider { return q.d }

func (q *Query[T]) Err() error { return q.err }

// Params returns the bound values in emission order, before placeholders are finalized.
func (q *Query[T]) Params() []dialect.Param {
	return append([]dialect.Param{}, q.params...)
}

// Select sets the select list from projections. A single New node is rendered member by member.
func (q *Query[T]) Select(nodes ...expr.Node) *Query[T] {
	q.distinct = false
	q.selectExpr = q.compileList(nodes)
	return q
}

func (q *Query[T]) SelectDistinct(nodes ...expr.Node) *Query[T] {
	q.Select(nodes...)
	q.distinct = true
	return q
}

// Distinct marks the current select list as DISTINCT.
func (q *Query[T]) Distinct() *Query[T] {
	q.distinct = true
	return q
}

// SelectRaw sets the select list to checked raw SQL.
func (q *Query[T]) SelectRaw(sql string) *Query[T] {
	if err := VerifyFragment(sql); err != nil {
		q.fail(err)
		return q
	}
	sql = strings.TrimSpace(sql)
	if len(sql) >= 7 && strings.EqualFold(sql[:7], "SELECT ") {
		sql = strings.TrimSpace(sql[7:])
	}
	q.selectExpr = sql
	return q
}

// SelectFields selects fields by name across the joined tables.
func (q *Query[T]) SelectFields(names ...string) *Query[T] {
	cols := make([]string, 0, len(names))
	for _, name := range names {
		md, fd := q.resolveField(name)
		if fd == nil {
			q.fail(fmt.Errorf("%w: no field %s in query on %s", schema.ErrMalformedModel, name, q.model.Name))
			return q
		}
		cols = append(cols, q.column(md, fd))
	}
	q.selectExpr = strings.Join(cols, ", ")
	return q
}

// Where replaces the filter with the conjunction of preds. No preds clears it.
func (q *Query[T]) Where(preds ...expr.Node) *Query[T] {
	q.where = ""
	if len(preds) == 0 {
		return q
	}
	q.where = q.predicate(expr.And(preds...))
	return q
}

func (q *Query[T]) And(preds ...expr.Node) *Query[T] {
	q.appendWhere("AND", q.predicate(expr.And(preds...)))
	return q
}

func (q *Query[T]) Or(preds ...expr.Node) *Query[T] {
	if len(preds) == 0 {
		q.where = ""
		return q
	}
	q.appendWhere("OR", q.predicate(expr.And(preds...)))
	return q
}

// WhereRaw appends checked raw SQL with AND. {0}, {1} ... in the text are replaced by args in a
// single pass, so text coming from an argument is never substituted again.
func (q *Query[T]) WhereRaw(sql string, args ...any) *Query[T] {
	if err := VerifyFragment(sql); err != nil {
		q.fail(err)
		return q
	}
	rendered := make(map[int]string, len(args))
	sql = rawArgMarker.ReplaceAllStringFunc(sql, func(m string) string {
		i, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || i >= len(args) {
			return m
		}
		if _, ok := rendered[i]; !ok {
			rendered[i] = q.value(args[i], nil)
		}
		return rendered[i]
	})
	q.appendWhere("AND", sql)
	return q
}

func (s *state) appendWhere(connective, cond string) {
	if cond == "" {
		return
	}
	if s.where == "" {
		s.where = cond
		return
	}
	s.where += " " + connective + " " + cond
}

func (q *Query[T]) GroupBy(nodes ...expr.Node) *Query[T] {
	q.groupBy = ""
	if len(nodes) > 0 {
		q.groupBy = "GROUP BY " + q.compileList(nodes)
	}
	return q
}

func (q *Query[T]) Having(preds ...expr.Node) *Query[T] {
	q.having = ""
	if len(preds) > 0 {
		q.having = "HAVING " + q.predicate(expr.And(preds...))
	}
	return q
}

// Skip sets the offset, 0 meaning none.
func (q *Query[T]) Skip(n int) *Query[T] {
	q.offset = nil
	if n > 0 {
		q.offset = &n
	}
	return q
}

func (q *Query[T]) Take(n int) *Query[T] {
	q.rows = &n
	return q
}

// Limit sets offset and row count. Without arguments it clears both, with one it only takes.
func (q *Query[T]) Limit(n ...int) *Query[T] {
	switch len(n) {
	case 0:
		return q.ClearLimits()
	case 1:
		return q.Take(n[0])
	}
	return q.Skip(n[0]).Take(n[1])
}

func (q *Query[T]) ClearLimits() *Query[T] {
	q.offset, q.rows = nil, nil
	return q
}

// UpdateFields restricts UPDATE to the named fields.
func (q *Query[T]) UpdateFields(names ...string) *Query[T] {
	q.updateFields = names
	return q
}

// InsertFields restricts INSERT to the named fields.
func (q *Query[T]) InsertFields(names ...string) *Query[T] {
	q.insertFields = names
	return q
}

// Clone deep copies the query state. Models are shared.
func (q *Query[T]) Clone() *Query[T] {
	c := &Query[T]{state: q.state}
	c.tables = append([]*schema.ModelDefinition{}, q.tables...)
	c.orderBy = append([]string(nil), q.orderBy...)
	c.updateFields = append([]string(nil), q.updateFields...)
	c.insertFields = append([]string(nil), q.insertFields...)
	c.params = append([]dialect.Param(nil), q.params...)
	if q.offset != nil {
		off := *q.offset
		c.offset = &off
	}
	if q.rows != nil {
		rows := *q.rows
		c.rows = &rows
	}
	return c
}

// resolveField finds a field by Go or column name: Table.Field, then an exact name in table order,
// then the {Table}{Field} convention unless the guess fallback is off.
func (s *state) resolveField(name string) (*schema.ModelDefinition, *schema.FieldDefinition) {
	if table, field, ok := strings.Cut(name, "."); ok {
		table = strings.Trim(table, "\"`[]")
		field = strings.Trim(field, "\"`[]")
		for _, md := range s.tables {
			if strings.EqualFold(md.Name, table) || strings.EqualFold(s.d.TableName(md), table) {
				if fd := md.FieldByName(field); fd != nil {
					return md, fd
				}
			}
		}
		return nil, nil
	}
	for _, md := range s.tables {
		if fd := md.FieldByName(name); fd != nil {
			return md, fd
		}
	}
	if s.settings.DisableGuessFallback {
		return nil, nil
	}
	return s.guessField(name, s.tables)
}

func (s *state) guessField(name string, tables []*schema.ModelDefinition) (*schema.ModelDefinition, *schema.FieldDefinition) {
	for _, md := range tables {
		for _, prefix := range []string{md.Name, s.d.TableName(md)} {
			if len(name) > len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
				if fd := md.FieldByName(name[len(prefix):]); fd != nil {
					return md, fd
				}
			}
		}
	}
	return nil, nil
}

package sqlexpr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/golobby/ormlite/dialect"
	"github.com/golobby/ormlite/expr"
	"github.com/golobby/ormlite/schema"
)

// visit compiles n into PartialSQL, a column reference or a raw value.
func (s *state) visit(n expr.Node) (any, error) {
	switch x := n.(type) {
	case nil:
		return nil, nil
	case expr.Value:
		if inner, ok := x.V.(expr.Node); ok {
			return s.visit(inner)
		}
		return x.V, nil
	case expr.Captured:
		return expr.Eval(x)
	case *expr.Field:
		return s.visitField(x)
	case *expr.Binary:
		return s.visitBinary(x)
	case *expr.Unary:
		return s.visitUnary(x)
	case *expr.Call:
		return s.visitCall(x)
	case *expr.New:
		return s.visitNew(x)
	case expr.SubQuery:
		sql, err := s.subQuery(x.Query)
		if err != nil {
			return nil, err
		}
		return PartialSQL("(" + sql + ")"), nil
	}
	return nil, dialect.NewUnsupportedError(s.d.Name(), fmt.Sprintf("expression node %T", n))
}

func (s *state) visitField(f *expr.Field) (any, error) {
	md := s.model
	if f.Model != nil {
		m, err := schema.Of(f.Model)
		if err != nil {
			return nil, err
		}
		if !s.hasTable(m) {
			return nil, fmt.Errorf("%w: %s is not joined into the query on %s", schema.ErrAmbiguousRelation, m.Name, s.model.Name)
		}
		md = m
	}
	fd := md.FieldByName(f.Name)
	if fd == nil {
		return nil, fmt.Errorf("%w: %s has no field %s", schema.ErrMalformedModel, md.Name, f.Name)
	}
	ref := columnRef{sql: PartialSQL(s.column(md, fd)), field: fd, model: md}
	if e := fd.Enum(); e != nil {
		return EnumMemberAccess{PartialSQL: ref.sql, Enum: e, Field: fd}, nil
	}
	return ref, nil
}

// column quotes a column, qualified with its table once the query has joins.
func (s *state) column(md *schema.ModelDefinition, fd *schema.FieldDefinition) string {
	col := s.d.QuoteColumn(s.d.ColumnName(fd))
	if s.prefixFieldWithTableName {
		return s.d.QuoteTable(md) + "." + col
	}
	return col
}

func (s *state) qualified(md *schema.ModelDefinition, fd *schema.FieldDefinition) string {
	return s.d.QuoteTable(md) + "." + s.d.QuoteColumn(s.d.ColumnName(fd))
}

func (s *state) visitBinary(b *expr.Binary) (any, error) {
	if !expr.References(b) {
		return expr.Eval(b)
	}
	l, err := s.visit(b.Left)
	if err != nil {
		return nil, err
	}
	r, err := s.visit(b.Right)
	if err != nil {
		return nil, err
	}

	if b.Op.IsLogical() {
		ls, err := s.condition(l)
		if err != nil {
			return nil, err
		}
		rs, err := s.condition(r)
		if err != nil {
			return nil, err
		}
		return PartialSQL("(" + ls + " " + b.Op.String() + " " + rs + ")"), nil
	}

	if b.Op == expr.OpEq || b.Op == expr.OpNe {
		side, nilSide := l, r
		if isNull(l) {
			side, nilSide = r, l
		}
		if isNull(nilSide) {
			op := " is null"
			if b.Op == expr.OpNe {
				op = " is not null"
			}
			return PartialSQL("(" + s.sql(side, nil) + op + ")"), nil
		}
	}

	field := fieldOf(l)
	if field == nil {
		field = fieldOf(r)
	}
	ls, rs := s.sql(l, field), s.sql(r, field)
	if s.err != nil {
		return nil, s.err
	}

	switch {
	case b.Op == expr.OpCoalesce:
		return PartialSQL("COALESCE(" + ls + ", " + rs + ")"), nil
	case b.Op == expr.OpAdd && (isText(l) || isText(r)):
		return PartialSQL(s.d.Concat(ls, rs)), nil
	}
	return PartialSQL("(" + ls + " " + b.Op.String() + " " + rs + ")"), nil
}

func (s *state) visitUnary(u *expr.Unary) (any, error) {
	if !expr.References(u) {
		return expr.Eval(u)
	}
	v, err := s.visit(u.Operand)
	if err != nil {
		return nil, err
	}
	if u.Op == expr.OpNeg {
		return PartialSQL("-(" + s.sql(v, nil) + ")"), nil
	}
	cond, err := s.condition(v)
	if err != nil {
		return nil, err
	}
	return PartialSQL("NOT (" + cond + ")"), nil
}

func (s *state) visitNew(n *expr.New) (any, error) {
	if !expr.References(n) {
		return expr.Eval(n)
	}
	cols := make([]string, 0, len(n.Members))
	for _, m := range n.Members {
		v, err := s.visit(m.Expr)
		if err != nil {
			return nil, err
		}
		col := s.sql(v, nil)
		if f := fieldOf(v); f == nil || s.d.ColumnName(f) != m.Name {
			col += " AS " + s.d.QuoteColumn(m.Name)
		}
		cols = append(cols, col)
	}
	return PartialSQL(strings.Join(cols, ", ")), nil
}

// condition renders v in a boolean position. Bare bool columns get an explicit comparison and
// constant bools become tautologies.
func (s *state) condition(v any) (string, error) {
	switch x := v.(type) {
	case columnRef:
		if x.isBool() {
			return string(x.sql) + " = " + s.d.TrueLiteral(), nil
		}
		return string(x.sql), nil
	case EnumMemberAccess:
		return string(x.PartialSQL), nil
	case PartialSQL:
		return string(x), nil
	case bool:
		if x {
			return "(1=1)", nil
		}
		return "(1=0)", nil
	}
	return "", fmt.Errorf("%w: %v (%T) is not a condition", schema.ErrNotSupported, v, v)
}

// sql renders a compiled result, quoting or binding raw values as data of field f.
func (s *state) sql(v any, f *schema.FieldDefinition) string {
	switch x := v.(type) {
	case PartialSQL:
		return string(x)
	case columnRef:
		return string(x.sql)
	case EnumMemberAccess:
		return string(x.PartialSQL)
	}
	return s.value(v, f)
}

// value emits a data value, inline or as a parameter depending on the settings.
func (s *state) value(v any, f *schema.FieldDefinition) string {
	if isNull(v) {
		return "NULL"
	}
	if lit, ok := s.d.ConstructLiteral(v); ok {
		return lit
	}
	dv, err := s.d.ToDBValue(f, v)
	if err != nil {
		s.fail(err)
		return "NULL"
	}
	if !s.settings.Parameterized {
		return s.d.Literal(dv)
	}
	return s.addParam(dv)
}

func (s *state) addParam(v any) string {
	s.params = append(s.params, dialect.Param{Value: v})
	return dialect.Placeholder(len(s.params) - 1)
}

func (s *state) subQuery(r expr.Renderer) (string, error) {
	text, values, err := r.RenderSubQuery()
	if err != nil {
		return "", err
	}
	text = dialect.ShiftPlaceholders(text, len(s.params))
	for _, v := range values {
		s.params = append(s.params, dialect.Param{Value: v})
	}
	return text, nil
}

func (s *state) visitCall(c *expr.Call) (any, error) {
	if !expr.References(c) {
		return expr.Eval(c)
	}
	switch c.Method {
	case expr.MethodIn:
		if len(c.Args) != 2 {
			break
		}
		return s.in(c.Args[0], c.Args[1])
	case expr.MethodDesc:
		arg, err := s.arg(c, 0)
		if err != nil {
			return nil, err
		}
		return PartialSQL(arg + " DESC"), nil
	case expr.MethodAs:
		arg, err := s.arg(c, 0)
		if err != nil {
			return nil, err
		}
		alias, _ := expr.Eval(c.Args[1])
		return PartialSQL(arg + " AS " + s.d.QuoteColumn(fmt.Sprint(alias))), nil
	case expr.MethodCount:
		if len(c.Args) == 0 {
			return PartialSQL("COUNT(*)"), nil
		}
		return s.aggregate("COUNT", c)
	case expr.MethodCountDistinct:
		arg, err := s.arg(c, 0)
		if err != nil {
			return nil, err
		}
		return PartialSQL("COUNT(DISTINCT " + arg + ")"), nil
	case expr.MethodSum, expr.MethodAvg, expr.MethodMin, expr.MethodMax:
		return s.aggregate(strings.ToUpper(c.Method), c)
	case expr.MethodAllFields:
		if len(c.Args) != 1 {
			break
		}
		val, _ := c.Args[0].(expr.Value)
		t, ok := val.V.(reflect.Type)
		if !ok {
			break
		}
		md, err := schema.Of(t)
		if err != nil {
			return nil, err
		}
		return PartialSQL(s.d.QuoteTable(md) + ".*"), nil
	case expr.MethodContains:
		if list, ok := s.listTarget(c.Target); ok && len(c.Args) == 1 {
			return s.in(c.Args[0], list)
		}
		return s.like(c, "%", "%")
	case expr.MethodStartsWith:
		return s.like(c, "", "%")
	case expr.MethodEndsWith:
		return s.like(c, "%", "")
	case expr.MethodToUpper, expr.MethodToLower, expr.MethodTrim, expr.MethodTrimStart,
		expr.MethodTrimEnd, expr.MethodLength, expr.MethodSubstring:
		return s.stringFunc(c)
	}
	return s.method(c)
}

func (s *state) arg(c *expr.Call, i int) (string, error) {
	if i >= len(c.Args) {
		return "", fmt.Errorf("%w: %s needs %d argument(s)", schema.ErrNotSupported, c.Method, i+1)
	}
	v, err := s.visit(c.Args[i])
	if err != nil {
		return "", err
	}
	return s.sql(v, nil), s.err
}

func (s *state) aggregate(fn string, c *expr.Call) (any, error) {
	arg, err := s.arg(c, 0)
	if err != nil {
		return nil, err
	}
	return PartialSQL(fn + "(" + arg + ")"), nil
}

// listTarget reports whether a Contains target is an in-memory collection or a sub-query.
func (s *state) listTarget(n expr.Node) (expr.Node, bool) {
	switch x := n.(type) {
	case expr.SubQuery:
		return x, true
	case expr.Value, expr.Captured:
		v, err := expr.Eval(x)
		if err != nil {
			return nil, false
		}
		rv := reflect.ValueOf(v)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			return expr.Value{V: v}, true
		}
	}
	return nil, false
}

func (s *state) in(field, list expr.Node) (any, error) {
	col, err := s.visit(field)
	if err != nil {
		return nil, err
	}
	lhs := s.sql(col, nil)
	if sq, ok := list.(expr.SubQuery); ok {
		sql, err := s.subQuery(sq.Query)
		if err != nil {
			return nil, err
		}
		return PartialSQL(lhs + " IN (" + sql + ")"), nil
	}
	v, err := expr.Eval(list)
	if err != nil {
		return nil, err
	}
	f := fieldOf(col)
	var items []string
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			items = append(items, s.value(rv.Index(i).Interface(), f))
		}
	} else if v != nil {
		items = append(items, s.value(v, f))
	}
	if len(items) == 0 {
		items = []string{"NULL"}
	}
	return PartialSQL(lhs + " IN (" + strings.Join(items, ",") + ")"), s.err
}

func (s *state) like(c *expr.Call, prefix, suffix string) (any, error) {
	if c.Target == nil || len(c.Args) != 1 {
		return nil, dialect.NewUnsupportedError(s.d.Name(), c.Method+" without a target")
	}
	target, err := s.visit(c.Target)
	if err != nil {
		return nil, err
	}
	arg, err := s.visit(c.Args[0])
	if err != nil {
		return nil, err
	}
	lhs := s.sql(target, nil)
	switch x := arg.(type) {
	case PartialSQL, columnRef, EnumMemberAccess:
		parts := []string{}
		if prefix != "" {
			parts = append(parts, s.d.QuoteString(prefix))
		}
		parts = append(parts, s.sql(x, nil))
		if suffix != "" {
			parts = append(parts, s.d.QuoteString(suffix))
		}
		return PartialSQL(lhs + " LIKE " + s.d.Concat(parts...)), nil
	}
	text, escaped := s.d.EscapeWildcards(fmt.Sprint(arg))
	sql := lhs + " LIKE " + s.value(prefix+text+suffix, nil)
	if escaped {
		sql += s.d.LikeEscape()
	}
	return PartialSQL(sql), s.err
}

func (s *state) stringFunc(c *expr.Call) (any, error) {
	if c.Target == nil {
		return nil, dialect.NewUnsupportedError(s.d.Name(), c.Method+" without a target")
	}
	target, err := s.visit(c.Target)
	if err != nil {
		return nil, err
	}
	var args []string
	for i, a := range c.Args {
		v, err := expr.Eval(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %s arguments must be constant", schema.ErrNotSupported, c.Method)
		}
		n, ok := expr.IntValue(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s arguments must be integers, got %T", schema.ErrNotSupported, c.Method, v)
		}
		if i == 0 && c.Method == expr.MethodSubstring {
			n++
		}
		args = append(args, strconv.FormatInt(n, 10))
	}
	sql, err := s.d.StringFunc(c.Method, s.sql(target, nil), args...)
	if err != nil {
		return nil, err
	}
	return PartialSQL(sql), nil
}

func (s *state) method(c *expr.Call) (any, error) {
	if c.Target != nil {
		target, err := s.visit(c.Target)
		if err != nil {
			return nil, err
		}
		f := fieldOf(target)
		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			v, err := s.visit(a)
			if err != nil {
				return nil, err
			}
			args[i] = s.sql(v, f)
		}
		if sql, ok := s.d.SQLMethod(c.Method, s.sql(target, nil), args); ok {
			return PartialSQL(sql), s.err
		}
	}
	return nil, dialect.NewUnsupportedError(s.d.Name(), "method "+c.Method)
}

func fieldOf(v any) *schema.FieldDefinition {
	switch x := v.(type) {
	case columnRef:
		return x.field
	case EnumMemberAccess:
		return x.Field
	}
	return nil
}

func isText(v any) bool {
	switch x := v.(type) {
	case string:
		return true
	case columnRef:
		return x.field != nil && x.field.Underlying().Kind() == reflect.String && !x.field.IsEnum()
	}
	return false
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map:
		return rv.IsNil()
	}
	return false
}

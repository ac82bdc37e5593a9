package expr

import "reflect"

// Method names understood by the compiler.
const (
	MethodIn            = "In"
	MethodDesc          = "Desc"
	MethodAs            = "As"
	MethodCount         = "Count"
	MethodCountDistinct = "CountDistinct"
	MethodSum           = "Sum"
	MethodAvg           = "Avg"
	MethodMin           = "Min"
	MethodMax           = "Max"
	MethodAllFields     = "AllFields"
	MethodContains      = "Contains"
	MethodStartsWith    = "StartsWith"
	MethodEndsWith      = "EndsWith"
	MethodToUpper       = "ToUpper"
	MethodToLower       = "ToLower"
	MethodTrim          = "Trim"
	MethodTrimStart     = "TrimStart"
	MethodTrimEnd       = "TrimEnd"
	MethodSubstring     = "Substring"
	MethodLength        = "Length"
	MethodEquals        = "Equals"
)

// helpers that only mean something in SQL and never fold to a constant
var sqlOnly = map[string]bool{
	MethodIn: true, MethodDesc: true, MethodAs: true, MethodCount: true, MethodCountDistinct: true,
	MethodSum: true, MethodAvg: true, MethodMin: true, MethodMax: true, MethodAllFields: true,
}

// Col is a field of the query's root type.
func Col(name string) *Field {
	return &Field{Name: name}
}

// F is a field of T, for predicates over joined types.
func F[T any](name string) *Field {
	return &Field{Model: reflect.TypeOf((*T)(nil)).Elem(), Name: name}
}

func V(v any) Value {
	return Value{V: v}
}

// Capture defers reading a variable until the expression is compiled.
func Capture(fn func() any) Captured {
	return Captured{Fn: fn}
}

func Sub(q Renderer) SubQuery {
	return SubQuery{Query: q}
}

// Lift turns any Go value into a Node, leaving Nodes untouched.
func Lift(v any) Node {
	switch n := v.(type) {
	case Node:
		return n
	case Renderer:
		return SubQuery{Query: n}
	}
	return Value{V: v}
}

func binary(op Op, l, r any) *Binary {
	return &Binary{Op: op, Left: Lift(l), Right: Lift(r)}
}

func Eq(l, r any) *Binary       { return binary(OpEq, l, r) }
func Ne(l, r any) *Binary       { return binary(OpNe, l, r) }
func Gt(l, r any) *Binary       { return binary(OpGt, l, r) }
func Ge(l, r any) *Binary       { return binary(OpGe, l, r) }
func Lt(l, r any) *Binary       { return binary(OpLt, l, r) }
func Le(l, r any) *Binary       { return binary(OpLe, l, r) }
func Add(l, r any) *Binary      { return binary(OpAdd, l, r) }
func Subtract(l, r any) *Binary { return binary(OpSub, l, r) }
func Mul(l, r any) *Binary      { return binary(OpMul, l, r) }
func Div(l, r any) *Binary      { return binary(OpDiv, l, r) }
func Mod(l, r any) *Binary      { return binary(OpMod, l, r) }
func Coalesce(l, r any) *Binary { return binary(OpCoalesce, l, r) }

// And folds its operands left to right. A single operand is returned as is.
func And(nodes ...Node) Node {
	return fold(OpAnd, nodes)
}

func Or(nodes ...Node) Node {
	return fold(OpOr, nodes)
}

func fold(op Op, nodes []Node) Node {
	var out Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if out == nil {
			out = n
			continue
		}
		out = &Binary{Op: op, Left: out, Right: n}
	}
	return out
}

func Not(n Node) *Unary {
	return &Unary{Op: OpNot, Operand: n}
}

func Neg(n Node) *Unary {
	return &Unary{Op: OpNeg, Operand: n}
}

func call(method string, target Node, args ...any) *Call {
	c := &Call{Method: method, Target: target}
	for _, a := range args {
		c.Args = append(c.Args, Lift(a))
	}
	return c
}

// In is field IN (values...). A single slice argument is spread.
func In(field Node, values ...any) *Call {
	if len(values) == 1 {
		if q, ok := values[0].(Renderer); ok {
			return &Call{Method: MethodIn, Args: []Node{field, SubQuery{Query: q}}}
		}
		rv := reflect.ValueOf(values[0])
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			return &Call{Method: MethodIn, Args: []Node{field, Value{V: values[0]}}}
		}
	}
	return &Call{Method: MethodIn, Args: []Node{field, Value{V: values}}}
}

// InQuery is field IN (sub-query).
func InQuery(field Node, q Renderer) *Call {
	return &Call{Method: MethodIn, Args: []Node{field, SubQuery{Query: q}}}
}

// ListContains is the collection-first spelling of In, list.Contains(field).
func ListContains(list any, field Node) *Call {
	return &Call{Method: MethodContains, Target: Lift(list), Args: []Node{field}}
}

func Desc(n Node) *Call {
	return &Call{Method: MethodDesc, Args: []Node{n}}
}

func As(n Node, alias string) *Call {
	return &Call{Method: MethodAs, Args: []Node{n, Value{V: alias}}}
}

// Count with no argument is COUNT(*).
func Count(n ...Node) *Call {
	return &Call{Method: MethodCount, Args: n}
}

func CountDistinct(n Node) *Call { return &Call{Method: MethodCountDistinct, Args: []Node{n}} }
func Sum(n Node) *Call           { return &Call{Method: MethodSum, Args: []Node{n}} }
func Avg(n Node) *Call           { return &Call{Method: MethodAvg, Args: []Node{n}} }
func Min(n Node) *Call           { return &Call{Method: MethodMin, Args: []Node{n}} }
func Max(n Node) *Call           { return &Call{Method: MethodMax, Args: []Node{n}} }

// AllFields selects every column of T.
func AllFields[T any]() *Call {
	return &Call{Method: MethodAllFields, Args: []Node{Value{V: reflect.TypeOf((*T)(nil)).Elem()}}}
}

// NewShape builds a projection, see M.
func NewShape(members ...Member) *New {
	return &New{Members: members}
}

func M(name string, n any) Member {
	return Member{Name: name, Expr: Lift(n)}
}

func (f *Field) Eq(v any) *Binary     { return Eq(f, v) }
func (f *Field) Ne(v any) *Binary     { return Ne(f, v) }
func (f *Field) Gt(v any) *Binary     { return Gt(f, v) }
func (f *Field) Ge(v any) *Binary     { return Ge(f, v) }
func (f *Field) Lt(v any) *Binary     { return Lt(f, v) }
func (f *Field) Le(v any) *Binary     { return Le(f, v) }
func (f *Field) IsNull() *Binary      { return Eq(f, nil) }
func (f *Field) IsNotNull() *Binary   { return Ne(f, nil) }
func (f *Field) Add(v any) *Binary    { return Add(f, v) }
func (f *Field) Sub(v any) *Binary    { return Subtract(f, v) }
func (f *Field) Mul(v any) *Binary    { return Mul(f, v) }
func (f *Field) Div(v any) *Binary    { return Div(f, v) }
func (f *Field) In(vals ...any) *Call { return In(f, vals...) }
func (f *Field) Desc() *Call          { return Desc(f) }
func (f *Field) As(alias string) *Call {
	return As(f, alias)
}

func (f *Field) StartsWith(s any) *Call { return call(MethodStartsWith, f, s) }
func (f *Field) EndsWith(s any) *Call   { return call(MethodEndsWith, f, s) }
func (f *Field) Contains(s any) *Call   { return call(MethodContains, f, s) }
func (f *Field) ToUpper() *Call         { return call(MethodToUpper, f) }
func (f *Field) ToLower() *Call         { return call(MethodToLower, f) }
func (f *Field) Trim() *Call            { return call(MethodTrim, f) }
func (f *Field) TrimStart() *Call       { return call(MethodTrimStart, f) }
func (f *Field) TrimEnd() *Call         { return call(MethodTrimEnd, f) }
func (f *Field) Length() *Call          { return call(MethodLength, f) }
func (f *Field) Equals(v any) *Call     { return call(MethodEquals, f, v) }

// Substring takes a zero based start and an optional length.
func (f *Field) Substring(start int, length ...int) *Call {
	args := []any{start}
	if len(length) > 0 {
		args = append(args, length[0])
	}
	return call(MethodSubstring, f, args...)
}

func (c *Call) Eq(v any) *Binary { return Eq(c, v) }
func (c *Call) Ne(v any) *Binary { return Ne(c, v) }
func (c *Call) Gt(v any) *Binary { return Gt(c, v) }
func (c *Call) Ge(v any) *Binary { return Ge(c, v) }
func (c *Call) Lt(v any) *Binary { return Lt(c, v) }
func (c *Call) Le(v any) *Binary { return Le(c, v) }

func (c *Call) StartsWith(s any) *Call { return call(MethodStartsWith, c, s) }
func (c *Call) EndsWith(s any) *Call   { return call(MethodEndsWith, c, s) }
func (c *Call) Contains(s any) *Call   { return call(MethodContains, c, s) }
func (c *Call) ToUpper() *Call         { return call(MethodToUpper, c) }
func (c *Call) ToLower() *Call         { return call(MethodToLower, c) }
func (c *Call) Trim() *Call            { return call(MethodTrim, c) }
func (c *Call) Length() *Call          { return call(MethodLength, c) }
func (c *Call) Desc() *Call            { return Desc(c) }
func (c *Call) As(alias string) *Call  { return As(c, alias) }

// Package expr is the expression tree that predicates, projections and orderings are built from.
//
// Trees are plain values assembled with the helpers in this package:
//
//	expr.And(expr.Col("Age").Gt(40), expr.Col("Name").StartsWith("J"))
//
// A tree says nothing about SQL. The sqlexpr package walks it and renders
// dialect specific text and parameters.
package expr

import (
	"fmt"
	"reflect"
	"strings"
)

// Node is one of Field, Value, Captured, Binary, Unary, Call, New or SubQuery.
type Node interface {
	node()
}

type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpCoalesce
	OpNot
	OpNeg
)

var opNames = [...]string{"=", "<>", ">", ">=", "<", "<=", "AND", "OR", "+", "-", "*", "/", "%", "&", "|", "??", "NOT", "-"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

func (o Op) IsComparison() bool {
	return o >= OpEq && o <= OpLe
}

func (o Op) IsLogical() bool {
	return o == OpAnd || o == OpOr
}

func (o Op) IsArithmetic() bool {
	return o >= OpAdd && o <= OpBitOr
}

// Field is a member access. A nil Model means the root type of the query it is compiled in.
type Field struct {
	Model reflect.Type
	Name  string
}

// Value is a constant.
type Value struct {
	V any
}

// Captured is a closed-over value, read when the tree is compiled.
type Captured struct {
	Fn func() any
}

type Binary struct {
	Op          Op
	Left, Right Node
}

type Unary struct {
	Op      Op
	Operand Node
}

// Call is a method call on Target, or a helper call when Target is nil.
type Call struct {
	Method string
	Target Node
	Args   []Node
}

// New shapes a projection out of named members.
type New struct {
	Members []Member
}

type Member struct {
	Name string
	Expr Node
}

// Renderer is implemented by queries that can be nested inside another query.
// The text uses positional @0, @1 placeholders that index into the returned values.
type Renderer interface {
	RenderSubQuery() (string, []any, error)
}

type SubQuery struct {
	Query Renderer
}

func (*Field) node()   {}
func (Value) node()    {}
func (Captured) node() {}
func (*Binary) node()  {}
func (*Unary) node()   {}
func (*Call) node()    {}
func (*New) node()     {}
func (SubQuery) node() {}

func (f *Field) String() string {
	if f.Model != nil {
		return f.Model.Name() + "." + f.Name
	}
	return f.Name
}

func (v Value) String() string {
	return fmt.Sprintf("%#v", v.V)
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%v %s %v)", b.Left, b.Op, b.Right)
}

func (u *Unary) String() string {
	return fmt.Sprintf("%s(%v)", u.Op, u.Operand)
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprint(a)
	}
	if c.Target == nil {
		return fmt.Sprintf("%s(%s)", c.Method, strings.Join(args, ", "))
	}
	return fmt.Sprintf("%v.%s(%s)", c.Target, c.Method, strings.Join(args, ", "))
}

// Walk calls fn for n and each of its descendants, stopping early when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case *Binary:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
	case *Unary:
		Walk(x.Operand, fn)
	case *Call:
		Walk(x.Target, fn)
		for _, a := range x.Args {
			Walk(a, fn)
		}
	case *New:
		for _, m := range x.Members {
			Walk(m.Expr, fn)
		}
	}
}

// References reports whether n reads a column or embeds a sub-query.
func References(n Node) bool {
	found := false
	Walk(n, func(x Node) bool {
		switch c := x.(type) {
		case *Field, SubQuery:
			found = true
		case *Call:
			if sqlOnly[c.Method] {
				found = true
			}
		}
		return !found
	})
	return found
}

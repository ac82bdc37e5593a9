package expr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNotConstant is returned by Eval for trees that read columns.
var ErrNotConstant = errors.New("expression is not constant")

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// Eval computes the value of a tree that does not reference any column.
func Eval(n Node) (any, error) {
	switch x := n.(type) {
	case nil:
		return nil, nil
	case Value:
		return x.V, nil
	case Captured:
		if x.Fn == nil {
			return nil, nil
		}
		return x.Fn(), nil
	case *Field, SubQuery:
		return nil, ErrNotConstant
	case *Unary:
		v, err := Eval(x.Operand)
		if err != nil {
			return nil, err
		}
		return evalUnary(x.Op, v)
	case *Binary:
		l, err := Eval(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(x.Right)
		if err != nil {
			return nil, err
		}
		return EvalBinary(x.Op, l, r)
	case *Call:
		return evalCall(x)
	case *New:
		out := make(map[string]any, len(x.Members))
		for _, m := range x.Members {
			v, err := Eval(m.Expr)
			if err != nil {
				return nil, err
			}
			out[m.Name] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot evaluate %T", n)
}

func evalUnary(op Op, v any) (any, error) {
	switch op {
	case OpNot:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("NOT needs a bool, got %T", v)
		}
		return !b, nil
	case OpNeg:
		if i, ok := IntValue(v); ok {
			return -i, nil
		}
		if f, ok := toFloat(v); ok {
			return -f, nil
		}
		return nil, fmt.Errorf("cannot negate %T", v)
	}
	return nil, fmt.Errorf("unknown unary operator %s", op)
}

// EvalBinary applies op to two constants.
func EvalBinary(op Op, l, r any) (any, error) {
	switch {
	case op.IsLogical():
		lb, lok := l.(bool)
		rb, rok := r.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("%s needs bools, got %T and %T", op, l, r)
		}
		if op == OpAnd {
			return lb && rb, nil
		}
		return lb || rb, nil
	case op.IsComparison():
		c, ok := compare(l, r)
		if !ok {
			if op == OpEq {
				return equal(l, r), nil
			}
			if op == OpNe {
				return !equal(l, r), nil
			}
			return nil, fmt.Errorf("cannot compare %T with %T", l, r)
		}
		switch op {
		case OpEq:
			return c == 0, nil
		case OpNe:
			return c != 0, nil
		case OpGt:
			return c > 0, nil
		case OpGe:
			return c >= 0, nil
		case OpLt:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case op == OpCoalesce:
		if l == nil || isNilPtr(l) {
			return r, nil
		}
		return l, nil
	case op.IsArithmetic():
		return arithmetic(op, l, r)
	}
	return nil, fmt.Errorf("unknown binary operator %s", op)
}

func arithmetic(op Op, l, r any) (any, error) {
	if ls, ok := l.(string); ok && op == OpAdd {
		return ls + fmt.Sprint(r), nil
	}
	li, lok := IntValue(l)
	ri, rok := IntValue(r)
	if lok && rok {
		switch op {
		case OpAdd:
			return li + ri, nil
		case OpSub:
			return li - ri, nil
		case OpMul:
			return li * ri, nil
		case OpDiv, OpMod:
			if ri == 0 {
				return nil, errors.New("division by zero")
			}
			if op == OpDiv {
				return li / ri, nil
			}
			return li % ri, nil
		case OpBitAnd:
			return li & ri, nil
		case OpBitOr:
			return li | ri, nil
		}
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", op, l, r)
	}
	switch op {
	case OpAdd:
		return lf + rf, nil
	case OpSub:
		return lf - rf, nil
	case OpMul:
		return lf * rf, nil
	case OpDiv:
		return lf / rf, nil
	}
	return nil, fmt.Errorf("cannot apply %s to floating point values", op)
}

func evalCall(c *Call) (any, error) {
	if sqlOnly[c.Method] {
		return nil, ErrNotConstant
	}
	target, err := Eval(c.Target)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		if args[i], err = Eval(a); err != nil {
			return nil, err
		}
	}
	if c.Method == MethodEquals && len(args) == 1 {
		return equal(target, args[0]), nil
	}
	if c.Method == MethodContains && len(args) == 1 {
		if s, ok := target.(string); ok {
			return strings.Contains(s, fmt.Sprint(args[0])), nil
		}
		return listContains(target, args[0]), nil
	}
	s, ok := target.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %T", ErrNotConstant, c.Method, target)
	}
	switch c.Method {
	case MethodToUpper:
		return upper.String(s), nil
	case MethodToLower:
		return lower.String(s), nil
	case MethodTrim:
		return strings.TrimSpace(s), nil
	case MethodTrimStart:
		return strings.TrimLeft(s, " \t\r\n"), nil
	case MethodTrimEnd:
		return strings.TrimRight(s, " \t\r\n"), nil
	case MethodLength:
		return int64(len([]rune(s))), nil
	case MethodStartsWith:
		return strings.HasPrefix(s, fmt.Sprint(args[0])), nil
	case MethodEndsWith:
		return strings.HasSuffix(s, fmt.Sprint(args[0])), nil
	case MethodSubstring:
		rs := []rune(s)
		start, _ := IntValue(args[0])
		if start < 0 || int(start) > len(rs) {
			return "", nil
		}
		end := int64(len(rs))
		if len(args) > 1 {
			n, _ := IntValue(args[1])
			if n < 0 {
				n = 0
			}
			if start+n < end {
				end = start + n
			}
		}
		return string(rs[start:end]), nil
	}
	return nil, fmt.Errorf("cannot evaluate %s", c.Method)
}

func listContains(list, v any) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if equal(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

func equal(l, r any) bool {
	if l == nil || r == nil {
		return (l == nil || isNilPtr(l)) && (r == nil || isNilPtr(r))
	}
	if c, ok := compare(l, r); ok {
		return c == 0
	}
	return reflect.DeepEqual(l, r)
}

func compare(l, r any) (int, bool) {
	if li, ok := IntValue(l); ok {
		if ri, ok := IntValue(r); ok {
			return cmp3(li < ri, li > ri), true
		}
	}
	if lf, ok := toFloat(l); ok {
		if rf, ok := toFloat(r); ok {
			return cmp3(lf < rf, lf > rf), true
		}
	}
	switch lv := l.(type) {
	case string:
		if rv, ok := r.(string); ok {
			return strings.Compare(lv, rv), true
		}
	case time.Time:
		if rv, ok := r.(time.Time); ok {
			return lv.Compare(rv), true
		}
	case bool:
		if rv, ok := r.(bool); ok {
			if lv == rv {
				return 0, true
			}
		}
	}
	return 0, false
}

func cmp3(lt, gt bool) int {
	switch {
	case lt:
		return -1
	case gt:
		return 1
	}
	return 0
}

// IntValue widens any integer kind to int64.
func IntValue(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if i, ok := IntValue(v); ok {
		return float64(i), true
	}
	return 0, false
}

func isNilPtr(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

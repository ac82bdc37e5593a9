package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

type enumValue interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32
	fmt.Stringer
}

// Enum holds the names and ordinals of a registered enumeration type.
type Enum struct {
	Type   reflect.Type
	names  map[int64]string
	values map[string]int64
}

var enums sync.Map // reflect.Type -> *Enum

// RegisterEnum records the members of an enumeration so that columns of its type are
// compared and stored by name, or by ordinal when the field asks for it.
func RegisterEnum[E enumValue](members ...E) {
	e := &Enum{
		Type:   reflect.TypeOf((*E)(nil)).Elem(),
		names:  map[int64]string{},
		values: map[string]int64{},
	}
	for _, m := range members {
		ord := reflect.ValueOf(m).Convert(reflect.TypeOf(int64(0))).Int()
		name := m.String()
		e.names[ord] = name
		e.values[strings.ToLower(name)] = ord
	}
	enums.Store(e.Type, e)
}

// EnumOf returns the registered enum of t, or nil.
func EnumOf(t reflect.Type) *Enum {
	if t == nil {
		return nil
	}
	if e, ok := enums.Load(t); ok {
		return e.(*Enum)
	}
	return nil
}

// Ordinal resolves a member given as the enum type itself, any integer, or a member name.
func (e *Enum) Ordinal(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.String:
		if ord, ok := e.values[strings.ToLower(rv.String())]; ok {
			return ord, nil
		}
		if ord, err := strconv.ParseInt(rv.String(), 10, 64); err == nil {
			return ord, nil
		}
	case reflect.Slice:
		if b, ok := v.([]byte); ok {
			return e.Ordinal(string(b))
		}
	}
	return 0, fmt.Errorf("%v is not a member of %s", v, e.Type)
}

// Name returns the member name of v.
func (e *Enum) Name(v any) (string, error) {
	ord, err := e.Ordinal(v)
	if err != nil {
		return "", err
	}
	if name, ok := e.names[ord]; ok {
		return name, nil
	}
	return strconv.FormatInt(ord, 10), nil
}

// Wire converts v into the stored representation, the ordinal when asInt is set and the name otherwise.
func (e *Enum) Wire(v any, asInt bool) (any, error) {
	if asInt {
		return e.Ordinal(v)
	}
	return e.Name(v)
}

// Value converts a stored name or ordinal back into a value of the enum type.
func (e *Enum) Value(stored any) (reflect.Value, error) {
	ord, err := e.Ordinal(stored)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(ord).Convert(e.Type), nil
}
